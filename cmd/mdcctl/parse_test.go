package main

import (
	"testing"

	"github.com/muurk/mdcctl/internal/protocol"
)

func TestParseOnOff(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"on", true, false},
		{"ON", true, false},
		{"1", true, false},
		{"off", false, false},
		{"false", false, false},
		{"maybe", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOnOff(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseOnOff(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseOnOff(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseInput(t *testing.T) {
	tests := []struct {
		in      string
		want    byte
		wantErr bool
	}{
		{"hdmi1", protocol.InputHDMI1, false},
		{"HDMI2", protocol.InputHDMI2, false},
		{"HDMI 3", protocol.InputHDMI3, false},
		{"MagicInfo", protocol.InputMagicInfo, false},
		{"dp", protocol.InputDisplayPort, false},
		{"DisplayPort", protocol.InputDisplayPort, false},
		{"0x25", protocol.InputDisplayPort, false},
		{"0x40", 0x40, false},
		{"35", 0x23, false},
		{"0x100", 0, true},
		{"vga", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseInput(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseInput(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseInput(%q) = 0x%02x, want 0x%02x", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseVolume(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"55", 55, false},
		{"100", 100, false},
		{"101", 0, true},
		{"-1", 0, true},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseVolume(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseVolume(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseVolume(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
