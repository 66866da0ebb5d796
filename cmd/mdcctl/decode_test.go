package main

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/protocol"
)

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"aa 11 01 00 12", []byte{0xAA, 0x11, 0x01, 0x00, 0x12}, false},
		{"0xAA,0x11:01\n0012", []byte{0xAA, 0x11, 0x01, 0x00, 0x12}, false},
		{"aa1", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := decodeHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("decodeHex(%q) = % x, want % x", tt.in, got, tt.want)
			}
		})
	}
}

func TestDescribeChunk(t *testing.T) {
	acks := protocol.NewAckSet(0x01)
	set, _ := protocol.Encode(protocol.InputSet(protocol.InputHDMI2), 0x01)
	query, _ := protocol.Encode(protocol.VolumeQuery(), 0x01)

	tests := []struct {
		name  string
		chunk []byte
		want  string
	}{
		{"power on ack", protocol.EncodeAck(0x01, protocol.CmdPower, 0x01), "ack power_on: power = on"},
		{"volume ack", protocol.EncodeAck(0x01, protocol.CmdVolume, 0x2A), "volume = 42"},
		{"input set", set, "source set HDMI 2 to device 0x01"},
		{"volume query", query, "volume query to device 0x01"},
		{"nak", protocol.EncodeNak(0x01, 0x99, 0x01), "nak for command 0x99"},
		{"other device ack", protocol.EncodeAck(0x05, protocol.CmdPower, 0x01), "ack from device 0x05"},
		{"bad checksum", []byte{0xAA, 0x11, 0x01, 0x00, 0x00}, "invalid: checksum mismatch"},
		{"unknown command", protocol.BuildFrame(0x0B, 0x01), "unknown command 0x0b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describeChunk(tt.chunk, acks)
			if !strings.Contains(got, tt.want) {
				t.Errorf("describeChunk() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestDecodeStreamSplitsCoalescedFrames(t *testing.T) {
	var data []byte
	data = append(data, 0x00, 0x01) // noise before the first marker
	data = append(data, protocol.EncodeAck(0x01, protocol.CmdWallMode, 0x01)...)
	data = append(data, protocol.EncodeAck(0x01, protocol.CmdInput, protocol.InputHDMI3)...)

	var buf bytes.Buffer
	if err := decodeStream(&buf, data, protocol.NewAckSet(0x01)); err != nil {
		t.Fatalf("decodeStream() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{"#1", "wall_on", "#2", "HDMI 3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "#3") {
		t.Errorf("unexpected third frame:\n%s", out)
	}
}

func TestDecodeStreamLogsRawBytes(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	data := protocol.EncodeAck(0x01, protocol.CmdPower, 0x01)
	var buf bytes.Buffer
	if err := decodeStream(&buf, data, protocol.NewAckSet(0x01)); err != nil {
		t.Fatalf("decodeStream() error = %v", err)
	}

	entries := logs.FilterMessage("Decoding capture").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d capture entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["length"] != int64(len(data)) {
		t.Errorf("length = %v, want %d", fields["length"], len(data))
	}
	if fields["hex"] != "aaff010341110156" {
		t.Errorf("hex = %v, want aaff010341110156", fields["hex"])
	}
}
