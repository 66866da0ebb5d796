package protocol

import "testing"

func TestClassify(t *testing.T) {
	acks := NewAckSet(0x01)

	tests := []struct {
		name      string
		data      []byte
		wantKind  AckKind
		wantValue byte
		wantOK    bool
	}{
		{"power on", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x11, 0x01, 0x56}, AckPowerOn, 0x01, true},
		{"power off", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x11, 0x00, 0x55}, AckPowerOff, 0x00, true},
		{"wall on", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x84, 0x01, 0xc9}, AckWallOn, 0x01, true},
		{"wall off", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x84, 0x00, 0xc8}, AckWallOff, 0x00, true},
		{"input hdmi2", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x14, 0x23, 0x7b}, AckInputSwitch, 0x23, true},
		{"volume 42", EncodeAck(0x01, CmdVolume, 42), AckVolumeSet, 42, true},
		{"input with wrong checksum still matches prefix", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x14, 0x31, 0x00}, AckInputSwitch, 0x31, true},
		{"input with trailing bytes reads second-to-last", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x14, 0x00, 0x00, 0x25, 0x00}, AckInputSwitch, 0x25, true},
		{"power on bad checksum", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x11, 0x01, 0x00}, AckUnrecognized, 0, false},
		{"power ack other device", EncodeAck(0x02, CmdPower, 0x01), AckUnrecognized, 0, false},
		{"nak", EncodeNak(0x01, CmdPower, 0x01), AckUnrecognized, 0, false},
		{"shorter than prefix", []byte{0xaa, 0xff, 0x01, 0x03, 0x41}, AckUnrecognized, 0, false},
		{"prefix only", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x14}, AckUnrecognized, 0, false},
		{"input prefix plus one byte", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x14, 0x23}, AckInputSwitch, 0x14, true},
		{"volume prefix plus one byte", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x12, 0x30}, AckVolumeSet, 0x12, true},
		{"empty", nil, AckUnrecognized, 0, false},
		{"command echo", []byte{0xaa, 0x11, 0x01, 0x00, 0x12}, AckUnrecognized, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := acks.Classify(tt.data)
			if ok != tt.wantOK {
				t.Fatalf("Classify() ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Kind != tt.wantKind {
				t.Errorf("Classify() kind = %s, want %s", got.Kind, tt.wantKind)
			}
			if ok && got.Value != tt.wantValue {
				t.Errorf("Classify() value = 0x%02x, want 0x%02x", got.Value, tt.wantValue)
			}
		})
	}
}

func TestAckSetFollowsDeviceID(t *testing.T) {
	acks := NewAckSet(0x02)
	if acks.DeviceID() != 0x02 {
		t.Fatalf("DeviceID() = 0x%02x, want 0x02", acks.DeviceID())
	}
	if _, ok := acks.Classify(EncodeAck(0x02, CmdPower, 0x01)); !ok {
		t.Error("power ack for device 2 not recognized")
	}
	if _, ok := acks.Classify(EncodeAck(0x01, CmdPower, 0x01)); ok {
		t.Error("power ack for device 1 recognized by device 2 set")
	}
}

func TestCategoryForCommand(t *testing.T) {
	tests := map[byte]Category{
		CmdPower:    CategoryPower,
		CmdInput:    CategorySource,
		CmdVolume:   CategoryVolume,
		CmdWallMode: CategoryWallMode,
		0x99:        "",
	}
	for cmd, want := range tests {
		if got := CategoryForCommand(cmd); got != want {
			t.Errorf("CategoryForCommand(0x%02x) = %q, want %q", cmd, got, want)
		}
	}
}

func TestInputLabel(t *testing.T) {
	if got := InputLabel(InputDisplayPort); got != "DisplayPort" {
		t.Errorf("InputLabel(0x25) = %q, want DisplayPort", got)
	}
	if got := InputLabel(0x99); got != "Unknown (0x99)" {
		t.Errorf("InputLabel(0x99) = %q, want Unknown (0x99)", got)
	}
}
