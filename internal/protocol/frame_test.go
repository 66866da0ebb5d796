package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want byte
	}{
		{"empty", nil, 0x00},
		{"power query", []byte{0x11, 0x01, 0x00}, 0x12},
		{"wraps", []byte{0xff, 0x01, 0x03, 0x41, 0x11, 0x01}, 0x56},
		{"exactly 256", []byte{0x80, 0x80}, 0x00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.in); got != tt.want {
				t.Errorf("Checksum() = 0x%02x, want 0x%02x", got, tt.want)
			}
		})
	}
}

func TestDeviceIDFromNumber(t *testing.T) {
	tests := []struct {
		n       int
		want    byte
		wantErr bool
	}{
		{0, 0x00, false},
		{1, 0x01, false},
		{16, 0x10, false},
		{100, 0x64, false},
		{-1, 0, true},
		{101, 0, true},
	}
	for _, tt := range tests {
		got, err := DeviceIDFromNumber(tt.n)
		if (err != nil) != tt.wantErr {
			t.Errorf("DeviceIDFromNumber(%d) error = %v, wantErr %v", tt.n, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrDeviceIDOutOfRange) {
			t.Errorf("DeviceIDFromNumber(%d) error = %v, want ErrDeviceIDOutOfRange", tt.n, err)
		}
		if got != tt.want {
			t.Errorf("DeviceIDFromNumber(%d) = 0x%02x, want 0x%02x", tt.n, got, tt.want)
		}
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		in      []byte
		wantErr error
	}{
		{"valid query", []byte{0xaa, 0x11, 0x01, 0x00, 0x12}, nil},
		{"valid ack", []byte{0xaa, 0xff, 0x01, 0x03, 0x41, 0x11, 0x01, 0x56}, nil},
		{"too short", []byte{0xaa, 0x11, 0x01}, ErrFrameTooShort},
		{"bad marker", []byte{0xab, 0x11, 0x01, 0x00, 0x12}, ErrInvalidMarker},
		{"length mismatch", []byte{0xaa, 0x11, 0x01, 0x01, 0x12}, ErrLengthMismatch},
		{"bad checksum", []byte{0xaa, 0x11, 0x01, 0x00, 0x13}, ErrChecksumMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame(tt.in)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ParseFrame() error = %v", err)
				}
				if !bytes.Equal(f, tt.in) {
					t.Errorf("ParseFrame() = %s, want %s", f, Frame(tt.in))
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseFrame() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFrameAccessors(t *testing.T) {
	f := BuildFrame(CmdVolume, 0x07, 0x2a)
	if f.Command() != CmdVolume {
		t.Errorf("Command() = 0x%02x, want 0x%02x", f.Command(), CmdVolume)
	}
	if f.DeviceID() != 0x07 {
		t.Errorf("DeviceID() = 0x%02x, want 0x07", f.DeviceID())
	}
	if !bytes.Equal(f.Data(), []byte{0x2a}) {
		t.Errorf("Data() = %v, want [0x2a]", f.Data())
	}
	if f.IsQuery() {
		t.Error("IsQuery() = true for a set frame")
	}
	if got := f.String(); got != "aa 12 07 01 2a 44" {
		t.Errorf("String() = %q, want %q", got, "aa 12 07 01 2a 44")
	}

	var empty Frame
	if empty.Command() != 0 || empty.DeviceID() != 0 || empty.Data() != nil {
		t.Error("accessors on empty frame should return zero values")
	}
}

func scanAll(t *testing.T, r io.Reader) [][]byte {
	t.Helper()
	scanner := bufio.NewScanner(r)
	scanner.Split(SplitFrames)
	var out [][]byte
	for scanner.Scan() {
		out = append(out, bytes.Clone(scanner.Bytes()))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanner error = %v", err)
	}
	return out
}

func TestSplitFrames(t *testing.T) {
	powerOn := EncodeAck(0x01, CmdPower, 0x01)
	input := EncodeAck(0x01, CmdInput, 0x23)

	t.Run("coalesced frames", func(t *testing.T) {
		stream := append(bytes.Clone(powerOn), input...)
		got := scanAll(t, bytes.NewReader(stream))
		if len(got) != 2 {
			t.Fatalf("got %d frames, want 2", len(got))
		}
		if !bytes.Equal(got[0], powerOn) || !bytes.Equal(got[1], input) {
			t.Errorf("frames = %x, want [%x %x]", got, powerOn, input)
		}
	})

	t.Run("leading garbage discarded", func(t *testing.T) {
		stream := append([]byte{0x00, 0x13, 0x37}, powerOn...)
		got := scanAll(t, bytes.NewReader(stream))
		if len(got) != 1 || !bytes.Equal(got[0], powerOn) {
			t.Errorf("frames = %x, want [%x]", got, powerOn)
		}
	})

	t.Run("split across reads", func(t *testing.T) {
		pr, pw := io.Pipe()
		go func() {
			_, _ = pw.Write(powerOn[:3])
			_, _ = pw.Write(powerOn[3:])
			_ = pw.Close()
		}()
		got := scanAll(t, pr)
		if len(got) != 1 || !bytes.Equal(got[0], powerOn) {
			t.Errorf("frames = %x, want [%x]", got, powerOn)
		}
	})

	t.Run("incomplete tail returned at EOF", func(t *testing.T) {
		got := scanAll(t, bytes.NewReader(input[:5]))
		if len(got) != 1 || !bytes.Equal(got[0], input[:5]) {
			t.Errorf("frames = %x, want [%x]", got, input[:5])
		}
	})

	t.Run("no marker", func(t *testing.T) {
		got := scanAll(t, bytes.NewReader([]byte{0x01, 0x02, 0x03}))
		if len(got) != 0 {
			t.Errorf("frames = %x, want none", got)
		}
	})
}
