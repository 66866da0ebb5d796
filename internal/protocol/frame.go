package protocol

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
)

// Frame layout constants
const (
	// Marker is the leading byte of every frame in both directions
	Marker byte = 0xAA

	// HeaderSize covers marker, command id, device id and data length
	HeaderSize = 4

	// MinFrameSize is a frame with no data bytes: header + checksum
	MinFrameSize = HeaderSize + 1
)

// Command identifiers (second byte of an outbound frame)
const (
	CmdPower    byte = 0x11
	CmdVolume   byte = 0x12
	CmdInput    byte = 0x14
	CmdWallMode byte = 0x84
)

// Acknowledgment constants. Every reply from the display starts with
// [Marker, AckCommand, device_id, 0x03, AckSuccess, <echoed command>].
const (
	AckCommand    byte = 0xFF
	AckDataLength byte = 0x03
	AckSuccess    byte = 0x41 // 'A'
	AckFailure    byte = 0x4E // 'N'
)

// Device addressing
const (
	// DefaultDeviceID is used when no device number is configured
	DefaultDeviceID byte = 0x01

	// MaxDeviceNumber is the highest device number accepted from configuration
	MaxDeviceNumber = 100

	// DefaultPort is the well-known TCP port for this protocol family
	DefaultPort = 1515
)

var (
	ErrFrameTooShort      = errors.New("frame too short")
	ErrInvalidMarker      = errors.New("invalid frame marker")
	ErrLengthMismatch     = errors.New("frame length does not match data length byte")
	ErrChecksumMismatch   = errors.New("checksum mismatch")
	ErrDeviceIDOutOfRange = errors.New("device number out of range")
)

// Frame is a complete wire frame:
//
//	[0]     0xAA        Marker
//	[1]     command_id  Command identifier (0xFF for acknowledgments)
//	[2]     device_id   Target/source display id
//	[3]     data_length Number of data bytes
//	[4..n]  data        data_length bytes
//	[n+1]   checksum    Low byte of the sum of bytes [1..n]
//
// Frames are treated as immutable once built.
type Frame []byte

// Checksum returns the low 8 bits of the arithmetic sum of b. Callers pass
// every byte from command_id through the last data byte; the marker and the
// checksum position itself are never included.
func Checksum(b []byte) byte {
	var sum byte
	for _, v := range b {
		sum += v // wraps modulo 256
	}
	return sum
}

// BuildFrame assembles a frame for command with the given device id and
// data bytes, appending the checksum.
func BuildFrame(command, deviceID byte, data ...byte) Frame {
	frame := make(Frame, 0, MinFrameSize+len(data))
	frame = append(frame, Marker, command, deviceID, byte(len(data)))
	frame = append(frame, data...)
	return append(frame, Checksum(frame[1:]))
}

// DeviceIDFromNumber converts a configured decimal device number (0-100)
// to its single-byte wire representation.
func DeviceIDFromNumber(n int) (byte, error) {
	if n < 0 || n > MaxDeviceNumber {
		return 0, fmt.Errorf("%w: %d (expected 0-%d)", ErrDeviceIDOutOfRange, n, MaxDeviceNumber)
	}
	return byte(n), nil
}

// ParseFrame validates b as a single complete frame.
//
// Validation checks:
//   - Minimum size (5 bytes)
//   - Marker byte (0xAA)
//   - Total size equals header + data_length + checksum
//   - Checksum matches the recomputed value
func ParseFrame(b []byte) (Frame, error) {
	if len(b) < MinFrameSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrFrameTooShort, len(b), MinFrameSize)
	}
	if b[0] != Marker {
		return nil, fmt.Errorf("%w: 0x%02x (expected 0x%02x)", ErrInvalidMarker, b[0], Marker)
	}
	want := MinFrameSize + int(b[3])
	if len(b) != want {
		return nil, fmt.Errorf("%w: got %d bytes, header declares %d", ErrLengthMismatch, len(b), want)
	}
	if sum := Checksum(b[1 : len(b)-1]); sum != b[len(b)-1] {
		return nil, fmt.Errorf("%w: got 0x%02x, computed 0x%02x", ErrChecksumMismatch, b[len(b)-1], sum)
	}
	return Frame(bytes.Clone(b)), nil
}

// Command returns the command id byte, or 0 for a truncated frame.
func (f Frame) Command() byte {
	if len(f) < 2 {
		return 0
	}
	return f[1]
}

// DeviceID returns the device id byte, or 0 for a truncated frame.
func (f Frame) DeviceID() byte {
	if len(f) < 3 {
		return 0
	}
	return f[2]
}

// Data returns the data bytes declared by the length byte. Truncated frames
// yield whatever data is present.
func (f Frame) Data() []byte {
	if len(f) < MinFrameSize {
		return nil
	}
	end := HeaderSize + int(f[3])
	if end > len(f)-1 {
		end = len(f) - 1
	}
	return f[HeaderSize:end]
}

// IsQuery reports whether the frame carries no data bytes.
func (f Frame) IsQuery() bool {
	return len(f) >= HeaderSize && f[3] == 0
}

// String returns the frame as space-separated hex bytes
func (f Frame) String() string {
	if len(f) == 0 {
		return ""
	}
	s := hex.EncodeToString(f)
	var b []byte
	for i := 0; i < len(s); i += 2 {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, s[i], s[i+1])
	}
	return string(b)
}

// SplitFrames is a bufio.SplitFunc that carves a TCP byte stream into
// frames using the data_length byte. Bytes before a marker are discarded.
// A trailing fragment that never completes is returned whole at EOF so it
// can still be classified.
func SplitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	start := bytes.IndexByte(data, Marker)
	if start < 0 {
		return len(data), nil, nil
	}

	rest := data[start:]
	if len(rest) < HeaderSize {
		if atEOF {
			return len(data), rest, nil
		}
		return start, nil, nil
	}

	total := MinFrameSize + int(rest[3])
	if len(rest) < total {
		if atEOF {
			return len(data), rest, nil
		}
		return start, nil, nil
	}

	return start + total, rest[:total], nil
}
