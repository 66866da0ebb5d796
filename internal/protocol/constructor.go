package protocol

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned by Encode for a Command whose Kind is not
// one of the declared descriptors.
var ErrUnknownCommand = errors.New("unknown command descriptor")

// Kind identifies one of the eight command descriptors
type Kind int

const (
	KindInvalid Kind = iota
	KindPowerSet
	KindPowerQuery
	KindInputSet
	KindInputQuery
	KindWallModeSet
	KindWallModeQuery
	KindVolumeSet
	KindVolumeQuery
)

func (k Kind) String() string {
	switch k {
	case KindPowerSet:
		return "PowerSet"
	case KindPowerQuery:
		return "PowerQuery"
	case KindInputSet:
		return "InputSet"
	case KindInputQuery:
		return "InputQuery"
	case KindWallModeSet:
		return "WallModeSet"
	case KindWallModeQuery:
		return "WallModeQuery"
	case KindVolumeSet:
		return "VolumeSet"
	case KindVolumeQuery:
		return "VolumeQuery"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Command is a command descriptor. Value is only meaningful for set kinds
// and is passed to the wire as a raw byte.
type Command struct {
	Kind  Kind
	Value byte
}

// PowerSet switches the display on or off
func PowerSet(on bool) Command { return Command{Kind: KindPowerSet, Value: boolByte(on)} }

// PowerQuery asks for the current power state
func PowerQuery() Command { return Command{Kind: KindPowerQuery} }

// InputSet selects an input source (see InputSources)
func InputSet(source byte) Command { return Command{Kind: KindInputSet, Value: source} }

// InputQuery asks for the current input source
func InputQuery() Command { return Command{Kind: KindInputQuery} }

// WallModeSet enables or disables video wall mode
func WallModeSet(on bool) Command { return Command{Kind: KindWallModeSet, Value: boolByte(on)} }

// WallModeQuery asks for the current video wall state
func WallModeQuery() Command { return Command{Kind: KindWallModeQuery} }

// VolumeSet sets the volume level
func VolumeSet(level byte) Command { return Command{Kind: KindVolumeSet, Value: level} }

// VolumeQuery asks for the current volume level
func VolumeQuery() Command { return Command{Kind: KindVolumeQuery} }

// InitialQueries is the sequence sent after every successful connection
// to populate the mirrored state.
func InitialQueries() []Command {
	return []Command{InputQuery(), WallModeQuery(), VolumeQuery(), PowerQuery()}
}

// CommandID returns the wire command id for the descriptor, or 0 if the
// kind is unknown.
func (c Command) CommandID() byte {
	switch c.Kind {
	case KindPowerSet, KindPowerQuery:
		return CmdPower
	case KindInputSet, KindInputQuery:
		return CmdInput
	case KindWallModeSet, KindWallModeQuery:
		return CmdWallMode
	case KindVolumeSet, KindVolumeQuery:
		return CmdVolume
	default:
		return 0
	}
}

// IsQuery reports whether the descriptor is a query (no data bytes)
func (c Command) IsQuery() bool {
	switch c.Kind {
	case KindPowerQuery, KindInputQuery, KindWallModeQuery, KindVolumeQuery:
		return true
	default:
		return false
	}
}

// Category returns the feedback category the command affects
func (c Command) Category() Category {
	return CategoryForCommand(c.CommandID())
}

func (c Command) String() string {
	if c.IsQuery() {
		return c.Kind.String()
	}
	return fmt.Sprintf("%s(0x%02x)", c.Kind, c.Value)
}

// Encode builds the wire frame for cmd addressed to deviceID.
//
// Set commands encode data_length=0x01 with one data byte, queries encode
// data_length=0x00 with no data. No range validation is applied to Value.
//
// Example:
//
//	frame, err := Encode(PowerSet(true), 0x01)
//	// frame = aa 11 01 01 01 14
func Encode(cmd Command, deviceID byte) (Frame, error) {
	id := cmd.CommandID()
	if id == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Kind)
	}
	if cmd.IsQuery() {
		return BuildFrame(id, deviceID), nil
	}
	return BuildFrame(id, deviceID, cmd.Value), nil
}

// EncodeAck builds the acknowledgment a display sends after accepting
// command with the resulting value:
//
//	[0xAA, 0xFF, device_id, 0x03, 0x41, command, value, checksum]
func EncodeAck(deviceID, command, value byte) Frame {
	return BuildFrame(AckCommand, deviceID, AckSuccess, command, value)
}

// EncodeNak builds a negative acknowledgment carrying an error code
func EncodeNak(deviceID, command, code byte) Frame {
	return BuildFrame(AckCommand, deviceID, AckFailure, command, code)
}

func boolByte(v bool) byte {
	if v {
		return 0x01
	}
	return 0x00
}
