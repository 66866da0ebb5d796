package protocol

import (
	"bytes"
	"fmt"
)

// Category names the feedback group a state change belongs to
type Category string

const (
	CategoryPower    Category = "power"
	CategorySource   Category = "source"
	CategoryVolume   Category = "volume"
	CategoryWallMode Category = "wallMode"
)

// Categories lists every feedback category in display order
var Categories = []Category{CategoryPower, CategorySource, CategoryVolume, CategoryWallMode}

// CategoryForCommand maps a wire command id to its category, or "" if the
// command is not modeled.
func CategoryForCommand(cmd byte) Category {
	switch cmd {
	case CmdPower:
		return CategoryPower
	case CmdInput:
		return CategorySource
	case CmdVolume:
		return CategoryVolume
	case CmdWallMode:
		return CategoryWallMode
	default:
		return ""
	}
}

// Input source codes accepted by InputSet
const (
	InputMagicInfo   byte = 0x60
	InputHDMI1       byte = 0x21
	InputHDMI2       byte = 0x23
	InputHDMI3       byte = 0x31
	InputDisplayPort byte = 0x25
)

// InputSource pairs an input code with its label
type InputSource struct {
	Code  byte
	Label string
}

// InputSources lists the selectable inputs in menu order
var InputSources = []InputSource{
	{Code: InputMagicInfo, Label: "MagicInfo"},
	{Code: InputHDMI1, Label: "HDMI 1"},
	{Code: InputHDMI2, Label: "HDMI 2"},
	{Code: InputHDMI3, Label: "HDMI 3"},
	{Code: InputDisplayPort, Label: "DisplayPort"},
}

// InputLabel returns the human name for an input code
func InputLabel(code byte) string {
	for _, in := range InputSources {
		if in.Code == code {
			return in.Label
		}
	}
	return fmt.Sprintf("Unknown (0x%02x)", code)
}

// AckKind identifies a recognized acknowledgment shape
type AckKind int

const (
	AckUnrecognized AckKind = iota
	AckPowerOff
	AckPowerOn
	AckInputSwitch
	AckVolumeSet
	AckWallOff
	AckWallOn
)

func (k AckKind) String() string {
	switch k {
	case AckPowerOff:
		return "power_off"
	case AckPowerOn:
		return "power_on"
	case AckInputSwitch:
		return "input_switch"
	case AckVolumeSet:
		return "volume_set"
	case AckWallOff:
		return "wall_off"
	case AckWallOn:
		return "wall_on"
	default:
		return "unrecognized"
	}
}

// AckMatch is the result of classifying an inbound frame
type AckMatch struct {
	Kind     AckKind
	Category Category
	Value    byte // decoded state value
}

// prefixLen is the number of leading bytes compared for prefix shapes:
// marker, 0xFF, device id, 0x03, 0x41, command.
const prefixLen = 6

// AckSet holds the six acknowledgment shapes for one device id. Exact
// shapes are full frames including checksum, prefix shapes cover the
// first six bytes only.
type AckSet struct {
	deviceID byte

	powerOff Frame
	powerOn  Frame
	wallOff  Frame
	wallOn   Frame

	inputPrefix  []byte
	volumePrefix []byte
}

// NewAckSet builds the acknowledgment shapes for deviceID
func NewAckSet(deviceID byte) *AckSet {
	return &AckSet{
		deviceID:     deviceID,
		powerOff:     EncodeAck(deviceID, CmdPower, 0x00),
		powerOn:      EncodeAck(deviceID, CmdPower, 0x01),
		wallOff:      EncodeAck(deviceID, CmdWallMode, 0x00),
		wallOn:       EncodeAck(deviceID, CmdWallMode, 0x01),
		inputPrefix:  ackPrefix(deviceID, CmdInput),
		volumePrefix: ackPrefix(deviceID, CmdVolume),
	}
}

// DeviceID returns the device id the shapes were built for
func (a *AckSet) DeviceID() byte { return a.deviceID }

// Classify compares data against the known shapes. The shapes differ at
// the command or value position so at most one can match.
//
// For prefix shapes the value is read from the second-to-last byte of data,
// independent of its total length. Data shorter than a shape never matches.
func (a *AckSet) Classify(data []byte) (AckMatch, bool) {
	switch {
	case bytes.Equal(data, a.powerOff):
		return AckMatch{Kind: AckPowerOff, Category: CategoryPower, Value: 0x00}, true
	case bytes.Equal(data, a.powerOn):
		return AckMatch{Kind: AckPowerOn, Category: CategoryPower, Value: 0x01}, true
	case bytes.Equal(data, a.wallOff):
		return AckMatch{Kind: AckWallOff, Category: CategoryWallMode, Value: 0x00}, true
	case bytes.Equal(data, a.wallOn):
		return AckMatch{Kind: AckWallOn, Category: CategoryWallMode, Value: 0x01}, true
	case hasAckPrefix(data, a.inputPrefix):
		return AckMatch{Kind: AckInputSwitch, Category: CategorySource, Value: data[len(data)-2]}, true
	case hasAckPrefix(data, a.volumePrefix):
		return AckMatch{Kind: AckVolumeSet, Category: CategoryVolume, Value: data[len(data)-2]}, true
	}
	return AckMatch{Kind: AckUnrecognized}, false
}

func ackPrefix(deviceID, command byte) []byte {
	return []byte{Marker, AckCommand, deviceID, AckDataLength, AckSuccess, command}
}

// hasAckPrefix requires at least one byte after the prefix. For a 7-byte
// chunk the second-to-last byte is the command byte.
func hasAckPrefix(data, prefix []byte) bool {
	if len(data) < len(prefix)+1 {
		return false
	}
	return bytes.Equal(data[:len(prefix)], prefix)
}
