package protocol

import "fmt"

// Power and wall mode values as mirrored from the display
const (
	StateOff byte = 0x00
	StateOn  byte = 0x01
)

// State mirrors the last acknowledgments observed from the display. It is
// never updated from outbound commands.
type State struct {
	Power    byte `json:"power"`
	Input    byte `json:"input"`
	Volume   byte `json:"volume"`
	WallMode byte `json:"wall_mode"`
}

// DefaultState is the mirrored state at session start
func DefaultState() State {
	return State{
		Power:    StateOff,
		Input:    InputHDMI1,
		Volume:   0x00,
		WallMode: StateOff,
	}
}

// Field returns the mirrored value for a category
func (s State) Field(c Category) (byte, bool) {
	switch c {
	case CategoryPower:
		return s.Power, true
	case CategorySource:
		return s.Input, true
	case CategoryVolume:
		return s.Volume, true
	case CategoryWallMode:
		return s.WallMode, true
	default:
		return 0, false
	}
}

// IsPoweredOn reports whether the last power ack was "on"
func (s State) IsPoweredOn() bool { return s.Power == StateOn }

// IsWallModeOn reports whether the last wall-mode ack was "on"
func (s State) IsWallModeOn() bool { return s.WallMode == StateOn }

func (s State) String() string {
	return fmt.Sprintf("State{power=0x%02x, input=0x%02x (%s), volume=%d, wall=0x%02x}",
		s.Power, s.Input, InputLabel(s.Input), s.Volume, s.WallMode)
}

// Change describes one mirrored-field update produced by Reconcile
type Change struct {
	Category Category
	Ack      AckKind
	Value    byte
}

// Reconcile folds one inbound frame into state. It returns the new state
// and the changes to notify: at most one per frame, none for unrecognized
// data. Wall-mode acks that would not alter the mirrored state are
// suppressed; power, input and volume acks always notify.
func (a *AckSet) Reconcile(data []byte, state State) (State, []Change) {
	match, ok := a.Classify(data)
	if !ok {
		return state, nil
	}

	switch match.Kind {
	case AckPowerOff, AckPowerOn:
		state.Power = match.Value
	case AckInputSwitch:
		state.Input = match.Value
	case AckVolumeSet:
		state.Volume = match.Value
	case AckWallOff, AckWallOn:
		if state.WallMode == match.Value {
			return state, nil
		}
		state.WallMode = match.Value
	}

	return state, []Change{{Category: match.Category, Ack: match.Kind, Value: match.Value}}
}
