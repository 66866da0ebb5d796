package session

import (
	"fmt"
	"sort"

	"github.com/muurk/mdcctl/internal/protocol"
)

// OptionType is the control a host renders for an option
type OptionType string

const (
	OptionDropdown OptionType = "dropdown"
	OptionNumber   OptionType = "number"
)

// Choice is one dropdown entry
type Choice struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// Option describes one integer action or feedback parameter
type Option struct {
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Type    OptionType `json:"type"`
	Choices []Choice   `json:"choices,omitempty"`
	Default int        `json:"default"`
	Min     int        `json:"min"`
	Max     int        `json:"max"`
}

// resolve picks the value for o from opts, falling back to the default.
func (o Option) resolve(opts map[string]int) (byte, error) {
	v, ok := opts[o.ID]
	if !ok {
		v = o.Default
	}
	if v < o.Min || v > o.Max {
		return 0, fmt.Errorf("%w: %s=%d (expected %d-%d)", ErrInvalidOption, o.ID, v, o.Min, o.Max)
	}
	return byte(v), nil
}

// Action is a host-invocable operation producing one command
type Action struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Options     []Option `json:"options,omitempty"`

	build func(v byte) protocol.Command
}

// Resolve turns option values into a command descriptor. Missing options
// take their defaults.
func (a Action) Resolve(opts map[string]int) (protocol.Command, error) {
	if len(a.Options) == 0 {
		return a.build(0), nil
	}
	v, err := a.Options[0].resolve(opts)
	if err != nil {
		return protocol.Command{}, fmt.Errorf("action %s: %w", a.ID, err)
	}
	return a.build(v), nil
}

// Style is the default rendering of an active feedback
type Style struct {
	Color      string `json:"color"`
	Background string `json:"bgcolor"`
}

// Feedback is a boolean indicator comparing an option against one mirrored
// field
type Feedback struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Category protocol.Category `json:"category"`
	Option   Option            `json:"option"`
	Style    Style             `json:"style"`
}

// Evaluate reports whether the mirrored field equals the option value
func (f Feedback) Evaluate(state protocol.State, opts map[string]int) (bool, error) {
	want, err := f.Option.resolve(opts)
	if err != nil {
		return false, fmt.Errorf("feedback %s: %w", f.ID, err)
	}
	got, _ := state.Field(f.Category)
	return got == want, nil
}

// Preset is a ready-made button bound to one action
type Preset struct {
	Category string         `json:"category"`
	Name     string         `json:"name"`
	Text     string         `json:"text"`
	ActionID string         `json:"action"`
	Options  map[string]int `json:"options"`
	Style    Style          `json:"style"`
}

var onOffChoices = []Choice{
	{ID: int(protocol.StateOff), Label: "Off"},
	{ID: int(protocol.StateOn), Label: "On"},
}

func inputChoices() []Choice {
	choices := make([]Choice, 0, len(protocol.InputSources))
	for _, in := range protocol.InputSources {
		choices = append(choices, Choice{ID: int(in.Code), Label: in.Label})
	}
	return choices
}

func stateOption(label string) Option {
	return Option{ID: "state", Label: label, Type: OptionDropdown, Choices: onOffChoices, Default: 0x00, Min: 0x00, Max: 0xFF}
}

func sourceOption(label string) Option {
	return Option{ID: "source", Label: label, Type: OptionDropdown, Choices: inputChoices(), Default: int(protocol.InputHDMI1), Min: 0x00, Max: 0xFF}
}

func volumeOption() Option {
	return Option{ID: "volume", Label: "Volume", Type: OptionNumber, Default: 0, Min: 0, Max: 100}
}

var actions = map[string]Action{
	"powerState": {
		ID: "powerState", Name: "Power State", Description: "Switch device On or Off",
		Options: []Option{stateOption("Power State")},
		build:   func(v byte) protocol.Command { return protocol.Command{Kind: protocol.KindPowerSet, Value: v} },
	},
	"switchInput": {
		ID: "switchInput", Name: "Switch Input",
		Options: []Option{sourceOption("Select Source")},
		build:   protocol.InputSet,
	},
	"setVolume": {
		ID: "setVolume", Name: "Set Volume",
		Options: []Option{volumeOption()},
		build:   protocol.VolumeSet,
	},
	"ledWallState": {
		ID: "ledWallState", Name: "Video Wall State", Description: "Turn Video Wall feature On or Off",
		Options: []Option{stateOption("State")},
		build:   func(v byte) protocol.Command { return protocol.Command{Kind: protocol.KindWallModeSet, Value: v} },
	},
	"getPowerState": {
		ID: "getPowerState", Name: "Query Power State",
		build: func(byte) protocol.Command { return protocol.PowerQuery() },
	},
	"getInput": {
		ID: "getInput", Name: "Query Input",
		build: func(byte) protocol.Command { return protocol.InputQuery() },
	},
	"getVolume": {
		ID: "getVolume", Name: "Query Volume",
		build: func(byte) protocol.Command { return protocol.VolumeQuery() },
	},
	"getVideoWallState": {
		ID: "getVideoWallState", Name: "Query Video Wall State",
		build: func(byte) protocol.Command { return protocol.WallModeQuery() },
	},
}

var feedbacks = map[string]Feedback{
	"powerState": {
		ID: "powerState", Name: "Power State", Category: protocol.CategoryPower,
		Option: stateOption("State"),
		Style:  Style{Color: "#000000", Background: "#ff0000"},
	},
	"source": {
		ID: "source", Name: "Source", Category: protocol.CategorySource,
		Option: sourceOption("Source"),
		Style:  Style{Color: "#000000", Background: "#ff0000"},
	},
	"volume": {
		ID: "volume", Name: "Volume", Category: protocol.CategoryVolume,
		Option: volumeOption(),
		Style:  Style{Color: "#000000", Background: "#ffff00"},
	},
	"videoWallState": {
		ID: "videoWallState", Name: "Video Wall State", Category: protocol.CategoryWallMode,
		Option: stateOption("State"),
		Style:  Style{Color: "#ffffff", Background: "#0000ff"},
	},
}

var presets = []Preset{
	{
		Category: "Basics", Name: "Power on", Text: "Power On",
		ActionID: "powerState", Options: map[string]int{"state": 0x01},
		Style: Style{Color: "#ffffff", Background: "#000000"},
	},
	{
		Category: "Basics", Name: "Power off", Text: "Power Off",
		ActionID: "powerState", Options: map[string]int{"state": 0x00},
		Style: Style{Color: "#ffffff", Background: "#000000"},
	},
}

// LookupAction returns the action registered under id
func LookupAction(id string) (Action, bool) {
	a, ok := actions[id]
	return a, ok
}

// Actions returns every action sorted by id
func Actions() []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LookupFeedback returns the feedback registered under id
func LookupFeedback(id string) (Feedback, bool) {
	f, ok := feedbacks[id]
	return f, ok
}

// Feedbacks returns every feedback sorted by id
func Feedbacks() []Feedback {
	out := make([]Feedback, 0, len(feedbacks))
	for _, f := range feedbacks {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FeedbackForCategory returns the feedback watching category c
func FeedbackForCategory(c protocol.Category) (Feedback, bool) {
	for _, f := range feedbacks {
		if f.Category == c {
			return f, true
		}
	}
	return Feedback{}, false
}

// Presets returns the preset buttons in display order
func Presets() []Preset {
	return append([]Preset(nil), presets...)
}
