package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/mdcctl/internal/protocol"
	"github.com/muurk/mdcctl/internal/session"
)

// VolumeStep is the change applied by the volume keys
const VolumeStep = 5

// Controller is the part of a session the panel drives.
// *session.Session satisfies it.
type Controller interface {
	State() protocol.State
	Status() (session.Status, error)
	Invoke(actionID string, opts map[string]int) error
	Subscribe(fn session.ChangeFunc) func()
	SubscribeStatus(fn session.StatusFunc) func()
}

// StateMsg carries a mirrored state update into the program
type StateMsg struct {
	Category protocol.Category
	State    protocol.State
}

// StatusMsg carries a connection status transition into the program
type StatusMsg struct {
	Status session.Status
	Err    error
}

// syncMsg replaces the rendered state with a fresh read of the controller
type syncMsg struct {
	state  protocol.State
	status session.Status
	err    error
}

// invokeResultMsg reports the outcome of a key-triggered action
type invokeResultMsg struct {
	label string
	err   error
}

// panelKeyMap defines key bindings for the control panel
type panelKeyMap struct {
	Power   key.Binding
	Wall    key.Binding
	Input   key.Binding
	VolUp   key.Binding
	VolDown key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k panelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Power, k.Input, k.VolUp, k.VolDown, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k panelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Power, k.Wall, k.Input},
		{k.VolUp, k.VolDown, k.Refresh},
		{k.Help, k.Quit},
	}
}

func defaultPanelKeys() panelKeyMap {
	return panelKeyMap{
		Power: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "power"),
		),
		Wall: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "video wall"),
		),
		Input: key.NewBinding(
			key.WithKeys("i", "tab"),
			key.WithHelp("i", "next input"),
		),
		VolUp: key.NewBinding(
			key.WithKeys("+", "=", "up"),
			key.WithHelp("+", "volume up"),
		),
		VolDown: key.NewBinding(
			key.WithKeys("-", "down"),
			key.WithHelp("-", "volume down"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// PanelModel is the interactive control panel for one display
type PanelModel struct {
	ctrl Controller

	Name     string
	Addr     string
	DeviceID byte

	state  protocol.State
	status session.Status
	err    error

	// last key-triggered action and its outcome
	lastAction string
	lastErr    error

	Width  int
	Height int

	keys    panelKeyMap
	help    help.Model
	spinner spinner.Model
}

// NewPanelModel creates a panel bound to ctrl. The initial state and
// status are read from ctrl immediately.
func NewPanelModel(ctrl Controller, name, addr string, deviceID byte) PanelModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(WarningColor)

	status, err := ctrl.Status()
	width, height := GetTerminalSize()
	return PanelModel{
		ctrl:     ctrl,
		Name:     name,
		Addr:     addr,
		DeviceID: deviceID,
		state:    ctrl.State(),
		status:   status,
		err:      err,
		Width:    width,
		Height:   height,
		keys:     defaultPanelKeys(),
		help:     help.New(),
		spinner:  s,
	}
}

// State returns the mirrored state the panel last rendered
func (m PanelModel) State() protocol.State { return m.state }

// Status returns the connection status the panel last rendered
func (m PanelModel) Status() session.Status { return m.status }

// Init implements tea.Model. The resync covers notifications that fired
// between NewPanelModel and the program subscribing.
func (m PanelModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.sync())
}

func (m PanelModel) sync() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		status, err := ctrl.Status()
		return syncMsg{state: ctrl.State(), status: status, err: err}
	}
}

// Update implements tea.Model
func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.Height = msg.Height
		m.help.Width = m.Width
		return m, nil

	case StateMsg:
		m.state = msg.State
		return m, nil

	case StatusMsg:
		m.status = msg.Status
		m.err = msg.Err
		if msg.Status == session.StatusConnecting {
			return m, m.spinner.Tick
		}
		return m, nil

	case syncMsg:
		m.state = msg.state
		m.status = msg.status
		m.err = msg.err
		return m, nil

	case invokeResultMsg:
		m.lastAction = msg.label
		m.lastErr = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.status != session.StatusConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m PanelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Power):
		next := protocol.StateOn
		if m.state.IsPoweredOn() {
			next = protocol.StateOff
		}
		return m, m.invoke("power "+onOffLabel(next), "powerState", map[string]int{"state": int(next)})

	case key.Matches(msg, m.keys.Wall):
		next := protocol.StateOn
		if m.state.IsWallModeOn() {
			next = protocol.StateOff
		}
		return m, m.invoke("video wall "+onOffLabel(next), "ledWallState", map[string]int{"state": int(next)})

	case key.Matches(msg, m.keys.Input):
		next := NextInput(m.state.Input)
		return m, m.invoke("input "+protocol.InputLabel(next), "switchInput", map[string]int{"source": int(next)})

	case key.Matches(msg, m.keys.VolUp):
		level := StepVolume(m.state.Volume, VolumeStep)
		return m, m.invoke(fmt.Sprintf("volume %d", level), "setVolume", map[string]int{"volume": level})

	case key.Matches(msg, m.keys.VolDown):
		level := StepVolume(m.state.Volume, -VolumeStep)
		return m, m.invoke(fmt.Sprintf("volume %d", level), "setVolume", map[string]int{"volume": level})

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	}

	return m, nil
}

func (m PanelModel) invoke(label, actionID string, opts map[string]int) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return invokeResultMsg{label: label, err: ctrl.Invoke(actionID, opts)}
	}
}

func (m PanelModel) refresh() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		for _, id := range []string{"getInput", "getVideoWallState", "getVolume", "getPowerState"} {
			if err := ctrl.Invoke(id, nil); err != nil {
				return invokeResultMsg{label: "refresh", err: err}
			}
		}
		return invokeResultMsg{label: "refresh"}
	}
}

// View implements tea.Model
func (m PanelModel) View() string {
	snap := Snapshot{
		Name:     m.Name,
		Addr:     m.Addr,
		DeviceID: m.DeviceID,
		Status:   m.status.String(),
		Err:      m.err,
		State:    m.state,
	}

	var b strings.Builder
	b.WriteString(RenderState(snap, m.Width))
	b.WriteString("\n")

	switch {
	case m.status == session.StatusConnecting:
		b.WriteString(m.spinner.View() + " " + subtitleStyle.Render("Connecting to "+m.Addr+"..."))
		b.WriteString("\n")
	case m.lastErr != nil:
		b.WriteString(errorMessageStyle.Render(FailureMarker + " " + m.lastAction + ": " + m.lastErr.Error()))
		b.WriteString("\n")
	case m.lastAction != "":
		b.WriteString(subtitleStyle.Render(SuccessMarker + " sent " + m.lastAction))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// NextInput returns the input after current in menu order. An unknown
// current input selects the first entry.
func NextInput(current byte) byte {
	for i, in := range protocol.InputSources {
		if in.Code == current {
			return protocol.InputSources[(i+1)%len(protocol.InputSources)].Code
		}
	}
	return protocol.InputSources[0].Code
}

// StepVolume applies delta to level, clamped to 0-100
func StepVolume(level byte, delta int) int {
	v := int(level) + delta
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func onOffLabel(v byte) string {
	if v == protocol.StateOn {
		return "on"
	}
	return "off"
}

// RunPanel runs the control panel until the user quits. Session
// notifications are forwarded into the program.
func RunPanel(m PanelModel) error {
	p := tea.NewProgram(m, tea.WithAltScreen())

	unsubState := m.ctrl.Subscribe(func(change protocol.Change, state protocol.State) {
		p.Send(StateMsg{Category: change.Category, State: state})
	})
	defer unsubState()

	unsubStatus := m.ctrl.SubscribeStatus(func(status session.Status, err error) {
		p.Send(StatusMsg{Status: status, Err: err})
	})
	defer unsubStatus()

	_, err := p.Run()
	return err
}
