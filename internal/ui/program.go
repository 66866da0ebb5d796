package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muurk/mdcctl/internal/protocol"
)

// Snapshot is everything the status views render about one display
type Snapshot struct {
	Name     string // registry name, may be empty
	Addr     string
	DeviceID byte
	Status   string
	Err      error
	State    protocol.State
}

// Printer writes styled one-shot output for CLI commands
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to w.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// Width returns the width used for boxes
func (p *Printer) Width() int {
	return p.width
}

// SetWidth overrides the detected terminal width
func (p *Printer) SetWidth(width int) *Printer {
	p.width = clampWidth(width)
	return p
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintState prints the mirrored state of a display
func (p *Printer) PrintState(s Snapshot) {
	p.Println(RenderState(s, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with an optional hint
func (p *Printer) PrintError(title string, err error, hint string) {
	p.Println(RenderErrorBox(title, err, hint, p.width))
}

// RenderState renders the status panel body inside a border
func RenderState(s Snapshot, width int) string {
	return PanelBoxStyle(width).Render(renderStateBody(s, width-6))
}

func renderStateBody(s Snapshot, innerWidth int) string {
	title := "DISPLAY"
	if s.Name != "" {
		title = strings.ToUpper(s.Name)
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		subtitleStyle.Render(fmt.Sprintf("%s  device 0x%02x", s.Addr, s.DeviceID)),
	)

	status := StatusStyle(s.Status).Render(StatusDot + " " + s.Status)
	if s.Err != nil {
		status += "  " + errorMessageStyle.Render(s.Err.Error())
	}

	rows := []string{
		row("Connection", status),
		row("Power", RenderOnOff(s.State.IsPoweredOn())),
		row("Input", valueStyle.Render(protocol.InputLabel(s.State.Input))),
		row("Volume", fmt.Sprintf("%s %3d", RenderVolumeBar(s.State.Volume), s.State.Volume)),
		row("Video wall", RenderOnOff(s.State.IsWallModeOn())),
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		RenderDivider(innerWidth),
		strings.Join(rows, "\n"),
	)
}

func row(key, value string) string {
	return keyStyle.Render(key+":") + " " + value
}

// RenderSuccessBox renders a success result box. Details are listed in
// key order.
func RenderSuccessBox(title string, details map[string]string, width int) string {
	lines := []string{"", successTitleStyle.Render(SuccessMarker + "  " + title), ""}
	lines = append(lines, detailLines(details)...)
	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box
func RenderErrorBox(title string, err error, hint string, width int) string {
	lines := []string{"", errorTitleStyle.Render(FailureMarker + "  " + title), ""}
	if err != nil {
		lines = append(lines, errorMessageStyle.Render("Error: "+err.Error()), "")
	}
	if hint != "" {
		lines = append(lines, hintStyle.Render(hint), "")
	}
	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func detailLines(details map[string]string) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		lines = append(lines, row(k, valueStyle.Render(details[k])))
	}
	if len(lines) > 0 {
		lines = append(lines, "")
	}
	return lines
}
