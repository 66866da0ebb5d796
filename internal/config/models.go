package config

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/muurk/mdcctl/internal/protocol"
)

var (
	ErrInvalidDeviceNumber = errors.New("invalid device number")
	ErrDisplayNotFound     = errors.New("display not found")
	ErrInvalidDisplay      = errors.New("invalid display")
)

// Default preference values
const (
	DefaultCommandIntervalMs = 1000
	DefaultConnectTimeoutSec = 5
	DefaultDeviceNumber      = 1
)

// Registry represents the entire user configuration file.
type Registry struct {
	Version     int                 `yaml:"version"`
	Default     string              `yaml:"default,omitempty"`  // Name of the display used when none is given
	Displays    map[string]*Display `yaml:"displays,omitempty"` // Keyed by user-chosen name
	Preferences *Preferences        `yaml:"preferences,omitempty"`
}

// Display is one addressable panel.
type Display struct {
	Host          string    `yaml:"host"`
	DeviceNumber  int       `yaml:"device_number"`  // 0-100
	Port          int       `yaml:"port,omitempty"` // 0 means 1515
	LastConnected time.Time `yaml:"last_connected,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	CommandIntervalMs int    `yaml:"command_interval_ms"` // Minimum spacing between frames
	ConnectTimeoutSec int    `yaml:"connect_timeout_sec"` // Dial timeout
	LogLevel          string `yaml:"log_level,omitempty"` // debug, info, warn, error
	LogFile           string `yaml:"log_file,omitempty"`  // Rotating log file path
}

func defaultPreferences() *Preferences {
	return &Preferences{
		CommandIntervalMs: DefaultCommandIntervalMs,
		ConnectTimeoutSec: DefaultConnectTimeoutSec,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Displays:    make(map[string]*Display),
		Preferences: defaultPreferences(),
	}
}

// CommandInterval returns the dispatcher spacing, falling back to 1000ms.
func (p *Preferences) CommandInterval() time.Duration {
	if p == nil || p.CommandIntervalMs <= 0 {
		return DefaultCommandIntervalMs * time.Millisecond
	}
	return time.Duration(p.CommandIntervalMs) * time.Millisecond
}

// ConnectTimeout returns the dial timeout, falling back to 5s.
func (p *Preferences) ConnectTimeout() time.Duration {
	if p == nil || p.ConnectTimeoutSec <= 0 {
		return DefaultConnectTimeoutSec * time.Second
	}
	return time.Duration(p.ConnectTimeoutSec) * time.Second
}

// ValidateDeviceNumber checks that n is within 0-100.
func ValidateDeviceNumber(n int) error {
	if n < 0 || n > protocol.MaxDeviceNumber {
		return fmt.Errorf("%w: %d (expected 0-%d)", ErrInvalidDeviceNumber, n, protocol.MaxDeviceNumber)
	}
	return nil
}

// Validate checks the display fields.
func (d *Display) Validate() error {
	if d.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidDisplay)
	}
	if d.Port < 0 || d.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidDisplay, d.Port)
	}
	return ValidateDeviceNumber(d.DeviceNumber)
}

// GetDisplay retrieves a display by name.
// Returns nil if the display doesn't exist in the registry.
func (r *Registry) GetDisplay(name string) *Display {
	return r.Displays[name]
}

// SetDisplay adds or replaces a display. The first display added becomes
// the default.
func (r *Registry) SetDisplay(name string, d *Display) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidDisplay)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if r.Displays == nil {
		r.Displays = make(map[string]*Display)
	}
	if existing, ok := r.Displays[name]; ok && existing.Host == d.Host {
		d.LastConnected = existing.LastConnected
	}
	r.Displays[name] = d
	if r.Default == "" {
		r.Default = name
	}
	return nil
}

// RemoveDisplay deletes a display. Removing the default clears it.
func (r *Registry) RemoveDisplay(name string) error {
	if _, ok := r.Displays[name]; !ok {
		return fmt.Errorf("%w: %q", ErrDisplayNotFound, name)
	}
	delete(r.Displays, name)
	if r.Default == name {
		r.Default = ""
	}
	return nil
}

// UseDisplay makes name the default display.
func (r *Registry) UseDisplay(name string) error {
	if _, ok := r.Displays[name]; !ok {
		return fmt.Errorf("%w: %q", ErrDisplayNotFound, name)
	}
	r.Default = name
	return nil
}

// Resolve returns the named display, or the default one when name is
// empty.
func (r *Registry) Resolve(name string) (string, *Display, error) {
	if name == "" {
		name = r.Default
	}
	if name == "" {
		return "", nil, fmt.Errorf("%w: no display given and no default set", ErrDisplayNotFound)
	}
	d, ok := r.Displays[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrDisplayNotFound, name)
	}
	return name, d, nil
}

// MarkConnected records a successful connection to the named display.
func (r *Registry) MarkConnected(name string, at time.Time) {
	if d, ok := r.Displays[name]; ok {
		d.LastConnected = at
	}
}

// DisplayNames returns the display names in sorted order.
func (r *Registry) DisplayNames() []string {
	names := make([]string, 0, len(r.Displays))
	for name := range r.Displays {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
