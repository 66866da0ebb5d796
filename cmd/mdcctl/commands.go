package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/mdcctl/internal/config"
	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/metrics"
	"github.com/muurk/mdcctl/internal/protocol"
	"github.com/muurk/mdcctl/internal/session"
	"github.com/muurk/mdcctl/internal/ui"
)

// Connection flags, persistent on root
var (
	hostFlag     string
	deviceIDFlag int
	portFlag     int
	displayFlag  string
	timeoutFlag  time.Duration
	logLevelFlag string
	logFileFlag  string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&hostFlag, "host", "", "Display host or IP (overrides the registry)")
	pf.IntVar(&deviceIDFlag, "device-id", -1, "Device number 0-100 (default from registry, else 1)")
	pf.IntVar(&portFlag, "port", 0, "Display TCP port (default 1515)")
	pf.StringVar(&displayFlag, "display", "", "Named display from the registry")
	pf.DurationVar(&timeoutFlag, "timeout", 10*time.Second, "How long to wait for the display")
	pf.StringVar(&logLevelFlag, "log-level", "", "Log level (debug, info, warn, error); default from MDCCTL_LOG_LEVEL")
	pf.StringVar(&logFileFlag, "log-file", "", "Also write JSON logs to this rotating file")

	rootCmd.AddCommand(powerCmd)
	rootCmd.AddCommand(inputCmd)
	rootCmd.AddCommand(volumeCmd)
	rootCmd.AddCommand(wallCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(panelCmd)
}

func setupLogging(cmd *cobra.Command, args []string) error {
	opts := logging.Options{Level: logLevelFlag, File: logFileFlag}
	if reg, err := config.LoadRegistry(); err == nil && reg.Preferences != nil {
		if opts.Level == "" {
			opts.Level = reg.Preferences.LogLevel
		}
		if opts.File == "" {
			opts.File = reg.Preferences.LogFile
		}
	}
	return logging.InitializeWithOptions(opts)
}

// target is a resolved display address plus the preferences that apply
type target struct {
	name  string
	cfg   session.Config
	prefs *config.Preferences
}

// resolveTarget merges the registry with the connection flags. --host
// bypasses the registry lookup entirely.
func resolveTarget() (target, error) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return target{}, err
	}
	t := target{prefs: reg.Preferences, cfg: session.Config{DeviceNumber: config.DefaultDeviceNumber}}

	if hostFlag == "" {
		name, d, err := reg.Resolve(displayFlag)
		if err != nil {
			return target{}, fmt.Errorf("%w (use --host or 'mdcctl config set-display')", err)
		}
		t.name = name
		t.cfg = session.Config{Host: d.Host, Port: d.Port, DeviceNumber: d.DeviceNumber}
	} else {
		t.cfg.Host = hostFlag
	}

	if deviceIDFlag >= 0 {
		t.cfg.DeviceNumber = deviceIDFlag
	}
	if portFlag != 0 {
		t.cfg.Port = portFlag
	}
	if err := config.ValidateDeviceNumber(t.cfg.DeviceNumber); err != nil {
		return target{}, err
	}
	return t, nil
}

func (t target) newSession(m *metrics.AppMetrics) *session.Session {
	return session.New(
		session.WithCommandInterval(t.prefs.CommandInterval()),
		session.WithConnectTimeout(t.prefs.ConnectTimeout()),
		session.WithMetrics(m),
	)
}

// markConnected records the connection time for named displays. The
// registry is reread first so edits made while a long-running command was
// connected are kept. Failure to save is logged only.
func (t target) markConnected() {
	if t.name == "" {
		return
	}
	reg, err := config.ReloadRegistry()
	if err != nil {
		return
	}
	reg.MarkConnected(t.name, time.Now())
	if err := reg.Save(); err != nil {
		logging.Warn("failed to save registry", zap.Error(err))
	}
}

// connect resolves the target, connects a session and waits until the
// initial query sequence has been answered. A sync timeout is returned
// together with the live session so callers can still report its state.
func connect(ctx context.Context) (*session.Session, target, error) {
	t, err := resolveTarget()
	if err != nil {
		return nil, t, err
	}
	sess := t.newSession(nil)

	answered := make(chan protocol.Category, 4*len(protocol.Categories))
	unsubscribe := sess.SubscribeAcks(func(m protocol.AckMatch) {
		select {
		case answered <- m.Category:
		default:
		}
	})
	defer unsubscribe()

	if err := sess.Configure(t.cfg); err != nil {
		return nil, t, err
	}
	if err := sess.AwaitConnected(ctx); err != nil {
		sess.Teardown()
		return nil, t, err
	}
	t.markConnected()

	if err := waitCategories(ctx, answered); err != nil {
		return sess, t, fmt.Errorf("display did not answer every query: %w", err)
	}
	return sess, t, nil
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeoutFlag)
	return ctx, func() {
		cancel()
		stop()
	}
}

// runAction connects, invokes actionID and waits for its acknowledgment
func runAction(cmd *cobra.Command, title, actionID string, opts map[string]int) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	printer := ui.NewPrinter(cmd.OutOrStdout())

	sess, t, err := connect(ctx)
	if sess != nil {
		defer sess.Teardown()
	}
	if err != nil {
		printer.PrintError(title, err, session.TroubleshootingHint(err))
		return err
	}

	state, err := sess.InvokeAndWait(ctx, actionID, opts)
	if err != nil {
		printer.PrintError(title, err, session.TroubleshootingHint(err))
		return err
	}

	printer.PrintSuccess(title, map[string]string{
		"Display": t.cfg.Addr(),
		"Power":   onOff(state.IsPoweredOn()),
		"Input":   protocol.InputLabel(state.Input),
		"Volume":  fmt.Sprintf("%d", state.Volume),
		"Wall":    onOff(state.IsWallModeOn()),
	})
	return nil
}

var powerCmd = &cobra.Command{
	Use:       "power on|off",
	Short:     "Switch the display on or off",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	Example: `  mdcctl power on --host 10.0.0.5
  mdcctl power off --display lobby`,
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Power "+args[0], "powerState", map[string]int{"state": boolInt(on)})
	},
}

var inputCmd = &cobra.Command{
	Use:   "input <name|0xNN>",
	Short: "Select the input source",
	Long: `Select the input source by name or raw code.

Known inputs: magicinfo, hdmi1, hdmi2, hdmi3, displayport.`,
	Args: cobra.ExactArgs(1),
	Example: `  mdcctl input hdmi2
  mdcctl input 0x25 --display lobby`,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := parseInput(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Input "+protocol.InputLabel(code), "switchInput", map[string]int{"source": int(code)})
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <0-100>",
	Short: "Set the volume level",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := parseVolume(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, fmt.Sprintf("Volume %d", level), "setVolume", map[string]int{"volume": level})
	},
}

var wallCmd = &cobra.Command{
	Use:       "wall on|off",
	Short:     "Enable or disable video wall mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return runAction(cmd, "Video wall "+args[0], "ledWallState", map[string]int{"state": boolInt(on)})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query and print the display state",
	Long: `Connect, run the initial query sequence (input, video wall, volume,
power) and print the mirrored state once every category has answered.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	printer := ui.NewPrinter(cmd.OutOrStdout())

	sess, t, err := connect(ctx)
	if sess == nil {
		printer.PrintError("Status", err, session.TroubleshootingHint(err))
		return err
	}
	defer sess.Teardown()

	status, statusErr := sess.Status()
	printer.PrintState(ui.Snapshot{
		Name:     t.name,
		Addr:     t.cfg.Addr(),
		DeviceID: sess.DeviceID(),
		Status:   status.String(),
		Err:      statusErr,
		State:    sess.State(),
	})
	return err
}

// waitCategories blocks until every category has been seen once
func waitCategories(ctx context.Context, seen <-chan protocol.Category) error {
	pending := make(map[protocol.Category]bool, len(protocol.Categories))
	for _, c := range protocol.Categories {
		pending[c] = true
	}
	for len(pending) > 0 {
		select {
		case c := <-seen:
			delete(pending, c)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Interactive control panel",
	Long: `Open an interactive terminal panel for one display.

The panel shows the state acknowledged by the display and updates live.
Keys switch power, input, volume and video wall mode.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := resolveTarget()
		if err != nil {
			return err
		}
		sess := t.newSession(nil)
		defer sess.Teardown()

		if err := sess.Configure(t.cfg); err != nil {
			return err
		}
		m := ui.NewPanelModel(sess, t.name, t.cfg.Addr(), sess.DeviceID())

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), t.prefs.ConnectTimeout()+time.Second)
			defer cancel()
			if sess.AwaitConnected(ctx) == nil {
				t.markConnected()
			}
		}()

		return ui.RunPanel(m)
	},
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
