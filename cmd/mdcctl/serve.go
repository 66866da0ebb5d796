package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/mdcctl/internal/bridge"
	"github.com/muurk/mdcctl/internal/config"
	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/metrics"
	"github.com/muurk/mdcctl/internal/protocol"
	"github.com/muurk/mdcctl/internal/simulator"
)

const shutdownTimeout = 5 * time.Second

var (
	serveListen string

	simListen   string
	simAckDelay time.Duration
	simPower    string
	simInput    string
	simVolume   int
	simWall     string
)

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", ":8080", "HTTP/WebSocket listen address")

	simulateCmd.Flags().StringVar(&simListen, "listen", fmt.Sprintf(":%d", protocol.DefaultPort), "TCP listen address")
	simulateCmd.Flags().DurationVar(&simAckDelay, "ack-delay", 0, "Artificial delay before each reply")
	simulateCmd.Flags().StringVar(&simPower, "power", "off", "Initial power state")
	simulateCmd.Flags().StringVar(&simInput, "input", "hdmi1", "Initial input source")
	simulateCmd.Flags().IntVar(&simVolume, "volume", 0, "Initial volume")
	simulateCmd.Flags().StringVar(&simWall, "wall", "off", "Initial video wall state")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bridge a display to HTTP and WebSocket clients",
	Long: `Hold a session to one display and expose it over HTTP.

Endpoints:
  GET  /state            mirrored state and connection status
  GET  /actions          action, feedback and preset catalog
  POST /actions/{id}     invoke an action with a JSON options body
  GET  /feedbacks/{id}   evaluate a feedback (options as query parameters)
  GET  /ws               WebSocket push of state and status events
  GET  /metrics          Prometheus metrics`,
	Example: `  mdcctl serve --host 10.0.0.5 --listen :8080
  mdcctl serve --display lobby --log-level info`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	t, err := resolveTarget()
	if err != nil {
		return err
	}

	reg, appMetrics := metrics.New()
	sess := t.newSession(appMetrics)
	defer sess.Teardown()

	srv := bridge.New(sess, bridge.Config{
		Addr:     serveListen,
		Registry: reg,
		Metrics:  appMetrics,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(); err != nil {
		return err
	}
	if err := sess.Configure(t.cfg); err != nil {
		_ = srv.Shutdown(context.Background())
		return err
	}

	logging.Info("bridge listening",
		zap.String("listen", srv.Addr()),
		zap.String("display", t.cfg.Addr()),
		zap.String("session_id", sess.SessionID()))
	fmt.Fprintf(cmd.OutOrStdout(), "Bridging %s on http://%s (Ctrl+C to stop)\n", t.cfg.Addr(), srv.Addr())

	go func() {
		connectCtx, cancel := context.WithTimeout(ctx, t.prefs.ConnectTimeout()+time.Second)
		defer cancel()
		if sess.AwaitConnected(connectCtx) == nil {
			t.markConnected()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a display simulator",
	Long: `Listen for protocol connections and answer like a display would.

The simulator keeps its own power, input, volume and video wall state,
acknowledges sets and queries, and rejects unknown commands.`,
	Example: `  mdcctl simulate --listen 127.0.0.1:1515
  mdcctl simulate --device-id 5 --power on --input hdmi2 --volume 30`,
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	initial, err := simulatorState()
	if err != nil {
		return err
	}

	deviceNumber := deviceIDFlag
	if deviceNumber < 0 {
		deviceNumber = config.DefaultDeviceNumber
	}

	sim, err := simulator.New(simulator.Config{
		Addr:         simListen,
		DeviceNumber: deviceNumber,
		Initial:      initial,
		AckDelay:     simAckDelay,
	})
	if err != nil {
		return err
	}
	if err := sim.Start(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Simulating device 0x%02x on %s (Ctrl+C to stop)\n", sim.DeviceID(), sim.Addr())

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return sim.Shutdown(shutdownCtx)
}

func simulatorState() (protocol.State, error) {
	power, err := parseOnOff(simPower)
	if err != nil {
		return protocol.State{}, err
	}
	wall, err := parseOnOff(simWall)
	if err != nil {
		return protocol.State{}, err
	}
	input, err := parseInput(simInput)
	if err != nil {
		return protocol.State{}, err
	}
	volume, err := parseVolume(fmt.Sprint(simVolume))
	if err != nil {
		return protocol.State{}, err
	}
	return protocol.State{
		Power:    byte(boolInt(power)),
		Input:    input,
		Volume:   byte(volume),
		WallMode: byte(boolInt(wall)),
	}, nil
}
