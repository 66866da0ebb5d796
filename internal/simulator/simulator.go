// Package simulator runs a TCP display that answers control frames the way
// a panel in network-control mode does. It backs the session tests and the
// "mdcctl simulate" command.
//
// Every valid frame addressed to the simulator's device id is answered with
// an acknowledgment carrying the resulting value. Queries report the current
// value, sets apply and echo the new one. Frames with a bad checksum or a
// different device id are dropped without reply.
package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/protocol"
	"go.uber.org/zap"
)

// NakUnsupported is the error code returned for commands the simulator
// does not model or values it rejects
const NakUnsupported byte = 0x01

// Config holds the simulator configuration
type Config struct {
	Addr         string         // listen address, "127.0.0.1:0" picks a free port
	DeviceNumber int            // 0-100
	Initial      protocol.State // zero value means protocol.DefaultState()
	AckDelay     time.Duration  // artificial latency before each reply
}

// Simulator is a fake display listening on TCP
type Simulator struct {
	config   Config
	deviceID byte
	listener net.Listener
	wg       sync.WaitGroup

	mu          sync.Mutex
	state       protocol.State
	received    []protocol.Frame
	activeConns map[string]net.Conn
	closed      bool // set by Shutdown, later accepts are closed at once
}

// New creates a simulator. It does not listen until Start is called.
func New(config Config) (*Simulator, error) {
	id, err := protocol.DeviceIDFromNumber(config.DeviceNumber)
	if err != nil {
		return nil, err
	}
	if config.Addr == "" {
		config.Addr = fmt.Sprintf(":%d", protocol.DefaultPort)
	}
	state := config.Initial
	if state == (protocol.State{}) {
		state = protocol.DefaultState()
	}
	return &Simulator{
		config:      config,
		deviceID:    id,
		state:       state,
		activeConns: make(map[string]net.Conn),
	}, nil
}

// Start opens the listener and accepts connections in the background
func (s *Simulator) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener

	logging.Info("Display simulator listening",
		zap.String("addr", listener.Addr().String()),
		zap.Uint8("device_id", s.deviceID),
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.acceptConnections()
	}()
	return nil
}

// Serve starts the simulator and blocks until ctx is done
func (s *Simulator) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Addr returns the bound listen address
func (s *Simulator) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// DeviceID returns the wire device id the simulator answers to
func (s *Simulator) DeviceID() byte { return s.deviceID }

func (s *Simulator) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logging.Error("Failed to accept connection", zap.Error(err))
			continue
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// track registers conn so Shutdown can close it. It reports false once
// Shutdown has started.
func (s *Simulator) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.activeConns[conn.RemoteAddr().String()] = conn
	return true
}

func (s *Simulator) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.activeConns, remoteAddr)
		s.mu.Unlock()
		logging.Debug("Simulator connection closed", zap.String("remote_addr", remoteAddr))
	}()

	logging.Debug("Simulator connection accepted", zap.String("remote_addr", remoteAddr))

	scanner := bufio.NewScanner(conn)
	scanner.Split(protocol.SplitFrames)
	for scanner.Scan() {
		frame, err := protocol.ParseFrame(scanner.Bytes())
		if err != nil {
			logging.Debug("Simulator dropped invalid frame",
				zap.String("remote_addr", remoteAddr),
				zap.String("hex", fmt.Sprintf("% x", scanner.Bytes())),
				zap.Error(err),
			)
			continue
		}
		if frame.DeviceID() != s.deviceID {
			continue
		}

		reply := s.apply(frame)
		if s.config.AckDelay > 0 {
			time.Sleep(s.config.AckDelay)
		}
		if _, err := conn.Write(reply); err != nil {
			logging.Debug("Simulator write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
			return
		}
	}
}

// apply records frame, updates state and returns the reply
func (s *Simulator) apply(frame protocol.Frame) protocol.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = append(s.received, frame)

	cmd := frame.Command()
	field := s.field(cmd)
	if field == nil {
		return protocol.EncodeNak(s.deviceID, cmd, NakUnsupported)
	}

	if !frame.IsQuery() {
		v := frame.Data()[0]
		if cmd == protocol.CmdVolume && v > 100 {
			return protocol.EncodeNak(s.deviceID, cmd, NakUnsupported)
		}
		*field = v
	}
	return protocol.EncodeAck(s.deviceID, cmd, *field)
}

func (s *Simulator) field(cmd byte) *byte {
	switch cmd {
	case protocol.CmdPower:
		return &s.state.Power
	case protocol.CmdInput:
		return &s.state.Input
	case protocol.CmdVolume:
		return &s.state.Volume
	case protocol.CmdWallMode:
		return &s.state.WallMode
	default:
		return nil
	}
}

// State returns the simulated display state
func (s *Simulator) State() protocol.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the simulated display state, as if changed from the
// remote control
func (s *Simulator) SetState(state protocol.State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Received returns every valid frame addressed to the simulator, in order
func (s *Simulator) Received() []protocol.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]protocol.Frame(nil), s.received...)
}

// Push writes raw bytes to every connected client
func (s *Simulator) Push(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for _, conn := range s.activeConns {
		if _, err := conn.Write(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ActiveConnections returns the number of connected clients
func (s *Simulator) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

// Shutdown closes the listener and every client connection
func (s *Simulator) Shutdown(ctx context.Context) error {
	if s.listener != nil {
		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Error("Error closing listener", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.closed = true
	for _, conn := range s.activeConns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("simulator shutdown: %w", ctx.Err())
	}
}
