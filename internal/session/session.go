package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/mdcctl/internal/dispatcher"
	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/metrics"
	"github.com/muurk/mdcctl/internal/protocol"
	"go.uber.org/zap"
)

// Defaults applied by New
const (
	DefaultConnectTimeout = 5 * time.Second
	DefaultWriteTimeout   = 2 * time.Second
)

// Status is the connection state of a Session
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusError
)

// Statuses lists every status in declaration order
var Statuses = []Status{StatusDisconnected, StatusConnecting, StatusConnected, StatusError}

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Config addresses one display. An empty Host leaves the session
// disconnected.
type Config struct {
	Host         string
	Port         int // 0 means protocol.DefaultPort
	DeviceNumber int // 0-100
}

// Addr returns host:port
func (c Config) Addr() string {
	port := c.Port
	if port == 0 {
		port = protocol.DefaultPort
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Dialer opens the transport. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ChangeFunc receives a state-changed notification together with the
// mirrored state after the change
type ChangeFunc func(change protocol.Change, state protocol.State)

// StatusFunc receives connection status transitions. err is set for
// StatusError and for a display-initiated close.
type StatusFunc func(status Status, err error)

// AckFunc receives every recognized acknowledgment, including wall-mode
// acks that did not change the mirrored state
type AckFunc func(match protocol.AckMatch)

// SessionOption configures a Session
type SessionOption func(*Session)

// WithDialer replaces the TCP dialer
func WithDialer(d Dialer) SessionOption {
	return func(s *Session) { s.dialer = d }
}

// WithCommandInterval sets the minimum spacing between transmitted frames
func WithCommandInterval(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithConnectTimeout bounds each dial
func WithConnectTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithWriteTimeout bounds each frame write
func WithWriteTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithMetrics records session activity in m
func WithMetrics(m *metrics.AppMetrics) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// Session owns one display connection, its command dispatcher and the
// mirrored device state.
//
// Lock order: the dispatcher lock is taken before mu. Methods holding mu
// never call into the dispatcher. Transmission runs outside the
// dispatcher lock and takes mu only briefly.
type Session struct {
	dialer         Dialer
	interval       time.Duration
	connectTimeout time.Duration
	writeTimeout   time.Duration
	metrics        *metrics.AppMetrics
	dispatcher     *dispatcher.Dispatcher

	mu        sync.Mutex
	cfg       Config
	deviceID  byte
	acks      *protocol.AckSet
	state     protocol.State
	status    Status
	lastErr   error
	conn      net.Conn
	cancel    context.CancelFunc
	gen       uint64
	sessionID string
	ready     chan struct{} // closed when the current connection attempt resolves

	changeListeners listeners[ChangeFunc]
	statusListeners listeners[StatusFunc]
	ackListeners    listeners[AckFunc]

	wg sync.WaitGroup
}

// New creates a disconnected session addressing the default device id.
// Call Configure to connect.
func New(opts ...SessionOption) *Session {
	s := &Session{
		dialer:         &net.Dialer{},
		interval:       dispatcher.DefaultInterval,
		connectTimeout: DefaultConnectTimeout,
		writeTimeout:   DefaultWriteTimeout,
		deviceID:       protocol.DefaultDeviceID,
		acks:           protocol.NewAckSet(protocol.DefaultDeviceID),
		state:          protocol.DefaultState(),
		status:         StatusDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dispatcher = dispatcher.New(s.transmit,
		dispatcher.WithInterval(s.interval),
		dispatcher.OnSend(s.observeSend),
	)
	return s
}

// Configure applies a new target. Any open connection is closed, queued
// frames are discarded and the mirrored state returns to its defaults. If
// cfg.Host is set a new connection is opened in the background and the
// initial query sequence is enqueued once it succeeds.
func (s *Session) Configure(cfg Config) error {
	id, err := protocol.DeviceIDFromNumber(cfg.DeviceNumber)
	if err != nil {
		return err
	}
	if cfg.Port == 0 {
		cfg.Port = protocol.DefaultPort
	}

	s.mu.Lock()
	s.closeLocked()
	s.gen++
	gen := s.gen
	s.cfg = cfg
	s.deviceID = id
	s.acks = protocol.NewAckSet(id)
	s.state = protocol.DefaultState()
	ready := make(chan struct{})
	s.ready = ready

	var ctx context.Context
	if cfg.Host != "" {
		ctx, s.cancel = context.WithCancel(context.Background())
		s.sessionID = uuid.NewString()
	}
	sessionID := s.sessionID
	s.mu.Unlock()

	s.dispatcher.Reset()
	s.metrics.ObserveQueue(0)

	if cfg.Host == "" {
		close(ready)
		s.setStatus(gen, StatusDisconnected, nil)
		return nil
	}

	logging.Info("Configuring display session",
		zap.String("session_id", sessionID),
		zap.String("addr", cfg.Addr()),
		zap.Uint8("device_id", id),
	)
	s.setStatus(gen, StatusConnecting, nil)

	s.wg.Add(1)
	go s.connect(ctx, gen, cfg, sessionID, ready)
	return nil
}

func (s *Session) connect(ctx context.Context, gen uint64, cfg Config, sessionID string, ready chan struct{}) {
	defer s.wg.Done()
	addr := cfg.Addr()

	dialCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	conn, err := s.dialer.DialContext(dialCtx, "tcp", addr)
	cancel()

	if err != nil {
		defer close(ready)
		if ctx.Err() != nil {
			return
		}
		s.metrics.ObserveConnect(err)
		terr := ClassifyNetworkError(err, addr)
		logging.Warn("Connection to display failed",
			zap.String("session_id", sessionID),
			zap.String("addr", addr),
			zap.String("type", terr.Type.String()),
			zap.Error(err),
		)
		s.setStatus(gen, StatusError, terr)
		return
	}
	s.metrics.ObserveConnect(nil)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		_ = conn.Close()
		close(ready)
		return
	}
	s.conn = conn
	s.mu.Unlock()

	logging.LogConnection(sessionID, addr, "connected")
	s.setStatus(gen, StatusConnected, nil)
	close(ready)

	for _, cmd := range protocol.InitialQueries() {
		if !s.sendFor(gen, cmd) {
			break
		}
	}

	s.readLoop(ctx, gen, conn, sessionID, addr)
}

func (s *Session) readLoop(ctx context.Context, gen uint64, conn net.Conn, sessionID, addr string) {
	scanner := bufio.NewScanner(conn)
	scanner.Split(protocol.SplitFrames)
	for scanner.Scan() {
		s.handleInbound(gen, scanner.Bytes())
	}

	if ctx.Err() != nil {
		return
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}

	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()

	terr := ClassifyNetworkError(err, addr)
	logging.LogConnection(sessionID, addr, "closed_by_peer")
	if terr.Type == ErrTypeClosed {
		s.setStatus(gen, StatusDisconnected, terr)
		return
	}
	logging.Warn("Display connection lost",
		zap.String("session_id", sessionID),
		zap.String("addr", addr),
		zap.Error(err),
	)
	s.setStatus(gen, StatusError, terr)
}

// handleInbound classifies one frame and fans out notifications. Listeners
// run without any session lock held.
func (s *Session) handleInbound(gen uint64, data []byte) {
	logging.LogFrame("rx", data)

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	match, recognized := s.acks.Classify(data)
	next, changes := s.acks.Reconcile(data, s.state)
	s.state = next
	sessionID := s.sessionID
	s.mu.Unlock()

	if !recognized {
		s.metrics.ObserveAck("")
		return
	}
	s.metrics.ObserveAck(string(match.Category))
	logging.Info("Acknowledgment received",
		zap.String("session_id", sessionID),
		zap.String("ack", match.Kind.String()),
		zap.Uint8("value", match.Value),
		zap.Bool("changed", len(changes) > 0),
	)

	for _, fn := range s.ackListeners.snapshot() {
		fn(match)
	}
	for _, c := range changes {
		for _, fn := range s.changeListeners.snapshot() {
			fn(c, next)
		}
	}
}

// transmit is the dispatcher's send function. It runs without the
// dispatcher lock, so a write stuck until writeTimeout delays only the
// queue behind it.
func (s *Session) transmit(frame protocol.Frame) error {
	s.mu.Lock()
	conn := s.conn
	addr := s.cfg.Addr()
	s.mu.Unlock()

	if conn == nil {
		logging.Debug("Socket not connected, dropping frame", zap.String("frame", frame.String()))
		return errNotConnected(addr)
	}

	logging.LogFrame("tx", frame)
	if err := conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
		return ClassifyNetworkError(err, addr)
	}
	if _, err := conn.Write(frame); err != nil {
		return ClassifyNetworkError(err, addr)
	}
	return nil
}

func (s *Session) observeSend(res dispatcher.SendResult) {
	s.metrics.ObserveSend(string(protocol.CategoryForCommand(res.Frame.Command())), res.Pending, res.Err)
}

// Send encodes cmd for the configured device id and enqueues it. It never
// blocks on the transport.
func (s *Session) Send(cmd protocol.Command) error {
	s.mu.Lock()
	id := s.deviceID
	s.mu.Unlock()

	frame, err := protocol.Encode(cmd, id)
	if err != nil {
		logging.Debug("Refusing to enqueue command", zap.String("command", cmd.String()), zap.Error(err))
		return err
	}
	s.dispatcher.Enqueue(frame)
	s.metrics.ObserveQueue(s.dispatcher.Len())
	return nil
}

// sendFor enqueues cmd for connection generation gen. The generation and
// device id are read under one mu hold inside the dispatcher lock, so a
// Configure racing with it either sees nothing queued or discards the
// frame in its Reset. It reports false when gen is stale.
func (s *Session) sendFor(gen uint64, cmd protocol.Command) bool {
	sent := s.dispatcher.EnqueueFunc(func() (protocol.Frame, bool) {
		s.mu.Lock()
		stale := gen != s.gen
		id := s.deviceID
		s.mu.Unlock()
		if stale {
			return nil, false
		}
		frame, err := protocol.Encode(cmd, id)
		if err != nil {
			logging.Debug("Refusing to enqueue command", zap.String("command", cmd.String()), zap.Error(err))
			return nil, false
		}
		return frame, true
	})
	if sent {
		s.metrics.ObserveQueue(s.dispatcher.Len())
	}
	return sent
}

// Invoke runs a catalog action. Unknown ids are logged and enqueue nothing.
func (s *Session) Invoke(actionID string, opts map[string]int) error {
	action, ok := LookupAction(actionID)
	if !ok {
		logging.Debug("unknown action", zap.String("action", actionID))
		return fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}
	cmd, err := action.Resolve(opts)
	if err != nil {
		return err
	}
	return s.Send(cmd)
}

// InvokeAndWait runs a catalog action and waits for the display to
// acknowledge a command of the same category. It returns the mirrored
// state after the acknowledgment.
func (s *Session) InvokeAndWait(ctx context.Context, actionID string, opts map[string]int) (protocol.State, error) {
	action, ok := LookupAction(actionID)
	if !ok {
		logging.Debug("unknown action", zap.String("action", actionID))
		return s.State(), fmt.Errorf("%w: %q", ErrUnknownAction, actionID)
	}
	cmd, err := action.Resolve(opts)
	if err != nil {
		return s.State(), err
	}

	acked := make(chan struct{}, 1)
	category := cmd.Category()
	unsubscribe := s.SubscribeAcks(func(m protocol.AckMatch) {
		if m.Category == category {
			select {
			case acked <- struct{}{}:
			default:
			}
		}
	})
	defer unsubscribe()

	if err := s.Send(cmd); err != nil {
		return s.State(), err
	}

	select {
	case <-acked:
		return s.State(), nil
	case <-ctx.Done():
		return s.State(), fmt.Errorf("waiting for %s acknowledgment: %w", category, ctx.Err())
	}
}

// AwaitConnected blocks until the current connection attempt resolves or
// ctx is done
func (s *Session) AwaitConnected(ctx context.Context) error {
	s.mu.Lock()
	ready := s.ready
	addr := s.cfg.Addr()
	host := s.cfg.Host
	s.mu.Unlock()

	if ready == nil || host == "" {
		return ErrNoHost
	}

	select {
	case <-ready:
	case <-ctx.Done():
		return fmt.Errorf("connecting to %s: %w", addr, ctx.Err())
	}

	status, err := s.Status()
	if status == StatusConnected {
		return nil
	}
	if err != nil {
		return err
	}
	return errNotConnected(addr)
}

// Teardown closes the transport, discards queued frames and waits for the
// background goroutines to exit. It must not be called from a listener.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.closeLocked()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.dispatcher.Reset()
	s.wg.Wait()
	s.setStatus(gen, StatusDisconnected, nil)
}

// closeLocked cancels the connection attempt and closes the transport.
// Caller holds s.mu.
func (s *Session) closeLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		logging.LogConnection(s.sessionID, s.cfg.Addr(), "closed")
		s.conn = nil
	}
}

// setStatus records a transition for generation gen. Stale generations are
// ignored.
func (s *Session) setStatus(gen uint64, status Status, err error) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	if s.status == status && err == nil && s.lastErr == nil {
		s.mu.Unlock()
		return
	}
	s.status = status
	s.lastErr = err
	s.mu.Unlock()

	names := make([]string, len(Statuses))
	for i, st := range Statuses {
		names[i] = st.String()
	}
	s.metrics.SetStatus(status.String(), names)

	for _, fn := range s.statusListeners.snapshot() {
		fn(status, err)
	}
}

// State returns a snapshot of the mirrored device state
func (s *Session) State() protocol.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns the connection status and the error that caused it, if any
func (s *Session) Status() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.lastErr
}

// Config returns the applied configuration
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// DeviceID returns the wire device id used for outbound frames
func (s *Session) DeviceID() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// SessionID returns the id of the current connection attempt
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Pending returns the number of frames waiting in the dispatcher
func (s *Session) Pending() int {
	return s.dispatcher.Len()
}

// Feedback evaluates a catalog feedback against the mirrored state
func (s *Session) Feedback(feedbackID string, opts map[string]int) (bool, error) {
	fb, ok := LookupFeedback(feedbackID)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrUnknownFeedback, feedbackID)
	}
	return fb.Evaluate(s.State(), opts)
}

// Subscribe registers fn for state-changed notifications. The returned
// function removes it.
func (s *Session) Subscribe(fn ChangeFunc) func() { return s.changeListeners.add(fn) }

// SubscribeStatus registers fn for connection status transitions
func (s *Session) SubscribeStatus(fn StatusFunc) func() { return s.statusListeners.add(fn) }

// SubscribeAcks registers fn for every recognized acknowledgment
func (s *Session) SubscribeAcks(fn AckFunc) func() { return s.ackListeners.add(fn) }

type listeners[T any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]T
}

func (l *listeners[T]) add(fn T) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]T)
	}
	id := l.next
	l.next++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// snapshot returns the listeners in registration order
func (l *listeners[T]) snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, 0, len(l.fns))
	for id := 0; id < l.next; id++ {
		if fn, ok := l.fns[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
