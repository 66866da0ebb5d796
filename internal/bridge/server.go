package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/metrics"
	"github.com/muurk/mdcctl/internal/protocol"
	"github.com/muurk/mdcctl/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Controller is the part of a session the bridge drives. *session.Session
// satisfies it.
type Controller interface {
	State() protocol.State
	Status() (session.Status, error)
	DeviceID() byte
	Pending() int
	SessionID() string
	Invoke(actionID string, opts map[string]int) error
	Feedback(feedbackID string, opts map[string]int) (bool, error)
	Subscribe(fn session.ChangeFunc) func()
	SubscribeStatus(fn session.StatusFunc) func()
}

// Config holds the bridge configuration
type Config struct {
	Addr     string
	Registry *prometheus.Registry // serves /metrics when set
	Metrics  *metrics.AppMetrics
}

// Server is the HTTP and WebSocket bridge
type Server struct {
	config   Config
	ctrl     Controller
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu      sync.Mutex
	clients map[*client]struct{}
	unsubs  []func()
	closed  bool

	httpServer *http.Server
	listener   net.Listener
}

// New creates a bridge for ctrl and subscribes to its notifications
func New(ctrl Controller, config Config) *Server {
	s := &Server{
		config:  config,
		ctrl:    ctrl,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /actions", s.handleCatalog)
	mux.HandleFunc("POST /actions/{id}", s.handleInvoke)
	mux.HandleFunc("GET /feedbacks/{id}", s.handleFeedback)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	if config.Registry != nil {
		mux.Handle("GET /metrics", metrics.Handler(config.Registry))
	}
	s.mux = mux

	s.unsubs = append(s.unsubs,
		ctrl.Subscribe(func(c protocol.Change, st protocol.State) {
			ev := Event{Type: EventStateChanged, Category: c.Category, State: &st}
			if f, ok := session.FeedbackForCategory(c.Category); ok {
				ev.Feedback = f.ID
			}
			s.broadcast(ev)
		}),
		ctrl.SubscribeStatus(func(status session.Status, err error) {
			s.broadcast(Event{Type: EventStatus, Status: status.String(), Error: errString(err)})
		}),
	)
	return s
}

// Handler returns the bridge's HTTP handler with request logging
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logging.Info("Bridge listening", zap.String("addr", listener.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Bridge server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listen address
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.Addr
	}
	return s.listener.Addr().String()
}

// Serve starts the bridge and blocks until ctx is done
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown unsubscribes from the session, disconnects every client and
// stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	for _, c := range clients {
		c.close()
	}

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Clients returns the number of connected WebSocket clients
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if !c.enqueue(ev) {
			logging.Warn("Dropping slow bridge client", zap.String("client_id", c.id))
			delete(s.clients, c)
			s.config.Metrics.ClientConnected(-1)
			go c.close()
		}
	}
}

func (s *Server) addClient(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	s.config.Metrics.ClientConnected(1)
	return true
}

func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		s.config.Metrics.ClientConnected(-1)
	}
}

func (s *Server) snapshot() StateResponse {
	status, err := s.ctrl.Status()
	return StateResponse{
		State:     s.ctrl.State(),
		Status:    status.String(),
		Error:     errString(err),
		DeviceID:  s.ctrl.DeviceID(),
		Pending:   s.ctrl.Pending(),
		SessionID: s.ctrl.SessionID(),
	}
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CatalogResponse{
		Actions:   session.Actions(),
		Feedbacks: session.Feedbacks(),
		Presets:   session.Presets(),
	})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Options map[string]int `json:"options"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	id := r.PathValue("id")
	if err := s.ctrl.Invoke(id, body.Options); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"action": id})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	opts := make(map[string]int)
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		v, err := strconv.ParseInt(values[0], 0, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("option %s: %w", key, err))
			return
		}
		opts[key] = int(v)
	}

	id := r.PathValue("id")
	active, err := s.ctrl.Feedback(id, opts)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, FeedbackResponse{ID: id, Active: active})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownAction), errors.Is(err, session.ErrUnknownFeedback):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidOption):
		return http.StatusBadRequest
	case session.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
