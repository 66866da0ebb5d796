package bridge

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/muurk/mdcctl/internal/logging"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Events buffered per client before it is considered slow
	sendBuffer = 64
)

type client struct {
	id     string
	conn   *websocket.Conn
	send   chan Event
	done   chan struct{}
	once   sync.Once
	server *Server
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.Debug("WebSocket upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.NewString(),
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		done:   make(chan struct{}),
		server: s,
	}

	st := s.snapshot()
	c.send <- Event{Type: EventSnapshot, State: &st.State, Status: st.Status, Error: st.Error}

	if !s.addClient(c) {
		_ = conn.Close()
		return
	}
	logging.Info("Bridge client connected",
		zap.String("client_id", c.id),
		zap.String("remote_addr", r.RemoteAddr),
	)

	go c.writePump()
	c.readPump()
}

// enqueue queues ev without blocking. It reports false when the client's
// buffer is full. Caller holds server.mu.
func (c *client) enqueue(ev Event) bool {
	select {
	case <-c.done:
		return true
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// close signals the write pump, which sends a close frame and closes the
// connection
func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// readPump handles invoke requests until the connection fails
func (c *client) readPump() {
	defer func() {
		c.server.removeClient(c)
		c.close()
		logging.Info("Bridge client disconnected", zap.String("client_id", c.id))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("Bridge client read error", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.reply(Event{Type: EventResult, Error: "invalid request: " + err.Error()})
			continue
		}
		if req.Type != "invoke" {
			c.reply(Event{Type: EventResult, ID: req.ID, Error: "unsupported request type " + req.Type})
			continue
		}

		err = c.server.ctrl.Invoke(req.Action, req.Options)
		c.reply(Event{Type: EventResult, ID: req.ID, Error: errString(err)})
	}
}

func (c *client) reply(ev Event) {
	select {
	case c.send <- ev:
	case <-c.done:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
