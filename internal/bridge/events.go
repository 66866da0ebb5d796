package bridge

import (
	"github.com/muurk/mdcctl/internal/protocol"
	"github.com/muurk/mdcctl/internal/session"
)

// Event types sent to clients
const (
	EventSnapshot     = "snapshot"
	EventStateChanged = "state_changed"
	EventStatus       = "status"
	EventResult       = "result"
)

// Event is one message pushed to WebSocket clients
type Event struct {
	Type     string            `json:"type"`
	ID       string            `json:"id,omitempty"`
	Category protocol.Category `json:"category,omitempty"`
	Feedback string            `json:"feedback,omitempty"` // catalog feedback watching Category
	State    *protocol.State   `json:"state,omitempty"`
	Status   string            `json:"status,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// Request is a message received from a WebSocket client
type Request struct {
	Type    string         `json:"type"`
	ID      string         `json:"id,omitempty"`
	Action  string         `json:"action"`
	Options map[string]int `json:"options,omitempty"`
}

// StateResponse is the body of GET /state
type StateResponse struct {
	State     protocol.State `json:"state"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	DeviceID  byte           `json:"device_id"`
	Pending   int            `json:"pending"`
	SessionID string         `json:"session_id,omitempty"`
}

// CatalogResponse is the body of GET /actions
type CatalogResponse struct {
	Actions   []session.Action   `json:"actions"`
	Feedbacks []session.Feedback `json:"feedbacks"`
	Presets   []session.Preset   `json:"presets"`
}

// FeedbackResponse is the body of GET /feedbacks/{id}
type FeedbackResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
