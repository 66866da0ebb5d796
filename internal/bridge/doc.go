// Package bridge exposes a display session to host applications over HTTP
// and WebSocket.
//
// # Endpoints
//
//   - GET  /state            mirrored state and connection status
//   - GET  /actions          action, feedback and preset catalog
//   - POST /actions/{id}     invoke an action, body {"options": {...}}
//   - GET  /feedbacks/{id}   evaluate a feedback, options as query parameters
//   - GET  /ws               WebSocket event stream
//   - GET  /metrics          Prometheus metrics (when a registry is configured)
//
// # WebSocket Events
//
// Every client receives a "snapshot" event on connect, then one
// "state_changed" event per state-changed notification and one "status"
// event per connection status transition:
//
//	{"type":"state_changed","category":"volume","state":{"power":1,"input":35,"volume":20,"wall_mode":0}}
//
// Clients may invoke actions over the same socket:
//
//	{"type":"invoke","id":"42","action":"setVolume","options":{"volume":20}}
//
// and receive {"type":"result","id":"42"} or {"type":"result","id":"42","error":"..."}.
//
// Slow clients whose send buffer fills up are disconnected.
package bridge
