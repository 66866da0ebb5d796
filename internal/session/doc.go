// Package session manages one display connection: the transport, the
// rate-limited command queue and the state mirrored from acknowledgments.
//
// # Lifecycle
//
// A Session moves through these statuses:
//
//	Disconnected -> Connecting -> Connected -> Disconnected
//	                     \             \
//	                      -> Error      -> Error
//
// Configure closes any open connection, discards queued frames, resets the
// mirrored state and, if a host is set, dials in the background. Once the
// dial succeeds the four initial queries (input, wall mode, volume, power)
// are enqueued. Transport failures move the session to Error; there is no
// automatic reconnect. Call Configure again to retry.
//
// # Actions and Feedbacks
//
// The catalog in actions.go exposes the host-facing surface: actions
// (powerState, switchInput, setVolume, ledWallState and the query actions),
// boolean feedbacks comparing an option against a mirrored field, and
// preset buttons.
//
//	s := session.New(session.WithMetrics(appMetrics))
//	if err := s.Configure(session.Config{Host: "10.0.0.20", DeviceNumber: 1}); err != nil {
//	    return err
//	}
//	if err := s.AwaitConnected(ctx); err != nil {
//	    return err
//	}
//	unsubscribe := s.Subscribe(func(c protocol.Change, st protocol.State) {
//	    fmt.Println(c.Category, st)
//	})
//	defer unsubscribe()
//	_ = s.Invoke("switchInput", map[string]int{"source": 0x23})
//
// # Thread Safety
//
// All methods are safe for concurrent use. Listeners run on the connection's
// read goroutine and must not call Teardown.
package session
