// Package dispatcher paces outbound frames to a single display.
//
// Displays of this protocol family drop commands that arrive faster than a
// fixed minimum spacing. A Dispatcher accepts frames from any goroutine and
// transmits them one at a time, in FIFO order, with every send started at
// least Interval after the start of the previous one.
//
// # State Machine
//
//   - Idle + Enqueue: append, transmit the head immediately, arm the timer
//   - Draining + Enqueue: append only
//   - Timer fires: transmit the next head and re-arm, or go Idle when empty
//   - Timer fires mid-send: the next head goes out when the send returns
//   - Reset: stop the timer, drop everything queued, go Idle
//
// Sends are fire-and-forget. A failed send is logged and the queue moves on;
// Enqueue never reports an error to the caller.
//
// # Usage Example
//
//	d := dispatcher.New(func(f protocol.Frame) error {
//	    _, err := conn.Write(f)
//	    return err
//	})
//	for _, cmd := range protocol.InitialQueries() {
//	    frame, _ := protocol.Encode(cmd, 0x01)
//	    d.Enqueue(frame)
//	}
//
// # Thread Safety
//
// All methods are safe for concurrent use. The SendFunc runs outside the
// dispatcher lock, so a slow write never stalls Enqueue on other
// goroutines. Transmissions within one drain never overlap and at most one
// timer is outstanding at any moment.
package dispatcher
