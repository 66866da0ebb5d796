package dispatcher

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/mdcctl/internal/logging"
	"github.com/muurk/mdcctl/internal/protocol"
)

// DefaultInterval is the minimum spacing between two transmissions
const DefaultInterval = 1000 * time.Millisecond

// SendFunc transmits one frame. It is called without the dispatcher's
// lock held and never concurrently with itself within one drain.
type SendFunc func(frame protocol.Frame) error

// SendResult describes one transmission attempt
type SendResult struct {
	Frame   protocol.Frame
	Order   uint64 // enqueue order, starting at 1
	Err     error
	Pending int // entries still queued after this send
	At      time.Time
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithInterval overrides DefaultInterval
func WithInterval(d time.Duration) Option {
	return func(x *Dispatcher) {
		if d > 0 {
			x.interval = d
		}
	}
}

// OnSend registers a hook called after every transmission attempt, from
// the goroutine that ran the send.
func OnSend(fn func(SendResult)) Option {
	return func(x *Dispatcher) {
		x.onSend = fn
	}
}

type entry struct {
	payload protocol.Frame
	order   uint64
}

// Dispatcher is a rate-limited FIFO of outbound frames
type Dispatcher struct {
	mu       sync.Mutex
	send     SendFunc
	interval time.Duration
	onSend   func(SendResult)

	queue    []entry
	draining bool
	sending  bool // a send is in flight outside the lock
	due      bool // the timer fired while sending
	timer    *time.Timer
	gen      uint64 // bumped by Reset so stale timer callbacks are ignored
	seq      uint64
}

// New creates an idle Dispatcher that transmits through send
func New(send SendFunc, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		send:     send,
		interval: DefaultInterval,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Interval returns the configured minimum spacing
func (d *Dispatcher) Interval() time.Duration {
	return d.interval
}

// Enqueue appends frame to the queue. If the dispatcher is idle the frame
// is transmitted before Enqueue returns. A send in progress on another
// goroutine never delays Enqueue.
func (d *Dispatcher) Enqueue(frame protocol.Frame) {
	d.EnqueueFunc(func() (protocol.Frame, bool) { return frame, true })
}

// EnqueueFunc calls build with the dispatcher lock held and enqueues the
// frame it returns, unless build reports false. No Reset can run between
// build and the append. build must not call back into the Dispatcher.
func (d *Dispatcher) EnqueueFunc(build func() (protocol.Frame, bool)) bool {
	d.mu.Lock()
	frame, ok := build()
	if !ok {
		d.mu.Unlock()
		return false
	}

	d.seq++
	d.queue = append(d.queue, entry{payload: frame, order: d.seq})

	if d.draining {
		d.mu.Unlock()
		return true
	}
	d.draining = true
	next := d.popLocked()
	d.mu.Unlock()

	d.deliver(next)
	return true
}

// Reset cancels the pending timer, discards every queued frame and returns
// the dispatcher to idle. Calling Reset on an idle dispatcher is a no-op.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.queue) > 0 {
		logging.Debug("Dispatcher reset, discarding queued frames",
			zap.Int("discarded", len(d.queue)),
		)
	}
	d.gen++
	d.queue = nil
	d.draining = false
	d.sending = false
	d.due = false
}

// Len returns the number of frames waiting to be transmitted
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Idle reports whether no drain is in progress
func (d *Dispatcher) Idle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.draining
}

// attempt is one popped frame waiting to be sent outside the lock
type attempt struct {
	head    entry
	gen     uint64
	pending int
	at      time.Time
}

// popLocked takes the head and arms the next tick. The start time is read
// before the timer is armed so spacing is never understated. Caller holds
// d.mu.
func (d *Dispatcher) popLocked() attempt {
	now := time.Now()
	head := d.queue[0]
	d.queue[0] = entry{}
	d.queue = d.queue[1:]

	gen := d.gen
	d.sending = true
	d.timer = time.AfterFunc(d.interval, func() { d.tick(gen) })
	return attempt{head: head, gen: gen, pending: len(d.queue), at: now}
}

// deliver sends a popped frame without the lock. When the timer fired
// during a slow send, the next head goes out as soon as this one returns.
func (d *Dispatcher) deliver(a attempt) {
	for {
		err := d.send(a.head.payload)
		if err != nil {
			logging.Debug("Frame send failed, advancing queue",
				zap.Uint64("order", a.head.order),
				zap.String("frame", a.head.payload.String()),
				zap.Error(err),
			)
		}
		if d.onSend != nil {
			d.onSend(SendResult{
				Frame:   a.head.payload,
				Order:   a.head.order,
				Err:     err,
				Pending: a.pending,
				At:      a.at,
			})
		}

		d.mu.Lock()
		if a.gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.sending = false
		if !d.due {
			d.mu.Unlock()
			return
		}
		d.due = false
		if len(d.queue) == 0 {
			d.timer = nil
			d.draining = false
			d.mu.Unlock()
			return
		}
		a = d.popLocked()
		d.mu.Unlock()
	}
}

func (d *Dispatcher) tick(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.draining {
		d.mu.Unlock()
		return
	}
	if d.sending {
		d.due = true
		d.mu.Unlock()
		return
	}
	if len(d.queue) == 0 {
		d.timer = nil
		d.draining = false
		d.mu.Unlock()
		return
	}
	next := d.popLocked()
	d.mu.Unlock()

	d.deliver(next)
}
