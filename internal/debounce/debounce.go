// Package debounce delays propagating a rapidly changing value until it has
// been stable for a full quiet period.
package debounce

import (
	"sync"
	"time"
)

const DefaultDelay = 300 * time.Millisecond

// Debouncer collects rapid updates to a value and delivers only the value
// that has remained unchanged for the full delay. Each instance is owned by
// a single consumer; Close cancels any pending delivery.
type Debouncer[T any] struct {
	delay time.Duration

	mu      sync.Mutex
	pending T
	seq     uint64
	timer   *time.Timer
	closed  bool

	out  chan T
	done chan struct{}
}

// New creates a debouncer with the given quiet period. A non-positive delay
// means DefaultDelay.
func New[T any](delay time.Duration) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{
		delay: delay,
		out:   make(chan T, 1),
		done:  make(chan struct{}),
	}
}

// Notify registers a new upstream value. Any pending delivery is superseded
// and the quiet period starts over.
func (d *Debouncer[T]) Notify(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.pending = v
	d.seq++
	seq := d.seq

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.fire(seq)
	})
}

// C delivers each settled value. An unread settled value is replaced when a
// newer one settles, so a slow consumer always observes the most recent
// settled value. The channel is never closed; consumers stop reading after
// calling Close.
func (d *Debouncer[T]) C() <-chan T {
	return d.out
}

// Close cancels any pending delivery. Nothing is delivered after Close.
// Idempotent.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	close(d.done)
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		// Superseded by a newer value or torn down while the timer fired
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.timer = nil
	d.mu.Unlock()

	for {
		select {
		case d.out <- v:
			return
		case <-d.done:
			return
		default:
		}

		// Drop the stale settled value so the newest one wins
		select {
		case <-d.out:
		default:
		}
	}
}
