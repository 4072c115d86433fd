package session

import (
	"context"
	"sync"
	"time"
)

// Debouncer runs only the last of a burst of triggers, after Delay of quiet.
// Triggering again cancels the pending call and the context of a running one.
type Debouncer struct {
	Delay time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	seq    Sequencer
}

func NewDebouncer(d time.Duration) *Debouncer {
	return &Debouncer{Delay: d}
}

func (d *Debouncer) Trigger(parent context.Context, fn func(ctx context.Context, t Ticket)) Ticket {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	t := d.seq.Next()
	d.timer = time.AfterFunc(d.Delay, func() {
		if !d.seq.IsCurrent(t) {
			return
		}
		fn(ctx, t)
	})
	return t
}

// IsCurrent reports whether t belongs to the latest trigger.
func (d *Debouncer) IsCurrent(t Ticket) bool {
	return d.seq.IsCurrent(t)
}

func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.seq.Next()
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
