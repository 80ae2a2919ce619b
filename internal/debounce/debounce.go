// Package debounce coalesces bursts of triggers into a single call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer runs fn once the window has elapsed without a new Trigger.
// Each Trigger cancels the pending timer and starts a fresh one, so the
// last event in a burst decides when fn fires.
type Debouncer struct {
	window time.Duration
	fn     func()

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

func New(window time.Duration, fn func()) *Debouncer {
	return &Debouncer{window: window, fn: fn}
}

func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending call. Later Triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Keyed holds one Debouncer per key, e.g. one per line item being edited.
type Keyed struct {
	window time.Duration

	mu   sync.Mutex
	byID map[string]*keyedEntry
}

type keyedEntry struct {
	d  *Debouncer
	fn func()
}

func NewKeyed(window time.Duration) *Keyed {
	return &Keyed{window: window, byID: make(map[string]*keyedEntry)}
}

// Trigger schedules fn for key, replacing whatever fn was pending for it.
func (k *Keyed) Trigger(key string, fn func()) {
	k.mu.Lock()
	if e, ok := k.byID[key]; ok {
		e.d.Stop()
	}
	e := &keyedEntry{fn: fn}
	e.d = New(k.window, func() {
		k.mu.Lock()
		if k.byID[key] != e {
			k.mu.Unlock()
			return
		}
		delete(k.byID, key)
		k.mu.Unlock()
		fn()
	})
	k.byID[key] = e
	k.mu.Unlock()

	e.d.Trigger()
}

// Cancel drops the pending call for key, if any.
func (k *Keyed) Cancel(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.byID[key]; ok {
		e.d.Stop()
		delete(k.byID, key)
	}
}

// FlushAll runs every pending call now instead of waiting for its window.
func (k *Keyed) FlushAll() {
	k.mu.Lock()
	pending := make([]func(), 0, len(k.byID))
	for key, e := range k.byID {
		e.d.Stop()
		pending = append(pending, e.fn)
		delete(k.byID, key)
	}
	k.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (k *Keyed) StopAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for key, e := range k.byID {
		e.d.Stop()
		delete(k.byID, key)
	}
}
