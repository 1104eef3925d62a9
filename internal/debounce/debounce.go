// Copyright (C) 2026 ScyllaDB

// Package debounce coalesces repeated requests to run an expensive
// function (topology refresh) into a single call, with support for
// forcing an immediate run. Adapted from the vendored gocql refresh
// debouncer (gocql/debounce/refresh_deboucer.go) to the narrower surface
// this driver core needs: spec.md section 4.E's "arms a timer... re-arms
// the timer" and "schedule a refresh 5 seconds later" on TOPOLOGY_CHANGE.
package debounce

import (
	"sync"
	"time"
)

// Debouncer defers calls to Fn until interval has elapsed since the most
// recent Trigger, and also supports an immediate Now call that cancels
// any pending delayed run.
type Debouncer struct {
	fn       func()
	interval time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	nowCh   chan struct{}
	quit    chan struct{}
	stopped bool
}

// New starts a debouncer that calls fn no sooner than interval after the
// last Trigger.
func New(interval time.Duration, fn func()) *Debouncer {
	d := &Debouncer{
		fn:       fn,
		interval: interval,
		timer:    time.NewTimer(interval),
		nowCh:    make(chan struct{}, 1),
		quit:     make(chan struct{}),
	}
	d.timer.Stop()
	go d.loop()
	return d
}

// Trigger (re-)arms the debounce window: fn runs interval from now unless
// Trigger is called again first.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.timer.Reset(d.interval)
}

// Now requests an immediate run, bypassing any pending delayed window.
func (d *Debouncer) Now() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.timer.Stop()
	select {
	case d.nowCh <- struct{}{}:
	default:
	}
}

func (d *Debouncer) loop() {
	for {
		select {
		case <-d.nowCh:
		case <-d.timer.C:
		case <-d.quit:
			return
		}
		d.fn()
	}
}

// Stop halts the debouncer; no further runs of fn occur.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()
	close(d.quit)
	d.timer.Stop()
}
