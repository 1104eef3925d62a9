// Copyright (C) 2026 ScyllaDB

package conn

import (
	"time"

	"github.com/scylladb/ncqldriver/internal/frame"
)

// Response is what a waiter receives: the decoded frame, or a delivery
// failure (disconnect, unexpected stream, cancellation). Exactly one of
// Envelope/Err is set.
type Response struct {
	Envelope *frame.Envelope
	Err      error
}

// Waiter is the opaque one-shot reply handle spec.md section 3 describes:
// created by Checkout, consumed exactly once by either an inbound
// frame matching its stream id or by connection teardown.
type Waiter struct {
	ch chan Response
}

func newWaiter() *Waiter {
	return &Waiter{ch: make(chan Response, 1)}
}

// deliver sends resp to the waiter. It never blocks: the channel is
// buffered to depth one and consumed at most once, so a second delivery
// attempt (which should not happen under the invariants in spec.md
// section 3) is dropped rather than deadlocking the actor loop.
func (w *Waiter) deliver(resp Response) {
	select {
	case w.ch <- resp:
	default:
	}
}

// Await blocks until a response is delivered or timeoutCh fires. It does
// not unregister the waiter; a late response is discarded by the caller
// and the stream id is reclaimed by the normal inbound path, per
// spec.md's cancellation & timeout model (section 5).
func (w *Waiter) Await(timeoutCh <-chan time.Time) (*frame.Envelope, error) {
	select {
	case resp := <-w.ch:
		return resp.Envelope, resp.Err
	case <-timeoutCh:
		return nil, errTimeout
	}
}
