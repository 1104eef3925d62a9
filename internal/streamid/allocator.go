// Copyright (C) 2026 ScyllaDB

// Package streamid implements the per-connection stream-id allocator:
// ids 1..32768, at most one outstanding use per id, O(1) acquire/release
// backed by a fixed bitset rather than a boxed set of integers.
package streamid

import (
	"math/bits"
	"sync"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
)

// MaxStreams is the number of concurrent in-flight requests a single
// connection may multiplex (spec.md section 1).
const MaxStreams = 32768

const words = MaxStreams / 64

// Allocator holds the free/in-use partition of stream ids 1..MaxStreams.
// Id 0 is reserved for the synchronous USE <keyspace> request issued
// during STARTUP (spec.md section 4.D step 8) and is never handed out by
// Acquire.
type Allocator struct {
	mu   sync.Mutex
	free [words]uint64 // bit i set => stream id i+1 is free
}

// New returns an allocator with the full range 1..MaxStreams free.
func New() *Allocator {
	a := &Allocator{}
	a.ReleaseAll()
	return a
}

// Acquire pops and returns one free stream id, or cqlerr.ErrStreamIDsExhausted
// if none remain.
func (a *Allocator) Acquire() (int16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for w := 0; w < words; w++ {
		if a.free[w] == 0 {
			continue
		}
		bit := bits.TrailingZeros64(a.free[w])
		a.free[w] &^= 1 << uint(bit)
		return int16(w*64 + bit + 1), nil
	}
	return 0, cqlerr.ErrStreamIDsExhausted
}

// AcquireFixed removes a specific stream id from the free set, for tests
// that need to force a deterministic id (spec.md section 4.C).
func (a *Allocator) AcquireFixed(id int16) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, bit := wordBit(id)
	if a.free[w]&(1<<bit) == 0 {
		return cqlerr.ErrStreamIDsExhausted
	}
	a.free[w] &^= 1 << bit
	return nil
}

// Release returns id to the free set. Releasing an id that is already
// free is a no-op (idempotent), matching the "release on drain or on
// frame delivery" call sites which are mutually exclusive by
// construction but defensive here.
func (a *Allocator) Release(id int16) {
	a.mu.Lock()
	defer a.mu.Unlock()

	w, bit := wordBit(id)
	a.free[w] |= 1 << bit
}

// ReleaseAll returns every id 1..MaxStreams to the free set, used when a
// connection transitions into Disconnected (spec.md section 4.D).
func (a *Allocator) ReleaseAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for w := range a.free {
		a.free[w] = ^uint64(0)
	}
}

// Available reports how many stream ids are currently free.
func (a *Allocator) Available() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, w := range a.free {
		n += bits.OnesCount64(w)
	}
	return n
}

func wordBit(id int16) (int, uint) {
	idx := int(uint16(id)) - 1 // id 32768 travels as int16 -32768
	return idx / 64, uint(idx % 64)
}
