// Copyright (C) 2026 ScyllaDB

package conn

import (
	"net"
	"sync"
	"time"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
)

// DispatchContext is the snapshot Checkout returns, per spec.md section
// 4.D's "Request dispatch" step 1: negotiated protocol, current keyspace,
// the stream id, the transport handle to write on, and the bound
// compressor. It carries no separate peer address or port field;
// Transport.RemoteAddr reports the peer. Encoding and the transport write
// both happen in the caller's goroutine without holding the actor lock.
type DispatchContext struct {
	Stream       int16
	ProtoVersion frame.ProtoVersion
	Keyspace     string
	Compressor   frame.Compressor
	Transport    net.Conn

	waiter  *Waiter
	writeMu *sync.Mutex
}

// Checkout implements checkout_slot(): it atomically pops a stream id,
// registers a waiter, and returns a DispatchContext snapshot. Returns
// ErrNotConnected if the actor is not currently Connected.
func (c *Conn) Checkout() (*DispatchContext, error) {
	c.mu.Lock()
	if c.transport == nil {
		c.mu.Unlock()
		return nil, cqlerr.ErrNotConnected
	}
	transport := c.transport
	version := c.protoVersion
	compressor := c.compressor
	keyspace := c.currentKeyspace
	c.mu.Unlock()

	stream, err := c.streams.Acquire()
	if err != nil {
		return nil, err
	}

	w := newWaiter()
	c.mu.Lock()
	if c.transport == nil {
		c.mu.Unlock()
		c.streams.Release(stream)
		return nil, cqlerr.ErrNotConnected
	}
	c.inFlight[stream] = w
	c.mu.Unlock()

	return &DispatchContext{
		Stream:       stream,
		ProtoVersion: version,
		Keyspace:     keyspace,
		Compressor:   compressor,
		Transport:    transport,
		waiter:       w,
		writeMu:      &c.writeMu,
	}, nil
}

// Send writes the already-encoded request body on the dispatch context's
// transport, framing it per the negotiated protocol version.
func (ctx *DispatchContext) Send(opcode frame.Opcode, body []byte) error {
	encoded, err := frame.Encode(ctx.ProtoVersion, ctx.Stream, opcode, body, frame.EncodeOptions{
		Compressor: ctx.Compressor,
		V5:         ctx.ProtoVersion >= frame.ProtoVersion5,
	})
	if err != nil {
		return err
	}
	if ctx.ProtoVersion >= frame.ProtoVersion5 {
		encoded, err = frame.EncodeV5(encoded, ctx.Compressor)
		if err != nil {
			return err
		}
	}

	ctx.writeMu.Lock()
	_, err = ctx.Transport.Write(encoded)
	ctx.writeMu.Unlock()
	return err
}

// Await blocks for the response to the request sent on ctx, honoring
// timeout, per spec.md section 4.D step 3 and section 5's cancellation
// model: a fired timeout does not unregister the waiter.
func (ctx *DispatchContext) Await(timeout time.Duration) (*frame.Envelope, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	return ctx.waiter.Await(timer.C)
}
