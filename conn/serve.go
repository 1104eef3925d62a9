// Copyright (C) 2026 ScyllaDB

package conn

import (
	"context"
	"time"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/fsm"
	"github.com/scylladb/ncqldriver/internal/retry"
)

// connectAction implements the Disconnected state's action: spec.md
// section 4.D's Disconnected->Connected steps 1-9, wrapped so a second
// (and every subsequent) attempt first waits ReconnectInterval, per the
// "5-second reconnect timer" the section's Connected->Disconnected
// transition arms.
func (c *Conn) connectAction() fsm.Action {
	return func(ctx context.Context) (fsm.Event, error) {
		if ctx.Err() != nil {
			return fsm.NoOp, nil
		}
		if c.attempted.Load() {
			b := retry.FixedInterval(c.opts.ReconnectInterval)
			select {
			case <-ctx.Done():
				return fsm.NoOp, nil
			case <-time.After(b.NextBackOff()):
			}
		}
		c.attempted.Store(true)

		opts := c.opts
		if opts.Configure != nil {
			var err error
			opts, err = opts.Configure(opts)
			if err != nil {
				c.observer.OnConnectFailed(c, &cqlerr.ConnectFailed{Reason: err})
				return eventConnectFailed, nil
			}
		}

		connectCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
		version := opts.ProtocolVersion
		if version == 0 {
			version = supportedVersions[0]
		}
		result, err := handshakeWith(connectCtx, opts, version)
		cancel()
		if err != nil {
			c.observer.OnConnectFailed(c, &cqlerr.ConnectFailed{Reason: err})
			return eventConnectFailed, nil
		}

		c.mu.Lock()
		c.transport = result.transport
		c.reader = result.reader
		c.protoVersion = result.protoVersion
		c.compressor = result.compressor
		if result.keyspace != "" {
			c.currentKeyspace = result.keyspace
		}
		c.mu.Unlock()

		c.observer.OnConnected(c)
		return eventConnected, nil
	}
}

// serveAction implements the Connected state's action: the inbound read
// loop spec.md section 4.D's "Inbound handling" describes. It runs until
// the transport fails, a malformed/unexpected frame is seen, or ctx is
// cancelled (user shutdown).
func (c *Conn) serveAction() fsm.Action {
	return func(ctx context.Context) (fsm.Event, error) {
		c.mu.Lock()
		transport := c.transport
		reader := c.reader
		version := c.protoVersion
		compressor := c.compressor
		c.mu.Unlock()

		fetcher := bufferedFetcher{r: reader}

		stop := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				transport.Close()
			case <-stop:
			}
		}()
		defer close(stop)

		var reason error
		for {
			var env *frame.Envelope
			var err error
			if version >= frame.ProtoVersion5 {
				env, err = frame.DecodeV5(fetcher, compressor)
			} else {
				env, err = frame.Decode(fetcher, compressor)
			}
			if err != nil {
				if ctx.Err() != nil {
					reason = ctx.Err()
				} else {
					reason = err
				}
				break
			}

			if fatal := c.dispatch(env); fatal != nil {
				reason = fatal
				break
			}
		}

		transport.Close()
		c.mu.Lock()
		c.disconnectReason = reason
		c.transport = nil
		c.mu.Unlock()

		c.observer.OnDisconnected(c, reason)
		return eventDisconnected, nil
	}
}

// dispatch routes one decoded inbound frame to its waiter, per spec.md
// section 4.D's "Inbound handling": an EVENT frame whose stream id has no
// registered waiter goes to Observer.OnEvent; any other frame without a
// waiter is a fatal UnexpectedStream error that forces the connection to
// Disconnected.
func (c *Conn) dispatch(env *frame.Envelope) error {
	stream := env.Header.Stream

	c.mu.Lock()
	w, ok := c.inFlight[stream]
	if ok {
		delete(c.inFlight, stream)
	}
	c.mu.Unlock()

	if !ok {
		if env.Header.Opcode == frame.OpEvent {
			c.observer.OnEvent(c, env)
			return nil
		}
		return &cqlerr.Disconnected{Reason: cqlerr.ErrUnexpectedStream}
	}

	c.streams.Release(stream)
	w.deliver(Response{Envelope: env})
	return nil
}

// drain implements spec.md section 4.D's Connected->Disconnected drain:
// every in-flight waiter is signaled with ErrDisconnectedRequest and the
// full stream-id capacity is restored.
func (c *Conn) drain() {
	c.mu.Lock()
	waiters := c.inFlight
	c.inFlight = make(map[int16]*Waiter)
	c.mu.Unlock()

	for _, w := range waiters {
		w.deliver(Response{Err: &cqlerr.Disconnected{Reason: cqlerr.ErrDisconnectedRequest}})
	}
	c.streams.ReleaseAll()
}
