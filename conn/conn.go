// Copyright (C) 2026 ScyllaDB

// Package conn implements the per-node connection state machine: one
// transport, multiplexed by stream id, driven disconnected<->connected
// by a single-threaded cooperative actor built on internal/fsm's generic
// state machine (itself adapted from the teacher's pkg/util/fsm),
// generalized from that package's patient/doctor toy domain to the
// Disconnected/Connected lifecycle spec.md section 4.D describes.
package conn

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/fsm"
	"github.com/scylladb/ncqldriver/internal/streamid"
	"github.com/scylladb/ncqldriver/internal/timeutc"
)

var errTimeout = cqlerr.ErrTimeout

const (
	stateDisconnected fsm.State = "disconnected"
	stateConnected    fsm.State = "connected"

	eventConnected     fsm.Event = "connected"
	eventConnectFailed fsm.Event = "connect_failed"
	eventDisconnected  fsm.Event = "disconnected"
)

// Observer receives the lifecycle events spec.md section 6 calls
// "Observable events": connected, disconnected(reason), failed_to_connect(reason).
type Observer interface {
	OnConnected(c *Conn)
	OnDisconnected(c *Conn, reason error)
	OnConnectFailed(c *Conn, reason error)
	OnKeyspaceChanged(c *Conn, keyspace string)
	// OnEvent is invoked for any EVENT frame whose stream id has no
	// matching waiter (servers push events on stream id -1). Normally
	// only a connection that sent REGISTER, i.e. a control connection
	// (package control), receives these.
	OnEvent(c *Conn, env *frame.Envelope)
}

// NopObserver implements Observer with no-ops, for callers that only
// care about some events.
type NopObserver struct{}

func (NopObserver) OnConnected(*Conn)               {}
func (NopObserver) OnDisconnected(*Conn, error)     {}
func (NopObserver) OnConnectFailed(*Conn, error)    {}
func (NopObserver) OnKeyspaceChanged(*Conn, string) {}
func (NopObserver) OnEvent(*Conn, *frame.Envelope)  {}

// Conn is one connection actor: exclusive owner of a single transport
// socket, per spec.md section 3's "Connection state" data model.
type Conn struct {
	opts     Options
	observer Observer
	sm       *fsm.StateMachine

	mu              sync.Mutex
	transport       net.Conn
	reader          *bufio.Reader
	protoVersion    frame.ProtoVersion
	compressor      frame.Compressor
	currentKeyspace string
	streams         *streamid.Allocator
	inFlight        map[int16]*Waiter

	// writeMu serializes concurrent writers on this connection's transport
	// only; it is a Conn field (not package-scoped) so that a write on a
	// connection to one node never blocks a concurrent write on an
	// unrelated connection, per spec.md section 5: connections run in
	// parallel, and checkout_slot() is the only cross-connection
	// serialization point.
	writeMu sync.Mutex

	attempted atomic.Bool
	closed    atomic.Bool

	disconnectReason   error
	lastTransitionedAt time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Conn in the Disconnected state and starts its actor
// loop. The caller must call Close to release resources.
func New(opts Options, observer Observer) *Conn {
	if observer == nil {
		observer = NopObserver{}
	}
	if opts.ReconnectInterval == 0 {
		opts.ReconnectInterval = 5 * time.Second
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		opts:     opts,
		observer: observer,
		streams:  streamid.New(),
		inFlight: make(map[int16]*Waiter),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	c.sm = fsm.New(stateDisconnected, fsm.StateTransitions{
		stateDisconnected: {
			Action: c.connectAction(),
			Events: fsm.Events{
				eventConnected:     stateConnected,
				eventConnectFailed: stateDisconnected,
			},
		},
		stateConnected: {
			Action: c.serveAction(),
			Events: fsm.Events{
				eventDisconnected: stateDisconnected,
			},
		},
	}, c.transitionHook)

	go c.run(ctx)
	return c
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)
	if err := c.sm.Transition(ctx); err != nil {
		klog.V(2).Infof("cql: connection actor for %s stopped: %v", c.opts.address(), err)
	}
}

func (c *Conn) transitionHook(ctx context.Context, current, next fsm.State, event fsm.Event) error {
	now := timeutc.Now()
	c.mu.Lock()
	prev := c.lastTransitionedAt
	c.lastTransitionedAt = now
	c.mu.Unlock()

	if prev.IsZero() {
		klog.V(5).Infof("cql: %s %s -> %s on %s", c.opts.address(), current, next, event)
	} else {
		klog.V(5).Infof("cql: %s %s -> %s on %s (spent %s in %s)", c.opts.address(), current, next, event, timeutc.Since(prev), current)
	}
	if current == stateConnected && next == stateDisconnected {
		c.drain()
	}
	return nil
}

// LastTransitionedAt reports the UTC timestamp of the actor's most
// recent state transition, zero before the first one.
func (c *Conn) LastTransitionedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTransitionedAt
}

// Current reports the actor's lifecycle state.
func (c *Conn) Current() fsm.State {
	return c.sm.Current()
}

// Keyspace reports the last keyspace this connection successfully USEd,
// either during STARTUP or via NotifyKeyspaceChanged.
func (c *Conn) Keyspace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentKeyspace
}

// ProtocolVersion reports the negotiated protocol version, zero before
// the first successful connect.
func (c *Conn) ProtocolVersion() frame.ProtoVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.protoVersion
}

// Compressor reports the bound compressor, nil if none was negotiated.
func (c *Conn) Compressor() frame.Compressor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.compressor
}

// AvailableStreams reports how many stream ids remain free.
func (c *Conn) AvailableStreams() int {
	return c.streams.Available()
}

// NotifyKeyspaceChanged is the advisory update spec.md section 4.D's
// "Set-keyspace observation" describes: the caller, having seen a
// SetKeyspace result, tells the actor so future checkouts snapshot the
// new keyspace. The machine does not validate it.
func (c *Conn) NotifyKeyspaceChanged(keyspace string) {
	c.mu.Lock()
	c.currentKeyspace = keyspace
	c.mu.Unlock()
	c.observer.OnKeyspaceChanged(c, keyspace)
}

// Close tears down the actor permanently; no further reconnect attempts
// are made.
func (c *Conn) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.cancel()
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	if t != nil {
		t.Close()
	}
	<-c.done
}
