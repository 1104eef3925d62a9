// Copyright (C) 2026 ScyllaDB

// Package control implements the cluster topology supervisor: a
// dedicated connection (built on package conn) that discovers peers,
// subscribes to STATUS_CHANGE/TOPOLOGY_CHANGE events, and refreshes
// topology on a timer, per spec.md section 4.E. Grounded on the vendored
// gocql control.go (controlConn.connect/registerEvents/reconnect shape)
// and host_source.go's peer/local query pattern.
package control

import (
	"context"
	"net"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/scylladb/ncqldriver/conn"
	"github.com/scylladb/ncqldriver/internal/debounce"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/protocol"
	"github.com/scylladb/ncqldriver/internal/topology"
)

const (
	defaultRefreshInterval = 60 * time.Second
	topologyStabilizeDelay = 5 * time.Second
	requestTimeout         = 10 * time.Second
)

// Delegate receives the upstream delta model spec.md section 4.E names:
// host_added/host_removed/host_up/host_down.
type Delegate interface {
	OnHostAdded(h topology.Host)
	OnHostRemoved(h topology.Host)
	OnHostUp(addr net.IP, port uint16)
	OnHostDown(addr net.IP, port uint16)
}

// Controller owns one control connection and its topology supervisor
// loop. It is an independent instance of package conn's actor without
// user traffic (spec.md section 2's "E is an independent instance of D").
type Controller struct {
	delegate Delegate
	interval time.Duration

	c *conn.Conn

	mu    sync.Mutex
	hosts []topology.Host

	debouncer *debounce.Debouncer
	done      chan struct{}
}

// New starts a control connection against opts.Addr/opts.Port and begins
// the topology supervisor loop. refreshInterval <= 0 uses a 60-second
// default.
func New(opts conn.Options, delegate Delegate, refreshInterval time.Duration) *Controller {
	if refreshInterval <= 0 {
		refreshInterval = defaultRefreshInterval
	}

	ctl := &Controller{
		delegate: delegate,
		interval: refreshInterval,
		done:     make(chan struct{}),
	}
	ctl.c = conn.New(opts, ctl)
	ctl.debouncer = debounce.New(refreshInterval, ctl.refreshSafely)
	go ctl.run()
	return ctl
}

func (ctl *Controller) run() {
	<-ctl.done
}

// Close tears down the control connection and its debouncer.
func (ctl *Controller) Close() {
	ctl.debouncer.Stop()
	ctl.c.Close()
	close(ctl.done)
}

func (ctl *Controller) refreshSafely() {
	if err := ctl.Refresh(context.Background()); err != nil {
		klog.Warningf("cql: control connection topology refresh failed: %v", err)
	}
	ctl.debouncer.Trigger()
}

// OnConnected implements conn.Observer: once the handshake completes,
// register for events and run the first topology query (spec.md section
// 4.E steps 1-3). The connection actor calls this before its read loop
// starts, so the round trips run on their own goroutine.
func (ctl *Controller) OnConnected(c *conn.Conn) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := ctl.register(ctx); err != nil {
			klog.Warningf("cql: control connection REGISTER failed: %v", err)
		}
		if err := ctl.Refresh(ctx); err != nil {
			klog.Warningf("cql: initial topology refresh failed: %v", err)
		}
		ctl.debouncer.Trigger()
	}()
}

func (ctl *Controller) OnDisconnected(c *conn.Conn, reason error) {
	klog.V(2).Infof("cql: control connection disconnected: %v", reason)
}

func (ctl *Controller) OnConnectFailed(c *conn.Conn, reason error) {
	klog.V(2).Infof("cql: control connection connect failed: %v", reason)
}

func (ctl *Controller) OnKeyspaceChanged(c *conn.Conn, keyspace string) {}

// OnEvent implements conn.Observer: dispatch STATUS_CHANGE/TOPOLOGY_CHANGE
// pushes per spec.md section 4.E's "Event handling".
func (ctl *Controller) OnEvent(c *conn.Conn, env *frame.Envelope) {
	ev, err := protocol.DecodeEvent(env.Body)
	if err != nil {
		klog.Warningf("cql: malformed EVENT frame: %v", err)
		return
	}
	switch ev.Type {
	case "STATUS_CHANGE":
		ctl.handleStatusChange(ev.StatusChange)
	case "TOPOLOGY_CHANGE":
		ctl.handleTopologyChange(ev.TopoChange)
	}
}

func (ctl *Controller) handleStatusChange(sc *protocol.StatusChangeEvent) {
	if sc == nil || ctl.delegate == nil {
		return
	}
	addr := net.ParseIP(sc.Addr)
	switch sc.Status {
	case "UP":
		ctl.delegate.OnHostUp(addr, sc.Port)
	case "DOWN":
		ctl.delegate.OnHostDown(addr, sc.Port)
	}
}

func (ctl *Controller) handleTopologyChange(tc *protocol.TopologyChangeEvent) {
	if tc == nil {
		return
	}
	switch tc.Change {
	case "NEW_NODE", "REMOVED_NODE":
		// Schedule a refresh 5 seconds later to allow the cluster to
		// stabilize, per spec.md section 4.E.
		time.AfterFunc(topologyStabilizeDelay, ctl.debouncer.Now)
	case "MOVED_NODE":
		klog.Warningf("cql: ignoring MOVED_NODE topology event for %s", tc.Addr)
	}
}

func (ctl *Controller) register(ctx context.Context) error {
	dc, err := ctl.c.Checkout()
	if err != nil {
		return err
	}
	body := protocol.EncodeRegister([]string{"STATUS_CHANGE", "TOPOLOGY_CHANGE"})
	if err := dc.Send(frame.OpRegister, body); err != nil {
		return err
	}
	env, err := dc.Await(requestTimeout)
	if err != nil {
		return err
	}
	if env.Header.Opcode == frame.OpError {
		se, decErr := protocol.DecodeError(env.Body)
		if decErr != nil {
			return decErr
		}
		return se
	}
	return nil
}

// Hosts returns the most recently observed topology snapshot.
func (ctl *Controller) Hosts() []topology.Host {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	return ctl.hosts
}
