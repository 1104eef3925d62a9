// Copyright (C) 2026 ScyllaDB

package control

import (
	"context"
	"time"

	"k8s.io/klog/v2"

	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/parallel"
	"github.com/scylladb/ncqldriver/internal/protocol"
	"github.com/scylladb/ncqldriver/internal/topology"
)

const (
	localQuery = "SELECT listen_address, data_center, rack, tokens FROM system.local"
	peersQuery = "SELECT peer, data_center, rack, tokens FROM system.peers"
)

// Refresh implements spec.md section 4.E's refresh tick: re-query
// system.local/system.peers, diff against the previous snapshot, and
// notify the delegate of additions/removals. Unchanged hosts are not
// re-announced.
func (ctl *Controller) Refresh(ctx context.Context) error {
	statements := []string{localQuery, peersQuery}
	results := make([][]topology.Host, len(statements))

	// system.local and system.peers are independent reads; resolve them
	// concurrently rather than paying two round trips in series.
	if err := parallel.ForEach(len(statements), func(i int) error {
		hosts, err := ctl.queryHosts(ctx, statements[i], i == 0)
		if err != nil {
			return err
		}
		results[i] = hosts
		return nil
	}); err != nil {
		return err
	}

	next := append(results[0], results[1]...)

	ctl.mu.Lock()
	prev := ctl.hosts
	ctl.hosts = next
	ctl.mu.Unlock()

	delta := topology.Diff(prev, next)
	if ctl.delegate == nil {
		return nil
	}
	for _, h := range delta.Added {
		ctl.delegate.OnHostAdded(h)
	}
	for _, h := range delta.Removed {
		ctl.delegate.OnHostRemoved(h)
	}
	return nil
}

func (ctl *Controller) queryHosts(ctx context.Context, statement string, isLocal bool) ([]topology.Host, error) {
	dc, err := ctl.c.Checkout()
	if err != nil {
		return nil, err
	}
	body := protocol.EncodeQuery(dc.ProtoVersion, statement, protocol.QueryParams{Consistency: protocol.One})
	if err := dc.Send(frame.OpQuery, body); err != nil {
		return nil, err
	}

	timeout := requestTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			timeout = remaining
		}
	}
	env, err := dc.Await(timeout)
	if err != nil {
		return nil, err
	}
	if env.Header.Opcode == frame.OpError {
		se, decErr := protocol.DecodeError(env.Body)
		if decErr != nil {
			return nil, decErr
		}
		return nil, se
	}

	res, err := protocol.DecodeResult(env.Body)
	if err != nil {
		return nil, err
	}
	if res.Rows == nil {
		return nil, nil
	}

	addrColumn := "peer"
	if isLocal {
		addrColumn = "listen_address"
	}

	hosts := make([]topology.Host, 0, len(res.Rows.Rows))
	for _, row := range res.Rows.Rows {
		h := topology.Host{Port: 9042}
		for i, col := range res.Rows.Metadata.Columns {
			if i >= len(row) || row[i] == nil {
				continue
			}
			switch col.Name {
			case addrColumn:
				h.Addr = decodeInet(row[i])
			case "data_center":
				h.DataCenter = decodeText(row[i])
			case "rack":
				h.Rack = decodeText(row[i])
			case "tokens":
				h.Tokens = decodeTextSet(row[i])
			}
		}
		if h.Addr == nil {
			klog.V(4).Infof("cql: skipping host row with no usable address from %q", statement)
			continue
		}
		hosts = append(hosts, h)
	}
	return hosts, nil
}
