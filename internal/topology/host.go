// Copyright (C) 2026 ScyllaDB

// Package topology models the cluster host set the control connection
// discovers (system.local/system.peers) and the delta model it emits on
// refresh, grounded on the vendored gocql.HostInfo identity/equality
// model.
package topology

import "net"

// Host is produced by a topology refresh. Identity is (Addr, Port), the
// map key spec.md section 3 requires.
type Host struct {
	Addr       net.IP
	Port       uint16
	DataCenter string
	Rack       string
	Tokens     []string
}

// Key is the identity tuple used to diff host sets across refreshes. Addr
// is stored as its string form so Key remains comparable (net.IP is a
// byte slice and cannot be used as a map key or compared with ==).
type Key struct {
	Addr string
	Port uint16
}

func (h Host) Key() Key {
	return Key{Addr: h.Addr.String(), Port: h.Port}
}

// Equal reports whether h and other describe the same host identity and
// the same observable attributes, grounded on gocql.HostInfo.Equal.
func (h Host) Equal(other Host) bool {
	return h.Key() == other.Key() &&
		h.DataCenter == other.DataCenter &&
		h.Rack == other.Rack
}
