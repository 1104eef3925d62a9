// Copyright (C) 2026 ScyllaDB

// Package driverconfig is the plain, in-memory configuration surface
// spec.md section 6 names (node, encryption, transport options, protocol
// version, compressor, default consistency, keyspace, atom keys, name,
// configure hook). Loading this from a file is explicitly out of scope
// (spec.md section 1's "configuration loading" Non-goal); the shape is
// grounded on the Datacenter/AuthInfo/Context/CQLParameters triple of the
// retrieved scylla-operator CQLConnectionConfig type, translated from a
// multi-context kubeconfig-style document down to the single resolved
// connection a driver core actually dials.
package driverconfig

import (
	"crypto/tls"
	"time"

	"github.com/pkg/errors"

	"github.com/scylladb/ncqldriver/conn"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/protocol"
)

// ConsistencyLevel mirrors CQLConsistencyString from the retrieved
// CQLConnectionConfig type: a symbolic name for a consistency level,
// kept distinct from protocol.Consistency so config authors never need
// to know the wire byte values.
type ConsistencyLevel string

const (
	ConsistencyAny         ConsistencyLevel = "ANY"
	ConsistencyOne         ConsistencyLevel = "ONE"
	ConsistencyTwo         ConsistencyLevel = "TWO"
	ConsistencyThree       ConsistencyLevel = "THREE"
	ConsistencyQuorum      ConsistencyLevel = "QUORUM"
	ConsistencyAll         ConsistencyLevel = "ALL"
	ConsistencyLocalQuorum ConsistencyLevel = "LOCAL_QUORUM"
	ConsistencyEachQuorum  ConsistencyLevel = "EACH_QUORUM"
	ConsistencySerial      ConsistencyLevel = "SERIAL"
	ConsistencyLocalSerial ConsistencyLevel = "LOCAL_SERIAL"
	ConsistencyLocalOne    ConsistencyLevel = "LOCAL_ONE"
)

func (c ConsistencyLevel) protocolValue() (protocol.Consistency, error) {
	switch c {
	case "", ConsistencyOne:
		return protocol.One, nil
	case ConsistencyAny:
		return protocol.Any, nil
	case ConsistencyTwo:
		return protocol.Two, nil
	case ConsistencyThree:
		return protocol.Three, nil
	case ConsistencyQuorum:
		return protocol.Quorum, nil
	case ConsistencyAll:
		return protocol.All, nil
	case ConsistencyLocalQuorum:
		return protocol.LocalQuorum, nil
	case ConsistencyEachQuorum:
		return protocol.EachQuorum, nil
	case ConsistencySerial:
		return protocol.Serial, nil
	case ConsistencyLocalSerial:
		return protocol.LocalSerial, nil
	case ConsistencyLocalOne:
		return protocol.LocalOne, nil
	default:
		return 0, errors.Errorf("driverconfig: unknown consistency level %q", c)
	}
}

// TransportOptions is the TLS subset of the retrieved Datacenter type
// (CertificateAuthorityData/InsecureSkipTLSVerify/NodeDomain), trimmed to
// what conn.TLSConfig can carry; path-based cert loading is part of the
// file-loading Non-goal and is intentionally absent.
type TransportOptions struct {
	Enabled            bool
	ServerName         string
	InsecureSkipVerify bool
	Raw                *tls.Config
}

// Options is the single resolved connection configuration a driverconfig
// caller builds by hand — the flattened equivalent of picking one
// Datacenter/AuthInfo pair out of a CQLConnectionConfig's maps via its
// CurrentContext, without ever reading one from disk.
type Options struct {
	// Node is the initial contact point, "host:port" already split into
	// its two fields to avoid a parse step callers would have to repeat.
	Host string
	Port uint16

	Transport TransportOptions

	ProtocolVersion frame.ProtoVersion
	Compressor      frame.Compressor

	DefaultConsistency ConsistencyLevel
	Keyspace           string

	// AtomKeys mirrors spec.md section 6's atom_keys flag. It is passed
	// through to conn.Options.AtomKeys; nothing in the core reads it.
	AtomKeys bool

	Name string

	Authenticator conn.Authenticator
	Configure     conn.ConfigureFunc

	ConnectTimeout    time.Duration
	ReconnectInterval time.Duration
}

// ToConnOptions translates Options into the conn.Options the connection
// actor actually consumes, resolving the symbolic consistency level and
// TLS shorthand into their wire/stdlib forms.
func (o Options) ToConnOptions() (conn.Options, error) {
	level, err := o.DefaultConsistency.protocolValue()
	if err != nil {
		return conn.Options{}, err
	}

	out := conn.Options{
		Addr:               o.Host,
		Port:               o.Port,
		Encryption:         o.Transport.Enabled,
		ConnectTimeout:     o.ConnectTimeout,
		ProtocolVersion:    o.ProtocolVersion,
		Compressor:         o.Compressor,
		DefaultConsistency: level,
		Keyspace:           o.Keyspace,
		AtomKeys:           o.AtomKeys,
		Configure:          o.Configure,
		Name:               o.Name,
		Authenticator:      o.Authenticator,
		ReconnectInterval:  o.ReconnectInterval,
	}
	if o.Transport.Enabled {
		out.TLSConfig = &conn.TLSConfig{
			ServerName:         o.Transport.ServerName,
			InsecureSkipVerify: o.Transport.InsecureSkipVerify,
			Raw:                o.Transport.Raw,
		}
	}
	return out, nil
}
