// Copyright (C) 2026 ScyllaDB

package conn

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/protocol"
)

// ConfigureFunc is the user-supplied reconfigure hook spec.md section 4.D
// step 1 describes: it is invoked against the original Options before
// every connect attempt and yields the Options to actually use. Returning
// the argument unchanged is the default behavior when no hook is set.
type ConfigureFunc func(Options) (Options, error)

// Options is the Go rendition of spec.md section 6's start(options) API
// surface.
type Options struct {
	Addr               string
	Port               uint16
	Encryption         bool
	TLSConfig          *TLSConfig
	ConnectTimeout     time.Duration
	ProtocolVersion    frame.ProtoVersion // 0 means "auto": try highest first, downgrade on server request
	Compressor         frame.Compressor
	DefaultConsistency protocol.Consistency
	Keyspace           string
	AtomKeys           bool
	Configure          ConfigureFunc
	Name               string
	Authenticator      Authenticator

	// ReconnectInterval is the delay the actor waits after a
	// Connected->Disconnected transition before retrying, spec.md section
	// 4.D's "5-second reconnect timer".
	ReconnectInterval time.Duration
}

// TLSConfig carries the subset of crypto/tls.Config the driver core
// exposes; embedding applications that need more set Raw directly.
type TLSConfig struct {
	ServerName         string
	InsecureSkipVerify bool
	Raw                *tls.Config
}

func (t *TLSConfig) clientConfig() *tls.Config {
	if t == nil {
		return &tls.Config{}
	}
	if t.Raw != nil {
		return t.Raw.Clone()
	}
	return &tls.Config{
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.InsecureSkipVerify,
	}
}

// Authenticator answers an AUTHENTICATE challenge; the handshake itself
// is out of the core's scope (spec.md section 1's Non-goals), but the
// core must delegate to one when the server demands it.
type Authenticator interface {
	Challenge(req []byte) (resp []byte, err error)
	Success(data []byte) error
}

func (o Options) address() string {
	return net.JoinHostPort(o.Addr, strconv.Itoa(int(o.Port)))
}
