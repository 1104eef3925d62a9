// Copyright (C) 2026 ScyllaDB

// Package cqlerr defines the typed error kinds surfaced by the driver
// core: connection lifecycle errors, protocol/framing errors, the fatal
// compressor-mismatch semantic error, and server-sent errors.
package cqlerr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Connection errors are raised by the connection state machine around the
// transport lifecycle. They are never returned to an in-flight waiter
// directly; a Disconnected waiter receives ErrDisconnectedRequest instead.
var (
	ErrNotConnected        = errors.New("cql: not connected")
	ErrTimeout             = errors.New("cql: request timed out")
	ErrUnexpectedStream    = errors.New("cql: response for unknown stream id")
	ErrDisconnectedRequest = errors.New("cql: connection disconnected before response")
	ErrStreamIDsExhausted  = errors.New("cql: no free stream ids")
)

// ConnectFailed wraps the reason a Disconnected->Connected transition
// failed to complete (dial error, OPTIONS/STARTUP round-trip error, or a
// decoded ERROR response). The reason is preserved verbatim rather than
// guessed at, per spec.md's resolution of its connect-path Open Question.
type ConnectFailed struct {
	Reason error
}

func (e *ConnectFailed) Error() string {
	return fmt.Sprintf("cql: connect failed: %s", e.Reason)
}

func (e *ConnectFailed) Unwrap() error { return e.Reason }

// Disconnected describes why a previously Connected connection was torn
// down (closed socket, transport error, malformed frame, user shutdown).
type Disconnected struct {
	Reason error
}

func (e *Disconnected) Error() string {
	return fmt.Sprintf("cql: disconnected: %s", e.Reason)
}

func (e *Disconnected) Unwrap() error { return e.Reason }

// Protocol/framing errors (spec.md section 7).
var (
	ErrCrcHeader              = errors.New("cql: v5 segment header CRC24 mismatch")
	ErrCrcPayload             = errors.New("cql: v5 segment payload CRC32 mismatch")
	ErrUnsupportedCompression = errors.New("cql: compressor algorithm not offered by server")
	ErrProtocolNegotiation    = errors.New("cql: no mutually supported protocol version")
	ErrInsufficientData       = errors.New("cql: insufficient data buffered")
)

// MalformedFrame wraps a decode failure that does not fit one of the more
// specific protocol error kinds above.
type MalformedFrame struct {
	Cause error
}

func (e *MalformedFrame) Error() string {
	return fmt.Sprintf("cql: malformed frame: %s", e.Cause)
}

func (e *MalformedFrame) Unwrap() error { return e.Cause }

// UnsupportedProtocol reports a protocol version byte this driver does
// not implement.
type UnsupportedProtocol struct {
	Version byte
}

func (e *UnsupportedProtocol) Error() string {
	return fmt.Sprintf("cql: unsupported protocol version 0x%02x", e.Version)
}

// CompressorMismatch is the fatal semantic error raised when a caller asks
// to compress a request but the connection negotiated no compressor, or
// vice versa (spec.md section 7).
type CompressorMismatch struct {
	HaveConn  string
	WantQuery string
}

func (e *CompressorMismatch) Error() string {
	return fmt.Sprintf("cql: compressor mismatch: connection=%q query=%q", e.HaveConn, e.WantQuery)
}

// ServerError carries a decoded Cassandra/Scylla ERROR response body: a
// 32-bit error code and a message, plus whichever of the code-specific
// trailing fields apply to Code (spec.md section 4.B; grounded on
// parseErrorFrame of the retrieved upstream framer). Some codes are
// distinguished further (Unprepared) so callers can drive re-prepare
// logic; the core itself does not retry.
type ServerError struct {
	Code    int32
	Message string

	// Unavailable / {Read,Write}{Timeout,Failure}
	Consistency      uint16
	RequiredReplicas int32
	AliveReplicas    int32
	Received         int32
	BlockFor         int32
	NumFailures      int32
	WriteType        string
	DataPresent      byte

	// AlreadyExists
	Keyspace string
	Table    string

	// Unprepared
	UnpreparedID []byte
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("cql: server error 0x%08x: %s", uint32(e.Code), e.Message)
}

// Server error codes, taken from the upstream CQL native protocol spec and
// cross-checked against the retrieved gocql frame.go error constants.
const (
	ErrCodeServerError     int32 = 0x0000
	ErrCodeProtocolError   int32 = 0x000A
	ErrCodeBadCredentials  int32 = 0x0100
	ErrCodeUnavailable     int32 = 0x1000
	ErrCodeOverloaded      int32 = 0x1001
	ErrCodeIsBootstrapping int32 = 0x1002
	ErrCodeTruncateError   int32 = 0x1003
	ErrCodeWriteTimeout    int32 = 0x1100
	ErrCodeReadTimeout     int32 = 0x1200
	ErrCodeReadFailure     int32 = 0x1300
	ErrCodeFunctionFailure int32 = 0x1400
	ErrCodeWriteFailure    int32 = 0x1500
	ErrCodeSyntaxError     int32 = 0x2000
	ErrCodeUnauthorized    int32 = 0x2100
	ErrCodeInvalid         int32 = 0x2200
	ErrCodeConfigError     int32 = 0x2300
	ErrCodeAlreadyExists   int32 = 0x2400
	ErrCodeUnprepared      int32 = 0x2500

	// ErrCodeUseThisProtocolInstead is not a real wire code; the server
	// signals a protocol downgrade via an ErrCodeProtocolError body whose
	// message names the version it accepts ("... highest supported
	// version is N" / "... greatest is N"). Package conn's parseDowngrade
	// extracts the offered version from that message.
)

// IsUnprepared reports whether err is a ServerError carrying the
// Unprepared code, the one code the core distinguishes for callers.
func IsUnprepared(err error) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Code == ErrCodeUnprepared
	}
	return false
}

// IsOverloaded reports whether err is a ServerError carrying the
// server-overloaded code.
func IsOverloaded(err error) bool {
	var se *ServerError
	if errors.As(err, &se) {
		return se.Code == ErrCodeOverloaded
	}
	return false
}
