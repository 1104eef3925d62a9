// Copyright (C) 2026 ScyllaDB

// Package frame implements the CQL native protocol envelope codec (v3/v4)
// and the v5 outer segment framing (CRC24 header, CRC32 payload, optional
// per-segment compression).
package frame

import "fmt"

// ProtoVersion identifies a CQL native protocol generation understood by
// this driver. Only the request-direction byte value is stored; the
// response direction is signalled by the high bit (0x80) on the wire.
type ProtoVersion byte

const (
	ProtoVersion3 ProtoVersion = 0x03
	ProtoVersion4 ProtoVersion = 0x04
	ProtoVersion5 ProtoVersion = 0x05
)

const (
	protoDirectionMask = 0x80
	protoVersionMask   = 0x7F
)

func (p ProtoVersion) String() string {
	switch p {
	case ProtoVersion3:
		return "v3"
	case ProtoVersion4:
		return "v4"
	case ProtoVersion5:
		return "v5"
	default:
		return fmt.Sprintf("v%d", byte(p))
	}
}

// Supported reports whether p is one of the three generations this driver
// negotiates (v3, v4, v5).
func (p ProtoVersion) Supported() bool {
	switch p {
	case ProtoVersion3, ProtoVersion4, ProtoVersion5:
		return true
	default:
		return false
	}
}

// HeaderSize is the fixed size of a v3/v4 envelope header in bytes:
// version, flags, stream (int16), opcode, body length (int32).
const HeaderSize = 9

// Opcode identifies the kind of a request or response body.
type Opcode byte

const (
	OpError         Opcode = 0x00
	OpStartup       Opcode = 0x01
	OpReady         Opcode = 0x02
	OpAuthenticate  Opcode = 0x03
	OpOptions       Opcode = 0x05
	OpSupported     Opcode = 0x06
	OpQuery         Opcode = 0x07
	OpResult        Opcode = 0x08
	OpPrepare       Opcode = 0x09
	OpExecute       Opcode = 0x0A
	OpRegister      Opcode = 0x0B
	OpEvent         Opcode = 0x0C
	OpBatch         Opcode = 0x0D
	OpAuthChallenge Opcode = 0x0E
	OpAuthResponse  Opcode = 0x0F
	OpAuthSuccess   Opcode = 0x10
)

// Header flag bitmasks (spec.md section 3).
const (
	FlagCompress      byte = 0x01
	FlagTracing       byte = 0x02
	FlagCustomPayload byte = 0x04
	FlagWarning       byte = 0x08
	FlagBetaProtocol  byte = 0x10
)

// MaxSegmentPayload is the largest inner-envelope payload a single v5
// outer segment may carry, per spec.md section 3.
const MaxSegmentPayload = 131071

// MaxFrameSize guards against runaway body-length fields in a corrupt or
// malicious header; no legitimate Cassandra/Scylla frame approaches it.
const MaxFrameSize = 256 * 1024 * 1024
