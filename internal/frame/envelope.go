// Copyright (C) 2026 ScyllaDB

package frame

import (
	"encoding/binary"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
)

// Compressor is bound to a connection once the server has confirmed (via
// the SUPPORTED/STARTUP round-trip) that it understands the algorithm.
// Shape matches the vendored gocql.Compressor interface byte-for-byte.
type Compressor interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Header is the decoded 9-byte v3/v4 envelope header.
type Header struct {
	Version  ProtoVersion
	Response bool
	Flags    byte
	Stream   int16
	Opcode   Opcode
	Length   int32
}

// Envelope is a fully decoded protocol frame: header plus body bytes. Body
// is already decompressed by the time it is returned from Decode.
type Envelope struct {
	Header Header
	Body   []byte
}

// EncodeOptions controls how Encode treats a single envelope.
type EncodeOptions struct {
	// Compressor, if non-nil, is applied to non-empty bodies, except for
	// STARTUP/OPTIONS which must always travel uncompressed (the peer has
	// not yet learned the algorithm). Ignored entirely when v5 framing is
	// in effect - v5 migrates compression to the outer segment layer.
	Compressor Compressor
	// V5 disables the inner compression flag, because the v5 outer framer
	// owns compression for this envelope.
	V5 bool
}

// Encode builds a v3/v4 envelope (or the v5 "inner" envelope, uncompressed
// per spec.md 4.A) for body under opcode/stream/version.
func Encode(version ProtoVersion, stream int16, opcode Opcode, body []byte, opts EncodeOptions) ([]byte, error) {
	var flags byte
	payload := body

	applyCompression := !opts.V5 && opts.Compressor != nil && len(body) > 0 &&
		opcode != OpStartup && opcode != OpOptions
	if applyCompression {
		compressed, err := opts.Compressor.Encode(body)
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
		payload = compressed
		flags |= FlagCompress
	}

	out := make([]byte, HeaderSize+len(payload))
	out[0] = byte(version)
	out[1] = flags
	binary.BigEndian.PutUint16(out[2:4], uint16(stream))
	out[4] = byte(opcode)
	binary.BigEndian.PutUint32(out[5:9], uint32(len(payload)))
	copy(out[HeaderSize:], payload)
	return out, nil
}

// Fetcher blockingly pulls exactly n more bytes from the transport. It is
// the Go rendition of spec.md's "fetch(state, n) -> bytes" supplier.
type Fetcher interface {
	Fetch(n int) ([]byte, error)
}

// Decode reads one v3/v4 envelope from f: 9 header bytes, then the body
// (if Length > 0). If the compression flag is set, compressor must be
// non-nil or decoding fails with ErrUnsupportedCompression wrapped in a
// ConnectFailed-independent MalformedFrame (per spec.md 4.A decode rule).
func Decode(f Fetcher, compressor Compressor) (*Envelope, error) {
	hdr, err := f.Fetch(HeaderSize)
	if err != nil {
		return nil, err
	}

	h, err := decodeHeader(hdr)
	if err != nil {
		return nil, err
	}

	if h.Length > MaxFrameSize || h.Length < 0 {
		return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrInsufficientData}
	}

	var body []byte
	if h.Length > 0 {
		body, err = f.Fetch(int(h.Length))
		if err != nil {
			return nil, err
		}
	}

	if h.Flags&FlagCompress != 0 {
		if compressor == nil {
			return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrUnsupportedCompression}
		}
		body, err = compressor.Decode(body)
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
	}

	return &Envelope{Header: h, Body: body}, nil
}

// DecodeHeaderOnly parses just the 9-byte header, for callers that need
// the stream id before reading the body. The connection actor itself
// reads whole frames with Decode/DecodeV5.
func DecodeHeaderOnly(hdr []byte) (Header, error) {
	return decodeHeader(hdr)
}

func decodeHeader(hdr []byte) (Header, error) {
	if len(hdr) != HeaderSize {
		return Header{}, &cqlerr.MalformedFrame{Cause: cqlerr.ErrInsufficientData}
	}

	versionByte := hdr[0]
	version := ProtoVersion(versionByte & protoVersionMask)
	if !version.Supported() {
		return Header{}, &cqlerr.UnsupportedProtocol{Version: versionByte}
	}

	return Header{
		Version:  version,
		Response: versionByte&protoDirectionMask != 0,
		Flags:    hdr[1],
		Stream:   int16(binary.BigEndian.Uint16(hdr[2:4])),
		Opcode:   Opcode(hdr[4]),
		Length:   int32(binary.BigEndian.Uint32(hdr[5:9])),
	}, nil
}
