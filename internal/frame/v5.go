// Copyright (C) 2026 ScyllaDB

package frame

import (
	"github.com/scylladb/ncqldriver/internal/cqlerr"
)

const (
	uncompressedHeaderBytes = 3
	compressedHeaderBytes   = 5
	crc24Bytes              = 3
	crc32Bytes              = 4
)

func encodeSegmentHeader(payloadLen, uncompressedLen int, selfContained, compressed bool) []byte {
	if compressed {
		var v uint64
		v |= uint64(payloadLen) & 0x1FFFF
		v |= (uint64(uncompressedLen) & 0x1FFFF) << 17
		if selfContained {
			v |= 1 << 34
		}
		b := make([]byte, compressedHeaderBytes)
		for i := range b {
			b[i] = byte(v >> (8 * uint(i)))
		}
		return b
	}

	var v uint64
	v |= uint64(payloadLen) & 0x1FFFF
	if selfContained {
		v |= 1 << 17
	}
	b := make([]byte, uncompressedHeaderBytes)
	for i := range b {
		b[i] = byte(v >> (8 * uint(i)))
	}
	return b
}

func decodeSegmentHeader(data []byte, compressed bool) (payloadLen, uncompressedLen int, selfContained bool) {
	var v uint64
	for i := len(data) - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}

	payloadLen = int(v & 0x1FFFF)
	if compressed {
		uncompressedLen = int((v >> 17) & 0x1FFFF)
		selfContained = v&(1<<34) != 0
	} else {
		selfContained = v&(1<<17) != 0
	}
	return
}

// writeSegment serializes one segment onto the wire: header-data, CRC24 of
// the header-data, payload, CRC32 of the payload.
func writeSegment(out []byte, payload []byte, uncompressedLen int, selfContained, compressed bool) []byte {
	hdr := encodeSegmentHeader(len(payload), uncompressedLen, selfContained, compressed)
	out = append(out, hdr...)

	crcBuf := make([]byte, crc24Bytes)
	putUint24LE(crcBuf, crc24(hdr))
	out = append(out, crcBuf...)

	out = append(out, payload...)

	var crc32Buf [crc32Bytes]byte
	putUint32LE(crc32Buf[:], crc32IEEE(payload))
	out = append(out, crc32Buf[:]...)
	return out
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func uint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// splitSegments divides data into chunks of at most MaxSegmentPayload
// bytes. A zero-length input still yields exactly one (empty) chunk, so
// that SegmentBytes/ReassembleBytes round-trip L=0 without special-casing
// "no segments at all" on the read side (spec.md section 8).
func splitSegments(data []byte) [][]byte {
	if len(data) == 0 {
		return [][]byte{{}}
	}
	var segments [][]byte
	for off := 0; off < len(data); off += MaxSegmentPayload {
		end := off + MaxSegmentPayload
		if end > len(data) {
			end = len(data)
		}
		segments = append(segments, data[off:end])
	}
	return segments
}

// SegmentBytes splits an arbitrary byte sequence into v5 outer segments
// and returns the concatenated wire bytes. Used directly by the
// segmentation round-trip property test, and internally by EncodeV5 for
// a real inner envelope.
func SegmentBytes(data []byte, compressor Compressor) ([]byte, error) {
	segments := splitSegments(data)
	selfContained := len(segments) == 1
	var out []byte
	for _, seg := range segments {
		payload := seg
		uncompressedLen := 0
		compressed := compressor != nil
		if compressed {
			encoded, err := compressor.Encode(seg)
			if err != nil {
				return nil, &cqlerr.MalformedFrame{Cause: err}
			}
			// Some compressor implementations (snappy-family) prefix the
			// encoded block with a 4-byte uncompressed length; the outer
			// v5 framing carries that length itself, so it is stripped
			// here per spec.md's encoding step 5.
			encoded = stripLengthPrefix(encoded, seg)
			if len(encoded) < len(seg) {
				payload = encoded
				uncompressedLen = len(seg)
			} else {
				// Compression did not help; send uncompressed, signalled
				// by uncompressedLen == 0, still under the 5-byte header
				// format since the connection is compressor-bound.
				payload = seg
				uncompressedLen = 0
			}
		}
		out = writeSegment(out, payload, uncompressedLen, selfContained, compressed)
	}
	return out, nil
}

// EncodeV5 splits an inner envelope (already built by Encode with V5:
// true, i.e. never carrying the compress flag) into one or more v5 outer
// segments, optionally compressing each, and returns the concatenated
// wire bytes ready to write to the transport.
func EncodeV5(inner []byte, compressor Compressor) ([]byte, error) {
	return SegmentBytes(inner, compressor)
}

// stripLengthPrefix is a no-op hook: neither compressor in
// internal/frame/compress prepends a 4-byte uncompressed length (Snappy
// emits a bare Snappy block, LZ4 emits an LZ4 frame), but it documents
// the contract spec.md 4.A step 5 calls out.
func stripLengthPrefix(encoded []byte, _ []byte) []byte {
	return encoded
}

// ReassembleBytes reads one complete v5 message (one or more segments)
// from f and returns the reassembled byte sequence, without interpreting
// it as a CQL envelope. This is the inverse of SegmentBytes and is what
// the segmentation round-trip property test exercises directly.
func ReassembleBytes(f Fetcher, compressor Compressor) ([]byte, error) {
	inner := []byte{}
	compressed := compressor != nil

	for {
		headerWidth := uncompressedHeaderBytes
		if compressed {
			headerWidth = compressedHeaderBytes
		}

		raw, err := f.Fetch(headerWidth + crc24Bytes)
		if err != nil {
			return nil, err
		}
		hdrData, hdrCRC := raw[:headerWidth], raw[headerWidth:]
		if crc24(hdrData) != uint24LE(hdrCRC) {
			return nil, cqlerr.ErrCrcHeader
		}

		payloadLen, uncompressedLen, selfContained := decodeSegmentHeader(hdrData, compressed)

		body, err := f.Fetch(payloadLen + crc32Bytes)
		if err != nil {
			return nil, err
		}
		payload, payloadCRC := body[:payloadLen], body[payloadLen:]
		if crc32IEEE(payload) != uint32LE(payloadCRC) {
			return nil, cqlerr.ErrCrcPayload
		}

		chunk := payload
		if compressed && uncompressedLen > 0 {
			decoded, err := compressor.Decode(payload)
			if err != nil {
				return nil, &cqlerr.MalformedFrame{Cause: err}
			}
			chunk = decoded
		}
		inner = append(inner, chunk...)

		if selfContained || payloadLen < MaxSegmentPayload {
			break
		}
	}

	return inner, nil
}

// DecodeV5 reads one complete v5 message from f and decodes the
// reassembled bytes as a CQL envelope, the same way a v3/v4 frame would
// be decoded. compressed is implied by whether compressor is non-nil,
// which must match what the connection negotiated.
func DecodeV5(f Fetcher, compressor Compressor) (*Envelope, error) {
	inner, err := ReassembleBytes(f, compressor)
	if err != nil {
		return nil, err
	}
	if len(inner) < HeaderSize {
		return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrInsufficientData}
	}

	hdr, err := decodeHeader(inner[:HeaderSize])
	if err != nil {
		return nil, err
	}
	return &Envelope{Header: hdr, Body: inner[HeaderSize:]}, nil
}
