// Copyright (C) 2026 ScyllaDB

// Package compress provides the two per-segment/per-body compressors this
// driver negotiates with a server: Snappy (via klauspost/compress/s2,
// wire-compatible with classic Snappy) and LZ4 (via pierrec/lz4/v4).
// Both satisfy frame.Compressor's Name/Encode/Decode method set without
// an explicit interface declaration, matching the duck-typed shape the
// vendored gocql.Compressor interface itself uses.
package compress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

// Snappy compresses frame bodies with the S2 codec in Snappy-compatible
// mode, grounded on the vendored gocql.SnappyCompressor.
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) Encode(data []byte) ([]byte, error) {
	return s2.EncodeSnappy(nil, data), nil
}

func (Snappy) Decode(data []byte) ([]byte, error) {
	return s2.Decode(nil, data)
}

// LZ4 compresses frame bodies with the LZ4 frame format (lz4.Writer /
// lz4.Reader), not the bare LZ4 block format. It is wired in
// to exercise the multi-segment v5 path with a second real algorithm
// (spec.md section 8 scenario 2), pulled from the dependency set of the
// retrieval pack's filebrowser example rather than from the teacher.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (LZ4) Decode(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))
	return io.ReadAll(r)
}
