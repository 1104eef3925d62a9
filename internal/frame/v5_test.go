// Copyright (C) 2026 ScyllaDB

package frame

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame/compress"
)

func randomBytes(r *rand.Rand, n int) []byte {
	b := make([]byte, n)
	r.Read(b)
	return b
}

func TestV5SegmentationRoundTrip(t *testing.T) {
	sizes := []int{0, 1, MaxSegmentPayload - 1, MaxSegmentPayload, MaxSegmentPayload + 1, 500_000}
	r := rand.New(rand.NewSource(1))

	for _, size := range sizes {
		for _, compressor := range []Compressor{nil, compress.Snappy{}, compress.LZ4{}} {
			data := randomBytes(r, size)
			wire, err := SegmentBytes(data, compressor)
			require.NoError(t, err)

			got, err := ReassembleBytes(&SliceFetcher{Data: wire}, compressor)
			require.NoError(t, err)
			require.Equal(t, data, got)
		}
	}
}

func TestV5EnvelopeRoundTripAcrossSegments(t *testing.T) {
	body := make([]byte, 300_000)
	rand.New(rand.NewSource(2)).Read(body)

	inner, err := Encode(ProtoVersion5, 5, OpResult, body, EncodeOptions{V5: true})
	require.NoError(t, err)

	wire, err := EncodeV5(inner, compress.LZ4{})
	require.NoError(t, err)

	env, err := DecodeV5(&SliceFetcher{Data: wire}, compress.LZ4{})
	require.NoError(t, err)
	require.Equal(t, int16(5), env.Header.Stream)
	require.Equal(t, OpResult, env.Header.Opcode)
	require.Equal(t, body, env.Body)
}

func TestV5CrcHeaderMutationDetected(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for _, size := range []int{1, 1000, MaxSegmentPayload} {
		data := randomBytes(r, size)
		for i := 0; i < 100; i++ {
			wire, err := SegmentBytes(data, nil)
			require.NoError(t, err)

			bit := r.Intn(uncompressedHeaderBytes * 8)
			wire[bit/8] ^= 1 << uint(bit%8)

			_, err = ReassembleBytes(&SliceFetcher{Data: wire}, nil)
			require.ErrorIs(t, err, cqlerr.ErrCrcHeader)
		}
	}
}

func TestV5CrcPayloadMutationDetected(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for _, size := range []int{1, 1000, MaxSegmentPayload} {
		for i := 0; i < 100; i++ {
			data := randomBytes(r, size)
			wire, err := SegmentBytes(data, nil)
			require.NoError(t, err)

			payloadStart := uncompressedHeaderBytes + crc24Bytes
			bit := r.Intn(size * 8)
			wire[payloadStart+bit/8] ^= 1 << uint(bit%8)

			_, err = ReassembleBytes(&SliceFetcher{Data: wire}, nil)
			require.Error(t, err)
		}
	}
}
