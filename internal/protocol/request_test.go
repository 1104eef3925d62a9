// Copyright (C) 2026 ScyllaDB

package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scylladb/ncqldriver/internal/frame"
)

func TestEncodeStartupRoundTrip(t *testing.T) {
	body := EncodeStartup(map[string]string{"CQL_VERSION": "3.0.0"})
	r := NewReader(body)
	m, err := r.StringMap()
	require.NoError(t, err)
	require.Equal(t, "3.0.0", m["CQL_VERSION"])
}

func TestEncodeQuerySetsValuesFlag(t *testing.T) {
	body := EncodeQuery(frame.ProtoVersion4, "SELECT * FROM t", QueryParams{
		Consistency: Quorum,
		Values:      []Value{{Data: []byte("a")}, {Data: []byte("b")}},
	})
	r := NewReader(body)
	stmt, err := r.LongString()
	require.NoError(t, err)
	require.Equal(t, "SELECT * FROM t", stmt)

	cons, err := r.Consistency()
	require.NoError(t, err)
	require.Equal(t, Quorum, cons)

	flags, err := r.Byte()
	require.NoError(t, err)
	require.Equal(t, flagValues, flags)

	n, err := r.Short()
	require.NoError(t, err)
	require.Equal(t, uint16(2), n)
}

func TestEncodeQueryV5UsesUintFlags(t *testing.T) {
	body := EncodeQuery(frame.ProtoVersion5, "SELECT 1", QueryParams{Consistency: One, PageSize: 100})
	r := NewReader(body)
	_, err := r.LongString()
	require.NoError(t, err)
	_, err = r.Consistency()
	require.NoError(t, err)

	flags, err := r.Uint()
	require.NoError(t, err)
	require.Equal(t, uint32(flagPageSize), flags)
}

func TestEncodeExecuteCarriesPreparedID(t *testing.T) {
	id := []byte{0xAB, 0xCD, 0xEF}
	body := EncodeExecute(frame.ProtoVersion4, id, QueryParams{Consistency: One})
	r := NewReader(body)
	got, err := r.ShortBytesLike()
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestEncodeBatchWithPreparedAndPlainStatements(t *testing.T) {
	body := EncodeBatch(frame.ProtoVersion4, BatchUnlogged, []BatchStatement{
		{Statement: "INSERT INTO t (a) VALUES (?)", Values: []Value{{Data: []byte("x")}}},
		{Prepared: true, PreparedID: []byte{0x01}, Values: []Value{{Data: []byte("y")}}},
	}, One)
	r := NewReader(body)
	kind, err := r.Byte()
	require.NoError(t, err)
	require.Equal(t, byte(BatchUnlogged), kind)

	n, err := r.Short()
	require.NoError(t, err)
	require.Equal(t, uint16(2), n)
}

func TestEncodeRegisterListsEventTypes(t *testing.T) {
	body := EncodeRegister([]string{"STATUS_CHANGE", "TOPOLOGY_CHANGE"})
	r := NewReader(body)
	l, err := r.StringList()
	require.NoError(t, err)
	require.Equal(t, []string{"STATUS_CHANGE", "TOPOLOGY_CHANGE"}, l)
}

func TestEncodeAuthResponseCarriesToken(t *testing.T) {
	body := EncodeAuthResponse([]byte("secret"))
	r := NewReader(body)
	tok, err := r.RawBytes()
	require.NoError(t, err)
	require.Equal(t, []byte("secret"), tok)
}
