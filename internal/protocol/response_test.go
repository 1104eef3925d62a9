// Copyright (C) 2026 ScyllaDB

package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
)

func TestDecodeResultVoid(t *testing.T) {
	w := NewWriter()
	w.Int(int32(ResultVoid))
	res, err := DecodeResult(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, ResultVoid, res.Kind)
}

func TestDecodeResultSetKeyspace(t *testing.T) {
	w := NewWriter()
	w.Int(int32(ResultSetKeyspace))
	w.String("system")
	res, err := DecodeResult(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, "system", res.Keyspace)
}

func TestDecodeResultRowsNoMetadata(t *testing.T) {
	w := NewWriter()
	w.Int(int32(ResultRows))
	w.Uint(rowsFlagNoMetadata)
	w.Int(0) // column count
	w.Int(2) // row count
	w.RawBytes([]byte("row1col1"))
	w.RawBytes([]byte("row2col1"))

	res, err := DecodeResult(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, ResultRows, res.Kind)
	require.Equal(t, int32(2), res.Rows.RowCount)
}

func TestDecodeResultPrepared(t *testing.T) {
	w := NewWriter()
	w.Int(int32(ResultPrepared))
	w.ShortBytes([]byte{0x01, 0x02})
	w.Uint(rowsFlagNoMetadata)
	w.Int(0)
	w.Uint(rowsFlagNoMetadata)
	w.Int(0)

	res, err := DecodeResult(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x02}, res.Prepared.ID)
}

func TestDecodeResultSchemaChangeTable(t *testing.T) {
	w := NewWriter()
	w.Int(int32(ResultSchemaChange))
	w.String("CREATED")
	w.String("TABLE")
	w.String("ks")
	w.String("tbl")

	res, err := DecodeResult(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, "ks", res.SchemaChange.Keyspace)
	require.Equal(t, "tbl", res.SchemaChange.Object)
}

func TestDecodeErrorUnavailable(t *testing.T) {
	w := NewWriter()
	w.Int(cqlerr.ErrCodeUnavailable)
	w.String("not enough replicas")
	w.Short(uint16(Quorum))
	w.Int(3)
	w.Int(1)

	se, err := DecodeError(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, cqlerr.ErrCodeUnavailable, se.Code)
	require.Equal(t, int32(3), se.RequiredReplicas)
	require.Equal(t, int32(1), se.AliveReplicas)
}

func TestDecodeErrorUnprepared(t *testing.T) {
	w := NewWriter()
	w.Int(cqlerr.ErrCodeUnprepared)
	w.String("unknown prepared id")
	w.RawBytes([]byte{0xAA})

	se, err := DecodeError(w.Bytes())
	require.NoError(t, err)
	require.True(t, cqlerr.IsUnprepared(se))
	require.Equal(t, []byte{0xAA}, se.UnpreparedID)
}

func TestDecodeEventStatusChange(t *testing.T) {
	w := NewWriter()
	w.String("STATUS_CHANGE")
	w.String("UP")
	w.Byte(4)
	w.Raw([]byte{127, 0, 0, 1})
	w.Int(9042)

	ev, err := DecodeEvent(w.Bytes())
	require.NoError(t, err)
	require.Equal(t, "UP", ev.StatusChange.Status)
	require.Equal(t, "127.0.0.1", ev.StatusChange.Addr)
	require.Equal(t, uint16(9042), ev.StatusChange.Port)
}

func TestDecodeResponseDispatchesByOpcode(t *testing.T) {
	w := NewWriter()
	w.String("org.apache.cassandra.auth.PasswordAuthenticator")
	env := &frame.Envelope{
		Header: frame.Header{Opcode: frame.OpAuthenticate},
		Body:   w.Bytes(),
	}
	resp, err := DecodeResponse(env)
	require.NoError(t, err)
	auth, ok := resp.(*Authenticate)
	require.True(t, ok)
	require.Equal(t, "org.apache.cassandra.auth.PasswordAuthenticator", auth.Authenticator)
}

func TestDecodeResponseErrorReturnsServerError(t *testing.T) {
	w := NewWriter()
	w.Int(cqlerr.ErrCodeOverloaded)
	w.String("too busy")
	env := &frame.Envelope{
		Header: frame.Header{Opcode: frame.OpError},
		Body:   w.Bytes(),
	}
	resp, err := DecodeResponse(env)
	require.Error(t, err)
	require.Equal(t, resp, err)
	require.True(t, cqlerr.IsOverloaded(err))
}
