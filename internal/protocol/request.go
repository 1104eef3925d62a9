// Copyright (C) 2026 ScyllaDB

package protocol

import (
	"time"

	"github.com/scylladb/ncqldriver/internal/frame"
)

// Query-parameter flags (spec.md section 4.B / upstream gocql framer).
const (
	flagValues                byte = 0x01
	flagSkipMetaData          byte = 0x02
	flagPageSize              byte = 0x04
	flagWithPagingState       byte = 0x08
	flagWithSerialConsistency byte = 0x10
	flagDefaultTimestamp      byte = 0x20
	flagWithNameValues        byte = 0x40
	flagWithKeyspace          byte = 0x80
)

// Value is one bound parameter; Name is set only when named binding is
// used (protocol v3+). Unset marks the protocol v4+ "don't touch this
// column" sentinel (frame.UnsetValue upstream).
type Value struct {
	Name  string
	Data  []byte
	Unset bool
}

// QueryParams captures everything after the statement string in a QUERY
// or EXECUTE body.
type QueryParams struct {
	Consistency       Consistency
	Values            []Value
	SkipMetadata      bool
	PageSize          int32
	PagingState       []byte
	SerialConsistency Consistency
	DefaultTimestamp  bool
	TimestampValue    int64
	Keyspace          string
}

func (w *Writer) queryParams(proto frame.ProtoVersion, p QueryParams) {
	w.Consistency(p.Consistency)

	var flags byte
	if len(p.Values) > 0 {
		flags |= flagValues
	}
	if p.SkipMetadata {
		flags |= flagSkipMetaData
	}
	if p.PageSize > 0 {
		flags |= flagPageSize
	}
	if len(p.PagingState) > 0 {
		flags |= flagWithPagingState
	}
	if p.SerialConsistency > 0 {
		flags |= flagWithSerialConsistency
	}

	named := false
	if proto >= frame.ProtoVersion3 {
		if p.DefaultTimestamp {
			flags |= flagDefaultTimestamp
		}
		if len(p.Values) > 0 && p.Values[0].Name != "" {
			flags |= flagWithNameValues
			named = true
		}
	}
	if p.Keyspace != "" {
		flags |= flagWithKeyspace
	}

	if proto >= frame.ProtoVersion5 {
		w.Uint(uint32(flags))
	} else {
		w.Byte(flags)
	}

	if n := len(p.Values); n > 0 {
		w.Short(uint16(n))
		for _, v := range p.Values {
			if named {
				w.String(v.Name)
			}
			if v.Unset {
				w.Unset()
			} else {
				w.RawBytes(v.Data)
			}
		}
	}
	if p.PageSize > 0 {
		w.Int(p.PageSize)
	}
	if len(p.PagingState) > 0 {
		w.RawBytes(p.PagingState)
	}
	if p.SerialConsistency > 0 {
		w.Consistency(p.SerialConsistency)
	}
	if proto >= frame.ProtoVersion3 && p.DefaultTimestamp {
		ts := p.TimestampValue
		if ts == 0 {
			ts = time.Now().UnixNano() / 1000
		}
		w.Long(ts)
	}
	if p.Keyspace != "" {
		w.String(p.Keyspace)
	}
}

// EncodeStartup builds the STARTUP body: a [string map] of options. Per
// spec.md section 4.D step 5, at minimum CQL_VERSION is present;
// COMPRESSION is present only once a compressor has been confirmed by
// SUPPORTED.
func EncodeStartup(options map[string]string) []byte {
	w := NewWriter()
	w.StringMap(options)
	return w.Bytes()
}

// EncodeOptions builds the (empty) OPTIONS body.
func EncodeOptions() []byte { return nil }

// EncodeQuery builds a QUERY body: [long string] statement, query params.
func EncodeQuery(proto frame.ProtoVersion, statement string, params QueryParams) []byte {
	w := NewWriter()
	w.LongString(statement)
	w.queryParams(proto, params)
	return w.Bytes()
}

// EncodePrepare builds a PREPARE body: [long string] statement.
func EncodePrepare(proto frame.ProtoVersion, statement string, keyspace string) []byte {
	w := NewWriter()
	w.LongString(statement)
	if proto >= frame.ProtoVersion5 && keyspace != "" {
		w.Uint(1) // FlagWithPreparedKeyspace
		w.String(keyspace)
	}
	return w.Bytes()
}

// EncodeExecute builds an EXECUTE body: [short bytes] prepared id, query
// params.
func EncodeExecute(proto frame.ProtoVersion, preparedID []byte, params QueryParams) []byte {
	w := NewWriter()
	w.ShortBytes(preparedID)
	w.queryParams(proto, params)
	return w.Bytes()
}

// BatchStatement is one statement within a BATCH request: either a plain
// query string (Kind 0) or a prepared-statement id (Kind 1).
type BatchStatement struct {
	Prepared   bool
	Statement  string
	PreparedID []byte
	Values     []Value
}

// BatchType distinguishes LOGGED/UNLOGGED/COUNTER batches.
type BatchType byte

const (
	BatchLogged   BatchType = 0
	BatchUnlogged BatchType = 1
	BatchCounter  BatchType = 2
)

// EncodeBatch builds a BATCH body.
func EncodeBatch(proto frame.ProtoVersion, kind BatchType, statements []BatchStatement, consistency Consistency) []byte {
	w := NewWriter()
	w.Byte(byte(kind))
	w.Short(uint16(len(statements)))
	for _, s := range statements {
		if s.Prepared {
			w.Byte(1)
			w.ShortBytes(s.PreparedID)
		} else {
			w.Byte(0)
			w.LongString(s.Statement)
		}
		named := len(s.Values) > 0 && s.Values[0].Name != ""
		w.Short(uint16(len(s.Values)))
		for _, v := range s.Values {
			if named {
				w.String(v.Name)
			}
			if v.Unset {
				w.Unset()
			} else {
				w.RawBytes(v.Data)
			}
		}
	}
	w.Consistency(consistency)
	if proto >= frame.ProtoVersion3 {
		w.Byte(0) // no serial consistency / timestamp flags set
	}
	return w.Bytes()
}

// EncodeRegister builds a REGISTER body: a [string list] of event types
// the connection subscribes to (spec.md section 4.E step 2).
func EncodeRegister(eventTypes []string) []byte {
	w := NewWriter()
	w.StringList(eventTypes)
	return w.Bytes()
}

// EncodeAuthResponse builds an AUTH_RESPONSE body: [bytes] token.
func EncodeAuthResponse(token []byte) []byte {
	w := NewWriter()
	w.RawBytes(token)
	return w.Bytes()
}
