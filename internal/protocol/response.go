// Copyright (C) 2026 ScyllaDB

package protocol

import (
	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
)

// ColumnSpec describes one column of row metadata.
type ColumnSpec struct {
	Keyspace string
	Table    string
	Name     string
	Type     TypeInfo
}

// TypeInfo is a minimal column-type descriptor: the numeric option id
// plus, for collection types, the element/key/value sub-types. The
// driver core treats values as opaque bytes (spec.md's "Non-goals: CQL
// type marshalling"), so this is intentionally shallow.
type TypeInfo struct {
	ID      uint16
	Elem    *TypeInfo
	Key     *TypeInfo
	Value   *TypeInfo
	Custom  string
	UDTName string
}

func (r *Reader) readType() (TypeInfo, error) {
	id, err := r.Short()
	if err != nil {
		return TypeInfo{}, err
	}
	t := TypeInfo{ID: id}
	switch id {
	case 0x0000: // custom
		t.Custom, err = r.String()
	case 0x0020, 0x0022: // list, set share the single-element-type shape
		elem, err2 := r.readType()
		if err2 != nil {
			return t, err2
		}
		t.Elem = &elem
	case 0x0021: // map
		k, err2 := r.readType()
		if err2 != nil {
			return t, err2
		}
		v, err3 := r.readType()
		if err3 != nil {
			return t, err3
		}
		t.Key, t.Value = &k, &v
	case 0x0030: // udt
		ks, err2 := r.String()
		if err2 != nil {
			return t, err2
		}
		name, err3 := r.String()
		if err3 != nil {
			return t, err3
		}
		t.UDTName = ks + "." + name
		n, err4 := r.Short()
		if err4 != nil {
			return t, err4
		}
		for i := uint16(0); i < n; i++ {
			if _, err5 := r.String(); err5 != nil { // field name
				return t, err5
			}
			if _, err5 := r.readType(); err5 != nil { // field type
				return t, err5
			}
		}
	case 0x0031: // tuple
		n, err2 := r.Short()
		if err2 != nil {
			return t, err2
		}
		for i := uint16(0); i < n; i++ {
			if _, err3 := r.readType(); err3 != nil {
				return t, err3
			}
		}
	}
	return t, err
}

const (
	rowsFlagGlobalTablesSpec = 0x0001
	rowsFlagHasMorePages     = 0x0002
	rowsFlagNoMetadata       = 0x0004
)

// Metadata carries column specs and paging state for a Rows result.
type Metadata struct {
	Columns     []ColumnSpec
	PagingState []byte
}

func (r *Reader) readMetadata() (Metadata, error) {
	flags, err := r.Uint()
	if err != nil {
		return Metadata{}, err
	}
	colCount, err := r.Int()
	if err != nil {
		return Metadata{}, err
	}
	var md Metadata
	if flags&rowsFlagHasMorePages != 0 {
		md.PagingState, err = r.RawBytes()
		if err != nil {
			return md, err
		}
	}
	if flags&rowsFlagNoMetadata != 0 {
		return md, nil
	}
	var globalKs, globalTbl string
	if flags&rowsFlagGlobalTablesSpec != 0 {
		globalKs, err = r.String()
		if err != nil {
			return md, err
		}
		globalTbl, err = r.String()
		if err != nil {
			return md, err
		}
	}
	md.Columns = make([]ColumnSpec, colCount)
	for i := int32(0); i < colCount; i++ {
		cs := ColumnSpec{Keyspace: globalKs, Table: globalTbl}
		if flags&rowsFlagGlobalTablesSpec == 0 {
			if cs.Keyspace, err = r.String(); err != nil {
				return md, err
			}
			if cs.Table, err = r.String(); err != nil {
				return md, err
			}
		}
		if cs.Name, err = r.String(); err != nil {
			return md, err
		}
		if cs.Type, err = r.readType(); err != nil {
			return md, err
		}
		md.Columns[i] = cs
	}
	return md, nil
}

// ResultKind mirrors the [int] kind field of a RESULT body.
type ResultKind int32

const (
	ResultVoid         ResultKind = 0x0001
	ResultRows         ResultKind = 0x0002
	ResultSetKeyspace  ResultKind = 0x0003
	ResultPrepared     ResultKind = 0x0004
	ResultSchemaChange ResultKind = 0x0005
)

// Result is the decoded body of a RESULT frame; only the field matching
// Kind is populated.
type Result struct {
	Kind         ResultKind
	Keyspace     string
	Rows         *RowsResult
	Prepared     *PreparedResult
	SchemaChange *SchemaChangeResult
}

// RowsResult holds a decoded RESULT Rows body.
type RowsResult struct {
	Metadata Metadata
	RowCount int32
	Rows     [][][]byte
}

// PreparedResult holds a decoded RESULT Prepared body.
type PreparedResult struct {
	ID             []byte
	ResultMetadata Metadata
	Metadata       Metadata
}

// SchemaChangeResult holds a decoded RESULT SchemaChange body.
type SchemaChangeResult struct {
	ChangeType string
	Target     string
	Keyspace   string
	Object     string
	Arguments  []string
}

// DecodeResult decodes a RESULT (opcode 0x08) body.
func DecodeResult(body []byte) (*Result, error) {
	r := NewReader(body)
	kindRaw, err := r.Int()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	res := &Result{Kind: ResultKind(kindRaw)}
	switch res.Kind {
	case ResultVoid:
	case ResultSetKeyspace:
		res.Keyspace, err = r.String()
	case ResultRows:
		res.Rows, err = decodeRows(r)
	case ResultPrepared:
		res.Prepared, err = decodePrepared(r)
	case ResultSchemaChange:
		res.SchemaChange, err = decodeSchemaChange(r)
	default:
		return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrUnexpectedStream}
	}
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	return res, nil
}

func decodeRows(r *Reader) (*RowsResult, error) {
	md, err := r.readMetadata()
	if err != nil {
		return nil, err
	}
	rowCount, err := r.Int()
	if err != nil {
		return nil, err
	}
	rows := make([][][]byte, rowCount)
	for i := int32(0); i < rowCount; i++ {
		row := make([][]byte, len(md.Columns))
		for c := range md.Columns {
			v, err := r.RawBytes()
			if err != nil {
				return nil, err
			}
			row[c] = v
		}
		rows[i] = row
	}
	return &RowsResult{Metadata: md, RowCount: rowCount, Rows: rows}, nil
}

func decodePrepared(r *Reader) (*PreparedResult, error) {
	id, err := r.ShortBytesLike()
	if err != nil {
		return nil, err
	}
	resultMD, err := r.readMetadata()
	if err != nil {
		return nil, err
	}
	md, err := r.readMetadata()
	if err != nil {
		return nil, err
	}
	return &PreparedResult{ID: id, ResultMetadata: resultMD, Metadata: md}, nil
}

func decodeSchemaChange(r *Reader) (*SchemaChangeResult, error) {
	sc := &SchemaChangeResult{}
	var err error
	if sc.ChangeType, err = r.String(); err != nil {
		return nil, err
	}
	if sc.Target, err = r.String(); err != nil {
		return nil, err
	}
	switch sc.Target {
	case "KEYSPACE":
		sc.Keyspace, err = r.String()
	case "TABLE", "TYPE":
		if sc.Keyspace, err = r.String(); err != nil {
			return nil, err
		}
		sc.Object, err = r.String()
	case "FUNCTION", "AGGREGATE":
		if sc.Keyspace, err = r.String(); err != nil {
			return nil, err
		}
		if sc.Object, err = r.String(); err != nil {
			return nil, err
		}
		sc.Arguments, err = r.StringList()
	}
	return sc, err
}

// Ready is the (empty) body of a READY frame.
type Ready struct{}

// DecodeReady decodes a READY (opcode 0x02) body.
func DecodeReady(body []byte) (*Ready, error) { return &Ready{}, nil }

// Authenticate is the body of an AUTHENTICATE frame.
type Authenticate struct {
	Authenticator string
}

// DecodeAuthenticate decodes an AUTHENTICATE (opcode 0x03) body.
func DecodeAuthenticate(body []byte) (*Authenticate, error) {
	r := NewReader(body)
	name, err := r.String()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	return &Authenticate{Authenticator: name}, nil
}

// AuthSuccess is the body of an AUTH_SUCCESS frame.
type AuthSuccess struct {
	Token []byte
}

// DecodeAuthSuccess decodes an AUTH_SUCCESS (opcode 0x10) body.
func DecodeAuthSuccess(body []byte) (*AuthSuccess, error) {
	r := NewReader(body)
	tok, err := r.RawBytes()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	return &AuthSuccess{Token: tok}, nil
}

// AuthChallenge is the body of an AUTH_CHALLENGE frame.
type AuthChallenge struct {
	Token []byte
}

// DecodeAuthChallenge decodes an AUTH_CHALLENGE (opcode 0x0E) body.
func DecodeAuthChallenge(body []byte) (*AuthChallenge, error) {
	r := NewReader(body)
	tok, err := r.RawBytes()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	return &AuthChallenge{Token: tok}, nil
}

// Supported is the body of a SUPPORTED frame: the multimap of option
// name to the list of values the server accepts for it (CQL_VERSION,
// COMPRESSION, PROTOCOL_VERSIONS, ...).
type Supported struct {
	Options map[string][]string
}

// DecodeSupported decodes a SUPPORTED (opcode 0x06) body.
func DecodeSupported(body []byte) (*Supported, error) {
	r := NewReader(body)
	m, err := r.StringMultiMap()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	return &Supported{Options: m}, nil
}

// Event is the body of an EVENT frame: STATUS_CHANGE, TOPOLOGY_CHANGE,
// or SCHEMA_CHANGE.
type Event struct {
	Type         string
	StatusChange *StatusChangeEvent
	TopoChange   *TopologyChangeEvent
	SchemaChange *SchemaChangeResult
}

// StatusChangeEvent reports a node going UP or DOWN.
type StatusChangeEvent struct {
	Status string
	Addr   string
	Port   uint16
}

// TopologyChangeEvent reports a node being added or removed from the
// ring.
type TopologyChangeEvent struct {
	Change string
	Addr   string
	Port   uint16
}

// DecodeEvent decodes an EVENT (opcode 0x0C) body.
func DecodeEvent(body []byte) (*Event, error) {
	r := NewReader(body)
	typ, err := r.String()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	ev := &Event{Type: typ}
	switch typ {
	case "STATUS_CHANGE":
		status, err := r.String()
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
		addr, port, err := r.Inet()
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
		ev.StatusChange = &StatusChangeEvent{Status: status, Addr: addr, Port: port}
	case "TOPOLOGY_CHANGE":
		change, err := r.String()
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
		addr, port, err := r.Inet()
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
		ev.TopoChange = &TopologyChangeEvent{Change: change, Addr: addr, Port: port}
	case "SCHEMA_CHANGE":
		sc, err := decodeSchemaChange(r)
		if err != nil {
			return nil, &cqlerr.MalformedFrame{Cause: err}
		}
		ev.SchemaChange = sc
	}
	return ev, nil
}

// DecodeError decodes an ERROR (opcode 0x00) body into a cqlerr.ServerError,
// including the code-specific trailing payload, grounded on parseErrorFrame
// of the retrieved upstream framer.
func DecodeError(body []byte) (*cqlerr.ServerError, error) {
	r := NewReader(body)
	code, err := r.Int()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	msg, err := r.String()
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	se := &cqlerr.ServerError{Code: code, Message: msg}
	switch code {
	case cqlerr.ErrCodeUnavailable:
		se.Consistency, err = r.Short()
		if err != nil {
			break
		}
		se.RequiredReplicas, err = r.Int()
		if err != nil {
			break
		}
		se.AliveReplicas, err = r.Int()
	case cqlerr.ErrCodeWriteTimeout:
		se.Consistency, err = r.Short()
		if err != nil {
			break
		}
		se.Received, err = r.Int()
		if err != nil {
			break
		}
		se.BlockFor, err = r.Int()
		if err != nil {
			break
		}
		se.WriteType, err = r.String()
	case cqlerr.ErrCodeReadTimeout:
		se.Consistency, err = r.Short()
		if err != nil {
			break
		}
		se.Received, err = r.Int()
		if err != nil {
			break
		}
		se.BlockFor, err = r.Int()
		if err != nil {
			break
		}
		se.DataPresent, err = r.Byte()
	case cqlerr.ErrCodeAlreadyExists:
		se.Keyspace, err = r.String()
		if err != nil {
			break
		}
		se.Table, err = r.String()
	case cqlerr.ErrCodeUnprepared:
		se.UnpreparedID, err = r.RawBytes()
	case cqlerr.ErrCodeReadFailure, cqlerr.ErrCodeWriteFailure:
		se.Consistency, err = r.Short()
		if err != nil {
			break
		}
		se.Received, err = r.Int()
		if err != nil {
			break
		}
		se.BlockFor, err = r.Int()
		if err != nil {
			break
		}
		se.NumFailures, err = r.Int()
	}
	if err != nil {
		return nil, &cqlerr.MalformedFrame{Cause: err}
	}
	return se, nil
}

// DecodeResponse is the top-level dispatch spec.md section 4.B names
// decode_response(frame, query_context): it inspects the opcode and
// returns the appropriately typed decoded body, or the server's
// ServerError for opcode Error.
func DecodeResponse(env *frame.Envelope) (interface{}, error) {
	switch env.Header.Opcode {
	case frame.OpError:
		se, err := DecodeError(env.Body)
		if err != nil {
			return nil, err
		}
		return se, se
	case frame.OpReady:
		return DecodeReady(env.Body)
	case frame.OpAuthenticate:
		return DecodeAuthenticate(env.Body)
	case frame.OpSupported:
		return DecodeSupported(env.Body)
	case frame.OpResult:
		return DecodeResult(env.Body)
	case frame.OpEvent:
		return DecodeEvent(env.Body)
	case frame.OpAuthChallenge:
		return DecodeAuthChallenge(env.Body)
	case frame.OpAuthSuccess:
		return DecodeAuthSuccess(env.Body)
	default:
		return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrUnexpectedStream}
	}
}
