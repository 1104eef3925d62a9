// Copyright (C) 2026 ScyllaDB

// Package protocol builds CQL request bodies and parses response bodies
// for the opcodes spec.md section 4.B names (startup/options/query/
// prepare/execute/batch/register/auth_response on the write side;
// error/ready/authenticate/supported/result/event/auth_success on the
// read side). Grounded on the write*/read* primitive methods of the
// retrieved gocql framer (OleksiienkoMykyta-gocql__frame.go), generalized
// into a standalone buffer writer independent of any particular
// connection.
package protocol

import "encoding/binary"

// Writer accumulates a request body using the same primitive encodings
// the CQL native protocol spec defines: [int], [short], [string],
// [long string], [string list], [bytes], [short bytes], [string map],
// [bytes map].
type Writer struct {
	buf []byte
}

func NewWriter() *Writer { return &Writer{} }

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

// Raw appends p verbatim, with no length prefix. Used for the [inet]
// type's address bytes, which are preceded by a bare one-byte length
// rather than the [bytes] type's four-byte one.
func (w *Writer) Raw(p []byte) { w.buf = append(w.buf, p...) }

func (w *Writer) Int(n int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Uint(n uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Long(n int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Short(n uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], n)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) String(s string) {
	w.Short(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) LongString(s string) {
	w.Int(int32(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *Writer) StringList(l []string) {
	w.Short(uint16(len(l)))
	for _, s := range l {
		w.String(s)
	}
}

// RawBytes encodes the [bytes] type: an [int] length n followed by n raw
// bytes, or -1 with nothing following for a nil slice.
func (w *Writer) RawBytes(p []byte) {
	if p == nil {
		w.Int(-1)
		return
	}
	w.Int(int32(len(p)))
	w.buf = append(w.buf, p...)
}

// Unset encodes the protocol v4+ "unset" bind variable sentinel used by
// UnsetValue bindings.
func (w *Writer) Unset() { w.Int(-2) }

func (w *Writer) ShortBytes(p []byte) {
	w.Short(uint16(len(p)))
	w.buf = append(w.buf, p...)
}

func (w *Writer) Consistency(c Consistency) { w.Short(uint16(c)) }

func (w *Writer) StringMap(m map[string]string) {
	w.Short(uint16(len(m)))
	for k, v := range m {
		w.String(k)
		w.String(v)
	}
}

func (w *Writer) BytesMap(m map[string][]byte) {
	w.Short(uint16(len(m)))
	for k, v := range m {
		w.String(k)
		w.RawBytes(v)
	}
}
