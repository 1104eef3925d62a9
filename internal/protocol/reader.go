// Copyright (C) 2026 ScyllaDB

package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Reader parses a response body using the primitive CQL wire encodings,
// grounded on the read* methods of the retrieved upstream gocql framer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(body []byte) *Reader { return &Reader{buf: body} }

func (r *Reader) err(need int) error {
	return fmt.Errorf("protocol: short read: need %d bytes, have %d remaining", need, len(r.buf)-r.pos)
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, r.err(n)
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) Byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Int() (int32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

func (r *Reader) Uint() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) Short() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) Long() (int64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

func (r *Reader) String() (string, error) {
	n, err := r.Short()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) LongString() (string, error) {
	n, err := r.Int()
	if err != nil {
		return "", err
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Reader) StringList() ([]string, error) {
	n, err := r.Short()
	if err != nil {
		return nil, err
	}
	l := make([]string, 0, n)
	for i := uint16(0); i < n; i++ {
		s, err := r.String()
		if err != nil {
			return nil, err
		}
		l = append(l, s)
	}
	return l, nil
}

// StringMap decodes the [string map] type: a [short] count followed by
// that many (string, string) pairs.
func (r *Reader) StringMap() (map[string]string, error) {
	n, err := r.Short()
	if err != nil {
		return nil, err
	}
	m := make(map[string]string, n)
	for i := uint16(0); i < n; i++ {
		k, err := r.String()
		if err != nil {
			return nil, err
		}
		v, err := r.String()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

func (r *Reader) StringMultiMap() (map[string][]string, error) {
	n, err := r.Short()
	if err != nil {
		return nil, err
	}
	m := make(map[string][]string, n)
	for i := uint16(0); i < n; i++ {
		k, err := r.String()
		if err != nil {
			return nil, err
		}
		v, err := r.StringList()
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// RawBytes decodes the [bytes] type: an [int] length n followed by n raw
// bytes, or nil if n < 0.
func (r *Reader) RawBytes() ([]byte, error) {
	n, err := r.Int()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, nil
	}
	return r.take(int(n))
}

func (r *Reader) Consistency() (Consistency, error) {
	n, err := r.Short()
	return Consistency(n), err
}

// ShortBytesLike decodes the [short bytes] type: a [short] length n
// followed by n raw bytes, as used for prepared-statement ids.
func (r *Reader) ShortBytesLike() ([]byte, error) {
	n, err := r.Short()
	if err != nil {
		return nil, err
	}
	return r.take(int(n))
}

// Inet decodes the [inet] type: a one-byte address length (4 or 16)
// followed by that many address bytes and a four-byte port.
func (r *Reader) Inet() (addr string, port uint16, err error) {
	n, err := r.Byte()
	if err != nil {
		return "", 0, err
	}
	ip, err := r.take(int(n))
	if err != nil {
		return "", 0, err
	}
	p, err := r.Int()
	if err != nil {
		return "", 0, err
	}
	return net.IP(ip).String(), uint16(p), nil
}

// Remaining returns whatever bytes have not yet been consumed.
func (r *Reader) Remaining() []byte {
	return r.buf[r.pos:]
}
