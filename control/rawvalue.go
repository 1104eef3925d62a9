// Copyright (C) 2026 ScyllaDB

package control

import (
	"encoding/binary"
	"net"
)

// Decoding the handful of system.local/system.peers columns the control
// connection reads is deliberately not routed through a general CQL
// value-type deserializer (spec.md section 1's Non-goals carve that out
// as an external collaborator); these are the three concrete wire shapes
// those columns ever take.

func decodeInet(b []byte) net.IP {
	if len(b) != 4 && len(b) != 16 {
		return nil
	}
	return net.IP(b)
}

func decodeText(b []byte) string {
	return string(b)
}

// decodeTextSet decodes a CQL set<text>/list<text> cell: [int] element
// count followed by that many [int length][bytes] elements.
func decodeTextSet(b []byte) []string {
	if len(b) < 4 {
		return nil
	}
	n := int32(binary.BigEndian.Uint32(b[0:4]))
	b = b[4:]
	out := make([]string, 0, n)
	for i := int32(0); i < n && len(b) >= 4; i++ {
		l := int32(binary.BigEndian.Uint32(b[0:4]))
		b = b[4:]
		if l < 0 || int(l) > len(b) {
			break
		}
		out = append(out, string(b[:l]))
		b = b[l:]
	}
	return out
}
