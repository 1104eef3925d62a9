// Copyright (C) 2026 ScyllaDB

package control

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeInetAcceptsV4AndV6(t *testing.T) {
	require.Equal(t, net.IP{127, 0, 0, 1}, decodeInet([]byte{127, 0, 0, 1}))
	require.Equal(t, net.ParseIP("::1"), decodeInet([]byte(net.ParseIP("::1"))))
	require.Nil(t, decodeInet([]byte{1, 2, 3}))
}

func TestDecodeTextSetDecodesElements(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, 2)
	for _, s := range []string{"tok1", "tok2"} {
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(s)))
		buf = append(buf, l...)
		buf = append(buf, s...)
	}

	got := decodeTextSet(buf)
	require.Equal(t, []string{"tok1", "tok2"}, got)
}

func TestDecodeTextSetHandlesEmpty(t *testing.T) {
	require.Nil(t, decodeTextSet(nil))
}
