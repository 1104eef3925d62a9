// Copyright (C) 2026 ScyllaDB

package conn

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/parallel"
	"github.com/scylladb/ncqldriver/internal/protocol"
	"github.com/scylladb/ncqldriver/internal/streamid"
)

// fakeServer accepts one connection and answers OPTIONS with SUPPORTED
// and STARTUP with READY, using protocol v4 framing throughout, enough
// to drive a Conn into the Connected state.
func fakeServer(t *testing.T, ln net.Listener, ready chan<- struct{}) {
	t.Helper()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		r := bufferedFetcher{r: bufio.NewReader(c)}
		for {
			env, err := frame.Decode(r, nil)
			if err != nil {
				return
			}
			switch env.Header.Opcode {
			case frame.OpOptions:
				w := protocol.NewWriter()
				w.Short(1)
				w.String("CQL_VERSION")
				w.StringList([]string{"3.0.0"})
				body := w.Bytes()
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpSupported, body, frame.EncodeOptions{})
				c.Write(out)
			case frame.OpStartup:
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpReady, nil, frame.EncodeOptions{})
				c.Write(out)
				close(ready)
			}
		}
	}()
}

func TestConnReachesConnectedAfterHandshake(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ready := make(chan struct{})
	fakeServer(t, ln, ready)

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := New(Options{
		Addr:            host,
		Port:            uint16(port),
		ProtocolVersion: frame.ProtoVersion4,
		ConnectTimeout:  2 * time.Second,
	}, nil)
	defer c.Close()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("handshake did not complete")
	}

	require.Eventually(t, func() bool {
		return c.Current() == stateConnected
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, frame.ProtoVersion4, c.ProtocolVersion())
}

func TestCheckoutFailsWhenNotConnected(t *testing.T) {
	c := &Conn{
		streams:  streamid.New(),
		inFlight: make(map[int16]*Waiter),
	}
	_, err := c.Checkout()
	require.Error(t, err)
}

// downgradeServer answers OPTIONS at any version with SUPPORTED, but
// rejects a STARTUP sent at protoVersion4 with a PROTOCOL_ERROR whose
// message names protoVersion3 as the highest it accepts, mirroring the
// ecosystem driver's message-sniffing downgrade convention. It accepts
// any later connection (the client's retry) unconditionally.
func downgradeServer(t *testing.T, ln net.Listener) {
	t.Helper()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufferedFetcher{r: bufio.NewReader(c)}
				for {
					env, err := frame.Decode(r, nil)
					if err != nil {
						return
					}
					switch env.Header.Opcode {
					case frame.OpOptions:
						w := protocol.NewWriter()
						w.Short(1)
						w.String("CQL_VERSION")
						w.StringList([]string{"3.0.0"})
						out, _ := frame.Encode(env.Header.Version, env.Header.Stream, frame.OpSupported, w.Bytes(), frame.EncodeOptions{})
						c.Write(out)
					case frame.OpStartup:
						if env.Header.Version == frame.ProtoVersion4 {
							ew := protocol.NewWriter()
							ew.Int(cqlerr.ErrCodeProtocolError)
							ew.String("Invalid or unsupported protocol version (4); highest supported version is 3")
							out, _ := frame.Encode(env.Header.Version, env.Header.Stream, frame.OpError, ew.Bytes(), frame.EncodeOptions{})
							c.Write(out)
							continue
						}
						out, _ := frame.Encode(env.Header.Version, env.Header.Stream, frame.OpReady, nil, frame.EncodeOptions{})
						c.Write(out)
					}
				}
			}(c)
		}
	}()
}

func TestConnDowngradesProtocolOnServerRejection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	downgradeServer(t, ln)

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := New(Options{
		Addr:            host,
		Port:            uint16(port),
		ProtocolVersion: frame.ProtoVersion4,
		ConnectTimeout:  2 * time.Second,
	}, nil)
	defer c.Close()

	require.Eventually(t, func() bool {
		return c.Current() == stateConnected
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, frame.ProtoVersion3, c.ProtocolVersion())
}

// TestConnDrainRestoresStreamCapacityAndFailsWaiters exercises spec.md
// section 4.D's drain step: a checked-out stream id with a pending waiter
// must come back when the server vanishes mid-request, and the waiter
// must see ErrDisconnectedRequest rather than hang.
func TestConnDrainRestoresStreamCapacityAndFailsWaiters(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ready := make(chan struct{})
	serverConn := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		serverConn <- c
		r := bufferedFetcher{r: bufio.NewReader(c)}
		for i := 0; i < 2; i++ {
			env, err := frame.Decode(r, nil)
			if err != nil {
				return
			}
			switch env.Header.Opcode {
			case frame.OpOptions:
				w := protocol.NewWriter()
				w.Short(1)
				w.String("CQL_VERSION")
				w.StringList([]string{"3.0.0"})
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpSupported, w.Bytes(), frame.EncodeOptions{})
				c.Write(out)
			case frame.OpStartup:
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpReady, nil, frame.EncodeOptions{})
				c.Write(out)
				close(ready)
			}
		}
		// The probe QUERY sent below is never answered: the test closes
		// this connection out from under the client instead.
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := New(Options{
		Addr:              host,
		Port:              uint16(port),
		ProtocolVersion:   frame.ProtoVersion4,
		ConnectTimeout:    2 * time.Second,
		ReconnectInterval: time.Hour,
	}, nil)
	defer c.Close()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("handshake did not complete")
	}
	require.Eventually(t, func() bool {
		return c.Current() == stateConnected
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, streamid.MaxStreams, c.AvailableStreams())

	dc, err := c.Checkout()
	require.NoError(t, err)
	require.NoError(t, dc.Send(frame.OpQuery, protocol.EncodeQuery(frame.ProtoVersion4, "SELECT 1", protocol.QueryParams{
		Consistency: protocol.One,
	})))
	require.Equal(t, streamid.MaxStreams-1, c.AvailableStreams())

	sc := <-serverConn
	sc.Close()

	_, err = dc.Await(2 * time.Second)
	require.Error(t, err)
	var disc *cqlerr.Disconnected
	require.ErrorAs(t, err, &disc)

	require.Eventually(t, func() bool {
		return c.Current() == stateDisconnected
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, streamid.MaxStreams, c.AvailableStreams())
}

// echoServer answers every QUERY with an empty Void RESULT on the same
// stream id, read sequentially off the one transport but potentially
// interleaved with concurrent client writes - exactly the "many concurrent
// queries on one connection" shape of spec.md section 8 scenario 3.
func echoServer(t *testing.T, ln net.Listener, ready chan<- struct{}) {
	t.Helper()
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		r := bufferedFetcher{r: bufio.NewReader(c)}
		for {
			env, err := frame.Decode(r, nil)
			if err != nil {
				return
			}
			switch env.Header.Opcode {
			case frame.OpOptions:
				w := protocol.NewWriter()
				w.Short(1)
				w.String("CQL_VERSION")
				w.StringList([]string{"3.0.0"})
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpSupported, w.Bytes(), frame.EncodeOptions{})
				c.Write(out)
			case frame.OpStartup:
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpReady, nil, frame.EncodeOptions{})
				c.Write(out)
				close(ready)
			case frame.OpQuery:
				w := protocol.NewWriter()
				w.Int(int32(protocol.ResultVoid))
				out, _ := frame.Encode(frame.ProtoVersion4, env.Header.Stream, frame.OpResult, w.Bytes(), frame.EncodeOptions{})
				c.Write(out)
			}
		}
	}()
}

func TestConnHandlesManyConcurrentQueriesOnOneConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	ready := make(chan struct{})
	echoServer(t, ln, ready)

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := New(Options{
		Addr:            host,
		Port:            uint16(port),
		ProtocolVersion: frame.ProtoVersion4,
		ConnectTimeout:  2 * time.Second,
	}, nil)
	defer c.Close()

	select {
	case <-ready:
	case <-time.After(3 * time.Second):
		t.Fatal("handshake did not complete")
	}
	require.Eventually(t, func() bool {
		return c.Current() == stateConnected
	}, 2*time.Second, 10*time.Millisecond)

	const concurrency = 64
	err = parallel.ForEach(concurrency, func(i int) error {
		dc, err := c.Checkout()
		if err != nil {
			return err
		}
		if err := dc.Send(frame.OpQuery, protocol.EncodeQuery(frame.ProtoVersion4, "SELECT 1", protocol.QueryParams{
			Consistency: protocol.One,
		})); err != nil {
			return err
		}
		env, err := dc.Await(2 * time.Second)
		if err != nil {
			return err
		}
		if env.Header.Opcode != frame.OpResult {
			return fmt.Errorf("query %d: unexpected opcode %v", i, env.Header.Opcode)
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, streamid.MaxStreams, c.AvailableStreams())
}
