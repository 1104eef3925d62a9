// Copyright (C) 2026 ScyllaDB

package conn

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"strings"

	"github.com/scylladb/ncqldriver/internal/cqlerr"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/protocol"
)

// supportedVersions is tried highest-first when Options.ProtocolVersion
// is zero ("auto"), per spec.md section 4.D step 7's downgrade path.
var supportedVersions = []frame.ProtoVersion{frame.ProtoVersion5, frame.ProtoVersion4, frame.ProtoVersion3}

// handshakeResult is what handshakeWith returns after performing spec.md
// section 4.D's Disconnected->Connected handshake steps against a freshly
// dialed transport: the negotiated protocol version, bound compressor (if
// any), the keyspace set by USE (if any), and the reader ready to serve
// frames.
type handshakeResult struct {
	transport    net.Conn
	reader       *bufio.Reader
	protoVersion frame.ProtoVersion
	compressor   frame.Compressor
	keyspace     string
}

func dial(ctx context.Context, opts Options) (net.Conn, error) {
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", opts.address())
	if err != nil {
		return nil, err
	}
	if opts.Encryption {
		tlsConn := tls.Client(conn, opts.TLSConfig.clientConfig())
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, err
		}
		return tlsConn, nil
	}
	return conn, nil
}

func handshakeWith(ctx context.Context, opts Options, version frame.ProtoVersion) (*handshakeResult, error) {
	transport, err := dial(ctx, opts)
	if err != nil {
		return nil, err
	}

	r := bufio.NewReader(transport)
	fetcher := bufferedFetcher{r: r}

	write := func(stream int16, opcode frame.Opcode, body []byte, v5 bool, compressor frame.Compressor) (*frame.Envelope, error) {
		encoded, err := frame.Encode(version, stream, opcode, body, frame.EncodeOptions{Compressor: compressor, V5: v5})
		if err != nil {
			return nil, err
		}
		if version >= frame.ProtoVersion5 {
			encoded, err = frame.EncodeV5(encoded, compressor)
			if err != nil {
				return nil, err
			}
		}
		if _, err := transport.Write(encoded); err != nil {
			return nil, err
		}
		if version >= frame.ProtoVersion5 {
			return frame.DecodeV5(fetcher, compressor)
		}
		return frame.Decode(fetcher, compressor)
	}

	// Step 3: OPTIONS -> SUPPORTED.
	optEnv, err := write(0, frame.OpOptions, protocol.EncodeOptions(), version >= frame.ProtoVersion5, nil)
	if err != nil {
		transport.Close()
		return nil, err
	}
	if optEnv.Header.Opcode != frame.OpSupported {
		transport.Close()
		return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrProtocolNegotiation}
	}
	supported, err := protocol.DecodeSupported(optEnv.Body)
	if err != nil {
		transport.Close()
		return nil, err
	}

	// Step 4: verify configured compressor is offered.
	var compressor frame.Compressor
	if opts.Compressor != nil {
		name := opts.Compressor.Name()
		offered := false
		for _, alg := range supported.Options["COMPRESSION"] {
			if alg == name {
				offered = true
				break
			}
		}
		if !offered {
			transport.Close()
			return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrUnsupportedCompression}
		}
		compressor = opts.Compressor
	}

	// Step 5: STARTUP.
	cqlVersions := supported.Options["CQL_VERSION"]
	cqlVersion := "3.0.0"
	if len(cqlVersions) > 0 {
		cqlVersion = cqlVersions[0]
	}
	startupOpts := map[string]string{"CQL_VERSION": cqlVersion}
	if compressor != nil {
		startupOpts["COMPRESSION"] = compressor.Name()
	}

	startupEnv, err := write(0, frame.OpStartup, protocol.EncodeStartup(startupOpts), version >= frame.ProtoVersion5, compressor)
	if err != nil {
		transport.Close()
		return nil, err
	}

	switch startupEnv.Header.Opcode {
	case frame.OpReady:
		// proceed
	case frame.OpAuthenticate:
		if err := authenticate(write, version, compressor, startupEnv, opts.Authenticator); err != nil {
			transport.Close()
			return nil, err
		}
	case frame.OpError:
		se, decErr := protocol.DecodeError(startupEnv.Body)
		if decErr != nil {
			transport.Close()
			return nil, decErr
		}
		if se.Code == cqlerr.ErrCodeProtocolError {
			if offered, ok := parseDowngrade(se.Message); ok && offered.Supported() && offered != version {
				transport.Close()
				return handshakeWith(ctx, opts, offered)
			}
			transport.Close()
			return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrProtocolNegotiation}
		}
		transport.Close()
		return nil, se
	default:
		transport.Close()
		return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrProtocolNegotiation}
	}

	result := &handshakeResult{transport: transport, reader: r, protoVersion: version, compressor: compressor}

	// Step 8: optional USE <keyspace> on stream 0.
	if opts.Keyspace != "" {
		useEnv, err := write(0, frame.OpQuery, protocol.EncodeQuery(version, "USE "+quoteKeyspace(opts.Keyspace), protocol.QueryParams{Consistency: protocol.One}), version >= frame.ProtoVersion5, compressor)
		if err != nil {
			transport.Close()
			return nil, err
		}
		if useEnv.Header.Opcode != frame.OpResult {
			transport.Close()
			return nil, &cqlerr.MalformedFrame{Cause: cqlerr.ErrProtocolNegotiation}
		}
		res, err := protocol.DecodeResult(useEnv.Body)
		if err != nil {
			transport.Close()
			return nil, err
		}
		if res.Kind == protocol.ResultSetKeyspace {
			result.keyspace = res.Keyspace
		}
	}

	return result, nil
}

func quoteKeyspace(ks string) string {
	if strings.ContainsAny(ks, " \"") {
		return "\"" + ks + "\""
	}
	return ks
}

func authenticate(write func(int16, frame.Opcode, []byte, bool, frame.Compressor) (*frame.Envelope, error), version frame.ProtoVersion, compressor frame.Compressor, authEnv *frame.Envelope, auth Authenticator) error {
	if auth == nil {
		ae, err := protocol.DecodeAuthenticate(authEnv.Body)
		class := "unknown"
		if err == nil {
			class = ae.Authenticator
		}
		return &cqlerr.ConnectFailed{Reason: errNoAuthenticator(class)}
	}
	resp, err := auth.Challenge(authEnv.Body)
	if err != nil {
		return err
	}
	for {
		env, err := write(0, frame.OpAuthResponse, protocol.EncodeAuthResponse(resp), version >= frame.ProtoVersion5, compressor)
		if err != nil {
			return err
		}
		switch env.Header.Opcode {
		case frame.OpAuthSuccess:
			as, err := protocol.DecodeAuthSuccess(env.Body)
			if err != nil {
				return err
			}
			return auth.Success(as.Token)
		case frame.OpAuthChallenge:
			ac, err := protocol.DecodeAuthChallenge(env.Body)
			if err != nil {
				return err
			}
			resp, err = auth.Challenge(ac.Token)
			if err != nil {
				return err
			}
		case frame.OpError:
			se, err := protocol.DecodeError(env.Body)
			if err != nil {
				return err
			}
			return se
		default:
			return &cqlerr.MalformedFrame{Cause: cqlerr.ErrProtocolNegotiation}
		}
	}
}
