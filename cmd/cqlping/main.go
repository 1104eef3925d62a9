// Copyright (C) 2026 ScyllaDB

// Command cqlping is the minimal CLI exerciser spec.md section 6's
// external-interface table names: it opens one connection, runs
// SELECT key FROM system.local, and prints the result. It is scaffolding
// to drive the core end-to-end, not a general user-facing query tool
// (that remains a Non-goal). Grounded on the cobra root-command shape of
// the retrieved cmd/scylla-operator/scylla-operator.go and the klog flag
// wiring of pkg/cmdutil.InstallKlog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/scylladb/ncqldriver/conn"
	"github.com/scylladb/ncqldriver/driverconfig"
	"github.com/scylladb/ncqldriver/internal/frame"
	"github.com/scylladb/ncqldriver/internal/protocol"
)

func main() {
	if err := newCqlpingCommand().Execute(); err != nil {
		klog.Errorf("cqlping: %+v", err)
		os.Exit(1)
	}
}

type cqlpingOptions struct {
	host     string
	port     uint16
	keyspace string
	timeout  time.Duration
	tls      bool
}

func newCqlpingCommand() *cobra.Command {
	o := &cqlpingOptions{}

	cmd := &cobra.Command{
		Use:   "cqlping",
		Short: "Open one CQL connection and run a probe query against system.local.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&o.host, "host", "127.0.0.1", "contact point address")
	cmd.Flags().Uint16Var(&o.port, "port", 9042, "contact point port")
	cmd.Flags().StringVar(&o.keyspace, "keyspace", "", "keyspace to USE after connecting")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Second, "connect and query timeout")
	cmd.Flags().BoolVar(&o.tls, "tls", false, "connect using TLS")

	installKlogFlags(cmd)
	return cmd
}

// installKlogFlags exposes klog's own flag set through cobra, grounded on
// pkg/cmdutil.InstallKlog's pattern of reusing flag.CommandLine rather than
// reimplementing klog's verbosity/output flags.
func installKlogFlags(cmd *cobra.Command) {
	klog.InitFlags(nil)
	cmd.Flags().AddGoFlagSet(flag.CommandLine)
}

// connectSignal is a conn.Observer that turns the actor's async
// OnConnected/OnConnectFailed callbacks into a single blocking wait,
// since cqlping only ever needs the first connection attempt's outcome.
type connectSignal struct {
	result chan error
}

func newConnectSignal() *connectSignal {
	return &connectSignal{result: make(chan error, 1)}
}

func (s *connectSignal) OnConnected(c *conn.Conn) {
	select {
	case s.result <- nil:
	default:
	}
}

func (s *connectSignal) OnDisconnected(c *conn.Conn, reason error) {
	klog.V(2).Infof("cqlping: disconnected: %v", reason)
}

func (s *connectSignal) OnConnectFailed(c *conn.Conn, reason error) {
	select {
	case s.result <- reason:
	default:
	}
}

func (s *connectSignal) OnKeyspaceChanged(c *conn.Conn, keyspace string) {}

func (s *connectSignal) OnEvent(c *conn.Conn, env *frame.Envelope) {}

func (o *cqlpingOptions) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	connOpts, err := driverconfig.Options{
		Host:              o.host,
		Port:              o.port,
		Keyspace:          o.keyspace,
		ConnectTimeout:    o.timeout,
		ReconnectInterval: o.timeout,
		Transport:         driverconfig.TransportOptions{Enabled: o.tls},
		ProtocolVersion:   frame.ProtoVersion4,
	}.ToConnOptions()
	if err != nil {
		return err
	}

	signal := newConnectSignal()
	c := conn.New(connOpts, signal)
	defer c.Close()

	select {
	case err := <-signal.result:
		if err != nil {
			return err
		}
	case <-time.After(o.timeout):
		return fmt.Errorf("cqlping: timed out waiting to connect to %s:%d", o.host, o.port)
	}
	klog.V(1).Infof("cqlping: connected to %s:%d (protocol v%d)", o.host, o.port, c.ProtocolVersion())

	dc, err := c.Checkout()
	if err != nil {
		return err
	}
	body := protocol.EncodeQuery(dc.ProtoVersion, "SELECT key FROM system.local", protocol.QueryParams{
		Consistency: protocol.One,
	})
	if err := dc.Send(frame.OpQuery, body); err != nil {
		return err
	}
	env, err := dc.Await(o.timeout)
	if err != nil {
		return err
	}
	if env.Header.Opcode == frame.OpError {
		se, decErr := protocol.DecodeError(env.Body)
		if decErr != nil {
			return decErr
		}
		return se
	}

	res, err := protocol.DecodeResult(env.Body)
	if err != nil {
		return err
	}
	if res.Rows == nil || len(res.Rows.Rows) == 0 {
		fmt.Println("system.local: no rows returned")
		return nil
	}
	for _, row := range res.Rows.Rows {
		for i, col := range res.Rows.Metadata.Columns {
			fmt.Printf("%s = %q\n", col.Name, row[i])
		}
	}
	return nil
}
