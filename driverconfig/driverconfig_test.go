// Copyright (C) 2026 ScyllaDB

package driverconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scylladb/ncqldriver/internal/protocol"
)

func TestToConnOptionsTranslatesConsistencyAndTLS(t *testing.T) {
	opts := Options{
		Host:               "10.0.0.1",
		Port:               9042,
		DefaultConsistency: ConsistencyLocalQuorum,
		Keyspace:           "mykeyspace",
		ConnectTimeout:     5 * time.Second,
		Transport: TransportOptions{
			Enabled:    true,
			ServerName: "node.example.com",
		},
	}

	co, err := opts.ToConnOptions()
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", co.Addr)
	require.Equal(t, uint16(9042), co.Port)
	require.Equal(t, protocol.LocalQuorum, co.DefaultConsistency)
	require.Equal(t, "mykeyspace", co.Keyspace)
	require.True(t, co.Encryption)
	require.NotNil(t, co.TLSConfig)
	require.Equal(t, "node.example.com", co.TLSConfig.ServerName)
}

func TestToConnOptionsDefaultsToOneConsistency(t *testing.T) {
	co, err := Options{Host: "127.0.0.1", Port: 9042}.ToConnOptions()
	require.NoError(t, err)
	require.Equal(t, protocol.One, co.DefaultConsistency)
	require.False(t, co.Encryption)
	require.Nil(t, co.TLSConfig)
}

func TestToConnOptionsRejectsUnknownConsistency(t *testing.T) {
	_, err := Options{DefaultConsistency: "NOT_A_LEVEL"}.ToConnOptions()
	require.Error(t, err)
}
