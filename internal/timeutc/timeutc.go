// Copyright (C) 2026 ScyllaDB

// Package timeutc provides UTC-normalized time helpers, adapted from the
// teacher's pkg/util/timeutc, used by the connection actor to timestamp
// its state transitions.
package timeutc

import "time"

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// Since returns the time elapsed since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t.UTC())
}
