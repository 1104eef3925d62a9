// Copyright (C) 2026 ScyllaDB

// Package parallel provides a fan-out helper, adapted from the teacher's
// pkg/util/parallel.ForEach, used by the control connection to query
// system.local and system.peers concurrently and by tests that issue many
// concurrent queries on one connection (spec.md section 8 scenario 3).
package parallel

import "github.com/scylladb/ncqldriver/internal/errutil"

// ForEach runs f(i) for i in [0,length) concurrently and returns the
// aggregate of any errors it returned.
func ForEach(length int, f func(i int) error) error {
	errCh := make(chan error, length)
	defer close(errCh)

	for i := 0; i < length; i++ {
		go func(i int) {
			errCh <- f(i)
		}(i)
	}

	errs := make([]error, 0, length)
	for i := 0; i < length; i++ {
		errs = append(errs, <-errCh)
	}
	return errutil.NewMultilineAggregate(errs)
}
