// Copyright (C) 2026 ScyllaDB

// Package retry wraps github.com/cenkalti/backoff for the connection
// actor's reconnect policy, adapted from the teacher's pkg/util/retry.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// Operation is executed by WithNotify. It is retried under the backoff
// policy if it returns an error.
type Operation = backoff.Operation

// Notify receives the operation error and the backoff delay before each
// retry sleep.
type Notify = backoff.Notify

// Backoff is the policy interface from cenkalti/backoff; the connection
// actor supplies a ConstantBackOff of 5 seconds per spec.md's fixed
// reconnect-timer requirement (section 4.D).
type Backoff = backoff.BackOff

// WithNotify retries op under b until it succeeds, ctx is canceled, or b
// signals it is done retrying.
func WithNotify(ctx context.Context, op Operation, b Backoff, n Notify) error {
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), n)
}

// Permanent wraps err so WithNotify stops retrying immediately, used for
// cqlerr.ProtocolNegotiation-style failures that a reconnect cannot fix.
func Permanent(err error) *backoff.PermanentError {
	return backoff.Permanent(err)
}

// FixedInterval returns a constant backoff policy, used for the 5-second
// reconnect timer spec.md section 4.D mandates ("Schedule a 5-second
// reconnect timer").
func FixedInterval(d time.Duration) Backoff {
	return backoff.NewConstantBackOff(d)
}
