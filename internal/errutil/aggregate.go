// Copyright (C) 2026 ScyllaDB

// Package errutil aggregates multiple errors into one, adapted from the
// teacher's pkg/util/errors multiline aggregate. The Kubernetes
// apimachinery aggregate it originally wrapped is dropped here (see
// DESIGN.md) since this module has no apiserver/controller surface to
// exercise that dependency; the join/visit semantics are reproduced
// directly on top of the standard library's errors.Is instead.
package errutil

import (
	"errors"
	"strings"
)

// Aggregate joins multiple non-nil errors, such as the per-index errors
// of internal/parallel.ForEach.
type Aggregate struct {
	errs []error
	sep  string
}

// NewAggregate filters out nil errors and returns nil if none remain.
func NewAggregate(errList []error, sep string) error {
	var errs []error
	for _, err := range errList {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	if sep == "" {
		sep = "\n"
	}
	return &Aggregate{errs: errs, sep: sep}
}

// NewMultilineAggregate is NewAggregate with a newline separator, the
// form internal/parallel.ForEach uses.
func NewMultilineAggregate(errList []error) error {
	return NewAggregate(errList, "\n")
}

func (a *Aggregate) Error() string {
	msgs := make([]string, 0, len(a.errs))
	for _, err := range a.errs {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, a.sep)
}

// Errors returns the individual errors that were aggregated.
func (a *Aggregate) Errors() []error {
	return a.errs
}

// Is reports whether any aggregated error matches target, recursing into
// nested Aggregates.
func (a *Aggregate) Is(target error) bool {
	for _, err := range a.errs {
		if nested, ok := err.(*Aggregate); ok {
			if nested.Is(target) {
				return true
			}
			continue
		}
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
