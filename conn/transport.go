// Copyright (C) 2026 ScyllaDB

package conn

import (
	"bufio"
	"io"
)

// bufferedFetcher adapts a buffered reader to frame.Fetcher's blocking
// "pull n more bytes" contract (spec.md section 4.A's fetch(state, n)).
type bufferedFetcher struct {
	r *bufio.Reader
}

func (f bufferedFetcher) Fetch(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
