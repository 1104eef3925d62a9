// Copyright (C) 2026 ScyllaDB

package conn

import (
	"fmt"
	"regexp"

	"github.com/scylladb/ncqldriver/internal/frame"
)

// downgradeRe extracts the highest protocol version a server offers from
// its PROTOCOL_ERROR message, e.g. "Invalid or unsupported protocol
// version (4); highest supported version is 3" or "...greatest is 4".
// There is no structured field for this in the wire protocol (spec.md
// section 4.D step 7) - only prose - so the core falls back to the
// same message-sniffing convention the ecosystem driver uses.
var downgradeRe = regexp.MustCompile(`(?:greatest is|highest supported version is)\s*(\d+)`)

// parseDowngrade extracts the protocol version a PROTOCOL_ERROR message
// offers as a fallback, if present.
func parseDowngrade(msg string) (frame.ProtoVersion, bool) {
	m := downgradeRe.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	var v int
	if _, err := fmt.Sscanf(m[1], "%d", &v); err != nil {
		return 0, false
	}
	return frame.ProtoVersion(v), true
}

func errNoAuthenticator(class string) error {
	return fmt.Errorf("cql: server requires authentication (%s) but no authenticator configured", class)
}
