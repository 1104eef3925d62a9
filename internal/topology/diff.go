// Copyright (C) 2026 ScyllaDB

package topology

// Delta is the upstream change set a topology refresh emits (spec.md
// section 4.E / 6): hosts present in next but not prev are Added, hosts
// present in prev but not next are Removed. Hosts unchanged between
// refreshes are not re-announced. Applying the same peer list twice must
// be idempotent — a second call with prev==next returns an empty Delta.
type Delta struct {
	Added   []Host
	Removed []Host
}

// Diff compares the previously known host set against a freshly queried
// one and computes the upstream delta, per spec.md section 8's
// "topology diff idempotence" property and scenario 6.
func Diff(prev, next []Host) Delta {
	prevByKey := make(map[Key]Host, len(prev))
	for _, h := range prev {
		prevByKey[h.Key()] = h
	}
	nextByKey := make(map[Key]Host, len(next))
	for _, h := range next {
		nextByKey[h.Key()] = h
	}

	var d Delta
	for k, h := range nextByKey {
		if _, ok := prevByKey[k]; !ok {
			d.Added = append(d.Added, h)
		}
	}
	for k, h := range prevByKey {
		if _, ok := nextByKey[k]; !ok {
			d.Removed = append(d.Removed, h)
		}
	}
	return d
}
