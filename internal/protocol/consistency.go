// Copyright (C) 2026 ScyllaDB

package protocol

import "fmt"

// Consistency mirrors the wire-level [short] consistency-level codes.
// The driver core passes the byte value through untouched (spec.md
// section 1's "Non-goals: consistency-level semantics beyond passing the
// byte through"); the enum exists only so callers don't have to know the
// numeric codes, grounded on the Consistency type in the retrieved
// upstream gocql frame.go.
type Consistency uint16

const (
	Any         Consistency = 0x00
	One         Consistency = 0x01
	Two         Consistency = 0x02
	Three       Consistency = 0x03
	Quorum      Consistency = 0x04
	All         Consistency = 0x05
	LocalQuorum Consistency = 0x06
	EachQuorum  Consistency = 0x07
	Serial      Consistency = 0x08
	LocalSerial Consistency = 0x09
	LocalOne    Consistency = 0x0A
)

func (c Consistency) String() string {
	switch c {
	case Any:
		return "ANY"
	case One:
		return "ONE"
	case Two:
		return "TWO"
	case Three:
		return "THREE"
	case Quorum:
		return "QUORUM"
	case All:
		return "ALL"
	case LocalQuorum:
		return "LOCAL_QUORUM"
	case EachQuorum:
		return "EACH_QUORUM"
	case Serial:
		return "SERIAL"
	case LocalSerial:
		return "LOCAL_SERIAL"
	case LocalOne:
		return "LOCAL_ONE"
	default:
		return fmt.Sprintf("UNKNOWN_CONSISTENCY_0x%x", uint16(c))
	}
}
