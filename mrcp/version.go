// Package mrcp is the MRCP message model and wire codec (spec.md C3/C4): a
// version-tagged start-line, an ordered header section with generic and
// per-resource accessor vtables, a process-wide resource registry, and a
// streaming parser/generator built on package stream's generic engine.
//
// Grounded on original_source/libs/mrcp/message/include/mrcp_message.h
// (the message struct shape) and .../control/src/mrcp_stream.c (the
// version-dispatching codec, the two-pass length-prefix backfill, and the
// MRCPv1 resource-injection escape hatch).
package mrcp

// Version identifies which MRCP wire dialect a message belongs to — the
// Design Notes call for a single generator driven by this rather than two
// codepaths; the v1/v2 difference is only whether the start-line carries a
// length prefix and whether a Channel-Identifier header is emitted.
type Version int

const (
	VersionUnknown Version = iota
	Version1
	Version2
)

func (v Version) String() string {
	switch v {
	case Version1:
		return "MRCP/1.0"
	case Version2:
		return "MRCP/2.0"
	default:
		return "MRCP/unknown"
	}
}
