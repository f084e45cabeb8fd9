package mrcp

import "github.com/unimrcp-go/core/stream"

// ChannelID is the process-wide-unique identity of a control channel:
// session id plus resource name. Canonical wire form is
// "session_id@resource_name" (case-sensitive session id, case-insensitive
// resource name comparison per spec.md §6).
type ChannelID struct {
	SessionID    string
	ResourceName string
}

// String renders the canonical wire form.
func (c ChannelID) String() string {
	return stream.GenerateChannelID(c.SessionID, c.ResourceName)
}

// IsZero reports whether c carries no identity (MRCPv1 messages, which
// have no Channel-Identifier header, leave this zero).
func (c ChannelID) IsZero() bool {
	return c.SessionID == "" && c.ResourceName == ""
}

// ParseChannelIdentifier parses the canonical wire form.
func ParseChannelIdentifier(s string) (ChannelID, bool) {
	sid, res, ok := stream.ParseChannelID(s)
	if !ok {
		return ChannelID{}, false
	}
	return ChannelID{SessionID: sid, ResourceName: res}, true
}
