package mrcpv2

// Channel is an MRCPv2 control channel: the per-resource handle a session
// creates, offers onto a connection, and eventually removes. It outlives
// any single Connection — a channel can migrate from the shared pending
// connection onto a real one once its peer's TCP connection is accepted,
// and (spec.md §5) it can outlive its connection's own TCP socket while
// other channels still reference it.
//
// Grounded on mrcp_control_channel_t (mrcp_server_connection.c): the
// identifier/connection/removed fields map directly; Obj replaces the
// original's untyped obj pointer with a typed hook the owning session
// package sets to receive events for this channel.
type Channel struct {
	Identifier   string
	SessionID    string
	ResourceName string

	connection *Connection
	removed    bool

	// Obj is opaque to mrcpv2 — the owning mrcpserver/mrcpclient session
	// object, set by whoever creates the channel so event dispatch can
	// find its way back without mrcpv2 depending on those packages.
	Obj any
}

func newChannel(sessionID, resourceName string, obj any) *Channel {
	return &Channel{
		Identifier:   sessionID + "@" + resourceName,
		SessionID:    sessionID,
		ResourceName: resourceName,
		Obj:          obj,
	}
}

// Connection returns the channel's current connection, or nil if it has
// not yet been associated with one (still sitting in the pending group).
func (c *Channel) Connection() *Connection { return c.connection }
