package mrcpv2

import (
	"net"

	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/stream"
)

// DefaultBufferSize is the rx/tx buffer size for a connection when the
// agent is not configured with an explicit one. The original's
// MRCP_STREAM_BUFFER_SIZE define was not available to ground an exact
// figure against; this is sized generously for a single MRCP message
// (header section plus a modest body) without forcing Truncated/resumed
// generation for the common case.
const DefaultBufferSize = 4096

// Connection is one TCP/MRCPv2 connection: a socket (nil for the pending
// "null" connection, see pending.go), the channels currently associated
// with it, and the per-connection parser/generator pair spec.md §4.4
// requires ("each connection owns exactly one mrcp.Parser instance").
// Grounded on mrcp_connection_t (mrcp_server_connection.c): id, remote_ip,
// channel_table, access_count, parser/generator, rx/tx buffers all map
// directly; sock_pfd/pollset bookkeeping is replaced by a dedicated reader
// goroutine feeding the agent's apt.PollerTask (see server_agent.go).
type Connection struct {
	ID       string
	RemoteIP string

	sock     net.Conn
	channels map[string]*Channel

	parser    *mrcp.Parser
	generator *mrcp.Generator

	rxBuf []byte
	txBuf []byte

	// rxStream wraps rxBuf for this connection's whole lifetime — never
	// recreated — so the parser's resumption position (and this Connection's
	// read offset bookkeeping) survives across partial reads (spec.md §4.2).
	// A fixed capacity mirrors the original's fixed rx_buffer_size: a single
	// message that doesn't fit is rejected rather than dynamically grown.
	rxStream *stream.Stream

	// nextOffset hands the write offset for the next socket read back to
	// readLoop's goroutine after onData (run on the agent's poller
	// goroutine) has parsed and, if needed, compacted rxStream. Buffered by
	// one so onData never blocks handing it off.
	nextOffset chan int

	agent *ServerAgent
}

func newConnection(registry *mrcp.Registry, bufSize int) *Connection {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	rxBuf := make([]byte, bufSize)
	return &Connection{
		channels:   make(map[string]*Channel),
		parser:     mrcp.NewParser(registry, mrcp.Version2),
		generator:  mrcp.NewGenerator(mrcp.Version2),
		rxBuf:      rxBuf,
		txBuf:      make([]byte, bufSize),
		rxStream:   &stream.Stream{Buffer: rxBuf, Pos: 0, End: 0},
		nextOffset: make(chan int, 1),
	}
}

// isPending reports whether this is the shared "null" connection that
// holds channels offered but not yet associated with a real socket.
func (c *Connection) isPending() bool { return c.sock == nil }

func (c *Connection) addChannel(ch *Channel) {
	c.channels[ch.Identifier] = ch
	ch.connection = c
}

func (c *Connection) removeChannel(ch *Channel) {
	delete(c.channels, ch.Identifier)
	ch.connection = nil
}

func (c *Connection) findChannel(identifier string) *Channel {
	return c.channels[identifier]
}

func (c *Connection) channelCount() int { return len(c.channels) }

// accessCount is the number of channels still referencing this connection
// (socket liveness is not counted) — mirrors access_count in the original,
// which the C version increments/decrements on channel add/remove and on
// pending message sends, used to decide whether a disconnected socket's
// Connection can be destroyed immediately or must wait for its last
// channel to be removed.
func (c *Connection) accessCount() int { return len(c.channels) }
