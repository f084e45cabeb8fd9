package mrcpv2

import (
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/unimrcp-go/core/apt"
	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/stream"
)

// ClientEventHandler receives the events a ClientAgent produces: the
// local side's view of a channel after its offer has been dialed out
// (answer, in client terms, is simply the original's own descriptor echoed
// back once a connection exists), a removal, and inbound messages/events.
type ClientEventHandler interface {
	OnModify(channel *Channel, answer *descriptor.ControlMedia)
	OnRemove(channel *Channel)
	OnReceive(channel *Channel, message *mrcp.Message)
}

// ClientAgentConfig configures a ClientAgent.
type ClientAgentConfig struct {
	BufferSize int
}

const (
	msgClientAddChannel apt.MsgType = iota
	msgClientModifyChannel
	msgClientRemoveChannel
	msgClientSendMessage
)

type clientAddChannelMsg struct {
	channel *Channel
	addr    string
	offer   *descriptor.ControlMedia
}

type clientModifyChannelMsg struct {
	channel *Channel
	enable  bool
}

type clientRemoveChannelMsg struct {
	channel *Channel
}

type clientSendMessageMsg struct {
	channel *Channel
	message *mrcp.Message
}

// ClientAgent is the client-side MRCPv2 connection agent: dials the
// address a session's answer resolved to, one connection per remote
// address (reused by every channel with ConnectionType == Existing,
// exactly the "port=9 means connection already open" convention
// mrcp_client_session.c relies on), and pumps messages in both directions.
// Grounded on the same mrcp_connection_t shape as ServerAgent, mirrored for
// the dial-out rather than accept side: no listener, no pending
// connection — a client channel only exists after its application already
// knows the remote address (from a previous answer), so there is nothing
// to migrate.
type ClientAgent struct {
	cfg      ClientAgentConfig
	registry *mrcp.Registry
	handler  ClientEventHandler
	log      *slog.Logger

	task *apt.PollerTask

	connections map[string]*Connection // keyed by remote address
	nextReqID   atomic.Uint32
}

// NewClientAgent creates a ClientAgent bound to registry for resource
// resolution and handler for event delivery.
func NewClientAgent(cfg ClientAgentConfig, registry *mrcp.Registry, handler ClientEventHandler) *ClientAgent {
	a := &ClientAgent{
		cfg: cfg, registry: registry, handler: handler,
		log:         logging.For("mrcpv2"),
		connections: make(map[string]*Connection),
	}
	a.task = apt.NewPollerTask("TCP/MRCPv2 Client Agent", 0, 0, a.processControl)
	return a
}

// Start starts the agent's poller task. There is no listening socket on
// the client side — connections are opened lazily by AddChannel.
func (a *ClientAgent) Start() error {
	if !a.task.Task().Start() {
		return errAgentStartFailed
	}
	return nil
}

// Stop closes every open connection and stops the poller task.
func (a *ClientAgent) Stop() {
	a.task.Stop()
	a.task.Task().WaitTillComplete()
	for _, c := range a.connections {
		if c.sock != nil {
			c.sock.Close()
		}
	}
}

// CreateChannel allocates a Channel for sessionID/resourceName, not yet
// dialed to any address. obj is stashed unchanged on the channel (C9's
// per-channel handler hook).
func (a *ClientAgent) CreateChannel(sessionID, resourceName string, obj any) *Channel {
	return newChannel(sessionID, resourceName, obj)
}

// AddChannel dials addr (if no connection to it exists yet, or offer's
// ConnectionType forces a new one) and associates channel with it,
// mirroring mrcp_client_channel_add's "port=9 means connection already
// exists" convention in reverse: here the caller already knows addr from
// a previous SDP answer, so there is no port-based signal to interpret —
// offer.ConnectionType alone decides reuse.
func (a *ClientAgent) AddChannel(channel *Channel, addr string, offer *descriptor.ControlMedia) {
	a.task.Signal(&apt.Message{Type: msgClientAddChannel, Data: clientAddChannelMsg{channel, addr, offer}})
}

// ModifyChannel answers for channel through OnModify if it is on a
// connection, writing nothing to the wire (enable == true), or tears the
// channel down without touching
// the underlying connection's other channels (enable == false) —
// CHANNEL_ADD/CHANNEL_REMOVE's port=9/port=0 convention translated
// directly rather than reinterpreted, per spec.md §4.6.
func (a *ClientAgent) ModifyChannel(channel *Channel, enable bool) {
	a.task.Signal(&apt.Message{Type: msgClientModifyChannel, Data: clientModifyChannelMsg{channel, enable}})
}

// RemoveChannel detaches channel from its connection and, once it was the
// connection's last channel, closes the underlying socket.
func (a *ClientAgent) RemoveChannel(channel *Channel) {
	a.task.Signal(&apt.Message{Type: msgClientRemoveChannel, Data: clientRemoveChannelMsg{channel}})
}

// SendMessage writes message (a request) on channel's connection.
func (a *ClientAgent) SendMessage(channel *Channel, message *mrcp.Message) {
	a.task.Signal(&apt.Message{Type: msgClientSendMessage, Data: clientSendMessageMsg{channel, message}})
}

// NextRequestID returns the next MRCP request id for outgoing requests on
// this agent — mirroring the monotonically increasing request id
// mrcp_client_session.c expects the session layer to stamp.
func (a *ClientAgent) NextRequestID() uint32 { return a.nextReqID.Add(1) }

func (a *ClientAgent) processControl(msg *apt.Message) {
	switch msg.Type {
	case msgClientAddChannel:
		m := msg.Data.(clientAddChannelMsg)
		a.handleAddChannel(m.channel, m.addr, m.offer)
	case msgClientModifyChannel:
		m := msg.Data.(clientModifyChannelMsg)
		a.handleModifyChannel(m.channel, m.enable)
	case msgClientRemoveChannel:
		m := msg.Data.(clientRemoveChannelMsg)
		a.handleRemoveChannel(m.channel)
	case msgClientSendMessage:
		m := msg.Data.(clientSendMessageMsg)
		a.handleSendMessage(m.channel, m.message)
	}
}

func (a *ClientAgent) handleAddChannel(channel *Channel, addr string, offer *descriptor.ControlMedia) {
	conn := a.connections[addr]
	if conn == nil || offer.ConnectionType == descriptor.ConnectionNew {
		sock, err := net.Dial("tcp", addr)
		if err != nil {
			a.log.Warn("client dial failed", "addr", addr, "error", err)
			return
		}
		conn = newConnection(a.registry, a.cfg.BufferSize)
		conn.ID = fmt.Sprintf("client-%s", addr)
		conn.RemoteIP = addr
		conn.sock = sock
		a.connections[addr] = conn
		go a.readLoop(conn)
	}
	conn.addChannel(channel)

	answer := *offer
	answer.ConnectionType = descriptor.ConnectionExisting
	a.handler.OnModify(channel, &answer)
}

func (a *ClientAgent) handleModifyChannel(channel *Channel, enable bool) {
	if !enable {
		a.handleRemoveChannel(channel)
		return
	}
	conn := channel.Connection()
	if conn == nil {
		return
	}
	a.handler.OnModify(channel, &descriptor.ControlMedia{
		ResourceName:   channel.ResourceName,
		ConnectionType: descriptor.ConnectionExisting,
	})
}

func (a *ClientAgent) handleRemoveChannel(channel *Channel) {
	conn := channel.Connection()
	if conn != nil {
		conn.removeChannel(channel)
		if conn.channelCount() == 0 {
			delete(a.connections, conn.RemoteIP)
			if conn.sock != nil {
				conn.sock.Close()
			}
		}
	}
	a.handler.OnRemove(channel)
}

func (a *ClientAgent) handleSendMessage(channel *Channel, message *mrcp.Message) {
	conn := channel.Connection()
	if conn == nil {
		a.log.Warn("send on channel with no connection", "channel", channel.Identifier)
		return
	}
	a.writeMessage(conn, message)
}

func (a *ClientAgent) writeMessage(conn *Connection, message *mrcp.Message) {
	gen := mrcp.NewGenerator(mrcp.Version2)
	for {
		w := stream.NewWriter(conn.txBuf)
		if status := gen.Run(w, message); status == stream.Truncated {
			conn.txBuf = make([]byte, len(conn.txBuf)*2)
			continue
		}
		conn.sock.Write(w.Written())
		return
	}
}

func (a *ClientAgent) readLoop(conn *Connection) {
	offset := 0
	for {
		if offset >= len(conn.rxBuf) {
			a.task.Notify(apt.PollEvent{Source: conn, Handle: func() { a.onOverflow(conn) }})
			return
		}
		n, err := conn.sock.Read(conn.rxBuf[offset:])
		if n > 0 {
			total := offset + n
			a.task.Notify(apt.PollEvent{Source: conn, Handle: func() { a.onData(conn, total) }})
			offset = <-conn.nextOffset
		}
		if err != nil {
			a.task.Notify(apt.PollEvent{Source: conn, Handle: func() { a.onDisconnect(conn) }})
			return
		}
	}
}

func (a *ClientAgent) onData(conn *Connection, length int) {
	conn.rxStream.End = length
	for {
		msg, status := conn.parser.Run(conn.rxStream)
		switch status {
		case stream.Complete:
			a.dispatchMessage(conn, msg)
			if conn.rxStream.Pos >= conn.rxStream.End {
				conn.rxStream.Reset(0)
				conn.nextOffset <- 0
				return
			}
		case stream.Invalid:
			a.log.Warn("invalid message, dropping receive buffer", "connection", conn.ID)
			conn.rxStream.Reset(0)
			conn.nextOffset <- 0
			return
		default:
			n := conn.parser.Compact(conn.rxStream)
			conn.nextOffset <- n
			return
		}
	}
}

func (a *ClientAgent) onOverflow(conn *Connection) {
	a.log.Warn("receive buffer overflow, closing connection", "connection", conn.ID)
	a.onDisconnect(conn)
}

func (a *ClientAgent) dispatchMessage(conn *Connection, msg *mrcp.Message) {
	ch := conn.findChannel(msg.ChannelID.String())
	if ch == nil {
		a.log.Warn("message for unknown channel", "session", msg.ChannelID.SessionID, "resource", msg.ChannelID.ResourceName)
		return
	}
	a.handler.OnReceive(ch, msg)
}

func (a *ClientAgent) onDisconnect(conn *Connection) {
	delete(a.connections, conn.RemoteIP)
	for _, ch := range conn.channels {
		a.handler.OnRemove(ch)
	}
	if conn.sock != nil {
		conn.sock.Close()
	}
}
