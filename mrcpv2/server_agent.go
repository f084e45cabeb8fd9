// Package mrcpv2 implements the MRCPv2 TCP transport (spec.md C5): the
// connection agent that accepts TCP/MRCPv2 connections, the
// pending-connection association mechanism, and the per-connection
// parser/generator pump. Grounded throughout on
// original_source/libs/mrcpv2-transport/src/mrcp_server_connection.c.
package mrcpv2

import (
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/unimrcp-go/core/apt"
	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/stream"
)

// errAgentStartFailed is returned by Start when the poller task's
// underlying Task refuses to leave apt.StateIdle (already started).
var errAgentStartFailed = errors.New("mrcpv2: agent already started")

// ServerEventHandler receives the events a ServerAgent produces, mirroring
// mrcp_connection_event_vtable_t's on_modify/on_remove plus on_receive from
// the generic mrcp_connection.h vtable (the add and modify paths share one
// callback, same as the original, since an add is simply a modify on a
// brand-new channel).
type ServerEventHandler interface {
	OnModify(channel *Channel, answer *descriptor.ControlMedia)
	OnRemove(channel *Channel)
	OnReceive(channel *Channel, message *mrcp.Message)
}

// ServerAgentConfig configures a ServerAgent.
type ServerAgentConfig struct {
	ListenAddr         string
	ForceNewConnection bool
	BufferSize         int
	PendingChannelTTL  time.Duration
}

const (
	msgAddChannel apt.MsgType = iota
	msgModifyChannel
	msgRemoveChannel
	msgSendMessage
)

type addChannelMsg struct {
	channel *Channel
	offer   *descriptor.ControlMedia
}

type modifyChannelMsg struct {
	channel *Channel
	offer   *descriptor.ControlMedia
}

type removeChannelMsg struct {
	channel *Channel
}

type sendMessageMsg struct {
	channel *Channel
	message *mrcp.Message
}

// ServerAgent is the server-side MRCPv2 connection agent (spec.md C5):
// listens for incoming TCP/MRCPv2 connections, associates offered channels
// with whichever connection their peer opens, and pumps messages in both
// directions. All mutable state (connection list, pending connection,
// channel tables) is touched only from the agent's own PollerTask
// goroutine — callers use the Add/Modify/Remove/Send methods, which are
// just Signal calls, from any goroutine.
type ServerAgent struct {
	cfg      ServerAgentConfig
	registry *mrcp.Registry
	handler  ServerEventHandler
	log      *slog.Logger

	task     *apt.PollerTask
	listener net.Listener

	connections []*Connection
	pending     *Connection
	tracker     *pendingTracker
}

// NewServerAgent creates a ServerAgent bound to registry for resource
// resolution and handler for event delivery. Call Start to begin
// listening.
func NewServerAgent(cfg ServerAgentConfig, registry *mrcp.Registry, handler ServerEventHandler) *ServerAgent {
	a := &ServerAgent{cfg: cfg, registry: registry, handler: handler, log: logging.For("mrcpv2")}
	a.task = apt.NewPollerTask("TCP/MRCPv2 Agent", 0, 0, a.processControl)
	a.tracker = newPendingTracker(cfg.PendingChannelTTL, a.onPendingExpired)
	return a
}

// Start opens the listening socket and starts the agent's poller task and
// accept loop.
func (a *ServerAgent) Start() error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return err
	}
	a.listener = ln
	if !a.task.Task().Start() {
		ln.Close()
		return errAgentStartFailed
	}
	a.log.Info("listening", "addr", ln.Addr().String())
	go a.acceptLoop()
	return nil
}

// Addr returns the listener's address, useful when ServerAgentConfig asked
// for an ephemeral port ("127.0.0.1:0"). Nil before Start succeeds.
func (a *ServerAgent) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Stop terminates the accept loop and the poller task, and closes every
// live connection's socket.
func (a *ServerAgent) Stop() {
	if a.listener != nil {
		a.listener.Close()
	}
	a.task.Stop()
	a.task.Task().WaitTillComplete()
	a.tracker.close()
	for _, c := range a.connections {
		if c.sock != nil {
			c.sock.Close()
		}
	}
}

// CreateChannel allocates a channel for resourceName under sessionID, not
// yet associated with any connection (mirrors
// mrcp_server_control_channel_create — the channel exists before any
// offer/add call places it in the pending group).
func (a *ServerAgent) CreateChannel(sessionID, resourceName string, obj any) *Channel {
	return newChannel(sessionID, resourceName, obj)
}

// AddChannel offers channel onto the agent (spec.md's CHANNEL-ADD):
// queued as a control message, processed on the poller goroutine, answered
// asynchronously through ServerEventHandler.OnModify.
func (a *ServerAgent) AddChannel(channel *Channel, offer *descriptor.ControlMedia) {
	a.task.Signal(&apt.Message{Type: msgAddChannel, Data: addChannelMsg{channel, offer}})
}

// ModifyChannel re-offers an already-associated channel (spec.md's
// CHANNEL-MODIFY).
func (a *ServerAgent) ModifyChannel(channel *Channel, offer *descriptor.ControlMedia) {
	a.task.Signal(&apt.Message{Type: msgModifyChannel, Data: modifyChannelMsg{channel, offer}})
}

// RemoveChannel removes channel (spec.md's CHANNEL-REMOVE).
func (a *ServerAgent) RemoveChannel(channel *Channel) {
	a.task.Signal(&apt.Message{Type: msgRemoveChannel, Data: removeChannelMsg{channel}})
}

// SendMessage queues message for delivery over channel's connection.
func (a *ServerAgent) SendMessage(channel *Channel, message *mrcp.Message) {
	a.task.Signal(&apt.Message{Type: msgSendMessage, Data: sendMessageMsg{channel, message}})
}

func (a *ServerAgent) processControl(msg *apt.Message) {
	switch msg.Type {
	case msgAddChannel:
		m := msg.Data.(addChannelMsg)
		a.handleAddChannel(m.channel, m.offer)
	case msgModifyChannel:
		m := msg.Data.(modifyChannelMsg)
		a.handleModifyChannel(m.channel, m.offer)
	case msgRemoveChannel:
		m := msg.Data.(removeChannelMsg)
		a.handleRemoveChannel(m.channel)
	case msgSendMessage:
		m := msg.Data.(sendMessageMsg)
		a.handleSendMessage(m.channel, m.message)
	}
}

// handleAddChannel mirrors mrcp_server_agent_channel_add: the channel
// joins the shared pending connection regardless of what the offer
// requested (the peer's real connection — new or reused — only becomes
// known once their TCP stream actually arrives and a message on it
// resolves to this channel's identifier), and the answer's connection-type
// is forced to "new" if the agent is configured to always require a fresh
// connection, or if the offer asked to reuse a connection this agent has
// never actually seen that session's peer open (SessionID is the only
// caller-supplied correlator available here; the original compares by the
// peer's IP address instead, which this transport does not learn until
// accept time).
func (a *ServerAgent) handleAddChannel(channel *Channel, offer *descriptor.ControlMedia) {
	answer := *offer
	if offer.ConnectionType == descriptor.ConnectionExisting {
		if a.cfg.ForceNewConnection || a.findConnectionBySessionID(channel.SessionID) == nil {
			answer.ConnectionType = descriptor.ConnectionNew
		}
	}
	answer.SessionID = channel.SessionID

	if a.pending == nil {
		a.pending = newConnection(a.registry, a.cfg.BufferSize)
	}
	a.pending.addChannel(channel)
	a.tracker.track(channel, a.cfg.PendingChannelTTL)

	a.handler.OnModify(channel, &answer)
}

func (a *ServerAgent) handleModifyChannel(channel *Channel, offer *descriptor.ControlMedia) {
	answer := *offer
	answer.SessionID = channel.SessionID
	a.handler.OnModify(channel, &answer)
}

// handleRemoveChannel mirrors mrcp_server_agent_channel_remove: detach the
// channel from its connection, and if that was the connection's last
// channel and its socket is already gone, destroy it outright; if it was
// the pending connection's last channel, drop the pending connection too.
func (a *ServerAgent) handleRemoveChannel(channel *Channel) {
	a.tracker.cancel(channel.Identifier)
	conn := channel.connection
	if conn != nil {
		conn.removeChannel(channel)
		if conn.accessCount() == 0 {
			if conn == a.pending {
				a.pending = nil
			} else if conn.sock == nil {
				a.removeConnectionFromList(conn)
			}
		}
	}
	a.handler.OnRemove(channel)
}

func (a *ServerAgent) handleSendMessage(channel *Channel, message *mrcp.Message) {
	conn := channel.connection
	if conn == nil || conn.sock == nil {
		return
	}
	a.writeMessage(conn, message)
}

// writeMessage mirrors mrcp_server_agent_messsage_send's generate/send
// loop: regenerate into the connection's tx buffer, growing it and
// retrying on Truncated (see mrcp.Generator's single-buffer-per-attempt
// documented limitation), then write the finished bytes to the socket.
func (a *ServerAgent) writeMessage(conn *Connection, message *mrcp.Message) {
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

// findConnectionBySessionID looks for a live connection already carrying a
// channel from the same session, the closest equivalent this transport has
// to the original's by-remote-IP connection reuse lookup (see
// handleAddChannel).
func (a *ServerAgent) findConnectionBySessionID(sessionID string) *Connection {
	for _, c := range a.connections {
		for _, ch := range c.channels {
			if ch.SessionID == sessionID {
				return c
			}
		}
	}
	return nil
}

func (a *ServerAgent) removeConnectionFromList(conn *Connection) {
	for i, c := range a.connections {
		if c == conn {
			a.connections = append(a.connections[:i], a.connections[i+1:]...)
			return
		}
	}
}

func (a *ServerAgent) onPendingExpired(ch *Channel) {
	a.RemoveChannel(ch)
}

func (a *ServerAgent) acceptLoop() {
	for {
		conn, err := a.listener.Accept()
		if err != nil {
			return
		}
		c := conn
		a.task.Notify(apt.PollEvent{Source: c, Handle: func() { a.onAccept(c) }})
	}
}

// onAccept runs on the poller goroutine: a peer is only accepted at all if
// there is a pending connection with channels waiting for one, mirroring
// mrcp_server_agent_connection_accept's outright rejection of unexpected
// connections. The accept itself allocates a brand-new Connection — the
// shared pending connection is never handed out wholesale, since more than
// one session's channels can be sitting in it at once (spec.md §3's data
// model explicitly allows this). Each pending channel migrates onto
// whichever connection its peer actually opens individually, on its first
// inbound frame (see dispatchMessage).
func (a *ServerAgent) onAccept(raw net.Conn) {
	if a.pending == nil {
		raw.Close()
		return
	}

	conn := newConnection(a.registry, a.cfg.BufferSize)
	conn.sock = raw
	conn.RemoteIP = raw.RemoteAddr().String()
	conn.ID = conn.RemoteIP
	conn.agent = a
	a.connections = append(a.connections, conn)

	go a.readLoop(conn)
}

// readLoop is the one reader goroutine per connection. It owns the write
// offset into conn.rxBuf directly (no other goroutine ever writes to the
// buffer), handing each filled range to the poller as a PollEvent so
// parsing and channel-table mutation happen only on the agent's own
// goroutine; it then blocks on conn.nextOffset until the poller reports
// back where the next read should begin (conn.rxStream may have been
// compacted in the meantime).
func (a *ServerAgent) readLoop(conn *Connection) {
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

// onData runs on the poller goroutine. It extends conn.rxStream to the
// newly read high-water mark and parses as many complete messages as are
// now available; on Incomplete it compacts the unconsumed remainder to the
// front of the buffer (mrcp.Parser.Compact) and tells readLoop where to
// resume writing.
func (a *ServerAgent) onData(conn *Connection, length int) {
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
			// A malformed message leaves framing unrecoverable; drop
			// everything buffered and resync on whatever arrives next, but
			// answer the peer first if enough of the message survived to
			// echo a request-id (spec.md §4.4/§7: the connection itself
			// stays usable, only the one message is rejected).
			a.log.Warn("invalid message, dropping receive buffer", "connection", conn.ID)
			a.respondUnrecognized(conn, msg)
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

// onOverflow mirrors the original's fixed rx_buffer_size behavior: a
// connection that fills its receive buffer without ever completing a
// message has exceeded this transport's bound and is dropped.
func (a *ServerAgent) onOverflow(conn *Connection) {
	a.log.Warn("receive buffer exhausted without a complete message", "connection", conn.ID)
	a.onDisconnect(conn)
}

func (a *ServerAgent) dispatchMessage(conn *Connection, msg *mrcp.Message) {
	identifier := msg.ChannelID.String()
	channel := conn.findChannel(identifier)
	if channel == nil {
		if a.pending != nil {
			channel = a.pending.findChannel(identifier)
			if channel != nil {
				a.pending.removeChannel(channel)
				a.tracker.cancel(identifier)
				conn.addChannel(channel)
			}
		}
	}
	if channel == nil {
		a.log.Warn("message for unknown channel", "channel", identifier)
		a.respondUnrecognized(conn, msg)
		return
	}
	if msg.Unresolved {
		a.log.Warn("message names an unrecognized method/event", "channel", identifier)
		a.respondBadRequest(conn, msg)
		return
	}
	a.handler.OnReceive(channel, msg)
}

// respondUnrecognized answers msg with a 481 UNRECOGNIZED_MESSAGE
// (mrcp.StatusUnrecognizedMessage), echoing its request-id, for a request
// this agent could not route to any channel — either because parsing
// failed partway through (msg may be nil, or carry a zero-value
// StartLine if even the start-line didn't parse) or because its
// Channel-Identifier named no channel this agent knows about. Silently
// does nothing when there's no request-id to echo: a response with no
// correlator would be meaningless to the peer.
func (a *ServerAgent) respondUnrecognized(conn *Connection, msg *mrcp.Message) {
	if msg == nil || msg.StartLine.Kind != mrcp.KindRequest || msg.StartLine.RequestID == 0 {
		return
	}
	resp, err := mrcp.NewResponse(mrcp.Version2, msg.StartLine.RequestID, mrcp.StatusUnrecognizedMessage, mrcp.Complete)
	if err != nil {
		return
	}
	resp.ChannelID = msg.ChannelID
	a.writeMessage(conn, resp)
}

// respondBadRequest answers msg with a 400 BAD_REQUEST
// (mrcp.StatusBadRequest) for a well-formed request on a known channel
// whose method/event name its resource doesn't recognize (spec.md §7's
// "unknown method" protocol violation — session state unchanged, unlike
// the UNRECOGNIZED_MESSAGE/dropped-buffer treatment a genuine parse error
// gets).
func (a *ServerAgent) respondBadRequest(conn *Connection, msg *mrcp.Message) {
	resp, err := mrcp.NewResponse(mrcp.Version2, msg.StartLine.RequestID, mrcp.StatusBadRequest, mrcp.Complete)
	if err != nil {
		return
	}
	resp.ChannelID = msg.ChannelID
	a.writeMessage(conn, resp)
}

func (a *ServerAgent) onDisconnect(conn *Connection) {
	if conn.sock != nil {
		conn.sock.Close()
		conn.sock = nil
	}
	if conn.accessCount() == 0 {
		a.removeConnectionFromList(conn)
	}
}
