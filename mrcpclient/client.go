package mrcpclient

import (
	"log/slog"

	"github.com/unimrcp-go/core/apt"
	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mpf"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcpv2"
)

// CommandKind identifies an application-issued command, mirroring
// mrcp_app_command_e.
type CommandKind int

const (
	CommandSessionUpdate CommandKind = iota
	CommandSessionTerminate
	CommandChannelAdd
	CommandChannelRemove
	CommandMessage
)

// Command is one queued application request (mrcp_app_message_t, request
// side). Only the fields relevant to Kind are populated.
type Command struct {
	Kind    CommandKind
	Session *Session
	Channel *mrcpv2.Channel
	Offer   *descriptor.ControlMedia // CommandChannelAdd: the channel's control-media offer
	Message *mrcp.Message            // CommandMessage: the request to send
}

// ApplicationEventHandler receives every response the client orchestrator
// produces for a completed command, plus unsolicited inbound
// messages/events on an already-established channel. One call per
// completed Command, in the teacher's one-active-request-at-a-time style
// (mrcp_client_application_respond).
type ApplicationEventHandler interface {
	OnSessionUpdate(session *Session)
	OnSessionTerminate(session *Session)
	OnChannelAdd(session *Session, channel *mrcpv2.Channel, answer *descriptor.ControlMedia)
	OnChannelRemove(session *Session, channel *mrcpv2.Channel)
	OnMessageResponse(session *Session, channel *mrcp.ChannelID)
	OnReceive(session *Session, channel *mrcpv2.Channel, message *mrcp.Message)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	MaxTerminationsPerSession int
}

const defaultMaxTerminationsPerSession = 5

const (
	msgRegisterSession apt.MsgType = iota
	msgAppCommand
	msgConnModify
	msgConnRemove
	msgConnReceive
	msgEngineMessage
)

type registerSessionMsg struct {
	session *Session
}

type appCommandMsg struct {
	cmd Command
}

type connModifyMsg struct {
	channel *mrcpv2.Channel
	answer  *descriptor.ControlMedia
}

type connRemoveMsg struct {
	channel *mrcpv2.Channel
}

type connReceiveMsg struct {
	channel *mrcpv2.Channel
	message *mrcp.Message
}

type engineMessageMsg struct {
	message *mpf.Message
}

// Client is the client-side session orchestrator (spec.md C8). All
// mutation of Session state happens on its own apt.ConsumerTask goroutine,
// whichever of the three sources triggered it: an application command, an
// mrcpv2.ClientAgent callback, or an mpf.Engine callback.
type Client struct {
	cfg       ClientConfig
	connAgent *mrcpv2.ClientAgent
	registry  *mrcp.Registry
	engine    mpf.Engine
	handler   ApplicationEventHandler
	log       *slog.Logger

	task     *apt.ConsumerTask
	sessions map[string]*Session
}

// NewClient creates a Client. connAgent and engine are not started —
// wire Client as connAgent's ClientEventHandler and engine's EventHandler,
// then call Start.
func NewClient(cfg ClientConfig, connAgent *mrcpv2.ClientAgent, registry *mrcp.Registry, engine mpf.Engine, handler ApplicationEventHandler) *Client {
	if cfg.MaxTerminationsPerSession <= 0 {
		cfg.MaxTerminationsPerSession = defaultMaxTerminationsPerSession
	}
	c := &Client{
		cfg: cfg, connAgent: connAgent, registry: registry, engine: engine, handler: handler,
		log:      logging.For("mrcpclient"),
		sessions: make(map[string]*Session),
	}
	c.task = apt.NewConsumerTask("MRCP Client Session Manager", 0, c.process)
	return c
}

func (c *Client) Start() bool { return c.task.Task().Start() }

func (c *Client) Stop() {
	c.task.Stop()
	c.task.Task().WaitTillComplete()
}

// CreateSession allocates a Session whose control channels will dial
// remoteAddr. The returned Session carries its id immediately (this
// implementation assigns it client-side via mrcp.NewSessionID rather than
// waiting on the server's first answer — see DESIGN.md's Open Question
// note — so Submit can be called right away).
func (c *Client) CreateSession(remoteAddr string) *Session {
	sess := &Session{ID: mrcp.NewSessionID(), remoteAddr: remoteAddr, client: c}
	sess.context = c.engine.CreateContext(sess.ID, c.cfg.MaxTerminationsPerSession)
	c.task.SignalWait(&apt.Message{Type: msgRegisterSession, Data: registerSessionMsg{sess}})
	return sess
}

// NewChannel allocates a Channel for sess/resourceName through the
// underlying connection agent, ready to be offered via a CommandChannelAdd.
func (sess *Session) NewChannel(resourceName string, obj any) *mrcpv2.Channel {
	return sess.client.connAgent.CreateChannel(sess.ID, resourceName, obj)
}

// Submit enqueues cmd, mirroring mrcp_client_on_application_message: if no
// request is currently active for cmd.Session, it runs immediately;
// otherwise it waits in the session's FIFO.
func (c *Client) Submit(cmd Command) {
	c.task.Signal(&apt.Message{Type: msgAppCommand, Data: appCommandMsg{cmd}})
}

// OnModify implements mrcpv2.ClientEventHandler.
func (c *Client) OnModify(channel *mrcpv2.Channel, answer *descriptor.ControlMedia) {
	c.task.Signal(&apt.Message{Type: msgConnModify, Data: connModifyMsg{channel, answer}})
}

// OnRemove implements mrcpv2.ClientEventHandler.
func (c *Client) OnRemove(channel *mrcpv2.Channel) {
	c.task.Signal(&apt.Message{Type: msgConnRemove, Data: connRemoveMsg{channel}})
}

// OnReceive implements mrcpv2.ClientEventHandler.
func (c *Client) OnReceive(channel *mrcpv2.Channel, message *mrcp.Message) {
	c.task.Signal(&apt.Message{Type: msgConnReceive, Data: connReceiveMsg{channel, message}})
}

// OnMessage implements mpf.EventHandler.
func (c *Client) OnMessage(message *mpf.Message) {
	c.task.Signal(&apt.Message{Type: msgEngineMessage, Data: engineMessageMsg{message}})
}

func (c *Client) process(msg *apt.Message) {
	switch msg.Type {
	case msgRegisterSession:
		m := msg.Data.(registerSessionMsg)
		c.sessions[m.session.ID] = m.session
	case msgAppCommand:
		m := msg.Data.(appCommandMsg)
		c.handleCommand(m.cmd)
	case msgConnModify:
		m := msg.Data.(connModifyMsg)
		c.handleChannelModify(m.channel, m.answer)
	case msgConnRemove:
		m := msg.Data.(connRemoveMsg)
		c.handleChannelRemove(m.channel)
	case msgConnReceive:
		m := msg.Data.(connReceiveMsg)
		c.handleChannelReceive(m.channel, m.message)
	case msgEngineMessage:
		m := msg.Data.(engineMessageMsg)
		c.handleEngineMessage(m.message)
	}
}

// handleCommand mirrors mrcp_client_on_application_message's
// active_request/request_queue dispatch.
func (c *Client) handleCommand(cmd Command) {
	sess := cmd.Session
	if sess.activeRequest != nil {
		sess.requestQueue = append(sess.requestQueue, cmd)
		return
	}
	active := cmd
	sess.activeRequest = &active
	c.dispatch(sess, cmd)
}

// respond mirrors mrcp_client_application_respond: hand the active
// request's outcome to the application, then pop and dispatch the next
// queued request.
func (c *Client) respond(sess *Session) {
	req := sess.activeRequest
	if req == nil {
		return
	}
	switch req.Kind {
	case CommandSessionUpdate:
		c.handler.OnSessionUpdate(sess)
	case CommandSessionTerminate:
		c.handler.OnSessionTerminate(sess)
	case CommandChannelAdd:
		var answer *descriptor.ControlMedia
		if idx, ok := indexOfChannel(sess, req.Channel); ok && sess.answer != nil && idx < len(sess.answer.ControlMedia) {
			answer = &sess.answer.ControlMedia[idx]
		}
		c.handler.OnChannelAdd(sess, req.Channel, answer)
	case CommandChannelRemove:
		c.handler.OnChannelRemove(sess, req.Channel)
	case CommandMessage:
		c.handler.OnMessageResponse(sess, &req.Message.ChannelID)
	}

	sess.activeRequest = nil
	if len(sess.requestQueue) > 0 {
		next := sess.requestQueue[0]
		sess.requestQueue = sess.requestQueue[1:]
		sess.activeRequest = &next
		c.dispatch(sess, next)
	}
}

func (c *Client) dispatch(sess *Session, cmd Command) {
	switch cmd.Kind {
	case CommandSessionUpdate:
		c.sessionUpdate(sess)
	case CommandSessionTerminate:
		c.sessionTerminate(sess)
	case CommandChannelAdd:
		c.channelAdd(sess, cmd.Channel, cmd.Offer)
	case CommandChannelRemove:
		c.channelModify(sess, cmd.Channel, false)
	case CommandMessage:
		c.connAgent.SendMessage(cmd.Channel, cmd.Message)
		// MESSAGE has no sub-operations to wait on; it is simply forwarded,
		// matching mrcp_client_application_msg_dispatch's MRCP_APP_COMMAND_MESSAGE
		// no-op case (the real reply arrives later as an ordinary OnReceive).
		c.respond(sess)
	}
}

// channelAdd mirrors mrcp_client_channel_add: the new channel's local RTP
// termination is requested first (offerFlagCount gates on it), and only
// once that local ADD completes (see onTerminationModify) does the
// channel actually get dialed out onto the wire — "emitting the offer" in
// mrcp_client_on_termination_modify's offer_flag_count-reaches-zero branch.
func (c *Client) channelAdd(sess *Session, ch *mrcpv2.Channel, offer *descriptor.ControlMedia) {
	if _, ok := indexOfChannel(sess, ch); ok {
		c.channelModify(sess, ch, true)
		return
	}

	if sess.offer == nil {
		sess.offer = descriptor.NewSession("", "")
		sess.answer = nil
	}

	sess.channels = append(sess.channels, ch)

	term := c.engine.CreateTermination(sess.context, sess)
	sess.terminations = append(sess.terminations, terminationSlot{termination: term})
	slot := &sess.terminations[len(sess.terminations)-1]
	c.engine.Send(&mpf.Message{Type: mpf.MessageRequest, Command: mpf.CommandAdd, Context: sess.context, Termination: term})
	slot.waiting = true
	sess.offerFlagCount++

	cm := *offer
	cm.Proto = descriptor.ProtoTCP
	cm.Setup = descriptor.SetupActive
	cm.ConnectionType = descriptor.ConnectionExisting
	sess.offer.ControlMedia = append(sess.offer.ControlMedia, cm)
	sess.offer.AudioMedia = append(sess.offer.AudioMedia, descriptor.AudioMedia{})

	sess.pendingChannel = ch
	sess.pendingOffer = &sess.offer.ControlMedia[len(sess.offer.ControlMedia)-1]
}

// channelModify mirrors mrcp_client_channel_modify: re-offering an
// existing channel as enabled (port=9) or disabled (port=0).
func (c *Client) channelModify(sess *Session, ch *mrcpv2.Channel, enable bool) {
	if sess.offer == nil {
		return
	}
	c.connAgent.ModifyChannel(ch, enable)
}

// sessionUpdate mirrors mrcp_client_session_update's outcome only: when an
// offer is already stored it completes the command at once; nothing is
// re-sent to the peer.
func (c *Client) sessionUpdate(sess *Session) {
	if sess.offer == nil {
		return
	}
	c.respond(sess)
}

// sessionTerminate mirrors mrcp_client_session_terminate.
func (c *Client) sessionTerminate(sess *Session) {
	if sess.offer == nil {
		delete(c.sessions, sess.ID)
		c.respond(sess)
		return
	}
	// Count the session itself while dispatching, released below, so a
	// session with nothing outstanding still decrements to zero and
	// responds immediately.
	sess.terminateFlagCount++
	for _, ch := range sess.channels {
		if ch != nil {
			sess.terminateFlagCount++
			c.connAgent.RemoveChannel(ch)
		}
	}
	for i := range sess.terminations {
		slot := &sess.terminations[i]
		if slot.termination != nil {
			c.engine.Send(&mpf.Message{Type: mpf.MessageRequest, Command: mpf.CommandSubtract, Context: sess.context, Termination: slot.termination})
			slot.waiting = true
			sess.terminateFlagCount++
		}
	}
	sess.terminateFlagCount--
	if sess.terminateFlagCount == 0 {
		delete(c.sessions, sess.ID)
		c.respond(sess)
	}
}

// handleChannelModify mirrors mrcp_client_on_channel_modify.
func (c *Client) handleChannelModify(ch *mrcpv2.Channel, answer *descriptor.ControlMedia) {
	sess := c.sessionOf(ch)
	if sess == nil {
		return
	}
	if idx, ok := indexOfChannel(sess, ch); ok {
		if sess.answer == nil {
			sess.answer = descriptor.NewSession(sess.offer.Origin, sess.offer.IP)
			sess.answer.ControlMedia = make([]descriptor.ControlMedia, len(sess.offer.ControlMedia))
			sess.answer.AudioMedia = make([]descriptor.AudioMedia, len(sess.offer.AudioMedia))
		}
		if idx < len(sess.answer.ControlMedia) {
			sess.answer.ControlMedia[idx] = *answer
		}
	}
	if sess.answerFlagCount > 0 {
		sess.answerFlagCount--
		if sess.answerFlagCount == 0 {
			c.respond(sess)
		}
	}
}

// handleChannelRemove mirrors mrcp_client_on_channel_remove.
func (c *Client) handleChannelRemove(ch *mrcpv2.Channel) {
	sess := c.sessionOf(ch)
	if sess == nil {
		return
	}
	if idx, ok := indexOfChannel(sess, ch); ok {
		sess.channels[idx] = nil
	}
	if sess.terminateFlagCount > 0 {
		sess.terminateFlagCount--
		if sess.terminateFlagCount == 0 {
			delete(c.sessions, sess.ID)
			c.respond(sess)
		}
	}
}

func (c *Client) handleChannelReceive(ch *mrcpv2.Channel, message *mrcp.Message) {
	sess := c.sessionOf(ch)
	if sess == nil {
		return
	}
	c.handler.OnReceive(sess, ch, message)
}

func (c *Client) handleEngineMessage(msg *mpf.Message) {
	if msg.Termination == nil || msg.Type != mpf.MessageResponse {
		return
	}
	sess, ok := msg.Termination.Obj.(*Session)
	if !ok || sess == nil {
		return
	}
	switch msg.Command {
	case mpf.CommandAdd, mpf.CommandModify:
		c.onTerminationModify(sess, msg)
	case mpf.CommandSubtract:
		c.onTerminationSubtract(sess, msg)
	}
}

// onTerminationModify mirrors mrcp_client_on_termination_modify.
func (c *Client) onTerminationModify(sess *Session, msg *mpf.Message) {
	if sess.offer == nil {
		return
	}
	slot, idx := indexOfTermination(sess, msg.Termination)
	if slot == nil || !slot.waiting {
		return
	}
	if msg.Descriptor != nil && msg.Descriptor.Local != nil && idx < len(sess.offer.AudioMedia) {
		sess.offer.IP = msg.Descriptor.Local.IP
		sess.offer.AudioMedia[idx] = descriptor.AudioMedia{Port: msg.Descriptor.Local.Port, Codec: msg.Descriptor.Local.Codec}
	}
	slot.waiting = false

	if sess.offerFlagCount > 0 {
		sess.offerFlagCount--
		if sess.offerFlagCount == 0 && sess.pendingChannel != nil {
			// "Emit offer": dial the channel now that its local termination
			// is ready. The dial's own OnModify callback — a separate,
			// later invocation of handleChannelModify — is what decrements
			// answerFlagCount, so this call is done once it starts the dial.
			sess.answerFlagCount++
			ch, cm := sess.pendingChannel, sess.pendingOffer
			sess.pendingChannel, sess.pendingOffer = nil, nil
			c.connAgent.AddChannel(ch, sess.remoteAddr, cm)
			return
		}
	}
	if sess.answerFlagCount > 0 {
		sess.answerFlagCount--
		if sess.answerFlagCount == 0 {
			c.respond(sess)
		}
	}
}

// onTerminationSubtract mirrors mrcp_client_on_termination_subtract.
func (c *Client) onTerminationSubtract(sess *Session, msg *mpf.Message) {
	slot, _ := indexOfTermination(sess, msg.Termination)
	if slot == nil || !slot.waiting {
		return
	}
	if sess.terminateFlagCount > 0 {
		sess.terminateFlagCount--
		if sess.terminateFlagCount == 0 {
			delete(c.sessions, sess.ID)
			c.respond(sess)
		}
	}
}

func (c *Client) sessionOf(ch *mrcpv2.Channel) *Session {
	return c.sessions[ch.SessionID]
}
