// Package mrcpserver implements the server-side MRCP session orchestrator
// (spec.md C7): it accepts an offer from an external signaling agent,
// fans out control-channel offers to mrcpv2 and termination ADD/MODIFY
// commands to an mpf.Engine, aggregates the replies into an answer, and
// drives TEARDOWN to quiescence. Grounded throughout on
// original_source/libs/mrcp-server/src/mrcp_server_session.c.
package mrcpserver

import (
	"log/slog"

	"github.com/unimrcp-go/core/apt"
	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mpf"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcpv2"
)

// SignalingEventHandler is the §6 "signaling agent contract" this
// orchestrator calls back into: the answer to a previously processed
// offer, a rejection of a second concurrent offer, and a completed
// TEARDOWN. sipsignal.ServerAgent is this repo's reference implementation.
type SignalingEventHandler interface {
	OnAnswer(sessionID string, answer *descriptor.Session)
	OnOfferRejected(sessionID string, reason string)
	OnTerminated(sessionID string)
}

// ChannelMessageHandler handles an inbound request/event already addressed
// to an established channel — the resource state-machine side of the
// message path (spec.md's C9), reached directly from mrcpv2 without
// passing back through session bookkeeping ("peer -> C5 -> channel lookup
// -> C9 -> resource plugin -> C5 -> peer"). A nil return means no response
// is sent (e.g. the handler already replied some other way, or the
// message was an event needing no reply).
type ChannelMessageHandler interface {
	HandleMessage(message *mrcp.Message) *mrcp.Message
}

// ChannelHandlerFactory creates the ChannelMessageHandler a newly added
// channel's inbound messages are dispatched to. May be nil (inbound
// messages are then logged and dropped), useful for tests that only
// exercise offer/answer assembly.
type ChannelHandlerFactory func(sessionID, resourceName string) ChannelMessageHandler

// ServerConfig configures a Server.
type ServerConfig struct {
	// MaxTerminationsPerSession bounds an mpf.Context's mixing capacity
	// (mrcp_context_create's original hard-coded 5).
	MaxTerminationsPerSession int
}

const defaultMaxTerminationsPerSession = 5

const (
	msgProcessOffer apt.MsgType = iota
	msgTerminate
	msgChannelModify
	msgChannelRemove
	msgChannelReceive
	msgMPFMessage
)

type processOfferMsg struct {
	sessionID string
	offer     *descriptor.Session
}

type terminateMsg struct {
	sessionID string
}

type channelModifyMsg struct {
	channel *mrcpv2.Channel
	answer  *descriptor.ControlMedia
}

type channelRemoveMsg struct {
	channel *mrcpv2.Channel
}

type channelReceiveMsg struct {
	channel *mrcpv2.Channel
	message *mrcp.Message
}

type mpfMessageMsg struct {
	message *mpf.Message
}

// Server is the server-side session orchestrator. All session-table
// mutation happens on its own apt.ConsumerTask goroutine, whether the
// trigger was a public ProcessOffer/Terminate call, an mrcpv2 channel
// event, or an mpf.Engine reply — the same single-mutator discipline
// apt.PollerTask uses for mrcpv2's own connection table.
type Server struct {
	cfg             ServerConfig
	connAgent       *mrcpv2.ServerAgent
	registry        *mrcp.Registry
	engine          mpf.Engine
	handler         SignalingEventHandler
	channelHandlers ChannelHandlerFactory
	log             *slog.Logger

	task     *apt.ConsumerTask
	sessions map[string]*Session
}

// NewServer creates a Server. connAgent and engine are not started by
// NewServer — wire Server as connAgent's ServerEventHandler and engine's
// EventHandler, then call Start.
func NewServer(cfg ServerConfig, connAgent *mrcpv2.ServerAgent, registry *mrcp.Registry, engine mpf.Engine, handler SignalingEventHandler, channelHandlers ChannelHandlerFactory) *Server {
	if cfg.MaxTerminationsPerSession <= 0 {
		cfg.MaxTerminationsPerSession = defaultMaxTerminationsPerSession
	}
	s := &Server{
		cfg:             cfg,
		connAgent:       connAgent,
		registry:        registry,
		engine:          engine,
		handler:         handler,
		channelHandlers: channelHandlers,
		log:             logging.For("mrcpserver"),
		sessions:        make(map[string]*Session),
	}
	s.task = apt.NewConsumerTask("MRCP Server Session Manager", 0, s.process)
	return s
}

// Start starts the orchestrator's own task goroutine. It does not start
// connAgent or engine — the caller owns their lifecycles.
func (s *Server) Start() bool { return s.task.Task().Start() }

// Stop drains any queued work, then stops the task goroutine.
func (s *Server) Stop() {
	s.task.Stop()
	s.task.Task().WaitTillComplete()
}

// ProcessOffer submits offer for sessionID; an id the server has not seen
// yet creates a fresh session under that id (sipsignal passes a new
// mrcp.NewSessionID for each INVITE). The resulting
// answer (or rejection) arrives asynchronously through
// SignalingEventHandler.
func (s *Server) ProcessOffer(sessionID string, offer *descriptor.Session) {
	s.task.Signal(&apt.Message{Type: msgProcessOffer, Data: processOfferMsg{sessionID, offer}})
}

// Terminate starts TEARDOWN for sessionID.
func (s *Server) Terminate(sessionID string) {
	s.task.Signal(&apt.Message{Type: msgTerminate, Data: terminateMsg{sessionID}})
}

// OnModify implements mrcpv2.ServerEventHandler.
func (s *Server) OnModify(channel *mrcpv2.Channel, answer *descriptor.ControlMedia) {
	s.task.Signal(&apt.Message{Type: msgChannelModify, Data: channelModifyMsg{channel, answer}})
}

// OnRemove implements mrcpv2.ServerEventHandler.
func (s *Server) OnRemove(channel *mrcpv2.Channel) {
	s.task.Signal(&apt.Message{Type: msgChannelRemove, Data: channelRemoveMsg{channel}})
}

// OnReceive implements mrcpv2.ServerEventHandler.
func (s *Server) OnReceive(channel *mrcpv2.Channel, message *mrcp.Message) {
	s.task.Signal(&apt.Message{Type: msgChannelReceive, Data: channelReceiveMsg{channel, message}})
}

// OnMessage implements mpf.EventHandler.
func (s *Server) OnMessage(message *mpf.Message) {
	s.task.Signal(&apt.Message{Type: msgMPFMessage, Data: mpfMessageMsg{message}})
}

func (s *Server) process(msg *apt.Message) {
	switch msg.Type {
	case msgProcessOffer:
		m := msg.Data.(processOfferMsg)
		s.handleProcessOffer(m.sessionID, m.offer)
	case msgTerminate:
		m := msg.Data.(terminateMsg)
		s.handleTerminate(m.sessionID)
	case msgChannelModify:
		m := msg.Data.(channelModifyMsg)
		s.handleChannelModify(m.channel, m.answer)
	case msgChannelRemove:
		m := msg.Data.(channelRemoveMsg)
		s.handleChannelRemove(m.channel)
	case msgChannelReceive:
		m := msg.Data.(channelReceiveMsg)
		s.handleChannelReceive(m.channel, m.message)
	case msgMPFMessage:
		m := msg.Data.(mpfMessageMsg)
		s.handleMPFMessage(m.message)
	}
}

// handleProcessOffer mirrors mrcp_server_session_offer_process: a second
// offer while one is still in progress is rejected outright (spec.md §4.5
// concurrency rule), otherwise control and audio media are fanned out and
// the offer/answer pair is stored as "in progress".
func (s *Server) handleProcessOffer(sessionID string, offer *descriptor.Session) {
	sess, existed := s.sessions[sessionID]
	if !existed {
		sess = &Session{ID: sessionID, server: s}
		sess.context = s.engine.CreateContext(sessionID, s.cfg.MaxTerminationsPerSession)
		s.sessions[sessionID] = sess
	}
	if sess.offer != nil {
		s.log.Warn("offer rejected: previous offer still in progress", "session", sessionID)
		s.handler.OnOfferRejected(sessionID, "offer already in progress")
		return
	}

	sess.offer = offer
	sess.answer = descriptor.NewSession(offer.Origin, offer.IP)
	sess.answer.ControlMedia = make([]descriptor.ControlMedia, len(offer.ControlMedia))
	sess.answer.AudioMedia = make([]descriptor.AudioMedia, len(offer.AudioMedia))
	sess.answer.VideoMedia = append([]descriptor.VideoMedia{}, offer.VideoMedia...)
	sess.controlAnswered = 0
	sess.audioAnswered = 0

	s.processControlMediaOffer(sess, offer)
	s.processAudioMediaOffer(sess, offer)

	if answerIsReady(sess) {
		s.sendAnswer(sess)
	}
}

func (s *Server) processControlMediaOffer(sess *Session, offer *descriptor.Session) {
	count := len(sess.channels)
	if count > len(offer.ControlMedia) {
		count = len(offer.ControlMedia)
	}
	for i := 0; i < count; i++ {
		ch := sess.channels[i]
		if ch == nil {
			continue
		}
		s.connAgent.ModifyChannel(ch, &offer.ControlMedia[i])
	}
	for i := count; i < len(offer.ControlMedia); i++ {
		cm := offer.ControlMedia[i]
		var obj any
		if s.channelHandlers != nil {
			obj = s.channelHandlers(sess.ID, cm.ResourceName)
		}
		ch := s.connAgent.CreateChannel(sess.ID, cm.ResourceName, obj)
		sess.channels = append(sess.channels, ch)
		s.connAgent.AddChannel(ch, &cm)
	}
}

func (s *Server) processAudioMediaOffer(sess *Session, offer *descriptor.Session) {
	count := len(sess.terminations)
	if count > len(offer.AudioMedia) {
		count = len(offer.AudioMedia)
	}
	for i := 0; i < count; i++ {
		term := sess.terminations[i]
		if term == nil {
			continue
		}
		s.engine.Send(&mpf.Message{
			Type: mpf.MessageRequest, Command: mpf.CommandModify,
			Context: sess.context, Termination: term,
			Descriptor: &mpf.RTPDescriptor{Remote: audioEndpointFrom(offer.IP, offer.AudioMedia[i])},
		})
	}
	for i := count; i < len(offer.AudioMedia); i++ {
		term := s.engine.CreateTermination(sess.context, sess)
		sess.terminations = append(sess.terminations, term)
		sess.context.Add(term)
		s.engine.Send(&mpf.Message{
			Type: mpf.MessageRequest, Command: mpf.CommandAdd,
			Context: sess.context, Termination: term,
			Descriptor: &mpf.RTPDescriptor{Remote: audioEndpointFrom(offer.IP, offer.AudioMedia[i])},
		})
	}
}

func audioEndpointFrom(ip string, am descriptor.AudioMedia) *mpf.AudioEndpoint {
	return &mpf.AudioEndpoint{IP: ip, Port: am.Port, Codec: am.Codec}
}

// answerIsReady mirrors mrcp_server_session_answer_is_ready.
func answerIsReady(sess *Session) bool {
	return sess.offer != nil &&
		sess.controlAnswered == len(sess.offer.ControlMedia) &&
		sess.audioAnswered == len(sess.offer.AudioMedia)
}

func (s *Server) sendAnswer(sess *Session) {
	answer := sess.answer
	sess.offer = nil
	sess.answer = nil
	sess.controlAnswered = 0
	sess.audioAnswered = 0
	s.handler.OnAnswer(sess.ID, answer)
}

// handleChannelModify mirrors mrcp_server_on_channel_modify.
func (s *Server) handleChannelModify(ch *mrcpv2.Channel, answer *descriptor.ControlMedia) {
	sess, ok := s.sessions[ch.SessionID]
	if !ok || sess.offer == nil {
		return
	}
	idx := indexOfChannel(sess, ch)
	if idx < 0 || idx >= len(sess.answer.ControlMedia) {
		return
	}
	a := *answer
	a.SessionID = sess.ID
	sess.answer.ControlMedia[idx] = a
	sess.controlAnswered++
	if answerIsReady(sess) {
		s.sendAnswer(sess)
	}
}

// handleChannelRemove mirrors mrcp_server_on_channel_remove.
func (s *Server) handleChannelRemove(ch *mrcpv2.Channel) {
	sess, ok := s.sessions[ch.SessionID]
	if !ok {
		return
	}
	idx := indexOfChannel(sess, ch)
	if idx >= 0 {
		sess.channels[idx] = nil
	}
	s.checkQuiescence(sess)
}

func (s *Server) handleChannelReceive(ch *mrcpv2.Channel, message *mrcp.Message) {
	handler, ok := ch.Obj.(ChannelMessageHandler)
	if !ok || handler == nil {
		s.log.Warn("no resource handler registered for channel", "channel", ch.Identifier)
		return
	}
	if resp := handler.HandleMessage(message); resp != nil {
		s.connAgent.SendMessage(ch, resp)
	}
}

// handleTerminate mirrors mrcp_server_session_terminate_process.
func (s *Server) handleTerminate(sessionID string) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	sess.terminating = true
	for _, ch := range sess.channels {
		if ch != nil {
			s.connAgent.RemoveChannel(ch)
		}
	}
	for _, term := range sess.terminations {
		if term != nil {
			s.engine.Send(&mpf.Message{Type: mpf.MessageRequest, Command: mpf.CommandSubtract, Context: sess.context, Termination: term})
		}
	}
	s.checkQuiescence(sess)
}

func (s *Server) handleMPFMessage(msg *mpf.Message) {
	if msg.Termination == nil {
		return
	}
	sess, ok := msg.Termination.Obj.(*Session)
	if !ok || sess == nil {
		return
	}
	if msg.Type != mpf.MessageResponse {
		return
	}
	switch msg.Command {
	case mpf.CommandAdd, mpf.CommandModify:
		s.onTerminationModify(sess, msg)
	case mpf.CommandSubtract:
		s.onTerminationSubtract(sess, msg)
	}
}

// onTerminationModify mirrors mrcp_server_on_termination_modify.
func (s *Server) onTerminationModify(sess *Session, msg *mpf.Message) {
	if sess.offer == nil || msg.Descriptor == nil || msg.Descriptor.Local == nil {
		return
	}
	idx := indexOfTermination(sess, msg.Termination)
	if idx < 0 || idx >= len(sess.answer.AudioMedia) {
		return
	}
	local := msg.Descriptor.Local
	sess.answer.IP = local.IP
	sess.answer.AudioMedia[idx] = descriptor.AudioMedia{Port: local.Port, Codec: local.Codec}
	sess.audioAnswered++
	if answerIsReady(sess) {
		s.sendAnswer(sess)
	}
}

// onTerminationSubtract mirrors mrcp_server_on_termination_subtract.
func (s *Server) onTerminationSubtract(sess *Session, msg *mpf.Message) {
	idx := indexOfTermination(sess, msg.Termination)
	if idx >= 0 {
		sess.terminations[idx] = nil
	}
	s.checkQuiescence(sess)
}

// checkQuiescence mirrors the empty-check at the end of
// mrcp_server_on_channel_remove / mrcp_server_on_termination_subtract:
// once every channel and termination slot is nil and TEARDOWN was
// requested, the session is destroyed and its terminate response sent.
func (s *Server) checkQuiescence(sess *Session) {
	if !sess.terminating || !sess.quiescent() {
		return
	}
	delete(s.sessions, sess.ID)
	s.handler.OnTerminated(sess.ID)
}
