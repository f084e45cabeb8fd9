package sipsignal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/emiago/sipgo"
	"github.com/emiago/sipgo/sip"

	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcpserver"
)

// Config configures a ServerAgent.
type Config struct {
	BindAddr      string // interface the SIP UA listens on
	Port          int
	AdvertiseAddr string // address carried in SDP's o=/c= lines
}

// pendingCall tracks one in-flight INVITE between ProcessOffer and the
// orchestrator's OnAnswer/OnOfferRejected callback, mirroring
// dialog.Manager's per-call-ID bookkeeping in manager.go, reduced to the
// one thing this reference agent actually needs: the transaction to
// eventually respond on.
type pendingCall struct {
	req *sip.Request
	tx  sip.ServerTransaction
}

// ServerAgent is the reference signaling agent (spec.md §6): a SIP UAS
// that turns an INVITE's SDP into a descriptor.Session offer, drives it
// through mrcpserver.Server, and turns the resulting answer back into a
// 200 OK's SDP body. Grounded on internal/signaling/app/app.go's sipgo
// bootstrap and routing/invite.go's/routing/bye.go's direct
// transaction-response style — deliberately not the teacher's heavier
// dialog.Manager/b2bua.CallService (DESIGN.md explains why).
type ServerAgent struct {
	cfg    Config
	ua     *sipgo.UserAgent
	srv    *sipgo.Server
	server *mrcpserver.Server
	log    *slog.Logger

	// mu is a pointer so a ServerAgent value can be copied into a
	// zero-value placeholder (cmd/mrcp-server's startup does this to break
	// its construction cycle with mrcpserver.Server) without the copylocks
	// hazard a plain sync.Mutex field would create.
	mu    *sync.Mutex
	calls map[string]*pendingCall // callID -> pending INVITE
	ids   map[string]string       // sessionID -> callID
}

// NewServerAgent creates a SIP UA bound to cfg but not yet listening.
// server is the orchestrator this agent drives; wire the returned
// ServerAgent back as server's SignalingEventHandler before calling
// ListenAndServe.
func NewServerAgent(cfg Config, server *mrcpserver.Server) (*ServerAgent, error) {
	ua, err := sipgo.NewUA()
	if err != nil {
		return nil, fmt.Errorf("sipsignal: create user agent: %w", err)
	}
	srv, err := sipgo.NewServer(ua)
	if err != nil {
		ua.Close()
		return nil, fmt.Errorf("sipsignal: create server: %w", err)
	}

	a := &ServerAgent{
		cfg: cfg, ua: ua, srv: srv, server: server,
		log:   logging.For("sipsignal"),
		mu:    &sync.Mutex{},
		calls: make(map[string]*pendingCall),
		ids:   make(map[string]string),
	}
	srv.OnRequest(sip.INVITE, a.handleInvite)
	srv.OnRequest(sip.ACK, a.handleAck)
	srv.OnRequest(sip.BYE, a.handleBye)
	return a, nil
}

// ListenAndServe blocks serving SIP requests over UDP on cfg.BindAddr.
func (a *ServerAgent) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.cfg.BindAddr, a.cfg.Port)
	return a.srv.ListenAndServe(ctx, "udp", addr)
}

// Close releases the SIP UA's resources.
func (a *ServerAgent) Close() error { return a.ua.Close() }

func (a *ServerAgent) handleInvite(req *sip.Request, tx sip.ServerTransaction) {
	callID := callIDString(req)
	a.log.Info("sipsignal: received INVITE", "call_id", callID, "from", req.From())

	trying := sip.NewResponseFromRequest(req, sip.StatusTrying, "Trying", nil)
	if err := tx.Respond(trying); err != nil {
		a.log.Warn("sipsignal: failed to send 100 Trying", "error", err)
	}

	if req.Body() == nil {
		a.respondReject(req, tx, sip.StatusNotAcceptable, "Not Acceptable Here - no SDP")
		return
	}
	offer, err := decodeOffer(req.Body())
	if err != nil {
		a.log.Warn("sipsignal: failed to parse SDP offer", "call_id", callID, "error", err)
		a.respondReject(req, tx, sip.StatusNotAcceptable, "Not Acceptable Here - "+err.Error())
		return
	}
	if offer.IP == "" {
		offer.IP = a.cfg.AdvertiseAddr
	}

	sessionID := mrcp.NewSessionID()

	a.mu.Lock()
	a.calls[callID] = &pendingCall{req: req, tx: tx}
	a.ids[sessionID] = callID
	a.mu.Unlock()

	a.server.ProcessOffer(sessionID, offer)
}

func (a *ServerAgent) handleAck(req *sip.Request, tx sip.ServerTransaction) {
	// ACK carries no response of its own; its arrival just confirms the
	// 200 OK sent from OnAnswer, matching routing's ACKHandler.
}

func (a *ServerAgent) handleBye(req *sip.Request, tx sip.ServerTransaction) {
	callID := callIDString(req)

	ok := sip.NewResponseFromRequest(req, sip.StatusOK, "OK", nil)
	if err := tx.Respond(ok); err != nil {
		a.log.Warn("sipsignal: failed to send 200 OK for BYE", "call_id", callID, "error", err)
	}

	a.mu.Lock()
	sessionID := ""
	for sid, cid := range a.ids {
		if cid == callID {
			sessionID = sid
			break
		}
	}
	a.mu.Unlock()
	if sessionID == "" {
		a.log.Warn("sipsignal: BYE for unknown call", "call_id", callID)
		return
	}
	a.server.Terminate(sessionID)
}

// OnAnswer implements mrcpserver.SignalingEventHandler: send the 200 OK
// carrying answer's SDP, mirroring dialog.Manager's SendProgress/SendOK
// pattern of appending a Content-Type header alongside the body.
func (a *ServerAgent) OnAnswer(sessionID string, answer *descriptor.Session) {
	call := a.pendingCallFor(sessionID)
	if call == nil {
		a.log.Warn("sipsignal: OnAnswer for unknown session", "session_id", sessionID)
		return
	}
	body, err := encodeAnswer(answer)
	if err != nil {
		a.log.Error("sipsignal: failed to encode SDP answer", "session_id", sessionID, "error", err)
		a.respondReject(call.req, call.tx, sip.StatusInternalServerError, "Server Error")
		return
	}
	ok := sip.NewResponseFromRequest(call.req, sip.StatusOK, "OK", body)
	ct := sip.ContentTypeHeader("application/sdp")
	ok.AppendHeader(&ct)
	if err := call.tx.Respond(ok); err != nil {
		a.log.Warn("sipsignal: failed to send 200 OK", "session_id", sessionID, "error", err)
	}
}

// OnOfferRejected implements mrcpserver.SignalingEventHandler.
func (a *ServerAgent) OnOfferRejected(sessionID string, reason string) {
	call := a.pendingCallFor(sessionID)
	if call == nil {
		return
	}
	a.respondReject(call.req, call.tx, sip.StatusNotAcceptable, "Not Acceptable Here - "+reason)
}

// OnTerminated implements mrcpserver.SignalingEventHandler, dropping the
// bookkeeping for a session whose TEARDOWN has reached quiescence — the
// BYE's 200 OK was already sent synchronously in handleBye.
func (a *ServerAgent) OnTerminated(sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if callID, ok := a.ids[sessionID]; ok {
		delete(a.calls, callID)
		delete(a.ids, sessionID)
	}
}

func (a *ServerAgent) pendingCallFor(sessionID string) *pendingCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	callID, ok := a.ids[sessionID]
	if !ok {
		return nil
	}
	return a.calls[callID]
}

func (a *ServerAgent) respondReject(req *sip.Request, tx sip.ServerTransaction, code sip.StatusCode, reason string) {
	resp := sip.NewResponseFromRequest(req, code, reason, nil)
	if err := tx.Respond(resp); err != nil {
		a.log.Warn("sipsignal: failed to send rejection", "error", err)
	}
}

// callIDString extracts a plain string key from req's Call-ID header,
// the string(*req.CallID()) pattern dialog/manager.go uses throughout.
func callIDString(req *sip.Request) string {
	if req.CallID() == nil {
		return ""
	}
	return string(*req.CallID())
}

