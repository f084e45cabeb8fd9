package resources

import "github.com/unimrcp-go/core/mrcp"

// State is a resource-defined per-channel state (IDLE, SPEAKING,
// RECOGNIZING, ...); each resource's *_state.go defines its own constants.
type State int

// MethodHandler processes req against the state machine's current state and
// returns the response to send plus the state to transition to. A handler
// that starts a long-running operation is responsible for setting
// sm.activeRequest itself (via sm.beginRequest) before returning.
type MethodHandler func(sm *StateMachine, req *mrcp.Message) (resp *mrcp.Message, next State)

// StateMachine is the generic engine shared by every resource's server-side
// state machine (spec.md §4.7): a method-id-indexed dispatch table, a
// current state, and in-progress-request tracking used to correlate
// responses/events the resource's own implementation sends back
// asynchronously. Grounded on
// original_source/libs/mrcp/resources/src/mrcp_recog_server_state_machine.c
// (the state field, the active_request slot, and the
// response/event-correlation checks), generalized so synth.go/recog.go
// supply only their own tables and handlers.
type StateMachine struct {
	version       mrcp.Version
	resource      *mrcp.Resource
	state         State
	activeRequest *mrcp.Message
	handlers      map[int]MethodHandler
}

// NewStateMachine builds a StateMachine for resource, pinned to version,
// starting in initial, dispatching requests through handlers (indexed by
// method id).
func NewStateMachine(version mrcp.Version, resource *mrcp.Resource, initial State, handlers map[int]MethodHandler) *StateMachine {
	return &StateMachine{version: version, resource: resource, state: initial, handlers: handlers}
}

// State returns the current per-channel state.
func (sm *StateMachine) State() State { return sm.state }

// ActiveRequest returns the in-progress request awaiting a terminal
// response/event, or nil if the channel is idle.
func (sm *StateMachine) ActiveRequest() *mrcp.Message { return sm.activeRequest }

// beginRequest records req as the in-progress request a later
// response/event must correlate against. Handlers call this before
// returning an IN-PROGRESS response.
func (sm *StateMachine) beginRequest(req *mrcp.Message) {
	sm.activeRequest = req
}

// HandleRequest dispatches req through the method-id table (spec.md §4.7
// "Request validation"). An unrecognized method id yields
// StatusMethodNotAllowed without consulting any handler.
func (sm *StateMachine) HandleRequest(req *mrcp.Message) *mrcp.Message {
	h, ok := sm.handlers[req.StartLine.MethodID]
	if !ok {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotAllowed, mrcp.Complete)
		return resp
	}
	resp, next := h(sm, req)
	sm.state = next
	return resp
}

// HandleResponse cross-checks an asynchronous response the resource
// implementation produced against the in-progress request (spec.md §4.7
// "Response correlation"): ok is false if there is no in-progress request
// or its request-id does not match, in which case the response must be
// dropped rather than forwarded. A COMPLETE response clears activeRequest
// immediately since no terminal event will follow it.
func (sm *StateMachine) HandleResponse(resp *mrcp.Message) (ok bool) {
	if sm.activeRequest == nil || sm.activeRequest.StartLine.RequestID != resp.StartLine.RequestID {
		return false
	}
	if resp.StartLine.RequestState == mrcp.Complete {
		sm.activeRequest = nil
	}
	return true
}

// HandleEvent cross-checks an asynchronous event against the in-progress
// request the same way HandleResponse does (spec.md §4.7 "Event
// correlation"). A COMPLETE event both clears activeRequest and returns the
// state machine to idleState.
func (sm *StateMachine) HandleEvent(ev *mrcp.Message, idleState State) (ok bool) {
	if sm.activeRequest == nil || sm.activeRequest.StartLine.RequestID != ev.StartLine.RequestID {
		return false
	}
	if ev.StartLine.RequestState == mrcp.Complete {
		sm.activeRequest = nil
		sm.state = idleState
	}
	return true
}
