package resources

import (
	"strconv"

	"github.com/unimrcp-go/core/mrcp"
)

// Synthesizer channel states (spec.md Scenario A: SPEAK while idle moves to
// an active state; BARGE-IN-OCCURRED or a SPEAK-COMPLETE event returns to
// idle), grounded on
// original_source/libs/mrcp/resources/src/mrcp_synth_state_machine.c's
// MRCP_SYNTH_STATE_IDLE/SPEAKING/PAUSED.
const (
	SynthStateIdle State = iota
	SynthStateSpeaking
	SynthStatePaused
)

// NewSynthesizerStateMachine builds the per-channel server-side state
// machine for resource (normally the one NewSynthesizerResource returns).
func NewSynthesizerStateMachine(version mrcp.Version, resource *mrcp.Resource) *StateMachine {
	return NewStateMachine(version, resource, SynthStateIdle, map[int]MethodHandler{
		SynthSetParams:       synthAlwaysAllowed,
		SynthGetParams:       synthAlwaysAllowed,
		SynthDefineLexicon:   synthRequireIdle,
		SynthSpeak:           synthHandleSpeak,
		SynthStop:            synthHandleStop,
		SynthPause:           synthHandlePause,
		SynthResume:          synthHandleResume,
		SynthBargeInOccurred: synthHandleBargeIn,
		SynthControl:         synthHandleControl,
	})
}

func synthAlwaysAllowed(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, sm.state
}

func synthRequireIdle(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != SynthStateIdle {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, sm.state
}

// synthHandleSpeak starts a new utterance. A SPEAK while already speaking is
// rejected with StatusMethodNotValidInState (spec.md §4.7 concurrency rule:
// one in-progress request per channel) — a client that wants to replace the
// current utterance must STOP first.
func synthHandleSpeak(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != SynthStateIdle {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.InProgress)
	sm.beginRequest(req)
	return resp, SynthStateSpeaking
}

// synthHandleStop ends the in-progress utterance (if any) immediately,
// clearing activeRequest so no later SPEAK-COMPLETE event is expected for
// it. Valid from any state — stopping an idle channel is a harmless no-op
// per RFC 6787 §8.2.3. When a request was actually in progress, its id is
// echoed back in Active-Request-Id-List per RFC 6787 §8.4.2.
func synthHandleStop(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	stopped := sm.activeRequest
	sm.activeRequest = nil
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	if stopped != nil {
		resp.Header.Add(mrcp.GenericHeaderName(mrcp.HeaderActiveRequestIDList), strconv.FormatUint(uint64(stopped.StartLine.RequestID), 10))
	}
	return resp, SynthStateIdle
}

func synthHandlePause(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != SynthStateSpeaking {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, SynthStatePaused
}

func synthHandleResume(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != SynthStatePaused {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, SynthStateSpeaking
}

// synthHandleBargeIn is the server-detected barge-in path (spec.md Scenario
// A): it stops the utterance the same way STOP does, returning to idle
// without waiting for a SPEAK-COMPLETE event from the media pipeline.
func synthHandleBargeIn(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	sm.activeRequest = nil
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, SynthStateIdle
}

func synthHandleControl(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != SynthStateSpeaking {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, sm.state
}
