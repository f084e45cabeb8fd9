package resources

import (
	"strconv"

	"github.com/unimrcp-go/core/mrcp"
)

// Recognizer channel states (spec.md Scenario D: RECOGNIZE moves the
// channel from idle to recognizing; a RECOGNITION-COMPLETE event returns it
// to idle), grounded on
// original_source/libs/mrcp/resources/src/mrcp_recog_server_state_machine.c's
// RECOGNIZER_STATE_IDLE/RECOGNIZING.
const (
	RecogStateIdle State = iota
	RecogStateRecognizing
)

// NewRecognizerStateMachine builds the per-channel server-side state
// machine for resource (normally the one NewRecognizerResource returns).
func NewRecognizerStateMachine(version mrcp.Version, resource *mrcp.Resource) *StateMachine {
	return NewStateMachine(version, resource, RecogStateIdle, map[int]MethodHandler{
		RecogSetParams:             recogAlwaysAllowed,
		RecogGetParams:             recogAlwaysAllowed,
		RecogDefineGrammar:         recogRequireIdle,
		RecogRecognize:             recogHandleRecognize,
		RecogGetResult:             recogAlwaysAllowed,
		RecogStop:                  recogHandleStop,
		RecogStartPhraseEnrollment: recogRequireIdle,
		RecogEnrollmentRollback:    recogAlwaysAllowed,
		RecogEndPhraseEnrollment:   recogAlwaysAllowed,
		RecogModifyPhrase:          recogRequireIdle,
		RecogDeletePhrase:          recogRequireIdle,
	})
}

func recogAlwaysAllowed(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, sm.state
}

func recogRequireIdle(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != RecogStateIdle {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	return resp, sm.state
}

// recogHandleRecognize starts a recognition. A RECOGNIZE while already
// recognizing is rejected (spec.md §4.7 one-in-progress-request rule),
// mirroring synthHandleSpeak's reasoning for the synthesizer resource.
func recogHandleRecognize(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	if sm.state != RecogStateIdle {
		resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusMethodNotValidInState, mrcp.Complete)
		return resp, sm.state
	}
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.InProgress)
	sm.beginRequest(req)
	return resp, RecogStateRecognizing
}

// recogHandleStop cancels an in-progress recognition immediately, without
// waiting for a RECOGNITION-COMPLETE event — the symmetric operation to
// synthHandleStop. When a recognition was actually in progress, its id is
// echoed back in Active-Request-Id-List per RFC 6787 §8.4.2.
func recogHandleStop(sm *StateMachine, req *mrcp.Message) (*mrcp.Message, State) {
	stopped := sm.activeRequest
	sm.activeRequest = nil
	resp, _ := mrcp.NewResponse(sm.version, req.StartLine.RequestID, StatusSuccess, mrcp.Complete)
	if stopped != nil {
		resp.Header.Add(mrcp.GenericHeaderName(mrcp.HeaderActiveRequestIDList), strconv.FormatUint(uint64(stopped.StartLine.RequestID), 10))
	}
	return resp, RecogStateIdle
}
