package resources

import (
	"testing"

	"github.com/unimrcp-go/core/mrcp"
)

func newSynthChannel() (*mrcp.Resource, *StateMachine) {
	r := NewSynthesizerResource(1)
	return r, NewSynthesizerStateMachine(mrcp.Version2, r)
}

func newRecogChannel() (*mrcp.Resource, *StateMachine) {
	r := NewRecognizerResource(2)
	return r, NewRecognizerStateMachine(mrcp.Version2, r)
}

func TestSynthHeaderVTableRoundTrip(t *testing.T) {
	r, _ := newSynthChannel()
	id, ok := r.Header.FieldID(mrcp.Version2, "voice-age")
	if !ok || id != SynthHeaderVoiceAge {
		t.Fatalf("expected Voice-Age to resolve, got id=%d ok=%v", id, ok)
	}
	name, ok := r.Header.FieldName(mrcp.Version2, SynthHeaderCompletionCause)
	if !ok || name != "Completion-Cause" {
		t.Fatalf("expected Completion-Cause name, got %q ok=%v", name, ok)
	}
}

// TestSynthSpeakBargeInFlow walks spec.md Scenario A: SPEAK moves the
// channel to SPEAKING with an IN-PROGRESS response, BARGE-IN-OCCURRED
// returns it to IDLE and clears the in-progress request so a stray
// SPEAK-COMPLETE event arriving afterward is rejected by HandleEvent.
func TestSynthSpeakBargeInFlow(t *testing.T) {
	resource, sm := newSynthChannel()

	speak, _ := mrcp.NewRequest(mrcp.Version2, 1, SynthSpeak, "SPEAK")
	speak.Resource = resource
	resp := sm.HandleRequest(speak)
	if resp.StartLine.RequestState != mrcp.InProgress {
		t.Fatalf("expected IN-PROGRESS response to SPEAK, got %v", resp.StartLine.RequestState)
	}
	if sm.State() != SynthStateSpeaking {
		t.Fatalf("expected SynthStateSpeaking, got %v", sm.State())
	}
	if sm.ActiveRequest() == nil {
		t.Fatal("expected an active request after SPEAK")
	}

	secondSpeak, _ := mrcp.NewRequest(mrcp.Version2, 2, SynthSpeak, "SPEAK")
	secondSpeak.Resource = resource
	resp2 := sm.HandleRequest(secondSpeak)
	if resp2.StartLine.StatusCode != StatusMethodNotValidInState {
		t.Fatalf("expected a second SPEAK to be rejected while speaking, got status %d", resp2.StartLine.StatusCode)
	}

	bargeIn, _ := mrcp.NewRequest(mrcp.Version2, 3, SynthBargeInOccurred, "BARGE-IN-OCCURRED")
	bargeIn.Resource = resource
	respBI := sm.HandleRequest(bargeIn)
	if respBI.StartLine.RequestState != mrcp.Complete {
		t.Fatalf("expected COMPLETE response to BARGE-IN-OCCURRED, got %v", respBI.StartLine.RequestState)
	}
	if sm.State() != SynthStateIdle {
		t.Fatalf("expected SynthStateIdle after barge-in, got %v", sm.State())
	}

	staleComplete, _ := mrcp.NewEvent(mrcp.Version2, 1, SynthSpeakComplete, "SPEAK-COMPLETE", mrcp.Complete)
	if ok := sm.HandleEvent(staleComplete, SynthStateIdle); ok {
		t.Fatal("expected stale SPEAK-COMPLETE after barge-in to be rejected")
	}
}

func TestSynthSpeakCompletesNaturally(t *testing.T) {
	resource, sm := newSynthChannel()
	speak, _ := mrcp.NewRequest(mrcp.Version2, 1, SynthSpeak, "SPEAK")
	speak.Resource = resource
	sm.HandleRequest(speak)

	done, _ := mrcp.NewEvent(mrcp.Version2, 1, SynthSpeakComplete, "SPEAK-COMPLETE", mrcp.Complete)
	if ok := sm.HandleEvent(done, SynthStateIdle); !ok {
		t.Fatal("expected SPEAK-COMPLETE to correlate with the in-progress SPEAK")
	}
	if sm.State() != SynthStateIdle || sm.ActiveRequest() != nil {
		t.Fatalf("expected idle with no active request after SPEAK-COMPLETE, got state=%v active=%v", sm.State(), sm.ActiveRequest())
	}
}

func TestSynthPauseResume(t *testing.T) {
	resource, sm := newSynthChannel()
	speak, _ := mrcp.NewRequest(mrcp.Version2, 1, SynthSpeak, "SPEAK")
	speak.Resource = resource
	sm.HandleRequest(speak)

	pause, _ := mrcp.NewRequest(mrcp.Version2, 2, SynthPause, "PAUSE")
	pause.Resource = resource
	if resp := sm.HandleRequest(pause); resp.StartLine.StatusCode != StatusSuccess {
		t.Fatalf("expected PAUSE to succeed while speaking, got %d", resp.StartLine.StatusCode)
	}
	if sm.State() != SynthStatePaused {
		t.Fatalf("expected SynthStatePaused, got %v", sm.State())
	}

	resume, _ := mrcp.NewRequest(mrcp.Version2, 3, SynthResume, "RESUME")
	resume.Resource = resource
	if resp := sm.HandleRequest(resume); resp.StartLine.StatusCode != StatusSuccess {
		t.Fatalf("expected RESUME to succeed while paused, got %d", resp.StartLine.StatusCode)
	}
	if sm.State() != SynthStateSpeaking {
		t.Fatalf("expected SynthStateSpeaking after resume, got %v", sm.State())
	}
}

// TestRecogRecognizeFlow walks spec.md Scenario D: RECOGNIZE goes
// IN-PROGRESS, a RECOGNITION-COMPLETE event terminates it back to idle.
func TestRecogRecognizeFlow(t *testing.T) {
	resource, sm := newRecogChannel()

	recognize, _ := mrcp.NewRequest(mrcp.Version2, 1, RecogRecognize, "RECOGNIZE")
	recognize.Resource = resource
	resp := sm.HandleRequest(recognize)
	if resp.StartLine.RequestState != mrcp.InProgress {
		t.Fatalf("expected IN-PROGRESS response to RECOGNIZE, got %v", resp.StartLine.RequestState)
	}
	if sm.State() != RecogStateRecognizing {
		t.Fatalf("expected RecogStateRecognizing, got %v", sm.State())
	}

	complete, _ := mrcp.NewEvent(mrcp.Version2, 1, RecogRecognitionComplete, "RECOGNITION-COMPLETE", mrcp.Complete)
	complete.Header.AddResourceField(RecogHeaderCompletionCause, "Completion-Cause", "000 success")
	if ok := sm.HandleEvent(complete, RecogStateIdle); !ok {
		t.Fatal("expected RECOGNITION-COMPLETE to correlate with the in-progress RECOGNIZE")
	}
	if sm.State() != RecogStateIdle || sm.ActiveRequest() != nil {
		t.Fatalf("expected idle with no active request, got state=%v active=%v", sm.State(), sm.ActiveRequest())
	}
}

// TestSynthStopEchoesActiveRequestID walks spec.md Scenario D's STOP/
// Active-Request-Id-List requirement (RFC 6787 §8.4.2): stopping an
// in-progress SPEAK must echo that SPEAK's request id, not just answer bare
// 200/COMPLETE.
func TestSynthStopEchoesActiveRequestID(t *testing.T) {
	resource, sm := newSynthChannel()
	speak, _ := mrcp.NewRequest(mrcp.Version2, 5, SynthSpeak, "SPEAK")
	speak.Resource = resource
	sm.HandleRequest(speak)

	stop, _ := mrcp.NewRequest(mrcp.Version2, 6, SynthStop, "STOP")
	stop.Resource = resource
	resp := sm.HandleRequest(stop)
	if resp.StartLine.StatusCode != StatusSuccess || resp.StartLine.RequestState != mrcp.Complete {
		t.Fatalf("expected 200/COMPLETE, got status=%d state=%v", resp.StartLine.StatusCode, resp.StartLine.RequestState)
	}
	if ids, ok := resp.Header.GetGeneric(mrcp.HeaderActiveRequestIDList); !ok || ids != "5" {
		t.Fatalf("expected Active-Request-Id-List=5, got %q ok=%v", ids, ok)
	}
	if sm.State() != SynthStateIdle || sm.ActiveRequest() != nil {
		t.Fatalf("expected idle with no active request after STOP, got state=%v active=%v", sm.State(), sm.ActiveRequest())
	}
}

// TestSynthStopOnIdleChannelOmitsActiveRequestID: STOP with nothing
// in progress has no request id to echo, so the header must be absent
// rather than sent empty.
func TestSynthStopOnIdleChannelOmitsActiveRequestID(t *testing.T) {
	resource, sm := newSynthChannel()
	stop, _ := mrcp.NewRequest(mrcp.Version2, 1, SynthStop, "STOP")
	stop.Resource = resource
	resp := sm.HandleRequest(stop)
	if _, ok := resp.Header.GetGeneric(mrcp.HeaderActiveRequestIDList); ok {
		t.Fatal("expected no Active-Request-Id-List when STOP has nothing in progress")
	}
}

// TestRecogStopEchoesActiveRequestID is recogHandleStop's analogue of
// TestSynthStopEchoesActiveRequestID.
func TestRecogStopEchoesActiveRequestID(t *testing.T) {
	resource, sm := newRecogChannel()
	recognize, _ := mrcp.NewRequest(mrcp.Version2, 9, RecogRecognize, "RECOGNIZE")
	recognize.Resource = resource
	sm.HandleRequest(recognize)

	stop, _ := mrcp.NewRequest(mrcp.Version2, 10, RecogStop, "STOP")
	stop.Resource = resource
	resp := sm.HandleRequest(stop)
	if resp.StartLine.StatusCode != StatusSuccess || resp.StartLine.RequestState != mrcp.Complete {
		t.Fatalf("expected 200/COMPLETE, got status=%d state=%v", resp.StartLine.StatusCode, resp.StartLine.RequestState)
	}
	if ids, ok := resp.Header.GetGeneric(mrcp.HeaderActiveRequestIDList); !ok || ids != "9" {
		t.Fatalf("expected Active-Request-Id-List=9, got %q ok=%v", ids, ok)
	}
	if sm.State() != RecogStateIdle || sm.ActiveRequest() != nil {
		t.Fatalf("expected idle with no active request after STOP, got state=%v active=%v", sm.State(), sm.ActiveRequest())
	}
}

func TestRecogUnknownMethodIDRejected(t *testing.T) {
	_, sm := newRecogChannel()
	req, _ := mrcp.NewRequest(mrcp.Version2, 1, 999, "NOT-A-METHOD")
	resp := sm.HandleRequest(req)
	if resp.StartLine.StatusCode != StatusMethodNotAllowed {
		t.Fatalf("expected StatusMethodNotAllowed for an unrecognized method id, got %d", resp.StartLine.StatusCode)
	}
}
