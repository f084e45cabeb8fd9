package mrcp

import (
	"testing"

	"github.com/unimrcp-go/core/stream"
)

type testHeaderVTable struct{}

func (testHeaderVTable) Name() string { return "synthesizer" }

func (testHeaderVTable) FieldID(version Version, name string) (int, bool) {
	switch name {
	case "Voice-Age":
		return 1, true
	case "Completion-Cause":
		return 2, true
	}
	return 0, false
}

func (testHeaderVTable) FieldName(version Version, id int) (string, bool) {
	switch id {
	case 1:
		return "Voice-Age", true
	case 2:
		return "Completion-Cause", true
	}
	return "", false
}

func testRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(&Resource{
		ID:   1,
		Name: "speechsynth",
		Methods: MethodTable{
			V2: []string{"SET-PARAMS", "GET-PARAMS", "SPEAK", "STOP", "PAUSE", "RESUME", "BARGE-IN-OCCURRED", "CONTROL"},
		},
		Events: EventTable{
			V2: []string{"SPEECH-MARKER", "SPEAK-COMPLETE"},
		},
		Header: testHeaderVTable{},
	})
	return reg
}

func TestRequestGenerateParseRoundTrip(t *testing.T) {
	reg := testRegistry()
	resource, _ := reg.ByName("speechsynth")

	req, err := NewRequest(Version2, 1, 2, "SPEAK")
	if err != nil {
		t.Fatal(err)
	}
	req.ChannelID = ChannelID{SessionID: "0123456789ABCDEF", ResourceName: "speechsynth"}
	req.Header.Add("Content-Type", "application/synthesis+ssml")
	req.Body = []byte("<speak>hello</speak>")

	buf := make([]byte, 512)
	w := stream.NewWriter(buf)
	gen := NewGenerator(Version2)
	if status := gen.Run(w, req); status != stream.Written {
		t.Fatalf("expected Written, got %v", status)
	}

	parser := NewParser(reg, Version2)
	r := stream.New(w.Written())
	msg, status := parser.Run(r)
	if status != stream.Complete {
		t.Fatalf("expected Complete, got %v", status)
	}
	if msg.StartLine.Kind != KindRequest || msg.StartLine.MethodName != "SPEAK" || msg.StartLine.RequestID != 1 {
		t.Fatalf("unexpected start line: %+v", msg.StartLine)
	}
	if msg.Resource != resource {
		t.Fatalf("expected resource resolved to %v, got %v", resource, msg.Resource)
	}
	if msg.StartLine.MethodID != 2 {
		t.Fatalf("expected method id 2 (SPEAK), got %d", msg.StartLine.MethodID)
	}
	if msg.ChannelID.ResourceName != "speechsynth" {
		t.Fatalf("unexpected channel id: %+v", msg.ChannelID)
	}
	if string(msg.Body) != "<speak>hello</speak>" {
		t.Fatalf("unexpected body: %q", msg.Body)
	}
	if ct, ok := msg.Header.GetGeneric(HeaderContentType); !ok || ct != "application/synthesis+ssml" {
		t.Fatalf("expected Content-Type preserved, got %q ok=%v", ct, ok)
	}
	if _, ok := msg.Header.GetByName("Channel-Identifier"); ok {
		t.Fatal("Channel-Identifier must not be stored in the header ring; ChannelID already carries it")
	}
	if len(msg.Header.Fields()) != 2 {
		t.Fatalf("expected only Content-Type and Content-Length in the header ring, got %+v", msg.Header.Fields())
	}

	// Re-generating the parsed message must emit Channel-Identifier exactly
	// once — a second copy in the header ring would double it.
	buf2 := make([]byte, 512)
	w2 := stream.NewWriter(buf2)
	if status := NewGenerator(Version2).Run(w2, msg); status != stream.Written {
		t.Fatalf("expected Written on re-generate, got %v", status)
	}
	if got, want := string(w2.Written()), string(w.Written()); got != want {
		t.Fatalf("generate(parse(generate(req))) != generate(req):\n got:  %q\n want: %q", got, want)
	}
}

func TestEventGenerateParseRoundTrip(t *testing.T) {
	reg := testRegistry()
	ev, err := NewEvent(Version2, 1, 1, "SPEAK-COMPLETE", Complete)
	if err != nil {
		t.Fatal(err)
	}
	ev.ChannelID = ChannelID{SessionID: "0123456789ABCDEF", ResourceName: "speechsynth"}
	ev.Header.AddResourceField(2, "Completion-Cause", "000 normal")

	buf := make([]byte, 512)
	w := stream.NewWriter(buf)
	NewGenerator(Version2).Run(w, ev)

	parser := NewParser(reg, Version2)
	msg, status := parser.Run(stream.New(w.Written()))
	if status != stream.Complete {
		t.Fatalf("expected Complete, got %v", status)
	}
	if msg.StartLine.Kind != KindEvent || msg.StartLine.EventName != "SPEAK-COMPLETE" {
		t.Fatalf("unexpected start line: %+v", msg.StartLine)
	}
	if msg.StartLine.RequestState != Complete {
		t.Fatalf("expected request-state COMPLETE, got %v", msg.StartLine.RequestState)
	}
	if v, ok := msg.Header.GetResource(2); !ok || v != "000 normal" {
		t.Fatalf("expected Completion-Cause preserved, got %q ok=%v", v, ok)
	}
}

func TestParserSplitFeedV2(t *testing.T) {
	reg := testRegistry()
	req, _ := NewRequest(Version2, 7, 2, "SPEAK")
	req.ChannelID = ChannelID{SessionID: "ABCDEF0123456789", ResourceName: "speechsynth"}
	req.Body = []byte("hello world")

	buf := make([]byte, 512)
	w := stream.NewWriter(buf)
	NewGenerator(Version2).Run(w, req)
	raw := w.Written()

	half := len(raw) / 2
	parser := NewParser(reg, Version2)

	full := make([]byte, len(raw))
	copy(full, raw[:half])
	s1 := stream.New(full[:half])
	if _, status := parser.Run(s1); status != stream.Incomplete {
		t.Fatalf("expected Incomplete on first half, got %v", status)
	}

	copy(full, raw)
	s2 := stream.New(full)
	msg, status := parser.Run(s2)
	if status != stream.Complete {
		t.Fatalf("expected Complete once full data available, got %v", status)
	}
	if string(msg.Body) != "hello world" {
		t.Fatalf("expected body preserved across split feed, got %q", msg.Body)
	}
}

// An unrecognized method name on an otherwise well-formed message is a
// protocol violation, not a parse error (spec.md §7): parsing completes
// normally and the message comes back flagged Unresolved so the caller can
// answer BAD_REQUEST instead of forwarding it, rather than the connection
// losing its framing the way a genuine parse error would.
func TestParserUnrecognizedMethodNameCompletesUnresolved(t *testing.T) {
	reg := testRegistry()
	req, _ := NewRequest(Version2, 1, 0, "NOT-A-REAL-METHOD")
	req.ChannelID = ChannelID{SessionID: "0123456789ABCDEF", ResourceName: "speechsynth"}

	buf := make([]byte, 256)
	w := stream.NewWriter(buf)
	NewGenerator(Version2).Run(w, req)

	parser := NewParser(reg, Version2)
	msg, status := parser.Run(stream.New(w.Written()))
	if status != stream.Complete {
		t.Fatalf("expected Complete for a well-formed message, got %v", status)
	}
	if !msg.Unresolved {
		t.Fatal("expected Unresolved to be set for an unrecognized method name")
	}
}

func TestParserV1NoChannelIdentifierUsesInjectedResource(t *testing.T) {
	reg := testRegistry()
	resource, _ := reg.ByName("speechsynth")

	raw := "MRCP/1.0 1 SPEAK\r\nContent-Type: application/synthesis+ssml\r\nContent-Length: 5\r\n\r\nhello"
	parser := NewParser(reg, Version1)
	parser.SetResource(resource)

	msg, status := parser.Run(stream.New([]byte(raw)))
	if status != stream.Complete {
		t.Fatalf("expected Complete, got %v", status)
	}
	if msg.Resource != resource {
		t.Fatalf("expected injected resource to be used, got %v", msg.Resource)
	}
	if msg.StartLine.MethodID != 2 {
		t.Fatalf("expected SPEAK resolved via injected resource, got method id %d", msg.StartLine.MethodID)
	}
	if string(msg.Body) != "hello" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
}

func TestHeaderAddNameOnly(t *testing.T) {
	h := NewHeader()
	h.AddNameOnly("voice-age")
	fields := h.Fields()
	if len(fields) != 1 || !fields[0].NameOnly || fields[0].Name != "voice-age" {
		t.Fatalf("unexpected fields: %+v", fields)
	}
}

func TestNewRequestRejectsZeroRequestID(t *testing.T) {
	if _, err := NewRequest(Version2, 0, 0, "SPEAK"); err != ErrInvalidRequestID {
		t.Fatalf("expected ErrInvalidRequestID, got %v", err)
	}
}

func TestNewSessionIDLength(t *testing.T) {
	id := NewSessionID()
	if len(id) != 16 {
		t.Fatalf("expected 16-char session id, got %q (%d chars)", id, len(id))
	}
}
