package mrcpv2

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcp/resources"
	"github.com/unimrcp-go/core/stream"
)

type recordingHandler struct {
	mu       sync.Mutex
	modified []*descriptor.ControlMedia
	removed  []*Channel
	received []*mrcp.Message

	onReceive chan *mrcp.Message
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{onReceive: make(chan *mrcp.Message, 8)}
}

func (h *recordingHandler) OnModify(channel *Channel, answer *descriptor.ControlMedia) {
	h.mu.Lock()
	h.modified = append(h.modified, answer)
	h.mu.Unlock()
}

func (h *recordingHandler) OnRemove(channel *Channel) {
	h.mu.Lock()
	h.removed = append(h.removed, channel)
	h.mu.Unlock()
}

func (h *recordingHandler) OnReceive(channel *Channel, message *mrcp.Message) {
	h.mu.Lock()
	h.received = append(h.received, message)
	h.mu.Unlock()
	h.onReceive <- message
}

func newTestRegistry() *mrcp.Registry {
	reg := mrcp.NewRegistry()
	reg.Register(resources.NewSynthesizerResource(1))
	return reg
}

func startTestAgent(t *testing.T, handler ServerEventHandler) *ServerAgent {
	t.Helper()
	reg := newTestRegistry()
	a := NewServerAgent(ServerAgentConfig{
		ListenAddr:        "127.0.0.1:0",
		BufferSize:        512,
		PendingChannelTTL: time.Minute,
	}, reg, handler)
	if err := a.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(a.Stop)
	return a
}

func TestAddChannelAnswersThroughHandler(t *testing.T) {
	h := newRecordingHandler()
	a := startTestAgent(t, h)

	ch := a.CreateChannel("sess1", "speechsynth", nil)
	a.AddChannel(ch, &descriptor.ControlMedia{
		Proto:          descriptor.ProtoTCP,
		Setup:          descriptor.SetupActive,
		ConnectionType: descriptor.ConnectionNew,
		ResourceName:   "speechsynth",
	})

	deadline := time.After(time.Second)
	for {
		h.mu.Lock()
		n := len(h.modified)
		h.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("OnModify never called")
		case <-time.After(5 * time.Millisecond):
		}
	}

	h.mu.Lock()
	answer := h.modified[0]
	h.mu.Unlock()
	if answer.SessionID != "sess1" {
		t.Fatalf("answer session id = %q, want sess1", answer.SessionID)
	}
}

// TestChannelAssociatesWithFirstConnection exercises the pending-connection
// mechanism end to end: a channel is offered (joining the shared pending
// connection), a peer then dials in, and the first message on that socket
// whose Channel-Identifier matches the pending channel associates it with
// the real connection — mirroring mrcp_connection_channel_associate.
func TestChannelAssociatesWithFirstConnection(t *testing.T) {
	h := newRecordingHandler()
	a := startTestAgent(t, h)

	ch := a.CreateChannel("sess1", "speechsynth", "obj")
	a.AddChannel(ch, &descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})

	conn, err := net.Dial("tcp", a.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	msg, err := mrcp.NewRequest(mrcp.Version2, 1, resources.SynthSetParams, "SET-PARAMS")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	msg.ChannelID = mrcp.ChannelID{SessionID: "sess1", ResourceName: "speechsynth"}

	buf := make([]byte, 2048)
	w := stream.NewWriter(buf)
	gen := mrcp.NewGenerator(mrcp.Version2)
	if status := gen.Run(w, msg); status != stream.Written {
		t.Fatalf("generate status = %v", status)
	}
	if _, err := conn.Write(w.Written()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	select {
	case got := <-h.onReceive:
		if got.ChannelID.SessionID != "sess1" {
			t.Fatalf("received message for session %q, want sess1", got.ChannelID.SessionID)
		}
		if got.StartLine.MethodID != resources.SynthSetParams {
			t.Fatalf("method id = %d, want %d", got.StartLine.MethodID, resources.SynthSetParams)
		}
	case <-time.After(time.Second):
		t.Fatal("OnReceive never called")
	}

	if ch.Connection() == nil {
		t.Fatal("channel did not associate with the accepted connection")
	}
}

// TestTwoPendingChannelsAssociateWithDistinctConnections reproduces the
// accept-path bug scenario: two sessions each offer a channel before either
// peer connects (both sit in the single shared pending bucket, per the §3
// data model — testable property 6), then two peers dial in one after the
// other. Each accept must allocate its own Connection and each channel must
// migrate only onto the connection whose first frame names it — never both
// channels ending up on the first peer while the second is rejected.
func TestTwoPendingChannelsAssociateWithDistinctConnections(t *testing.T) {
	h := newRecordingHandler()
	a := startTestAgent(t, h)

	ch1 := a.CreateChannel("sessA", "speechsynth", nil)
	a.AddChannel(ch1, &descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})
	ch2 := a.CreateChannel("sessB", "speechsynth", nil)
	a.AddChannel(ch2, &descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})

	dialAndSend := func(sessionID string) {
		conn, err := net.Dial("tcp", a.Addr().String())
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		defer conn.Close()

		msg, err := mrcp.NewRequest(mrcp.Version2, 1, resources.SynthSetParams, "SET-PARAMS")
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		msg.ChannelID = mrcp.ChannelID{SessionID: sessionID, ResourceName: "speechsynth"}

		buf := make([]byte, 2048)
		w := stream.NewWriter(buf)
		if status := mrcp.NewGenerator(mrcp.Version2).Run(w, msg); status != stream.Written {
			t.Fatalf("generate status = %v", status)
		}
		if _, err := conn.Write(w.Written()); err != nil {
			t.Fatalf("Write: %v", err)
		}

		select {
		case got := <-h.onReceive:
			if got.ChannelID.SessionID != sessionID {
				t.Fatalf("received message for session %q, want %q", got.ChannelID.SessionID, sessionID)
			}
		case <-time.After(time.Second):
			t.Fatalf("OnReceive never called for session %q", sessionID)
		}
	}

	dialAndSend("sessA")
	dialAndSend("sessB")

	if ch1.Connection() == nil || ch2.Connection() == nil {
		t.Fatal("both channels must associate with an accepted connection")
	}
	if ch1.Connection() == ch2.Connection() {
		t.Fatal("each session dialed its own socket; channels must not share a connection")
	}
}

// TestUnknownChannelAnswersUnrecognizedMessage exercises spec.md §4.4/§7: a
// message naming a channel the connection (and the pending bucket) has
// never heard of gets a 481 UNRECOGNIZED_MESSAGE response rather than being
// silently dropped, and the connection stays usable afterward.
func TestUnknownChannelAnswersUnrecognizedMessage(t *testing.T) {
	h := newRecordingHandler()
	a := startTestAgent(t, h)

	// Give the pending bucket a reason to accept at all.
	ch := a.CreateChannel("sess1", "speechsynth", nil)
	a.AddChannel(ch, &descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})

	conn, err := net.Dial("tcp", a.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	msg, err := mrcp.NewRequest(mrcp.Version2, 42, resources.SynthSetParams, "SET-PARAMS")
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	msg.ChannelID = mrcp.ChannelID{SessionID: "nobody-offered-this", ResourceName: "speechsynth"}

	buf := make([]byte, 2048)
	w := stream.NewWriter(buf)
	if status := mrcp.NewGenerator(mrcp.Version2).Run(w, msg); status != stream.Written {
		t.Fatalf("generate status = %v", status)
	}
	if _, err := conn.Write(w.Written()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reg := newTestRegistry()
	parser := mrcp.NewParser(reg, mrcp.Version2)
	readBuf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(readBuf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	resp, status := parser.Run(stream.New(readBuf[:n]))
	if status != stream.Complete {
		t.Fatalf("expected a complete response, got status %v", status)
	}
	if resp.StartLine.Kind != mrcp.KindResponse || resp.StartLine.StatusCode != mrcp.StatusUnrecognizedMessage {
		t.Fatalf("expected 481 UNRECOGNIZED_MESSAGE, got kind=%v status=%d", resp.StartLine.Kind, resp.StartLine.StatusCode)
	}
	if resp.StartLine.RequestID != 42 {
		t.Fatalf("expected echoed request id 42, got %d", resp.StartLine.RequestID)
	}
}

func TestRemoveChannelFiresOnRemove(t *testing.T) {
	h := newRecordingHandler()
	a := startTestAgent(t, h)

	ch := a.CreateChannel("sess2", "speechsynth", nil)
	a.AddChannel(ch, &descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})
	a.RemoveChannel(ch)

	deadline := time.After(time.Second)
	for {
		h.mu.Lock()
		n := len(h.removed)
		h.mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("OnRemove never called")
		case <-time.After(5 * time.Millisecond):
		}
	}
}
