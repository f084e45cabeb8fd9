package mrcpserver

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/mpf"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcp/resources"
	"github.com/unimrcp-go/core/mrcpv2"
)

// fakeEngine is a mock mpf.Engine: every Send gets an asynchronous
// response on its own goroutine, mirroring how a real media-pipeline
// engine answers through its own worker rather than inline from Send.
type fakeEngine struct {
	handler mpf.EventHandler

	mu      sync.Mutex
	nextID  int
	localIP string
}

func newFakeEngine(handler mpf.EventHandler) *fakeEngine {
	return &fakeEngine{handler: handler, localIP: "127.0.0.1"}
}

func (e *fakeEngine) CreateContext(id string, maxTerminations int) *mpf.Context {
	return mpf.NewContext(id, maxTerminations)
}

func (e *fakeEngine) CreateTermination(ctx *mpf.Context, obj any) *mpf.Termination {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.mu.Unlock()
	return &mpf.Termination{ID: fmt.Sprintf("term%d", id), Obj: obj}
}

func (e *fakeEngine) Send(msg *mpf.Message) {
	go func() {
		resp := *msg
		resp.Type = mpf.MessageResponse
		resp.Status = true
		if msg.Command == mpf.CommandAdd || msg.Command == mpf.CommandModify {
			resp.Descriptor = &mpf.RTPDescriptor{Local: &mpf.AudioEndpoint{IP: e.localIP, Port: 5000, Codec: "PCMU"}}
		}
		e.handler.OnMessage(&resp)
	}()
}

type recordingSignaling struct {
	mu         sync.Mutex
	answers    []*descriptor.Session
	rejected   []string
	terminated []string

	answerCh     chan *descriptor.Session
	terminatedCh chan string
}

func newRecordingSignaling() *recordingSignaling {
	return &recordingSignaling{
		answerCh:     make(chan *descriptor.Session, 8),
		terminatedCh: make(chan string, 8),
	}
}

func (h *recordingSignaling) OnAnswer(sessionID string, answer *descriptor.Session) {
	h.mu.Lock()
	h.answers = append(h.answers, answer)
	h.mu.Unlock()
	h.answerCh <- answer
}

func (h *recordingSignaling) OnOfferRejected(sessionID string, reason string) {
	h.mu.Lock()
	h.rejected = append(h.rejected, reason)
	h.mu.Unlock()
}

func (h *recordingSignaling) OnTerminated(sessionID string) {
	h.mu.Lock()
	h.terminated = append(h.terminated, sessionID)
	h.mu.Unlock()
	h.terminatedCh <- sessionID
}

func newTestRegistry() *mrcp.Registry {
	reg := mrcp.NewRegistry()
	reg.Register(resources.NewSynthesizerResource(1))
	return reg
}

func startTestServer(t *testing.T) (*Server, *recordingSignaling) {
	t.Helper()
	sig := newRecordingSignaling()
	srv := &Server{}
	connAgent := mrcpv2.NewServerAgent(mrcpv2.ServerAgentConfig{
		ListenAddr:        "127.0.0.1:0",
		BufferSize:        512,
		PendingChannelTTL: time.Minute,
	}, newTestRegistry(), srv)
	*srv = *NewServer(ServerConfig{}, connAgent, newTestRegistry(), newFakeEngine(srv), sig, nil)

	if err := connAgent.Start(); err != nil {
		t.Fatalf("connAgent.Start: %v", err)
	}
	if !srv.Start() {
		t.Fatal("Server.Start returned false")
	}
	t.Cleanup(func() {
		srv.Stop()
		connAgent.Stop()
	})
	return srv, sig
}

func waitAnswer(t *testing.T, ch chan *descriptor.Session) *descriptor.Session {
	t.Helper()
	select {
	case a := <-ch:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for answer")
		return nil
	}
}

func TestProcessOfferAssemblesAnswerFromControlAndAudio(t *testing.T) {
	srv, sig := startTestServer(t)

	offer := descriptor.NewSession("sess1", "192.0.2.10")
	offer.AddControlMedia(descriptor.ControlMedia{
		Proto: descriptor.ProtoTCP, Setup: descriptor.SetupActive,
		ConnectionType: descriptor.ConnectionNew, ResourceName: "speechsynth",
	})
	offer.AddAudioMedia(descriptor.AudioMedia{Port: 4000, Codec: "PCMU"})

	srv.ProcessOffer("sess1", offer)

	answer := waitAnswer(t, sig.answerCh)
	if len(answer.ControlMedia) != 1 || answer.ControlMedia[0].SessionID != "sess1" {
		t.Fatalf("answer control media = %+v", answer.ControlMedia)
	}
	if len(answer.AudioMedia) != 1 || answer.AudioMedia[0].Port != 5000 || answer.AudioMedia[0].Codec != "PCMU" {
		t.Fatalf("answer audio media = %+v", answer.AudioMedia)
	}
	if answer.IP != "127.0.0.1" {
		t.Fatalf("answer ip = %q, want engine's local ip", answer.IP)
	}
}

func TestSecondOfferWhileInProgressIsRejected(t *testing.T) {
	srv, sig := startTestServer(t)

	offer := descriptor.NewSession("sess2", "192.0.2.10")
	offer.AddControlMedia(descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})
	offer.AddAudioMedia(descriptor.AudioMedia{Port: 4001, Codec: "PCMU"})

	// Both calls queue on the same ConsumerTask before either's async
	// control/audio replies land, so the second necessarily finds
	// sess.offer still set from the first — exercising the
	// one-offer-in-flight rule without needing to pin internal state.
	srv.ProcessOffer("sess2", offer)
	srv.ProcessOffer("sess2", offer)

	deadline := time.After(time.Second)
	for {
		sig.mu.Lock()
		n := len(sig.rejected)
		sig.mu.Unlock()
		if n > 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("OnOfferRejected never called")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestTerminateDrivesQuiescenceAndFiresOnTerminated(t *testing.T) {
	srv, sig := startTestServer(t)

	offer := descriptor.NewSession("sess3", "192.0.2.10")
	offer.AddControlMedia(descriptor.ControlMedia{ResourceName: "speechsynth", ConnectionType: descriptor.ConnectionNew})
	offer.AddAudioMedia(descriptor.AudioMedia{Port: 4002, Codec: "PCMU"})

	srv.ProcessOffer("sess3", offer)
	waitAnswer(t, sig.answerCh)

	srv.Terminate("sess3")

	select {
	case id := <-sig.terminatedCh:
		if id != "sess3" {
			t.Fatalf("terminated session id = %q, want sess3", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnTerminated never called")
	}
}
