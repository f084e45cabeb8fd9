// Command mrcp-client dials a TCP/MRCPv2 server directly, adds a
// speechsynth channel, and submits one SPEAK request carrying a plain
// text body — a minimal demonstration of mrcpclient.Client's
// CreateSession/NewChannel/Submit flow, mirroring the shape of
// mrcpclient/client_test.go's startTestClient helper.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mpf/rtpengine"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcp/resources"
	"github.com/unimrcp-go/core/mrcpclient"
	"github.com/unimrcp-go/core/mrcpv2"
)

// demoHandler drives the one-shot CHANNEL_ADD-then-SPEAK flow and signals
// main once the session has nothing left to wait for.
type demoHandler struct {
	client *mrcpclient.Client
	cfg    *config
	done   chan struct{}
	once   sync.Once
}

func (h *demoHandler) OnSessionUpdate(session *mrcpclient.Session) {}

func (h *demoHandler) OnSessionTerminate(session *mrcpclient.Session) {
	h.once.Do(func() { close(h.done) })
}

func (h *demoHandler) OnChannelAdd(session *mrcpclient.Session, channel *mrcpv2.Channel, answer *descriptor.ControlMedia) {
	if answer == nil {
		h.once.Do(func() { close(h.done) })
		return
	}
	req, err := mrcp.NewRequest(mrcp.Version2, 1, resources.SynthSpeak, "SPEAK")
	if err != nil {
		h.once.Do(func() { close(h.done) })
		return
	}
	req.ChannelID = mrcp.ChannelID{SessionID: session.ID, ResourceName: h.cfg.Resource}
	req.Header.Add(mrcp.GenericHeaderName(mrcp.HeaderContentType), "text/plain")
	req.Body = []byte(h.cfg.Text)

	h.client.Submit(mrcpclient.Command{
		Kind:    mrcpclient.CommandMessage,
		Session: session,
		Channel: channel,
		Message: req,
	})
}

func (h *demoHandler) OnChannelRemove(session *mrcpclient.Session, channel *mrcpv2.Channel) {}

func (h *demoHandler) OnMessageResponse(session *mrcpclient.Session, channel *mrcp.ChannelID) {
	h.client.Submit(mrcpclient.Command{Kind: mrcpclient.CommandSessionTerminate, Session: session})
}

func (h *demoHandler) OnReceive(session *mrcpclient.Session, channel *mrcpv2.Channel, message *mrcp.Message) {
}

func main() {
	cfg := loadConfig()

	logging.Init(os.Stdout)
	logging.SetLevel(cfg.LogLevel)
	log := logging.For("main")

	registry := mrcp.NewRegistry()
	registry.Register(resources.NewSynthesizerResource(1))

	// client starts as a zero-value placeholder so connAgent and engine
	// each have a handler to register at construction time, the same
	// trick cmd/mrcp-server/main.go and client_test.go's
	// startTestClient use to break this three-way constructor cycle.
	client := &mrcpclient.Client{}

	engine := rtpengine.NewEngine(rtpengine.Config{ListenIP: "0.0.0.0", PortMin: 41000, PortMax: 41099}, client)

	connAgent := mrcpv2.NewClientAgent(mrcpv2.ClientAgentConfig{BufferSize: 8192}, registry, client)

	handler := &demoHandler{cfg: cfg, done: make(chan struct{})}
	*client = *mrcpclient.NewClient(mrcpclient.ClientConfig{}, connAgent, registry, engine, handler)
	handler.client = client

	if err := connAgent.Start(); err != nil {
		log.Error("failed to start MRCPv2 client agent", "error", err)
		os.Exit(1)
	}
	if !client.Start() {
		log.Error("failed to start client orchestrator")
		os.Exit(1)
	}

	log.Info("dialing MRCP server", "addr", cfg.ServerAddr, "resource", cfg.Resource)
	sess := client.CreateSession(cfg.ServerAddr)
	ch := sess.NewChannel(cfg.Resource, nil)
	client.Submit(mrcpclient.Command{
		Kind:    mrcpclient.CommandChannelAdd,
		Session: sess,
		Channel: ch,
		Offer:   &descriptor.ControlMedia{ResourceName: cfg.Resource, ConnectionType: descriptor.ConnectionNew},
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-handler.done:
		log.Info("session finished")
	case sig := <-sigCh:
		log.Info("received signal, shutting down", "signal", sig)
	}

	client.Stop()
	connAgent.Stop()
	fmt.Fprintln(os.Stdout, "mrcp-client: done")
}
