// Command mrcp-server runs a standalone MRCPv2 server: it accepts SIP
// INVITEs carrying an MRCP offer, answers over TCP/MRCPv2, and serves
// speechsynth/speechrecog channels backed by a real UDP/RTP media engine.
// Wiring mirrors internal/signaling/app/app.go's bootstrap sequence:
// build the transport-facing pieces first, then the orchestrator, then
// start everything and block on a signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unimrcp-go/core/internal/banner"
	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mpf/rtpengine"
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcp/resources"
	"github.com/unimrcp-go/core/mrcpserver"
	"github.com/unimrcp-go/core/mrcpserver/resourcebridge"
	"github.com/unimrcp-go/core/mrcpv2"
	"github.com/unimrcp-go/core/sipsignal"
)

func main() {
	cfg := loadConfig()

	logging.Init(os.Stdout)
	logging.SetLevel(cfg.LogLevel)
	log := logging.For("main")

	registry := mrcp.NewRegistry()
	registry.Register(resources.NewSynthesizerResource(1))
	registry.Register(resources.NewRecognizerResource(2))

	bridge := resourcebridge.New(mrcp.Version2, registry)
	bridge.Register("speechsynth", resources.NewSynthesizerStateMachine)
	bridge.Register("speechrecog", resources.NewRecognizerStateMachine)

	// server, sipAgent start as zero-value placeholders so connAgent,
	// engine and Server itself each have a handler to register at
	// construction time, even though that handler's real fields aren't
	// populated until afterward — the same trick server_test.go and
	// client_test.go use to break this same three-way constructor cycle.
	server := &mrcpserver.Server{}
	sipAgent := &sipsignal.ServerAgent{}

	engine := rtpengine.NewEngine(rtpengine.Config{
		ListenIP: cfg.RTPListenIP, PortMin: cfg.RTPPortMin, PortMax: cfg.RTPPortMax,
	}, server)

	connAgent := mrcpv2.NewServerAgent(mrcpv2.ServerAgentConfig{
		ListenAddr: cfg.MRCPv2ListenAddr, BufferSize: 8192,
	}, registry, server)

	*server = *mrcpserver.NewServer(mrcpserver.ServerConfig{}, connAgent, registry, engine, sipAgent, bridge.ChannelHandlerFactory())

	realSIPAgent, err := sipsignal.NewServerAgent(sipsignal.Config{
		BindAddr: cfg.SIPBindAddr, Port: cfg.SIPPort, AdvertiseAddr: cfg.AdvertiseAddr,
	}, server)
	if err != nil {
		log.Error("failed to create SIP agent", "error", err)
		os.Exit(1)
	}
	*sipAgent = *realSIPAgent

	if err := connAgent.Start(); err != nil {
		log.Error("failed to start MRCPv2 agent", "error", err)
		os.Exit(1)
	}
	if !server.Start() {
		log.Error("failed to start session orchestrator")
		os.Exit(1)
	}

	banner.Print("MRCP Server", []banner.ConfigLine{
		{Label: "SIP", Value: cfg.SIPBindAddr},
		{Label: "MRCPv2", Value: cfg.MRCPv2ListenAddr},
		{Label: "RTP ports", Value: fmt.Sprintf("%s:%d-%d", cfg.RTPListenIP, cfg.RTPPortMin, cfg.RTPPortMax)},
		{Label: "Advertise", Value: cfg.AdvertiseAddr},
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := sipAgent.ListenAndServe(ctx); err != nil {
			log.Error("SIP agent stopped", "error", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig)

	cancel()
	sipAgent.Close()
	server.Stop()
	connAgent.Stop()
}
