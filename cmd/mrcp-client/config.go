package main

import (
	"flag"
	"os"
)

// config holds the mrcp-client demo's startup configuration.
type config struct {
	ServerAddr string
	Resource   string
	Text       string
	LogLevel   string
}

func loadConfig() *config {
	cfg := &config{}

	flag.StringVar(&cfg.ServerAddr, "server", "127.0.0.1:1544", "TCP/MRCPv2 server address to dial")
	flag.StringVar(&cfg.Resource, "resource", "speechsynth", "resource name to request a channel for")
	flag.StringVar(&cfg.Text, "text", "Hello from the MRCP client.", "plain text body sent in a SPEAK request")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if v := os.Getenv("MRCP_SERVER"); v != "" {
		cfg.ServerAddr = v
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}
