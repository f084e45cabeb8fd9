package main

import (
	"flag"
	"net"
	"os"
	"strconv"
)

// config holds the MRCP server's startup configuration, loaded from flags
// and then overridden by environment variables — the same two-pass
// precedence services/signaling/config.Load uses.
type config struct {
	SIPBindAddr   string
	SIPPort       int
	AdvertiseAddr string
	LogLevel      string

	MRCPv2ListenAddr string

	RTPListenIP string
	RTPPortMin  int
	RTPPortMax  int
}

func loadConfig() *config {
	cfg := &config{}

	flag.StringVar(&cfg.SIPBindAddr, "sip-bind", "0.0.0.0", "SIP bind address")
	flag.IntVar(&cfg.SIPPort, "sip-port", 5060, "SIP listening port")
	flag.StringVar(&cfg.AdvertiseAddr, "advertise", "", "address advertised in SDP (auto-detected if unset)")
	flag.StringVar(&cfg.LogLevel, "loglevel", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&cfg.MRCPv2ListenAddr, "mrcpv2-listen", "0.0.0.0:1544", "TCP/MRCPv2 listen address")
	flag.StringVar(&cfg.RTPListenIP, "rtp-listen-ip", "0.0.0.0", "interface RTP termination sockets bind on")
	flag.IntVar(&cfg.RTPPortMin, "rtp-port-min", 40000, "first RTP port in the allocation range")
	flag.IntVar(&cfg.RTPPortMax, "rtp-port-max", 40199, "last RTP port in the allocation range")
	flag.Parse()

	if v := os.Getenv("SIP_BIND"); v != "" {
		cfg.SIPBindAddr = v
	}
	if v := os.Getenv("SIP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.SIPPort = p
		}
	}
	if v := os.Getenv("ADVERTISE"); v != "" {
		cfg.AdvertiseAddr = v
	} else if cfg.AdvertiseAddr == "" {
		cfg.AdvertiseAddr = primaryInterfaceIP()
	}
	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MRCPV2_LISTEN"); v != "" {
		cfg.MRCPv2ListenAddr = v
	}

	return cfg
}

// primaryInterfaceIP mirrors services/signaling/config's
// getPrimaryInterfaceIP: the first non-loopback IPv4 address of an
// up interface, falling back to loopback when none is found.
func primaryInterfaceIP() string {
	interfaces, err := net.Interfaces()
	if err != nil {
		return "127.0.0.1"
	}
	for _, iface := range interfaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return "127.0.0.1"
}
