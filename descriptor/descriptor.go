// Package descriptor models the MRCP session descriptor (spec.md §3, C6):
// the offer/answer data an MRCP session negotiates over its signaling
// channel, stripped of any SDP wire syntax. Package sipsignal is
// responsible for marshaling a Session to and from real SDP (using
// pion/sdp/v3) — the core itself never parses or generates SDP text, only
// this plain data (spec.md's explicit non-goal: "the core does not parse
// SDP itself").
package descriptor

// TransportProto is a control-media channel's transport.
type TransportProto int

const (
	ProtoTCP TransportProto = iota
	ProtoTCPTLS
)

func (p TransportProto) String() string {
	if p == ProtoTCPTLS {
		return "TCP/TLS"
	}
	return "TCP"
}

// SetupType is the MRCPv2 TCP connection-setup role (RFC 6787 §5.3's
// "setup" attribute): which side of the pair dials.
type SetupType int

const (
	SetupActive SetupType = iota
	SetupPassive
)

func (s SetupType) String() string {
	if s == SetupPassive {
		return "passive"
	}
	return "active"
}

// ConnectionType distinguishes a control-media entry that must open a new
// TCP connection from one that reuses an already-established connection
// (spec.md §3 "connection-type ∈ {new, existing}" — the cmid mechanism
// that lets several channels from the same pair of endpoints share one
// MRCPv2 connection).
type ConnectionType int

const (
	ConnectionNew ConnectionType = iota
	ConnectionExisting
)

func (c ConnectionType) String() string {
	if c == ConnectionExisting {
		return "existing"
	}
	return "new"
}

// ControlMedia is one channel's worth of MRCPv2 control-media negotiation
// state (spec.md §3): the resource the channel is for, the TCP
// setup/connection-type pair, and the cmid group it shares with any other
// control-media lines that reuse its connection. SessionID is set on the
// answer side once a session-id has been assigned or resolved (spec.md §3:
// "session-id (on answers)").
type ControlMedia struct {
	Proto          TransportProto
	Setup          SetupType
	ConnectionType ConnectionType
	ResourceName   string
	SessionID      string
	CMID           int
}

// AudioMedia is one audio RTP stream's negotiated port and codec (spec.md
// Scenario A: "port=4000, codec=PCMU/8000").
type AudioMedia struct {
	Port  int
	Codec string
}

// VideoMedia mirrors AudioMedia for a video RTP stream.
type VideoMedia struct {
	Port  int
	Codec string
}

// Session is a full session descriptor: session-level origin/IP plus the
// ordered control-media (one per channel), audio-media, and video-media
// arrays spec.md §3 describes. Order matters — an answer's Nth control-media
// entry answers the offer's Nth entry, the same positional correspondence
// SDP's m= line ordering encodes.
type Session struct {
	Origin string
	IP     string

	ControlMedia []ControlMedia
	AudioMedia   []AudioMedia
	VideoMedia   []VideoMedia
}

// NewSession creates an empty descriptor for origin/ip, ready to have
// media appended as channels and streams are negotiated.
func NewSession(origin, ip string) *Session {
	return &Session{Origin: origin, IP: ip}
}

// AddControlMedia appends a control-media entry and returns its index
// (used as the channel's position for offer/answer correspondence).
func (s *Session) AddControlMedia(cm ControlMedia) int {
	s.ControlMedia = append(s.ControlMedia, cm)
	return len(s.ControlMedia) - 1
}

// AddAudioMedia appends an audio-media entry and returns its index.
func (s *Session) AddAudioMedia(m AudioMedia) int {
	s.AudioMedia = append(s.AudioMedia, m)
	return len(s.AudioMedia) - 1
}

// AddVideoMedia appends a video-media entry and returns its index.
func (s *Session) AddVideoMedia(m VideoMedia) int {
	s.VideoMedia = append(s.VideoMedia, m)
	return len(s.VideoMedia) - 1
}

// RemoveControlMedia marks the control-media entry at idx as removed
// (spec.md's CHANNEL-REMOVE semantics: the position is preserved — a later
// re-offer can reuse the slot — but the entry itself is zeroed so it no
// longer references a live resource/session).
func (s *Session) RemoveControlMedia(idx int) {
	if idx < 0 || idx >= len(s.ControlMedia) {
		return
	}
	s.ControlMedia[idx] = ControlMedia{}
}
