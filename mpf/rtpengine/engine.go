// Package rtpengine is the reference mpf.Engine this repository ships:
// a real UDP/RTP transport standing in for the original's native media
// processing framework. Grounded throughout on
// internal/rtpmanager/media (RTPSession, RTPStreamWriter, Codec), the
// teacher's own RTP/codec package, since no mpf-side .c file was present
// in original_source/ to ground the engine's internals directly —
// mpf_engine.h only declares the contract mpf.Engine already models.
package rtpengine

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/unimrcp-go/core/internal/logging"
	"github.com/unimrcp-go/core/mpf"
)

// Config configures an Engine.
type Config struct {
	ListenIP    string // interface to bind termination sockets on
	PortMin     int    // inclusive
	PortMax     int    // inclusive
	MaxAttempts int    // ports tried before ADD gives up; 0 means defaultMaxPortAttempts
}

const defaultMaxPortAttempts = 64

// Engine binds each termination a real UDP socket in [PortMin, PortMax]
// and packetizes/depacketizes RTP over it, transcoding to/from G.711 on
// the wire. One Engine typically serves an entire mrcpserver.Server or
// mrcpclient.Client process.
type Engine struct {
	cfg     Config
	handler mpf.EventHandler
	log     *slog.Logger

	mu           sync.Mutex
	nextPort     int
	terminations map[string]*termination
	seq          int
}

// NewEngine creates an Engine that reports outcomes to handler.
func NewEngine(cfg Config, handler mpf.EventHandler) *Engine {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxPortAttempts
	}
	return &Engine{
		cfg: cfg, handler: handler,
		log:          logging.For("rtpengine"),
		nextPort:     cfg.PortMin,
		terminations: make(map[string]*termination),
	}
}

// CreateContext implements mpf.Engine.
func (e *Engine) CreateContext(id string, maxTerminations int) *mpf.Context {
	return mpf.NewContext(id, maxTerminations)
}

// CreateTermination implements mpf.Engine. The termination carries no
// socket yet — one is bound only once an ADD command arrives, matching
// mpf_termination_create's separation from the later ADD's resource
// allocation.
func (e *Engine) CreateTermination(ctx *mpf.Context, obj any) *mpf.Termination {
	e.mu.Lock()
	e.seq++
	id := fmt.Sprintf("rtp-term-%d", e.seq)
	e.mu.Unlock()

	t := &mpf.Termination{ID: id, Obj: obj}
	ctx.Add(t)
	return t
}

// Send implements mpf.Engine, dispatching the command on its own
// goroutine and always replying asynchronously through handler — never
// synchronously from Send, per mpf.Engine's contract.
func (e *Engine) Send(msg *mpf.Message) {
	go e.handle(msg)
}

func (e *Engine) handle(msg *mpf.Message) {
	switch msg.Command {
	case mpf.CommandAdd:
		e.handleAdd(msg)
	case mpf.CommandModify:
		e.handleModify(msg)
	case mpf.CommandSubtract:
		e.handleSubtract(msg)
	}
}

func (e *Engine) respond(msg *mpf.Message, status bool, desc *mpf.RTPDescriptor) {
	e.handler.OnMessage(&mpf.Message{
		Type: mpf.MessageResponse, Command: msg.Command,
		Context: msg.Context, Termination: msg.Termination,
		Descriptor: desc, Status: status,
	})
}

// handleAdd binds a fresh UDP socket for msg.Termination, mirroring
// mpf_termination_add's local-resource allocation: the reply's
// Descriptor.Local carries the bound IP/port the session orchestrator
// copies into its own answer (mrcpserver) or offer (mrcpclient).
func (e *Engine) handleAdd(msg *mpf.Message) {
	codec := CodecPCMU
	if msg.Descriptor != nil && msg.Descriptor.Remote != nil && msg.Descriptor.Remote.Codec != "" {
		if c, err := codecByName(msg.Descriptor.Remote.Codec); err == nil {
			codec = c
		}
	}

	conn, err := e.bindSocket()
	if err != nil {
		e.log.Warn("rtpengine: ADD failed to bind a socket", "termination", msg.Termination.ID, "error", err)
		e.respond(msg, false, nil)
		return
	}

	term := newTermination(msg.Termination.ID, conn, codec, e.log)
	e.mu.Lock()
	e.terminations[msg.Termination.ID] = term
	e.mu.Unlock()

	go term.readLoop(nil)

	e.respond(msg, true, &mpf.RTPDescriptor{
		Local: &mpf.AudioEndpoint{IP: e.cfg.ListenIP, Port: term.localPort(), Codec: codec.Name},
	})
}

// handleModify records the peer the offer/answer's other side resolved to,
// mirroring mpf_termination_modify storing descriptor.remote before any
// packet can be sent — spec.md §4.5's "audio.remote = offer audio media".
func (e *Engine) handleModify(msg *mpf.Message) {
	term := e.find(msg.Termination.ID)
	if term == nil {
		e.respond(msg, false, nil)
		return
	}
	if msg.Descriptor == nil || msg.Descriptor.Remote == nil {
		e.respond(msg, true, nil)
		return
	}
	codec := term.codec
	if msg.Descriptor.Remote.Codec != "" {
		if c, err := codecByName(msg.Descriptor.Remote.Codec); err == nil {
			codec = c
		}
	}
	term.setRemote(msg.Descriptor.Remote.IP, msg.Descriptor.Remote.Port, codec)
	e.respond(msg, true, &mpf.RTPDescriptor{Remote: msg.Descriptor.Remote})
}

// handleSubtract releases a termination's socket, mirroring
// mpf_termination_subtract.
func (e *Engine) handleSubtract(msg *mpf.Message) {
	e.mu.Lock()
	term := e.terminations[msg.Termination.ID]
	delete(e.terminations, msg.Termination.ID)
	e.mu.Unlock()

	if term != nil {
		if err := term.close(); err != nil {
			e.log.Warn("rtpengine: error closing termination socket", "termination", msg.Termination.ID, "error", err)
		}
	}
	e.respond(msg, true, nil)
}

func (e *Engine) find(id string) *termination {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminations[id]
}

// bindSocket tries ports in [PortMin, PortMax] until one binds, cycling
// through cfg.MaxAttempts candidates — a UDP analogue of
// mrcp_server_connection.c's retry-on-bind-failure approach, since a busy
// port here is routine (other terminations, other processes) rather than
// exceptional.
func (e *Engine) bindSocket() (*net.UDPConn, error) {
	e.mu.Lock()
	start := e.nextPort
	e.mu.Unlock()

	var lastErr error
	for i := 0; i < e.cfg.MaxAttempts; i++ {
		port := start + i
		if port > e.cfg.PortMax {
			port = e.cfg.PortMin + (port - e.cfg.PortMax - 1)
		}
		addr := &net.UDPAddr{IP: net.ParseIP(e.cfg.ListenIP), Port: port}
		conn, err := net.ListenUDP("udp", addr)
		if err == nil {
			e.mu.Lock()
			e.nextPort = port + 1
			if e.nextPort > e.cfg.PortMax {
				e.nextPort = e.cfg.PortMin
			}
			e.mu.Unlock()
			return conn, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("rtpengine: no free port in [%d,%d]: %w", e.cfg.PortMin, e.cfg.PortMax, lastErr)
}

// Play streams pcm (16-bit linear, 8kHz mono) out terminationID's socket
// as paced RTP, transcoded to its negotiated codec — the hook a resource
// state machine (mrcp/resources) drives for a SPEAK request's audio
// output once its channel's termination has answered.
func (e *Engine) Play(terminationID string, pcm io.Reader) error {
	term := e.find(terminationID)
	if term == nil {
		return fmt.Errorf("rtpengine: unknown termination %q", terminationID)
	}
	return term.play(pcm)
}
