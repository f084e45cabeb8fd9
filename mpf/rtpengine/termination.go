package rtpengine

import (
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pion/rtp"
)

// termination is one endpoint's real UDP/RTP binding: the socket the
// engine allocated for it on ADD, the remote peer MODIFY supplies, and the
// codec negotiated for the pair. Grounded on
// internal/rtpmanager/media.RTPSession/RTPStreamWriter, adapted from a
// per-call into a per-termination object the way mrcp_termination_t itself
// is one persistent handle across a session's ADD/MODIFY/SUBTRACT
// lifecycle rather than a value recreated each call.
type termination struct {
	id   string
	conn *net.UDPConn

	mu         sync.Mutex
	remoteAddr *net.UDPAddr
	codec      Codec

	ssrc      uint32
	seq       uint16
	timestamp uint32

	closed   bool
	stopRead chan struct{}
	log      *slog.Logger
}

func newTermination(id string, conn *net.UDPConn, codec Codec, log *slog.Logger) *termination {
	return &termination{
		id: id, conn: conn, codec: codec,
		ssrc: generateSSRC(), seq: generateSequenceStart(), timestamp: generateTimestampStart(),
		stopRead: make(chan struct{}),
		log:      log,
	}
}

func (t *termination) localPort() int {
	return t.conn.LocalAddr().(*net.UDPAddr).Port
}

// setRemote records the peer this termination sends to, and switches
// codec if MODIFY negotiated a different one — mirrors
// mrcp_client_on_termination_modify storing descriptor.remote from the
// answer's audio media before any packet is sent.
func (t *termination) setRemote(ip string, port int, codec Codec) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.remoteAddr = &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	t.codec = codec
}

// play streams pcm out as paced, codec-encoded RTP frames until pcm is
// exhausted or the termination is closed — the synthesis playout path
// DOMAIN STACK calls out for zaf/g711. Grounded on
// internal/rtpmanager/media.RTPStreamWriter.Write's clock-ticker pacing,
// reworked to read frames from an io.Reader instead of taking one
// pre-formed payload per call.
func (t *termination) play(pcm io.Reader) error {
	t.mu.Lock()
	remote := t.remoteAddr
	codec := t.codec
	t.mu.Unlock()
	if remote == nil {
		return errNoRemote
	}

	frameBytes := codec.SamplesPerFrame() * 2 // 16-bit linear PCM input
	ticker := time.NewTicker(codec.SampleDur)
	defer ticker.Stop()

	buf := make([]byte, frameBytes)
	for {
		n, err := io.ReadFull(pcm, buf)
		if n > 0 {
			<-ticker.C
			if werr := t.writeFrame(remote, codec, buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (t *termination) writeFrame(remote *net.UDPAddr, codec Codec, pcm []byte) error {
	t.mu.Lock()
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    codec.PayloadType,
			SequenceNumber: t.seq,
			Timestamp:      t.timestamp,
			SSRC:           t.ssrc,
		},
		Payload: encodeFrame(codec, pcm),
	}
	t.seq++
	t.timestamp += codec.TimestampIncrement()
	t.mu.Unlock()

	data, err := pkt.Marshal()
	if err != nil {
		return err
	}
	_, err = t.conn.WriteToUDP(data, remote)
	return err
}

// readLoop depacketizes inbound RTP, decoding each frame back to linear
// PCM and handing it to sink — the engine's counterpart for a future
// recognition termination, not exercised by the synthesis-only path
// mrcpserver currently drives but kept so a termination is genuinely
// full-duplex rather than write-only.
func (t *termination) readLoop(sink func(pcm []byte)) {
	buf := make([]byte, 1500)
	for {
		select {
		case <-t.stopRead:
			return
		default:
		}
		t.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return
		}
		var pkt rtp.Packet
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			t.log.Warn("rtpengine: dropping unparseable packet", "termination", t.id, "error", err)
			continue
		}
		if sink != nil {
			t.mu.Lock()
			codec := t.codec
			t.mu.Unlock()
			sink(decodeFrame(codec, pkt.Payload))
		}
	}
}

func (t *termination) close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	close(t.stopRead)
	return t.conn.Close()
}
