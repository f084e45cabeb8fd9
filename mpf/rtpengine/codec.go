package rtpengine

import (
	"fmt"
	"time"

	"github.com/zaf/g711"
)

// Codec is an immutable audio codec specification, grounded on
// internal/rtpmanager/media.Codec: the RTP payload type, clock rate, and
// frame duration a termination packetizes against.
type Codec struct {
	Name        string
	PayloadType uint8
	SampleRate  uint32
	SampleDur   time.Duration
}

// SamplesPerFrame returns the number of samples in one frame of audio at
// this codec's rate and duration.
func (c Codec) SamplesPerFrame() int {
	return int(c.SampleRate) * int(c.SampleDur) / int(time.Second)
}

// TimestampIncrement returns the RTP timestamp advance per frame — equal
// to SamplesPerFrame for the G.711 codecs this package supports.
func (c Codec) TimestampIncrement() uint32 {
	return uint32(c.SamplesPerFrame())
}

var (
	// CodecPCMU is G.711 µ-law.
	CodecPCMU = Codec{"PCMU", 0, 8000, 20 * time.Millisecond}
	// CodecPCMA is G.711 A-law.
	CodecPCMA = Codec{"PCMA", 8, 8000, 20 * time.Millisecond}
)

// codecByName resolves the SDP/descriptor codec name an audio-media
// offer carries (spec.md's descriptor.AudioMedia.Codec) to the concrete
// Codec this engine packetizes with.
func codecByName(name string) (Codec, error) {
	switch name {
	case "PCMU", "":
		return CodecPCMU, nil
	case "PCMA":
		return CodecPCMA, nil
	default:
		return Codec{}, fmt.Errorf("rtpengine: unsupported codec %q", name)
	}
}

// encodeFrame transcodes one frame of 16-bit linear PCM to c's wire
// format, grounded on internal/rtpmanager/media/audio.go's PCMToPCMU.
func encodeFrame(c Codec, pcm []byte) []byte {
	if c.PayloadType == CodecPCMA.PayloadType {
		return g711.EncodeAlaw(pcm)
	}
	return g711.EncodeUlaw(pcm)
}

// decodeFrame transcodes one received frame from c's wire format back to
// 16-bit linear PCM, the inbound counterpart encodeFrame has no teacher
// callsite for (the teacher only plays audio out) but that this package
// provides for a full-duplex termination.
func decodeFrame(c Codec, payload []byte) []byte {
	if c.PayloadType == CodecPCMA.PayloadType {
		return g711.DecodeAlaw(payload)
	}
	return g711.DecodeUlaw(payload)
}
