package rtpengine

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
)

// errNoRemote is returned by play when a termination has not yet received
// its MODIFY-supplied remote endpoint.
var errNoRemote = errors.New("rtpengine: termination has no remote endpoint")

// generateSSRC, generateSequenceStart and generateTimestampStart mirror
// internal/rtpmanager/media.GenerateSSRC/GenerateSequenceStart/
// GenerateTimestampStart: RFC 3550 asks for randomized initial RTP state
// to harden against known-plaintext attacks and collisions.
func generateSSRC() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0x12345678
	}
	return binary.BigEndian.Uint32(b[:])
}

func generateSequenceStart() uint16 {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint16(b[:])
}

func generateTimestampStart() uint32 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	return binary.BigEndian.Uint32(b[:])
}
