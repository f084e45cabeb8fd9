package mrcpserver

import (
	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/mpf"
	"github.com/unimrcp-go/core/mrcpv2"
)

// Session is a server-side MRCP session (spec.md §3, §4.5): the channel and
// termination slot arrays, the media-pipeline context, and whichever
// offer/answer pair is currently in flight. Grounded on mrcp_server_session_t
// (mrcp_server_session.c) — channels/terminations are sparse arrays here
// too (a removed/subtracted slot is nilled, not compacted, since its index
// is its offer/answer correspondence for as long as the session lives).
type Session struct {
	ID string

	channels     []*mrcpv2.Channel
	terminations []*mpf.Termination
	context      *mpf.Context

	// offer/answer reuse descriptor.Session for both directions, same as
	// the original's mrcp_session_descriptor_t — an offer and its answer
	// share the same shape.
	offer  *descriptor.Session
	answer *descriptor.Session

	controlAnswered int
	audioAnswered   int

	terminating bool

	server *Server
}

func indexOfChannel(sess *Session, ch *mrcpv2.Channel) int {
	for i, c := range sess.channels {
		if c == ch {
			return i
		}
	}
	return -1
}

func indexOfTermination(sess *Session, t *mpf.Termination) int {
	for i, e := range sess.terminations {
		if e == t {
			return i
		}
	}
	return -1
}

// quiescent reports whether every channel slot and termination slot is
// nil — the TEARDOWN condition spec.md §4.5 requires before the session
// object itself is destroyed.
func (sess *Session) quiescent() bool {
	for _, c := range sess.channels {
		if c != nil {
			return false
		}
	}
	for _, t := range sess.terminations {
		if t != nil {
			return false
		}
	}
	return true
}
