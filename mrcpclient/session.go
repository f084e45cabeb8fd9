// Package mrcpclient implements the client-side MRCP session orchestrator
// (spec.md C8): an application-facing request queue
// ({SESSION_UPDATE, SESSION_TERMINATE, CHANNEL_ADD, CHANNEL_REMOVE, MESSAGE}),
// offer/answer correlation via offer_flag_count/answer_flag_count, and the
// CHANNEL_ADD/REMOVE-as-port-9/0-offer migration UniMRCP uses in place of a
// separate wire verb. Grounded throughout on
// original_source/libs/mrcp-client/src/mrcp_client_session.c.
package mrcpclient

import (
	"github.com/unimrcp-go/core/descriptor"
	"github.com/unimrcp-go/core/mpf"
	"github.com/unimrcp-go/core/mrcpv2"
)

// terminationSlot mirrors mrcp_termination_slot_t: a termination plus
// whether an MPF reply is still outstanding for it.
type terminationSlot struct {
	termination *mpf.Termination
	waiting     bool
}

// Session is a client-side MRCP session (spec.md §4.6). It owns the
// application's request queue and the flag-counter bookkeeping that
// correlates an in-progress command's sub-operations (channel answers,
// termination replies) with when the application should be told the
// command finished.
//
// Grounded on mrcp_client_session_t: channels/terminations arrays,
// offer/answer pointers, offer_flag_count/answer_flag_count/
// terminate_flag_count, active_request/request_queue all map directly.
type Session struct {
	ID string

	remoteAddr string // resolved destination for this session's control channels

	channels     []*mrcpv2.Channel
	terminations []terminationSlot
	context      *mpf.Context

	offer  *descriptor.Session
	answer *descriptor.Session

	// pendingChannel/pendingOffer hold the single channel a channelAdd
	// command is waiting to dial, once its local termination's ADD
	// response arrives — only one request is active per session at a
	// time, so a single pending slot (rather than a queue) suffices.
	pendingChannel *mrcpv2.Channel
	pendingOffer   *descriptor.ControlMedia

	offerFlagCount     int
	answerFlagCount    int
	terminateFlagCount int

	requestQueue  []Command
	activeRequest *Command

	client *Client
}

func indexOfChannel(sess *Session, ch *mrcpv2.Channel) (int, bool) {
	for i, c := range sess.channels {
		if c == ch {
			return i, true
		}
	}
	return -1, false
}

func indexOfTermination(sess *Session, t *mpf.Termination) (*terminationSlot, int) {
	for i := range sess.terminations {
		if sess.terminations[i].termination == t {
			return &sess.terminations[i], i
		}
	}
	return nil, -1
}
