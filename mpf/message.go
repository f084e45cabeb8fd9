// Package mpf is the media-pipeline contract spec.md's §4.5/§4.6 leave as
// an external collaborator: a session orchestrator (mrcpserver,
// mrcpclient) creates terminations and sends them ADD/MODIFY/SUBTRACT
// commands, receiving the outcome asynchronously through EventHandler.
// Nothing in this package touches a socket or a codec — mpf/rtpengine is
// the reference implementation that does.
//
// Grounded on original_source/libs/mpf/include/mpf_engine.h (the engine
// sits behind a task, commands/responses/events are exchanged as
// messages) and the message shape mrcp_server_session.c's
// mpf_request_send/mrcp_server_mpf_message_process functions use
// (message_type, command_id, context, termination, descriptor).
package mpf

// CommandID identifies a termination lifecycle command.
type CommandID int

const (
	CommandAdd CommandID = iota
	CommandModify
	CommandSubtract
)

func (c CommandID) String() string {
	switch c {
	case CommandAdd:
		return "ADD"
	case CommandModify:
		return "MODIFY"
	case CommandSubtract:
		return "SUBTRACT"
	default:
		return "UNKNOWN"
	}
}

// MessageType distinguishes a request sent to the engine from the
// engine's own asynchronous replies.
type MessageType int

const (
	MessageRequest MessageType = iota
	MessageResponse
	MessageEvent
)

// Message is the envelope exchanged between a session orchestrator and an
// Engine, mirroring mpf_message_t.
type Message struct {
	Type        MessageType
	Command     CommandID
	Context     *Context
	Termination *Termination
	Descriptor  *RTPDescriptor
	// Status is set on a MessageResponse; false means the engine rejected
	// the command (e.g. a MODIFY against an unknown termination).
	Status bool
}
