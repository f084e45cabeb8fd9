package mrcp

import "errors"

// ErrInvalidRequestID is returned by the constructors and by the parser
// when a request-id of 0 is used — spec.md §3: "a request-id of 0 is
// reserved/invalid".
var ErrInvalidRequestID = errors.New("mrcp: request-id 0 is reserved")

// Message is a complete MRCP message: start-line, channel identifier,
// header section, and an optional body. Resource is populated once the
// codec has resolved the message's resource (via the Channel-Identifier
// header on MRCPv2, or via an injected resource on MRCPv1); it is nil for
// a message that has not yet gone through resourcification (spec.md §4.3).
type Message struct {
	StartLine StartLine
	ChannelID ChannelID
	Header    *Header
	Body      []byte
	Resource  *Resource

	// Unresolved is set by the parser when the message is well-formed but
	// names a method/event its Resource's table doesn't recognize — a
	// protocol violation distinct from a parse error (spec.md §7: "unknown
	// method" gets a BAD_REQUEST response with session state unchanged,
	// not the UNRECOGNIZED_MESSAGE/dropped-buffer treatment a genuine
	// parse error gets).
	Unresolved bool
}

// NewRequest builds a request message. requestID must be non-zero.
func NewRequest(version Version, requestID uint32, methodID int, methodName string) (*Message, error) {
	if requestID == 0 {
		return nil, ErrInvalidRequestID
	}
	return &Message{
		StartLine: StartLine{
			Kind: KindRequest, Version: version, RequestID: requestID,
			MethodID: methodID, MethodName: methodName,
		},
		Header: NewHeader(),
	}, nil
}

// NewResponse builds a response echoing requestID, per spec.md §3 ("every
// response echoes its request's id").
func NewResponse(version Version, requestID uint32, statusCode int, state RequestState) (*Message, error) {
	if requestID == 0 {
		return nil, ErrInvalidRequestID
	}
	return &Message{
		StartLine: StartLine{
			Kind: KindResponse, Version: version, RequestID: requestID,
			StatusCode: statusCode, RequestState: state,
		},
		Header: NewHeader(),
	}, nil
}

// NewEvent builds an event carrying the id of the request whose execution
// produced it (spec.md §3).
func NewEvent(version Version, requestID uint32, eventID int, eventName string, state RequestState) (*Message, error) {
	if requestID == 0 {
		return nil, ErrInvalidRequestID
	}
	return &Message{
		StartLine: StartLine{
			Kind: KindEvent, Version: version, RequestID: requestID,
			EventID: eventID, EventName: eventName, RequestState: state,
		},
		Header: NewHeader(),
	}, nil
}
