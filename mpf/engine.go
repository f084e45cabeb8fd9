package mpf

// EventHandler receives every asynchronous Message an Engine produces —
// command responses and engine-originated events alike — the MPF-side
// analogue of mrcpv2.ServerEventHandler. A session orchestrator is the
// usual implementer; it correlates a Message back to a session through
// Message.Termination.Obj.
type EventHandler interface {
	OnMessage(msg *Message)
}

// Engine is the media-pipeline contract itself: create a context and
// terminations, send them lifecycle commands, and report outcomes
// asynchronously through an EventHandler. mrcpserver and mrcpclient
// depend only on this interface — mpf/rtpengine is this repo's reference
// implementation, wired to a real UDP/RTP transport; nothing stops a
// different deployment from swapping in another Engine entirely.
type Engine interface {
	// CreateContext allocates a context able to mix up to maxTerminations
	// terminations together.
	CreateContext(id string, maxTerminations int) *Context
	// CreateTermination allocates a termination under ctx, not yet primed
	// with any media. obj is stashed on the termination unchanged, for
	// the orchestrator to find itself again when a reply arrives.
	CreateTermination(ctx *Context, obj any) *Termination
	// Send dispatches msg (always MessageRequest) to the engine. The
	// engine replies asynchronously through the EventHandler it was
	// constructed with, never synchronously from Send.
	Send(msg *Message)
}
