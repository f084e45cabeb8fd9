package mpf

// Termination is an opaque media endpoint handle, created by an Engine and
// referenced by a session orchestrator only by identity — mirroring
// mpf_termination_t, which the orchestrator never dereferences beyond
// passing it back to the same engine. Obj is the orchestrator's own hook
// (its session/channel), set the way mrcpv2.Channel.Obj is, so an engine's
// asynchronous replies can find their way back to the right session
// without this package depending on mrcpserver/mrcpclient.
type Termination struct {
	ID  string
	Obj any
}

// RTPDescriptor carries the local/remote audio media endpoints exchanged
// on an ADD/MODIFY command — "construct termination descriptor ...
// audio.remote = offer audio media" (spec.md §4.5), "audio.local" is
// filled in by the engine's ADD response once it has bound a local
// port.
type RTPDescriptor struct {
	Local  *AudioEndpoint
	Remote *AudioEndpoint
}

// AudioEndpoint is the media-pipeline's own view of an audio endpoint —
// deliberately not descriptor.AudioMedia, since an engine works in
// IP/port/codec terms local to its own transport, while descriptor.Session
// also carries ordering/session-origin concerns no engine needs to see.
type AudioEndpoint struct {
	IP    string
	Port  int
	Codec string
}
