// Package resources supplies the concrete synthesizer and recognizer
// resource definitions (header vtables, method/event tables) and their
// server-side per-channel state machines — the resource-specific half of
// C4/C9 that package mrcp deliberately leaves abstract.
package resources

// Generic method-result status codes shared by every resource (RFC
// 6787 §5.2's resource-agnostic 40x family), distinct from the
// protocol-level codes in mrcp.Status*.
const (
	StatusSuccess                             = 200
	StatusMethodNotAllowed                     = 401
	StatusMethodNotValidInState                = 402
	StatusUnsupportedHeaderField               = 403
	StatusIllegalValueForHeaderField           = 404
	StatusResourceSpecificFailure              = 405
	StatusMethodOrOperationFailed              = 406
	StatusMissingProtocolCheckingHeaderField   = 407
	StatusMethodNotImplemented                 = 408
)
