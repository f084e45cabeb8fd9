package mrcp

// Protocol-level status codes the codec/connection/session layers produce
// directly (spec.md §7 error handling), distinct from the per-resource
// method status codes a resource's own handlers return (see
// mrcp/resources, which defines the RFC-defined 401-408 generic method
// statuses).
const (
	StatusSuccess             = 200
	StatusBadRequest          = 400
	StatusUnrecognizedMessage = 481
)
