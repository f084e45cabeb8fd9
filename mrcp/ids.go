package mrcp

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionID generates a process-wide-unique session identifier: the
// first 16 hex characters of a version-4 UUID, upper-cased, matching the
// "16-char hex by convention" rule in spec.md §3. This replaces the
// original's apr_uuid-backed apt_unique_id_generate.
func NewSessionID() string {
	id := uuid.New()
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return hex[:16]
}
