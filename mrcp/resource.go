package mrcp

import "strings"

// ResourceID is the process-wide numeric identity of a resource type
// (synthesizer, recognizer, verifier, ...), resolved from the resource
// name carried in a channel identifier.
type ResourceID int

// HeaderVTable is the resource-specific half of the header section's two
// parallel accessor vtables (spec.md §3). Each resource registers one,
// versioned internally where v1/v2 field names differ.
type HeaderVTable interface {
	// Name identifies the vtable for diagnostics ("synthesizer", ...).
	Name() string
	// FieldID classifies a header field name under this resource's own
	// numbering. ok is false for a field this resource does not know
	// about (it stays in the header as an unclassified field).
	FieldID(version Version, name string) (id int, ok bool)
	// FieldName renders a resource-specific id back to its wire name for
	// the given version.
	FieldName(version Version, id int) (name string, ok bool)
}

// MethodTable maps a resource's method names to ids, versioned because
// MRCPv1 and MRCPv2 occasionally differ in the set or spelling of methods.
// A nil V1 table means MRCPv1 uses the V2 names.
type MethodTable struct {
	V1 []string
	V2 []string
}

func (t MethodTable) names(v Version) []string {
	if v == Version1 && t.V1 != nil {
		return t.V1
	}
	return t.V2
}

// IDOf returns the method id (its index) for name under version, or false
// if name is not one of this resource's methods in that version.
func (t MethodTable) IDOf(v Version, name string) (int, bool) {
	for i, n := range t.names(v) {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}

// NameOf returns the method name for id under version, or false if id is
// out of range.
func (t MethodTable) NameOf(v Version, id int) (string, bool) {
	names := t.names(v)
	if id < 0 || id >= len(names) {
		return "", false
	}
	return names[id], true
}

// EventTable is identical in shape to MethodTable, kept as a distinct type
// so call sites can't mix up method ids and event ids.
type EventTable struct {
	V1 []string
	V2 []string
}

func (t EventTable) names(v Version) []string {
	if v == Version1 && t.V1 != nil {
		return t.V1
	}
	return t.V2
}

func (t EventTable) IDOf(v Version, name string) (int, bool) {
	for i, n := range t.names(v) {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}

func (t EventTable) NameOf(v Version, id int) (string, bool) {
	names := t.names(v)
	if id < 0 || id >= len(names) {
		return "", false
	}
	return names[id], true
}

// Resource is a registered resource type: its name, its method/event
// string tables, and its header vtable.
type Resource struct {
	ID      ResourceID
	Name    string
	Methods MethodTable
	Events  EventTable
	Header  HeaderVTable
}

// Registry is the process-wide resource registry (spec.md §4.3):
// resource id -> record, and name -> record for inbound MRCPv2 channel
// lookups. New resources plug in by registering a record; the codec itself
// never hard-codes a resource name.
type Registry struct {
	byID   map[ResourceID]*Resource
	byName map[string]*Resource
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[ResourceID]*Resource), byName: make(map[string]*Resource)}
}

// Register adds r to the registry, indexed by both id and lower-cased name
// (resource-name comparison is case-insensitive per spec.md §6).
func (reg *Registry) Register(r *Resource) {
	reg.byID[r.ID] = r
	reg.byName[strings.ToLower(r.Name)] = r
}

// ByID looks up a resource by its numeric id.
func (reg *Registry) ByID(id ResourceID) (*Resource, bool) {
	r, ok := reg.byID[id]
	return r, ok
}

// ByName looks up a resource by name, case-insensitively.
func (reg *Registry) ByName(name string) (*Resource, bool) {
	r, ok := reg.byName[strings.ToLower(name)]
	return r, ok
}
