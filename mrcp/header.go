package mrcp

import "strings"

// GenericHeaderID enumerates the resource-independent header fields every
// MRCP message may carry, looked up by name in O(1) once classified.
type GenericHeaderID int

const (
	HeaderUnknown GenericHeaderID = iota
	HeaderChannelIdentifier
	HeaderContentType
	HeaderContentID
	HeaderContentBase
	HeaderContentLength
	HeaderContentEncoding
	HeaderCacheControl
	HeaderLoggingTag
	HeaderVendorSpecificParams
	HeaderAccept
	HeaderAcceptCharset
	HeaderActiveRequestIDList
	HeaderProxySyncID
)

var genericHeaderNames = map[GenericHeaderID]string{
	HeaderChannelIdentifier:    "Channel-Identifier",
	HeaderContentType:          "Content-Type",
	HeaderContentID:            "Content-Id",
	HeaderContentBase:          "Content-Base",
	HeaderContentLength:        "Content-Length",
	HeaderContentEncoding:      "Content-Encoding",
	HeaderCacheControl:         "Cache-Control",
	HeaderLoggingTag:           "Logging-Tag",
	HeaderVendorSpecificParams: "Vendor-Specific-Parameters",
	HeaderAccept:               "Accept",
	HeaderAcceptCharset:        "Accept-Charset",
	HeaderActiveRequestIDList:  "Active-Request-Id-List",
	HeaderProxySyncID:          "Proxy-Sync-Id",
}

var genericHeaderIDsByName = func() map[string]GenericHeaderID {
	m := make(map[string]GenericHeaderID, len(genericHeaderNames))
	for id, name := range genericHeaderNames {
		m[strings.ToLower(name)] = id
	}
	return m
}()

// LookupGenericHeaderID classifies a header name (case-insensitive) as one
// of the known generic headers.
func LookupGenericHeaderID(name string) (GenericHeaderID, bool) {
	id, ok := genericHeaderIDsByName[strings.ToLower(name)]
	return id, ok
}

// GenericHeaderName renders a GenericHeaderID back to its wire name.
func GenericHeaderName(id GenericHeaderID) string {
	return genericHeaderNames[id]
}

// HeaderField is one entry in a message's header section: the field as it
// appeared on the wire, plus whichever vtable (generic or resource) was
// able to classify it, if any. ResourceID is -1 for fields not resolved
// against a resource-specific vtable.
type HeaderField struct {
	Name       string
	Value      string
	NameOnly   bool
	GenericID  GenericHeaderID
	ResourceID int
}

// Header is an ordered ring of header fields plus two O(1) lookup
// indexes — by GenericHeaderID and by resource-specific id — matching
// spec.md §3's "ordered ring ... with a secondary array for O(1) lookup by
// known-header id" and its "two parallel accessor vtables" description.
// Insertion order is preserved so two headers compare equal field-wise
// (testable property 1: generate∘parse is the identity modulo permitted
// reordering, which this type simply never performs).
type Header struct {
	fields     []HeaderField
	byGeneric  map[GenericHeaderID]int
	byResource map[int]int
}

// NewHeader creates an empty header section.
func NewHeader() *Header {
	return &Header{byGeneric: make(map[GenericHeaderID]int), byResource: make(map[int]int)}
}

// Add appends a "name: value" field, classifying it against the generic
// vtable if name is recognized.
func (h *Header) Add(name, value string) {
	gid, _ := LookupGenericHeaderID(name)
	idx := len(h.fields)
	h.fields = append(h.fields, HeaderField{Name: name, Value: value, GenericID: gid, ResourceID: -1})
	if gid != HeaderUnknown {
		h.byGeneric[gid] = idx
	}
}

// AddNameOnly appends a property-only field (a header name with no value),
// used to build empty GET-PARAMS parameters (spec.md §3 SUPPLEMENTED
// FEATURES, mirroring mrcp_generic_header_name_property_add).
func (h *Header) AddNameOnly(name string) {
	h.fields = append(h.fields, HeaderField{Name: name, NameOnly: true, ResourceID: -1})
}

// AddResourceField appends a field already classified against a resource's
// header vtable under resourceID (an id meaningful only within that
// resource's own numbering).
func (h *Header) AddResourceField(resourceID int, name, value string) {
	idx := len(h.fields)
	h.fields = append(h.fields, HeaderField{Name: name, Value: value, GenericID: HeaderUnknown, ResourceID: resourceID})
	h.byResource[resourceID] = idx
}

// Fields returns the header section in wire order.
func (h *Header) Fields() []HeaderField { return h.fields }

// GetGeneric returns the value of a recognized generic header field.
func (h *Header) GetGeneric(id GenericHeaderID) (string, bool) {
	idx, ok := h.byGeneric[id]
	if !ok {
		return "", false
	}
	return h.fields[idx].Value, true
}

// GetResource returns the value of a field classified under a resource's
// own header id.
func (h *Header) GetResource(id int) (string, bool) {
	idx, ok := h.byResource[id]
	if !ok {
		return "", false
	}
	return h.fields[idx].Value, true
}

// GetByName looks up a field by its literal wire name (case-insensitive),
// regardless of whether either vtable classified it — the escape hatch for
// vendor-specific or not-yet-registered header fields.
func (h *Header) GetByName(name string) (string, bool) {
	lname := strings.ToLower(name)
	for _, f := range h.fields {
		if strings.ToLower(f.Name) == lname {
			return f.Value, true
		}
	}
	return "", false
}
