// Package stream provides the text-stream primitives and the generic
// streaming parser/generator engine that the MRCP message codec (package
// mrcp) is built on. Nothing here knows about MRCP start-lines or headers
// — it is the resource-agnostic machinery spec.md's Design Notes calls for
// ("keep a single generator driven by version rather than two codepaths";
// "encode [parser state] as an explicit state enum").
//
// Grounded on original_source/libs/apr-toolkit/{include,src}/apt_text_stream.{h,c}:
// a cursor over a fixed buffer (Buffer/Pos/End here, text/pos/end there),
// line and header-field readers tolerant of bare LF as well as CRLF, and
// the var-length value backfill used for MRCPv2 framing.
package stream

import (
	"bytes"
	"strconv"
	"strings"
)

// CRLF is the MRCP/RTSP wire line terminator.
const CRLF = "\r\n"

// Stream is a cursor over a fixed byte buffer. For reading (parsing), End
// is the high-water mark of valid data and Pos advances as bytes are
// consumed. For writing (generation), End is the buffer's capacity and Pos
// advances as bytes are appended.
type Stream struct {
	Buffer []byte
	Pos    int
	End    int
}

// New wraps buf for reading: the whole slice is treated as valid data.
func New(buf []byte) *Stream {
	return &Stream{Buffer: buf, Pos: 0, End: len(buf)}
}

// NewWriter wraps buf for generation: the whole slice is available
// capacity, nothing has been written yet.
func NewWriter(buf []byte) *Stream {
	return &Stream{Buffer: buf, Pos: 0, End: len(buf)}
}

// IsEOS reports whether the stream has no more data to read (or, for a
// writer, no more room).
func (s *Stream) IsEOS() bool { return s.Pos >= s.End }

// Remaining returns the unconsumed portion of the buffer.
func (s *Stream) Remaining() []byte { return s.Buffer[s.Pos:s.End] }

// Written returns the portion of the buffer written so far (writer mode).
func (s *Stream) Written() []byte { return s.Buffer[:s.Pos] }

// Reset rewinds the stream to read n bytes of fresh data from the start of
// the buffer — used after shifting unconsumed bytes to the head following
// a partial parse (spec C5 read path: "leftover bytes shift to the head of
// the buffer for the next read").
func (s *Stream) Reset(n int) {
	s.Pos = 0
	s.End = n
}

// ReadLine scans for the next line terminator (CRLF, or a bare LF)
// starting at Pos. On success it returns the line contents without the
// terminator and advances Pos past it. On failure — no terminator found
// before End — Pos is left untouched and ok is false, so the caller can
// roll the whole message back to its entry position and report INCOMPLETE.
func (s *Stream) ReadLine() (line []byte, ok bool) {
	rest := s.Buffer[s.Pos:s.End]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		return nil, false
	}
	end := idx
	if end > 0 && rest[end-1] == '\r' {
		end--
	}
	line = rest[:end]
	s.Pos += idx + 1
	return line, true
}

// HeaderField is a single parsed "name: value" header line. NameOnly is
// set for a property-only field (a name with no colon at all), used to
// express empty GET-PARAMS parameters (spec.md §3 SUPPLEMENTED FEATURES).
type HeaderField struct {
	Name     string
	Value    string
	NameOnly bool
}

// ParseHeaderLine splits a single already-delimited header line (no CRLF)
// into name/value on the first colon, trimming surrounding whitespace on
// both sides the way apt_text_header_field_parse does.
func ParseHeaderLine(line []byte) HeaderField {
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return HeaderField{Name: strings.TrimSpace(string(line)), NameOnly: true}
	}
	name := strings.TrimSpace(string(line[:idx]))
	value := strings.TrimSpace(string(line[idx+1:]))
	return HeaderField{Name: name, Value: value}
}

// WriteString appends str to the buffer. ok is false if there was not
// enough room; as much of str as fits is written and Pos is left at End so
// a caller can flush the buffer and resume generation on the next call
// (TRUNCATED, per spec §4.2).
func (s *Stream) WriteString(str string) (ok bool) {
	avail := s.End - s.Pos
	if avail <= 0 && len(str) > 0 {
		return false
	}
	if len(str) > avail {
		copy(s.Buffer[s.Pos:s.End], str[:avail])
		s.Pos = s.End
		return false
	}
	copy(s.Buffer[s.Pos:], str)
	s.Pos += len(str)
	return true
}

// WriteCRLF appends the line terminator.
func (s *Stream) WriteCRLF() bool { return s.WriteString(CRLF) }

// WriteHeaderField appends "name: value\r\n", or just "name\r\n" if value
// is empty and nameOnly is set (property-only header).
func (s *Stream) WriteHeaderField(name, value string, nameOnly bool) bool {
	if nameOnly {
		return s.WriteString(name) && s.WriteCRLF()
	}
	return s.WriteString(name) && s.WriteString(": ") && s.WriteString(value) && s.WriteCRLF()
}

// MaxLengthDigits is the digit width reserved up front for an MRCPv2
// framed-message length field so the two-pass generator can backfill the
// true value later without re-serializing the whole message (spec §4.2,
// "the generator reserves enough digits for the maximum representable
// length").
const MaxLengthDigits = 6

// ReserveLength writes MaxLengthDigits space-padded placeholder bytes at
// the stream's current position, to be overwritten by BackfillLength once
// the true length is known, and returns the offset to backfill.
func (s *Stream) ReserveLength() (offset int, ok bool) {
	offset = s.Pos
	ok = s.WriteString(strings.Repeat(" ", MaxLengthDigits))
	return offset, ok
}

// BackfillLength writes length, right-aligned within MaxLengthDigits
// space-padded columns, at offset — without moving Pos — mirroring
// apt_var_length_value_generate.
func (s *Stream) BackfillLength(offset, length int) {
	digits := strconv.Itoa(length)
	if len(digits) > MaxLengthDigits {
		digits = digits[len(digits)-MaxLengthDigits:]
	}
	pad := MaxLengthDigits - len(digits)
	copy(s.Buffer[offset:offset+pad], strings.Repeat(" ", pad))
	copy(s.Buffer[offset+pad:offset+MaxLengthDigits], digits)
}

// ParseChannelID splits the canonical "session_id@resource_name" wire form
// used to demultiplex inbound MRCPv2 messages (spec §3 Channel identifier).
func ParseChannelID(s string) (sessionID, resourceName string, ok bool) {
	i := strings.IndexByte(s, '@')
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

// GenerateChannelID joins sessionID and resourceName into the canonical
// wire form.
func GenerateChannelID(sessionID, resourceName string) string {
	return sessionID + "@" + resourceName
}
