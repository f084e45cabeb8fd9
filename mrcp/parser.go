package mrcp

import (
	"strconv"
	"strings"

	"github.com/unimrcp-go/core/stream"
)

// Parser is a version-pinned streaming MRCP message parser, one per
// connection (spec.md §4.2, §4.4): it wraps the generic stream.Parser
// engine with MRCP-specific start-line disambiguation, resourcification,
// and the MRCPv2 length-prefix / MRCPv1 Content-Length body-length rules.
type Parser struct {
	registry         *Registry
	version          Version
	injectedResource *Resource

	inner           *stream.Parser
	msg             *Message
	currentStream   *stream.Stream
	messageStartPos int
	v2Length        int
}

// NewParser creates a Parser bound to registry (for channel-identifier ->
// resource resolution) and pinned to version.
func NewParser(registry *Registry, version Version) *Parser {
	p := &Parser{registry: registry, version: version}
	p.inner = stream.NewParser(stream.ParserHooks{
		StartLine:     p.onStartLine,
		HeaderField:   p.onHeaderField,
		ContentLength: p.onContentLength,
		Body:          p.onBody,
	})
	return p
}

// SetResource injects the resource an enclosing MRCPv1 transport (an RTSP
// session) has already resolved from its own resource path, since MRCPv1
// carries no Channel-Identifier header to resolve it from (spec.md §4.2
// "MRCPv1 difference", mirroring mrcp_parser_resource_set). No-op for a
// Version2 parser.
func (p *Parser) SetResource(r *Resource) {
	p.injectedResource = r
}

// State exposes the generic engine's resumption point, for tests that
// assert parser state between partial feeds (spec.md §9 Design Notes).
func (p *Parser) State() stream.ParserState { return p.inner.State() }

// Run feeds s to the parser, resuming from wherever a previous Run left
// off. On Complete it returns the finished Message; on Invalid it returns
// the partly parsed Message (see below); on Incomplete msg is nil.
func (p *Parser) Run(s *stream.Stream) (msg *Message, status stream.Status) {
	if p.inner.State() == stream.ReadingStartLine {
		p.messageStartPos = s.Pos
		p.msg = &Message{Header: NewHeader()}
		if p.version == Version1 && p.injectedResource != nil {
			p.msg.Resource = p.injectedResource
		}
	}
	p.currentStream = s

	switch st := p.inner.Run(s); st {
	case stream.Complete:
		m := p.msg
		p.msg = nil
		return m, stream.Complete
	case stream.Invalid:
		// m still carries whatever start-line was parsed before the
		// failure (StartLine.RequestID is zero if even that failed) —
		// enough for a caller to send a request-id-echoing
		// UNRECOGNIZED_MESSAGE response when one is available.
		m := p.msg
		p.msg = nil
		return m, stream.Invalid
	default:
		return nil, stream.Incomplete
	}
}

func (p *Parser) onStartLine(line []byte) bool {
	switch p.version {
	case Version2:
		return p.parseV2StartLine(string(line))
	case Version1:
		return p.parseV1StartLine(string(line))
	default:
		return false
	}
}

func (p *Parser) parseV2StartLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[0] != "MRCP/2.0" {
		return false
	}
	length, err := strconv.Atoi(fields[1])
	if err != nil || length <= 0 {
		return false
	}
	p.v2Length = length

	rest := fields[2:]
	switch len(rest) {
	case 2:
		reqID, err := strconv.ParseUint(rest[1], 10, 32)
		if err != nil || reqID == 0 {
			return false
		}
		p.msg.StartLine = StartLine{Kind: KindRequest, Version: Version2, RequestID: uint32(reqID), MethodName: rest[0]}
		return true
	case 3:
		if isNumericToken(rest[0]) {
			reqID, err1 := strconv.ParseUint(rest[0], 10, 32)
			status, err2 := strconv.Atoi(rest[1])
			state, ok := parseRequestState(rest[2])
			if err1 != nil || err2 != nil || !ok || reqID == 0 {
				return false
			}
			p.msg.StartLine = StartLine{Kind: KindResponse, Version: Version2, RequestID: uint32(reqID), StatusCode: status, RequestState: state}
			return true
		}
		reqID, err := strconv.ParseUint(rest[1], 10, 32)
		state, ok := parseRequestState(rest[2])
		if err != nil || !ok || reqID == 0 {
			return false
		}
		p.msg.StartLine = StartLine{Kind: KindEvent, Version: Version2, RequestID: uint32(reqID), EventName: rest[0], RequestState: state}
		return true
	default:
		return false
	}
}

func (p *Parser) parseV1StartLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "MRCP/1.0" {
		return false
	}
	reqID, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil || reqID == 0 {
		return false
	}

	rest := fields[2:]
	switch len(rest) {
	case 1:
		p.msg.StartLine = StartLine{Kind: KindRequest, Version: Version1, RequestID: uint32(reqID), MethodName: rest[0]}
		return true
	case 2:
		if status, err := strconv.Atoi(rest[0]); err == nil {
			if state, ok := parseRequestState(rest[1]); ok {
				p.msg.StartLine = StartLine{Kind: KindResponse, Version: Version1, RequestID: uint32(reqID), StatusCode: status, RequestState: state}
				return true
			}
		}
		if state, ok := parseRequestState(rest[1]); ok {
			p.msg.StartLine = StartLine{Kind: KindEvent, Version: Version1, RequestID: uint32(reqID), EventName: rest[0], RequestState: state}
			return true
		}
		return false
	default:
		return false
	}
}

func isNumericToken(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *Parser) onHeaderField(f stream.HeaderField) bool {
	if f.NameOnly {
		p.msg.Header.AddNameOnly(f.Name)
		return true
	}

	if strings.EqualFold(f.Name, GenericHeaderName(HeaderChannelIdentifier)) {
		cid, ok := ParseChannelIdentifier(f.Value)
		if !ok {
			return false
		}
		p.msg.ChannelID = cid
		if p.registry != nil {
			if r, ok := p.registry.ByName(cid.ResourceName); ok {
				p.msg.Resource = r
			}
		}
		// Not stored in the header ring: ChannelID already carries this
		// field, and the generator synthesizes it back from ChannelID, so
		// keeping a second copy here would make generate∘parse emit the
		// header twice.
		return true
	}

	if p.msg.Resource != nil {
		if id, ok := p.msg.Resource.Header.FieldID(p.version, f.Name); ok {
			p.msg.Header.AddResourceField(id, f.Name, f.Value)
			return true
		}
	}

	p.msg.Header.Add(f.Name, f.Value)
	return true
}

// onContentLength is invoked by the generic engine once the blank line
// after headers has been seen. For MRCPv2 it also finishes resourcifying
// the method/event name (spec.md §4.3) and computes the remaining body
// length from the start-line's declared message-length rather than a
// Content-Length header; for MRCPv1 it reads Content-Length directly.
func (p *Parser) onContentLength() int {
	// A method/event name the resource's table doesn't recognize is a
	// protocol violation (spec.md §7), not a parse error: the message is
	// still well-formed, so parsing continues normally and Unresolved lets
	// the caller answer with BAD_REQUEST instead of forwarding it.
	p.msg.Unresolved = !p.resolveMethodOrEvent()

	if p.version == Version2 {
		consumed := p.currentStream.Pos - p.messageStartPos
		remaining := p.v2Length - consumed
		if remaining < 0 {
			remaining = 0
		}
		return remaining
	}

	if v, ok := p.msg.Header.GetGeneric(HeaderContentLength); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func (p *Parser) resolveMethodOrEvent() bool {
	if p.msg.Resource == nil {
		// No resource is known yet — either the Channel-Identifier named a
		// resource this registry doesn't have, or (MRCPv1) none was
		// injected. We can't validate a method/event name against a table
		// that doesn't exist; channel association in package mrcpv2 is
		// responsible for rejecting a message whose channel can't be
		// found at all.
		return true
	}
	switch p.msg.StartLine.Kind {
	case KindRequest:
		id, ok := p.msg.Resource.Methods.IDOf(p.version, p.msg.StartLine.MethodName)
		if !ok {
			return false
		}
		p.msg.StartLine.MethodID = id
	case KindEvent:
		id, ok := p.msg.Resource.Events.IDOf(p.version, p.msg.StartLine.EventName)
		if !ok {
			return false
		}
		p.msg.StartLine.EventID = id
	}
	return true
}

func (p *Parser) onBody(chunk []byte, total int) int {
	p.msg.Body = append(p.msg.Body, chunk...)
	return len(chunk)
}

// Compact shifts s's unconsumed remainder to the front of its buffer (via
// stream.Stream.Reset) so a caller buffering multiple socket reads into a
// fixed-size connection buffer can make room for more data after an
// Incomplete Run result, without losing the in-progress message. It
// returns the number of bytes shifted (where the caller's next read should
// begin writing). Shifting the buffer also shifts this Parser's own
// messageStartPos bookkeeping by the same amount, so the MRCPv2
// length-remaining computation in onContentLength stays correct for a
// message whose start-line/headers arrived before the compaction.
func (p *Parser) Compact(s *stream.Stream) int {
	shift := s.Pos
	n := copy(s.Buffer, s.Remaining())
	s.Reset(n)
	p.messageStartPos -= shift
	if p.messageStartPos < 0 {
		p.messageStartPos = 0
	}
	return n
}
