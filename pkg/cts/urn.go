// Package cts implements the canonical citation URN codec.
//
// A URN is a sequence of non-empty segments separated by ':', beginning
// with the literal segment "urn", optionally followed by a single
// subreference of the form "@value[index]". The subreference value is
// either a token text ("@λόγος[2]", index counts occurrences of that
// text within the textpart, starting at 1) or a tagname in angle
// brackets ("@<p>[0]", index counts elements within the textpart,
// starting at 0).
//
// The grammar is fixed: case-sensitive; the delimiters ':', '@', '[',
// ']' are reserved and may not appear inside a segment or subreference
// value; whitespace and control bytes are forbidden everywhere; segment
// labels are otherwise opaque UTF-8, so non-Latin citation values parse
// unchanged. Parsing is total: every input yields either a URN or an
// error matching ErrMalformedURN, never a panic.
package cts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedURN is the sentinel for unparseable URN input. Use
// errors.Is(err, ErrMalformedURN) to match any parse failure.
var ErrMalformedURN = errors.New("malformed urn")

// ParseError reports why an input failed to parse. It unwraps to
// ErrMalformedURN.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed urn %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedURN }

// SubrefKind distinguishes the two subreference forms.
type SubrefKind int

const (
	// SubrefToken is "@text[n]", a token occurrence within a textpart.
	SubrefToken SubrefKind = iota + 1
	// SubrefElement is "@<tag>[n]", an element within a textpart.
	SubrefElement
)

// Subref is the optional "@value[index]" refinement on a URN.
type Subref struct {
	Kind  SubrefKind
	Value string // token text, or tagname without the angle brackets
	Index int
}

// URN is a parsed canonical citation identifier.
type URN struct {
	Segments []string
	Sub      *Subref // nil when the URN has no subreference
}

// Parse decodes a URN string. The zero URN and a non-nil error are
// returned for any input that does not match the grammar.
func Parse(raw string) (URN, error) {
	fail := func(reason string) (URN, error) {
		return URN{}, &ParseError{Input: raw, Reason: reason}
	}

	if raw == "" {
		return fail("empty input")
	}
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c < 0x21 || c == 0x7f {
			return fail(fmt.Sprintf("whitespace or control byte at offset %d", i))
		}
	}

	base := raw
	var sub *Subref
	if at := strings.IndexByte(raw, '@'); at >= 0 {
		if strings.IndexByte(raw[at+1:], '@') >= 0 {
			return fail("more than one subreference delimiter")
		}
		parsed, reason := parseSubref(raw[at+1:])
		if reason != "" {
			return fail(reason)
		}
		base = raw[:at]
		sub = parsed
	}

	segs := strings.Split(base, ":")
	if len(segs) < 2 {
		return fail("need at least two segments")
	}
	if segs[0] != "urn" {
		return fail(`first segment must be "urn"`)
	}
	for i, s := range segs {
		if s == "" {
			return fail(fmt.Sprintf("empty segment at index %d", i))
		}
		if strings.ContainsAny(s, "[]") {
			return fail(fmt.Sprintf("reserved byte in segment %d", i))
		}
	}

	return URN{Segments: segs, Sub: sub}, nil
}

// parseSubref decodes the body after '@'. It returns a non-empty reason
// on failure.
func parseSubref(body string) (*Subref, string) {
	if body == "" {
		return nil, "empty subreference"
	}
	if body[len(body)-1] != ']' {
		return nil, "subreference must end with ']'"
	}
	open := strings.LastIndexByte(body, '[')
	if open < 0 {
		return nil, "subreference missing '['"
	}
	value, digits := body[:open], body[open+1:len(body)-1]
	if value == "" {
		return nil, "empty subreference value"
	}
	if strings.ContainsAny(value, "[]:") {
		return nil, "reserved byte in subreference value"
	}
	idx, err := strconv.Atoi(digits)
	if err != nil || idx < 0 {
		return nil, fmt.Sprintf("bad subreference index %q", digits)
	}

	s := &Subref{Kind: SubrefToken, Value: value, Index: idx}
	if strings.HasPrefix(value, "<") {
		if !strings.HasSuffix(value, ">") || len(value) < 3 {
			return nil, "unterminated tagname in subreference"
		}
		inner := value[1 : len(value)-1]
		if strings.ContainsAny(inner, "<>") {
			return nil, "reserved byte in tagname"
		}
		s.Kind = SubrefElement
		s.Value = inner
	} else if strings.ContainsAny(value, "<>") {
		return nil, "reserved byte in subreference value"
	}
	return s, ""
}

// String renders the canonical form. For every successfully parsed
// input, Parse(u.String()) yields a URN equal to u.
func (u URN) String() string {
	var b strings.Builder
	for i, s := range u.Segments {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(s)
	}
	if u.Sub != nil {
		b.WriteByte('@')
		if u.Sub.Kind == SubrefElement {
			b.WriteByte('<')
			b.WriteString(u.Sub.Value)
			b.WriteByte('>')
		} else {
			b.WriteString(u.Sub.Value)
		}
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(u.Sub.Index))
		b.WriteByte(']')
	}
	return b.String()
}

// Equal reports structural equality of two URNs.
func (u URN) Equal(v URN) bool {
	if len(u.Segments) != len(v.Segments) {
		return false
	}
	for i := range u.Segments {
		if u.Segments[i] != v.Segments[i] {
			return false
		}
	}
	if (u.Sub == nil) != (v.Sub == nil) {
		return false
	}
	if u.Sub != nil && *u.Sub != *v.Sub {
		return false
	}
	return true
}

// IsPrefixOf reports whether u lies on the citation path of v: every
// segment of u matches the corresponding segment of v, except that u's
// final segment may also be extended by dotted passage steps
// ("urn:x:y:1" is a prefix of "urn:x:y:1.2" but not of "urn:x:y:12").
// A URN is a prefix of itself. A URN carrying a subreference is a
// prefix only of an equal URN.
func (u URN) IsPrefixOf(v URN) bool {
	if u.Sub != nil {
		return u.Equal(v)
	}
	if len(u.Segments) > len(v.Segments) {
		return false
	}
	last := len(u.Segments) - 1
	for i, s := range u.Segments {
		if s == v.Segments[i] {
			continue
		}
		if i == last && strings.HasPrefix(v.Segments[i], s+".") {
			continue
		}
		return false
	}
	return true
}
