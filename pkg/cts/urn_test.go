package cts

import (
	"errors"
	"testing"
)

func TestParseValid(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		segments []string
		sub      *Subref
	}{
		{
			name:     "document urn",
			input:    "urn:cts:greekLit:tlg0001.tlg001.test-grc1",
			segments: []string{"urn", "cts", "greekLit", "tlg0001.tlg001.test-grc1"},
		},
		{
			name:     "textpart urn with dotted passage",
			input:    "urn:cts:greekLit:tlg0001.tlg001.test-grc1:1.2",
			segments: []string{"urn", "cts", "greekLit", "tlg0001.tlg001.test-grc1", "1.2"},
		},
		{
			name:     "minimal two segments",
			input:    "urn:doc",
			segments: []string{"urn", "doc"},
		},
		{
			name:     "token subreference",
			input:    "urn:cts:greekLit:tlg0001.tlg001.test-grc1:1@Test[1]",
			segments: []string{"urn", "cts", "greekLit", "tlg0001.tlg001.test-grc1", "1"},
			sub:      &Subref{Kind: SubrefToken, Value: "Test", Index: 1},
		},
		{
			name:     "greek token subreference",
			input:    "urn:cts:greekLit:tlg0057.tlg001:1.2@λόγος[2]",
			segments: []string{"urn", "cts", "greekLit", "tlg0057.tlg001", "1.2"},
			sub:      &Subref{Kind: SubrefToken, Value: "λόγος", Index: 2},
		},
		{
			name:     "element subreference",
			input:    "urn:cts:greekLit:tlg0001.tlg001.test-grc1:1@<p>[0]",
			segments: []string{"urn", "cts", "greekLit", "tlg0001.tlg001.test-grc1", "1"},
			sub:      &Subref{Kind: SubrefElement, Value: "p", Index: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.input, err)
			}
			if len(u.Segments) != len(tt.segments) {
				t.Fatalf("got %d segments, want %d", len(u.Segments), len(tt.segments))
			}
			for i := range tt.segments {
				if u.Segments[i] != tt.segments[i] {
					t.Errorf("segment %d = %q, want %q", i, u.Segments[i], tt.segments[i])
				}
			}
			if (u.Sub == nil) != (tt.sub == nil) {
				t.Fatalf("sub presence = %v, want %v", u.Sub != nil, tt.sub != nil)
			}
			if tt.sub != nil && *u.Sub != *tt.sub {
				t.Errorf("sub = %+v, want %+v", *u.Sub, *tt.sub)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single segment", "urn"},
		{"wrong scheme", "uri:doc:1"},
		{"leading colon", ":doc:1"},
		{"empty segment", "urn::1"},
		{"trailing colon", "urn:doc:"},
		{"embedded space", "urn:doc:1 2"},
		{"tab byte", "urn:doc\t:1"},
		{"bare at", "urn:doc:1@"},
		{"double at", "urn:doc:1@a[1]@b[2]"},
		{"subref without index", "urn:doc:1@word"},
		{"subref without brackets", "urn:doc:1@word1"},
		{"subref empty value", "urn:doc:1@[1]"},
		{"subref empty index", "urn:doc:1@word[]"},
		{"subref negative index", "urn:doc:1@word[-1]"},
		{"subref non-numeric index", "urn:doc:1@word[one]"},
		{"subref trailing bytes", "urn:doc:1@word[1]x"},
		{"unterminated tagname", "urn:doc:1@<p[0]"},
		{"empty tagname", "urn:doc:1@<>[0]"},
		{"bracket in segment", "urn:doc:1[2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", tt.input)
			}
			if !errors.Is(err, ErrMalformedURN) {
				t.Errorf("error %v does not match ErrMalformedURN", err)
			}
			if len(u.Segments) != 0 || u.Sub != nil {
				t.Errorf("Parse(%q) returned non-zero URN on error", tt.input)
			}
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	inputs := []string{
		"urn:cts:greekLit:tlg0001.tlg001.test-grc1",
		"urn:cts:greekLit:tlg0001.tlg001.test-grc1:1.2.3",
		"urn:cts:greekLit:tlg0001.tlg001.test-grc1:1@Test[1]",
		"urn:cts:greekLit:tlg0057.tlg001:2.4@λόγος[3]",
		"urn:cts:greekLit:tlg0001.tlg001.test-grc1:1@<p>[0]",
	}
	for _, in := range inputs {
		u, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", in, err)
		}
		if got := u.String(); got != in {
			t.Errorf("String() = %q, want %q", got, in)
		}
		again, err := Parse(u.String())
		if err != nil {
			t.Fatalf("re-Parse(%q) failed: %v", u.String(), err)
		}
		if !u.Equal(again) {
			t.Errorf("round trip of %q not equal", in)
		}
	}
}

func TestIsPrefixOf(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"document contains textpart", "urn:x:y", "urn:x:y:1", true},
		{"document contains deep textpart", "urn:x:y", "urn:x:y:1.2.3", true},
		{"textpart contains dotted child", "urn:x:y:1", "urn:x:y:1.2", true},
		{"textpart contains dotted grandchild", "urn:x:y:1", "urn:x:y:1.2.3", true},
		{"reflexive", "urn:x:y:1.2", "urn:x:y:1.2", true},
		{"textpart contains its token", "urn:x:y:1", "urn:x:y:1@word[1]", true},
		{"no dotted boundary", "urn:x:y:1", "urn:x:y:12", false},
		{"sibling passages", "urn:x:y:1.2", "urn:x:y:1.3", false},
		{"deeper is not prefix of shallower", "urn:x:y:1.2", "urn:x:y:1", false},
		{"different work", "urn:x:y:1", "urn:x:z:1", false},
		{"subref only prefixes itself", "urn:x:y:1@word[1]", "urn:x:y:1@word[2]", false},
		{"subref reflexive", "urn:x:y:1@word[1]", "urn:x:y:1@word[1]", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Parse(tt.a)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.a, err)
			}
			b, err := Parse(tt.b)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.b, err)
			}
			if got := a.IsPrefixOf(b); got != tt.want {
				t.Errorf("IsPrefixOf(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
