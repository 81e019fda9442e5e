// Package corpus builds and validates the in-memory structure of one
// document: the textpart tree (citation nodes), the element forest
// (markup nodes), and the position-indexed token list. Input is an
// ordered stream of structural events; output is a Document whose nodes
// reference each other by batch-scoped integer handles. Database row
// IDs do not exist at this layer.
package corpus

// EventKind discriminates structural events.
type EventKind int

const (
	// EventTextpartEnter opens a citation node (book, chapter, line).
	EventTextpartEnter EventKind = iota + 1
	// EventTextpartExit closes the innermost open textpart.
	EventTextpartExit
	// EventElementEnter opens a markup node inside the current scope.
	EventElementEnter
	// EventElementExit closes the innermost open element.
	EventElementExit
	// EventToken emits one token into the innermost open textpart.
	EventToken
)

func (k EventKind) String() string {
	switch k {
	case EventTextpartEnter:
		return "textpart-enter"
	case EventTextpartExit:
		return "textpart-exit"
	case EventElementEnter:
		return "element-enter"
	case EventElementExit:
		return "element-exit"
	case EventToken:
		return "token"
	default:
		return "unknown"
	}
}

// Event is one step of a document's structural stream. Only the fields
// for the given Kind are meaningful.
type Event struct {
	Kind EventKind

	// TextpartEnter fields.
	Type    string
	Subtype string
	N       string

	// ElementEnter fields.
	Tag   string
	Attrs map[string]string

	// Token fields.
	Text       string
	Whitespace bool
}

// TextpartEnter builds a citation-node open event. N may be empty for
// unnumbered textparts.
func TextpartEnter(typ, subtype, n string) Event {
	return Event{Kind: EventTextpartEnter, Type: typ, Subtype: subtype, N: n}
}

// TextpartExit builds a citation-node close event.
func TextpartExit() Event { return Event{Kind: EventTextpartExit} }

// ElementEnter builds a markup-node open event.
func ElementEnter(tag string, attrs map[string]string) Event {
	return Event{Kind: EventElementEnter, Tag: tag, Attrs: attrs}
}

// ElementExit builds a markup-node close event.
func ElementExit() Event { return Event{Kind: EventElementExit} }

// TokenEvent builds a token emission. Whitespace records whether the
// token was followed by whitespace in the source text.
func TokenEvent(text string, whitespace bool) Event {
	return Event{Kind: EventToken, Text: text, Whitespace: whitespace}
}
