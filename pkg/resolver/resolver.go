// Package resolver serves read queries against committed documents:
// exact URN lookup, child listing, passage text reconstruction, and
// token ranges between two citation endpoints. All operations are
// read-only and deterministic over immutable committed data.
package resolver

import (
	"context"
	"strings"

	"github.com/pletcher/kodon/pkg/db"
)

// Kind discriminates the node types a URN can resolve to.
type Kind int

const (
	KindDocument Kind = iota + 1
	KindTextpart
	KindElement
	KindToken
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindTextpart:
		return "textpart"
	case KindElement:
		return "element"
	case KindToken:
		return "token"
	default:
		return "unknown"
	}
}

// Node is one resolved row. Exactly the field matching Kind is set.
type Node struct {
	Kind     Kind
	Document *db.Document
	Textpart *db.Textpart
	Element  *db.Element
	Token    *db.Token
}

// URN returns the canonical URN of the resolved row.
func (n Node) URN() string {
	switch n.Kind {
	case KindDocument:
		return n.Document.URN
	case KindTextpart:
		return n.Textpart.URN
	case KindElement:
		return n.Element.URN
	case KindToken:
		return n.Token.URN
	default:
		return ""
	}
}

// Resolver answers citation queries against a committed store.
type Resolver struct {
	store db.DBExecutor
}

// New returns a resolver reading from the given store connection.
func New(store db.DBExecutor) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks a URN up by exact string match, in order: documents,
// textparts, elements, tokens. Token URNs embed raw token text, which
// the strict codec may refuse, so resolution never re-parses the input.
func (r *Resolver) Resolve(ctx context.Context, urn string) (*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := db.GetDocument(r.store, urn)
	if err != nil {
		return nil, err
	}
	if doc != nil {
		return &Node{Kind: KindDocument, Document: doc}, nil
	}

	tp, err := db.GetTextpartByURN(r.store, urn)
	if err != nil {
		return nil, err
	}
	if tp != nil {
		return &Node{Kind: KindTextpart, Textpart: tp}, nil
	}

	el, err := db.GetElementByURN(r.store, urn)
	if err != nil {
		return nil, err
	}
	if el != nil {
		return &Node{Kind: KindElement, Element: el}, nil
	}

	tok, err := db.GetTokenByURN(r.store, urn)
	if err != nil {
		return nil, err
	}
	if tok != nil {
		return &Node{Kind: KindToken, Token: tok}, nil
	}

	return nil, &NotFoundError{URN: urn}
}

// Children returns the direct children of a node in document order:
// a document's top-level textparts followed by its document-scoped
// elements; a textpart's child textparts followed by its top-level
// elements; an element's child elements followed by its direct tokens.
// A token has no children. Re-querying yields the same sequence.
func (r *Resolver) Children(ctx context.Context, urn string) ([]Node, error) {
	node, err := r.Resolve(ctx, urn)
	if err != nil {
		return nil, err
	}

	var children []Node
	switch node.Kind {
	case KindDocument:
		tps, err := db.RootTextparts(r.store, node.Document.URN)
		if err != nil {
			return nil, err
		}
		for i := range tps {
			children = append(children, Node{Kind: KindTextpart, Textpart: &tps[i]})
		}
		els, err := db.DocumentScopedElements(r.store, node.Document.URN)
		if err != nil {
			return nil, err
		}
		for i := range els {
			children = append(children, Node{Kind: KindElement, Element: &els[i]})
		}

	case KindTextpart:
		tps, err := db.ChildTextparts(r.store, node.Textpart.DocumentURN, node.Textpart.Location)
		if err != nil {
			return nil, err
		}
		for i := range tps {
			children = append(children, Node{Kind: KindTextpart, Textpart: &tps[i]})
		}
		els, err := db.TopElementsByTextpart(r.store, node.Textpart.ID)
		if err != nil {
			return nil, err
		}
		for i := range els {
			children = append(children, Node{Kind: KindElement, Element: &els[i]})
		}

	case KindElement:
		els, err := db.ChildElements(r.store, node.Element.ID)
		if err != nil {
			return nil, err
		}
		for i := range els {
			children = append(children, Node{Kind: KindElement, Element: &els[i]})
		}
		toks, err := db.TokensByElement(r.store, node.Element.ID)
		if err != nil {
			return nil, err
		}
		for i := range toks {
			children = append(children, Node{Kind: KindToken, Token: &toks[i]})
		}
	}
	return children, nil
}

// Text reconstructs the passage text a URN addresses. A textpart
// renders its tokens in position order, each followed by one space when
// its whitespace flag is set; an element renders its subtree's tokens
// the same way; a token renders its text. A document renders every
// token-bearing textpart in document order, joined with newlines.
func (r *Resolver) Text(ctx context.Context, urn string) (string, error) {
	node, err := r.Resolve(ctx, urn)
	if err != nil {
		return "", err
	}

	switch node.Kind {
	case KindDocument:
		tps, err := db.TextpartsByDocument(r.store, node.Document.URN)
		if err != nil {
			return "", err
		}
		var lines []string
		for i := range tps {
			toks, err := db.TokensByTextpart(r.store, tps[i].ID)
			if err != nil {
				return "", err
			}
			if len(toks) == 0 {
				continue
			}
			lines = append(lines, renderTokens(toks))
		}
		return strings.Join(lines, "\n"), nil

	case KindTextpart:
		toks, err := db.TokensByTextpart(r.store, node.Textpart.ID)
		if err != nil {
			return "", err
		}
		return renderTokens(toks), nil

	case KindElement:
		toks, err := db.TokensByElementSubtree(r.store, node.Element.ID)
		if err != nil {
			return "", err
		}
		return renderTokens(toks), nil

	default:
		return node.Token.Text, nil
	}
}

// Range returns the tokens from start to end inclusive, in document
// order. Endpoints may be tokens, textparts, or elements; a non-token
// endpoint spans its whole token extent. Both endpoints must lie under
// a common ancestor textpart and start must not follow end in document
// order; otherwise the pair fails with ErrInvalidRange.
func (r *Resolver) Range(ctx context.Context, startURN, endURN string) ([]db.Token, error) {
	start, err := r.Resolve(ctx, startURN)
	if err != nil {
		return nil, err
	}
	end, err := r.Resolve(ctx, endURN)
	if err != nil {
		return nil, err
	}

	fail := func(reason string) ([]db.Token, error) {
		return nil, &RangeError{Start: startURN, End: endURN, Reason: reason}
	}

	startFirst, startTP, err := r.extent(start, true)
	if err != nil {
		return nil, err
	}
	endLast, endTP, err := r.extent(end, false)
	if err != nil {
		return nil, err
	}
	if startFirst == nil {
		return fail("start endpoint has no tokens")
	}
	if endLast == nil {
		return fail("end endpoint has no tokens")
	}

	if startTP.DocumentURN != endTP.DocumentURN {
		return fail("endpoints belong to different documents")
	}
	if rootStep(startTP.Location) != rootStep(endTP.Location) {
		return fail("endpoints share no ancestor textpart")
	}
	if endLast.TextpartID < startFirst.TextpartID ||
		(endLast.TextpartID == startFirst.TextpartID && endLast.Position < startFirst.Position) {
		return fail("end precedes start in document order")
	}

	return db.TokensBetween(r.store, startTP.DocumentURN,
		startFirst.TextpartID, startFirst.Position,
		endLast.TextpartID, endLast.Position)
}

// Descendants returns the textparts at or under a citation node in
// document order: every textpart of a document, or a textpart plus all
// textparts whose location extends it. Elements and tokens have no
// descendant textparts.
func (r *Resolver) Descendants(ctx context.Context, urn string) ([]db.Textpart, error) {
	node, err := r.Resolve(ctx, urn)
	if err != nil {
		return nil, err
	}
	switch node.Kind {
	case KindDocument:
		return db.TextpartsByDocument(r.store, node.Document.URN)
	case KindTextpart:
		return db.DescendantTextparts(r.store, node.Textpart.DocumentURN, node.Textpart.Location)
	default:
		return nil, nil
	}
}

// extent finds the boundary token of a range endpoint: the first token
// of its span when first is true, the last otherwise, plus the
// textpart the endpoint belongs to. The token is nil for endpoints
// without tokens; documents have no textpart ancestry and cannot bound
// a range.
func (r *Resolver) extent(node *Node, first bool) (*db.Token, *db.Textpart, error) {
	switch node.Kind {
	case KindToken:
		tp, err := db.GetTextpartByID(r.store, node.Token.TextpartID)
		if err != nil {
			return nil, nil, err
		}
		return node.Token, tp, nil

	case KindTextpart:
		lo, hi, err := db.TokenSpanByLocation(r.store, node.Textpart.DocumentURN, node.Textpart.Location)
		if err != nil {
			return nil, nil, err
		}
		if first {
			return lo, node.Textpart, nil
		}
		return hi, node.Textpart, nil

	case KindElement:
		if node.Element.TextpartID == 0 {
			// Document-scoped elements never hold tokens.
			return nil, nil, &RangeError{Start: node.URN(), End: node.URN(), Reason: "endpoint has no textpart"}
		}
		tp, err := db.GetTextpartByID(r.store, node.Element.TextpartID)
		if err != nil {
			return nil, nil, err
		}
		lo, hi, err := db.TokenSpanByElement(r.store, node.Element.ID)
		if err != nil {
			return nil, nil, err
		}
		if first {
			return lo, tp, nil
		}
		return hi, tp, nil

	default:
		return nil, nil, &RangeError{Start: node.URN(), End: node.URN(), Reason: "a document cannot bound a range"}
	}
}

// renderTokens joins tokens in position order, inserting a single
// space after each token whose whitespace flag is set. This is the
// inverse of tokenization: it reproduces the source text byte for
// byte.
func renderTokens(toks []db.Token) string {
	var b strings.Builder
	for i := range toks {
		b.WriteString(toks[i].Text)
		if toks[i].Whitespace {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// rootStep returns the first citation step of a location path.
func rootStep(location string) string {
	if i := strings.IndexByte(location, '.'); i >= 0 {
		return location[:i]
	}
	return location
}
