package corpus

import (
	"fmt"
	"strconv"

	"github.com/pletcher/kodon/pkg/cts"
)

// MaxDepth bounds the nesting of textparts and of elements. Streams
// deeper than this fail with a StructuralError.
const MaxDepth = 64

// NoHandle marks an absent node reference.
const NoHandle = -1

// Textpart is a citation node: a numbered structural division such as a
// book, chapter, or line. Handles index into Document.Textparts.
type Textpart struct {
	Handle   int
	Parent   int // NoHandle for roots
	Type     string
	Subtype  string
	N        string // source numbering, may be empty
	Idx      int    // sibling index within the parent scope, dense from 0
	Location string // dotted citation path, e.g. "1.2.4"
	URN      string
	Children []int
}

// Element is a markup node scoped to a textpart, or to the document
// when it opens outside any textpart. TextpartURN and TextpartIdx are
// caches derived from the owning textpart at build time; they are never
// taken from input.
type Element struct {
	Handle      int
	Parent      int // NoHandle for top-level elements
	Textpart    int // NoHandle when outside any textpart
	Tag         string
	Idx         int // sibling index within the parent scope, dense from 0
	URN         string
	TextpartURN string
	TextpartIdx int // NoHandle when Textpart is NoHandle
	Attrs       map[string]string
	Children    []int
}

// Token is one indexed word of text. Position is the token's rank
// within its textpart, dense from 0; Whitespace records whether the
// source had whitespace after the token.
type Token struct {
	Textpart   int
	Element    int // NoHandle when no element was open
	URN        string
	Text       string
	Whitespace bool
	Position   int
}

// Document is the fully built in-memory structure for one source
// document, ready for validation and a single-transaction commit.
type Document struct {
	URN       string
	Lang      string
	Textparts []Textpart
	Elements  []Element
	Tokens    []Token
}

// RootTextparts returns the handles of top-level textparts in document
// order.
func (d *Document) RootTextparts() []int {
	var roots []int
	for _, tp := range d.Textparts {
		if tp.Parent == NoHandle {
			roots = append(roots, tp.Handle)
		}
	}
	return roots
}

// Builder assembles a Document from a structural event stream. It is
// single-use: after the first error every further call returns that
// same error, and no partial Document is ever handed out.
type Builder struct {
	doc      *Document
	tpStack  []int
	elStack  []int
	events   int
	finished bool
	failed   error

	// Per-textpart cursors, indexed by textpart handle.
	pos     []int            // next token position
	textOcc []map[string]int // token text -> occurrences so far
	elTotal []int            // elements opened in the textpart (urn counter)
	elTop   []int            // top-level elements (sibling idx counter)

	rootTextparts  int // sibling idx counter for root textparts
	docElements    int // urn counter for document-scoped elements
	docTopElements int // sibling idx counter for document-scoped elements

	tokenAt map[[2]int]struct{} // (textpart, position) pairs handed out
}

// NewBuilder starts a document batch. The document URN must parse and
// must not carry a subreference.
func NewBuilder(docURN, lang string) (*Builder, error) {
	u, err := cts.Parse(docURN)
	if err != nil {
		return nil, err
	}
	if u.Sub != nil {
		return nil, &cts.ParseError{Input: docURN, Reason: "document urn cannot carry a subreference"}
	}
	return &Builder{
		doc:     &Document{URN: docURN, Lang: lang},
		tokenAt: make(map[[2]int]struct{}),
	}, nil
}

// Apply consumes one event. The returned error, once non-nil, is
// sticky.
func (b *Builder) Apply(ev Event) error {
	if b.failed != nil {
		return b.failed
	}
	if b.finished {
		return b.fail(&StructuralError{Event: b.events, Msg: "event after end of stream"})
	}

	var err error
	switch ev.Kind {
	case EventTextpartEnter:
		err = b.enterTextpart(ev)
	case EventTextpartExit:
		err = b.exitTextpart()
	case EventElementEnter:
		err = b.enterElement(ev)
	case EventElementExit:
		err = b.exitElement()
	case EventToken:
		err = b.token(ev)
	default:
		err = b.fail(&StructuralError{Event: b.events, Msg: fmt.Sprintf("unknown event kind %d", ev.Kind)})
	}
	if err != nil {
		return err
	}
	b.events++
	return nil
}

// ApplyAll consumes events in order, stopping at the first failure.
func (b *Builder) ApplyAll(events []Event) error {
	for _, ev := range events {
		if err := b.Apply(ev); err != nil {
			return err
		}
	}
	return nil
}

// Finish verifies the stream closed every node it opened and returns
// the built Document. The builder cannot be reused afterwards.
func (b *Builder) Finish() (*Document, error) {
	if b.failed != nil {
		return nil, b.failed
	}
	if len(b.tpStack) > 0 || len(b.elStack) > 0 {
		return nil, b.fail(&StructuralError{
			Event: -1,
			Msg:   fmt.Sprintf("%d textpart(s) and %d element(s) left open", len(b.tpStack), len(b.elStack)),
		})
	}
	b.finished = true
	return b.doc, nil
}

// Build runs a whole event stream through a fresh builder.
func Build(docURN, lang string, events []Event) (*Document, error) {
	b, err := NewBuilder(docURN, lang)
	if err != nil {
		return nil, err
	}
	if err := b.ApplyAll(events); err != nil {
		return nil, err
	}
	return b.Finish()
}

func (b *Builder) fail(err error) error {
	b.failed = err
	return err
}

func (b *Builder) enterTextpart(ev Event) error {
	if len(b.elStack) > 0 {
		return b.fail(&StructuralError{Event: b.events, Msg: "textpart entered while an element is open"})
	}
	if len(b.tpStack) >= MaxDepth {
		return b.fail(&StructuralError{Event: b.events, Msg: fmt.Sprintf("textpart depth exceeds %d", MaxDepth)})
	}

	parent := NoHandle
	parentLoc := ""
	if n := len(b.tpStack); n > 0 {
		parent = b.tpStack[n-1]
		parentLoc = b.doc.Textparts[parent].Location
	}

	var idx int
	if parent == NoHandle {
		idx = b.rootTextparts
		b.rootTextparts++
	} else {
		idx = len(b.doc.Textparts[parent].Children)
	}

	// The citation step is the source numbering when present, else the
	// sibling index, so unnumbered divisions still address uniquely.
	step := ev.N
	if step == "" {
		step = strconv.Itoa(idx)
	}
	loc := step
	if parentLoc != "" {
		loc = parentLoc + "." + step
	}

	h := len(b.doc.Textparts)
	b.doc.Textparts = append(b.doc.Textparts, Textpart{
		Handle:   h,
		Parent:   parent,
		Type:     ev.Type,
		Subtype:  ev.Subtype,
		N:        ev.N,
		Idx:      idx,
		Location: loc,
		URN:      b.doc.URN + ":" + loc,
	})
	if parent != NoHandle {
		b.doc.Textparts[parent].Children = append(b.doc.Textparts[parent].Children, h)
	}
	b.tpStack = append(b.tpStack, h)
	b.pos = append(b.pos, 0)
	b.textOcc = append(b.textOcc, nil)
	b.elTotal = append(b.elTotal, 0)
	b.elTop = append(b.elTop, 0)
	return nil
}

func (b *Builder) exitTextpart() error {
	if len(b.tpStack) == 0 {
		return b.fail(&StructuralError{Event: b.events, Msg: "textpart exit with no open textpart"})
	}
	if len(b.elStack) > 0 {
		return b.fail(&StructuralError{Event: b.events, Msg: "textpart exit while an element is open"})
	}
	b.tpStack = b.tpStack[:len(b.tpStack)-1]
	return nil
}

func (b *Builder) enterElement(ev Event) error {
	if ev.Tag == "" {
		return b.fail(&StructuralError{Event: b.events, Msg: "element with empty tagname"})
	}
	if len(b.elStack) >= MaxDepth {
		return b.fail(&StructuralError{Event: b.events, Msg: fmt.Sprintf("element depth exceeds %d", MaxDepth)})
	}

	owner := NoHandle
	if n := len(b.tpStack); n > 0 {
		owner = b.tpStack[n-1]
	}
	parent := NoHandle
	if n := len(b.elStack); n > 0 {
		parent = b.elStack[n-1]
	}

	var idx int
	switch {
	case parent != NoHandle:
		idx = len(b.doc.Elements[parent].Children)
	case owner != NoHandle:
		idx = b.elTop[owner]
		b.elTop[owner]++
	default:
		idx = b.docTopElements
		b.docTopElements++
	}

	// Element URNs count every element opened in the scope, nested ones
	// included, which is distinct from the sibling index.
	scopeURN := b.doc.URN
	var nth int
	if owner != NoHandle {
		scopeURN = b.doc.Textparts[owner].URN
		nth = b.elTotal[owner]
		b.elTotal[owner]++
	} else {
		nth = b.docElements
		b.docElements++
	}

	tpURN := ""
	tpIdx := NoHandle
	if owner != NoHandle {
		tpURN = b.doc.Textparts[owner].URN
		tpIdx = b.doc.Textparts[owner].Idx
	}

	h := len(b.doc.Elements)
	b.doc.Elements = append(b.doc.Elements, Element{
		Handle:      h,
		Parent:      parent,
		Textpart:    owner,
		Tag:         ev.Tag,
		Idx:         idx,
		URN:         fmt.Sprintf("%s@<%s>[%d]", scopeURN, ev.Tag, nth),
		TextpartURN: tpURN,
		TextpartIdx: tpIdx,
		Attrs:       ev.Attrs,
	})
	if parent != NoHandle {
		b.doc.Elements[parent].Children = append(b.doc.Elements[parent].Children, h)
	}
	b.elStack = append(b.elStack, h)
	return nil
}

func (b *Builder) exitElement() error {
	if len(b.elStack) == 0 {
		return b.fail(&StructuralError{Event: b.events, Msg: "element exit with no open element"})
	}
	b.elStack = b.elStack[:len(b.elStack)-1]
	return nil
}

func (b *Builder) token(ev Event) error {
	if len(b.tpStack) == 0 {
		return b.fail(&StructuralError{Event: b.events, Msg: "token outside any open textpart"})
	}
	if ev.Text == "" {
		return b.fail(&StructuralError{Event: b.events, Msg: "empty token text"})
	}

	tp := b.tpStack[len(b.tpStack)-1]
	el := NoHandle
	if n := len(b.elStack); n > 0 {
		el = b.elStack[n-1]
	}

	position := b.pos[tp]
	b.pos[tp]++

	if b.textOcc[tp] == nil {
		b.textOcc[tp] = make(map[string]int)
	}
	b.textOcc[tp][ev.Text]++
	occurrence := b.textOcc[tp][ev.Text]

	at := [2]int{tp, position}
	if _, taken := b.tokenAt[at]; taken {
		return b.fail(&InvariantError{
			Msg: fmt.Sprintf("token position %d in textpart %d assigned twice", position, tp),
		})
	}
	b.tokenAt[at] = struct{}{}

	b.doc.Tokens = append(b.doc.Tokens, Token{
		Textpart:   tp,
		Element:    el,
		URN:        fmt.Sprintf("%s@%s[%d]", b.doc.Textparts[tp].URN, ev.Text, occurrence),
		Text:       ev.Text,
		Whitespace: ev.Whitespace,
		Position:   position,
	})
	return nil
}
