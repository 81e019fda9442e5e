// Package docfile reads parsed document files, the JSON interchange
// format an external markup parser emits: one file per document holding
// the source metadata, the citation textparts, and the element forest
// with its token runs. Load decodes a file (transparently decompressing
// .xz), Discover lists a corpus directory, and Events turns a decoded
// document into the structural event stream the corpus builder
// consumes. Structural fields stored in the file (URNs, indices,
// locations) are advisory: the builder re-derives all of them.
package docfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/pletcher/kodon/pkg/corpus"
	"github.com/pletcher/kodon/pkg/cts"
)

// ErrInvalidDocument is the sentinel for a document file whose content
// cannot be turned into a well-formed event stream.
var ErrInvalidDocument = errors.New("invalid document file")

// InvalidDocumentError reports what is wrong with a document file. It
// unwraps to ErrInvalidDocument.
type InvalidDocumentError struct {
	Path   string
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document file %s: %s", e.Path, e.Reason)
}

func (e *InvalidDocumentError) Unwrap() error { return ErrInvalidDocument }

// TagTextRun marks the pseudo-element that carries a run of tokens
// among an element's children.
const TagTextRun = "text_run"

// Document is one decoded document file. The statement fields hold
// raw header markup from the source and are carried for display only.
type Document struct {
	SourceFile      string     `json:"source_file"`
	Author          string     `json:"author"`
	EditionStmt     string     `json:"editionStmt"`
	Language        string     `json:"language"`
	PublicationStmt string     `json:"publicationStmt"`
	RespStmt        string     `json:"respStmt"`
	SourceDesc      string     `json:"sourceDesc"`
	Title           string     `json:"title"`
	URN             string     `json:"urn"`
	TextpartLabels  []string   `json:"textpart_labels"`
	Textparts       []Textpart `json:"textparts"`
	Elements        []Element  `json:"elements"`

	path string
}

// Textpart is one citation node of the file. Location is the dotted
// citation path as a list of steps; Index is the node's document-order
// rank, which orders siblings during event derivation.
type Textpart struct {
	Index    int      `json:"index"`
	Location []string `json:"location"`
	N        string   `json:"n"`
	Subtype  string   `json:"subtype"`
	Type     string   `json:"type"`
	URN      string   `json:"urn"`
}

// Element is a markup node, or a text run when Tagname is TagTextRun.
// Children preserves the mixed-content order of nested elements and
// token runs. TextpartIndex is nil for document-scoped elements.
type Element struct {
	Index         int               `json:"index"`
	Tagname       string            `json:"tagname"`
	TextpartIndex *int              `json:"textpart_index"`
	TextpartURN   string            `json:"textpart_urn"`
	URN           string            `json:"urn"`
	Attributes    map[string]string `json:"attributes"`
	Children      []Element         `json:"children"`
	Tokens        []Token           `json:"tokens"`
}

// Token is one word of a text run.
type Token struct {
	Text       string `json:"text"`
	URN        string `json:"urn"`
	Whitespace bool   `json:"whitespace"`
}

// Load reads and decodes one document file. Files ending in .xz are
// decompressed on the fly. The document URN must be present and must
// parse as a citation URN.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".xz") {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
		r = xr
	}

	var doc Document
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, &InvalidDocumentError{Path: path, Reason: fmt.Sprintf("decode: %v", err)}
	}
	doc.path = path

	if doc.URN == "" {
		return nil, &InvalidDocumentError{Path: path, Reason: "no document urn"}
	}
	if _, err := cts.Parse(doc.URN); err != nil {
		return nil, &InvalidDocumentError{Path: path, Reason: fmt.Sprintf("document urn: %v", err)}
	}
	return &doc, nil
}

// Path returns the file the document was loaded from, empty for
// documents not read through Load.
func (d *Document) Path() string { return d.path }

// Discover lists the document files under dir recursively: every
// *.json and *.json.xz, sorted by path.
func Discover(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".json") || strings.HasSuffix(path, ".json.xz") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover document files in %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Events derives the canonical structural event stream for the corpus
// builder. Textpart nesting is reconstructed from locations (a node's
// parent is the textpart one step shorter on the same path), siblings
// ordered by their document-order index. Within a textpart the stream
// emits the textpart's elements before its child textparts;
// document-scoped elements follow all textparts. Token and element
// URNs stored in the file are not consulted.
func (d *Document) Events() ([]corpus.Event, error) {
	byLocation := make(map[string]int, len(d.Textparts))
	for i, tp := range d.Textparts {
		if len(tp.Location) == 0 {
			return nil, d.invalid(fmt.Sprintf("textpart %s has no location", tp.URN))
		}
		key := strings.Join(tp.Location, ".")
		if prev, dup := byLocation[key]; dup {
			return nil, d.invalid(fmt.Sprintf("textparts %s and %s share location %s",
				d.Textparts[prev].URN, tp.URN, key))
		}
		byLocation[key] = i
	}

	// Child lists per parent, ordered by document-order index.
	children := make(map[int][]int)
	var roots []int
	for i, tp := range d.Textparts {
		if len(tp.Location) == 1 {
			roots = append(roots, i)
			continue
		}
		parentKey := strings.Join(tp.Location[:len(tp.Location)-1], ".")
		parent, ok := byLocation[parentKey]
		if !ok {
			return nil, d.invalid(fmt.Sprintf("textpart %s has no parent at %s", tp.URN, parentKey))
		}
		children[parent] = append(children[parent], i)
	}
	byIndex := func(ids []int) {
		sort.Slice(ids, func(a, b int) bool {
			return d.Textparts[ids[a]].Index < d.Textparts[ids[b]].Index
		})
	}
	byIndex(roots)
	for _, ids := range children {
		byIndex(ids)
	}

	owned, unowned, err := d.groupElements()
	if err != nil {
		return nil, err
	}

	var events []corpus.Event
	var emitTextpart func(i int) error
	emitTextpart = func(i int) error {
		tp := d.Textparts[i]
		events = append(events, corpus.TextpartEnter(tp.Type, tp.Subtype, tp.N))
		for _, el := range owned[i] {
			if err := d.emitElement(&events, el); err != nil {
				return err
			}
		}
		for _, c := range children[i] {
			if err := emitTextpart(c); err != nil {
				return err
			}
		}
		events = append(events, corpus.TextpartExit())
		return nil
	}
	for _, r := range roots {
		if err := emitTextpart(r); err != nil {
			return nil, err
		}
	}
	for _, el := range unowned {
		if err := d.emitElement(&events, el); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// groupElements splits the top-level element forest into per-textpart
// lists plus the document-scoped leftovers, each ordered by index. A
// top-level text run would mean tokens outside any element, which the
// builder cannot place.
func (d *Document) groupElements() (owned map[int][]*Element, unowned []*Element, err error) {
	owned = make(map[int][]*Element)
	for i := range d.Elements {
		el := &d.Elements[i]
		if el.Tagname == TagTextRun {
			return nil, nil, d.invalid("token run outside any element")
		}
		tp, ok, err := d.resolveOwner(el)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			unowned = append(unowned, el)
			continue
		}
		owned[tp] = append(owned[tp], el)
	}
	byIndex := func(els []*Element) {
		sort.Slice(els, func(a, b int) bool { return els[a].Index < els[b].Index })
	}
	for _, els := range owned {
		byIndex(els)
	}
	byIndex(unowned)
	return owned, unowned, nil
}

// resolveOwner finds the textpart a top-level element belongs to, by
// document-order index when present, else by the cached textpart URN.
func (d *Document) resolveOwner(el *Element) (int, bool, error) {
	if el.TextpartIndex != nil {
		for i, tp := range d.Textparts {
			if tp.Index == *el.TextpartIndex {
				return i, true, nil
			}
		}
		return 0, false, d.invalid(fmt.Sprintf("element %s references missing textpart index %d", el.URN, *el.TextpartIndex))
	}
	if el.TextpartURN != "" && el.TextpartURN != d.URN {
		for i, tp := range d.Textparts {
			if tp.URN == el.TextpartURN {
				return i, true, nil
			}
		}
		return 0, false, d.invalid(fmt.Sprintf("element %s references missing textpart %s", el.URN, el.TextpartURN))
	}
	return 0, false, nil
}

// emitElement appends the events for one element subtree, preserving
// the mixed-content order of nested elements and token runs.
func (d *Document) emitElement(events *[]corpus.Event, el *Element) error {
	if el.Tagname == "" {
		return d.invalid("element with empty tagname")
	}
	*events = append(*events, corpus.ElementEnter(el.Tagname, el.Attributes))
	for i := range el.Children {
		child := &el.Children[i]
		if child.Tagname == TagTextRun {
			for _, tok := range child.Tokens {
				if tok.Text == "" {
					return d.invalid(fmt.Sprintf("empty token text in %s", el.URN))
				}
				*events = append(*events, corpus.TokenEvent(tok.Text, tok.Whitespace))
			}
			continue
		}
		if err := d.emitElement(events, child); err != nil {
			return err
		}
	}
	*events = append(*events, corpus.ElementExit())
	return nil
}

func (d *Document) invalid(reason string) error {
	path := d.path
	if path == "" {
		path = d.URN
	}
	return &InvalidDocumentError{Path: path, Reason: reason}
}
