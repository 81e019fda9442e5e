package corpus

import (
	"fmt"

	"github.com/pletcher/kodon/pkg/cts"
)

// Validate checks a fully built Document before it may be committed:
// handle closure, parent-graph acyclicity, batch-wide URN uniqueness,
// and ordering density for token positions and sibling indices. The
// builder establishes these properties by construction; Validate
// re-checks them because Documents may be assembled by other producers.
// The first violation found is returned and the document must not be
// committed.
func Validate(doc *Document) error {
	if doc == nil {
		return &StructuralError{Event: -1, Msg: "nil document"}
	}
	u, err := cts.Parse(doc.URN)
	if err != nil {
		return err
	}
	if u.Sub != nil {
		return &cts.ParseError{Input: doc.URN, Reason: "document urn cannot carry a subreference"}
	}

	if err := validateClosure(doc); err != nil {
		return err
	}
	if err := validateAcyclic(doc); err != nil {
		return err
	}
	if err := validateUniqueURNs(doc); err != nil {
		return err
	}
	return validateOrdering(doc)
}

func validateClosure(doc *Document) error {
	nTP, nEl := len(doc.Textparts), len(doc.Elements)

	for i, tp := range doc.Textparts {
		if tp.Handle != i {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("textpart at slot %d carries handle %d", i, tp.Handle)}
		}
		if tp.Parent != NoHandle && (tp.Parent < 0 || tp.Parent >= nTP || tp.Parent == i) {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("textpart %s has dangling parent handle %d", tp.URN, tp.Parent)}
		}
		for _, c := range tp.Children {
			if c < 0 || c >= nTP {
				return &StructuralError{Event: -1, Msg: fmt.Sprintf("textpart %s has dangling child handle %d", tp.URN, c)}
			}
			if doc.Textparts[c].Parent != i {
				return &StructuralError{Event: -1, Msg: fmt.Sprintf("textpart %s lists child %s that names a different parent", tp.URN, doc.Textparts[c].URN)}
			}
		}
		if tp.Parent != NoHandle && !containsHandle(doc.Textparts[tp.Parent].Children, i) {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("textpart %s missing from its parent's children", tp.URN)}
		}
	}

	for i, el := range doc.Elements {
		if el.Handle != i {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("element at slot %d carries handle %d", i, el.Handle)}
		}
		if el.Parent != NoHandle && (el.Parent < 0 || el.Parent >= nEl || el.Parent == i) {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s has dangling parent handle %d", el.URN, el.Parent)}
		}
		if el.Textpart != NoHandle && (el.Textpart < 0 || el.Textpart >= nTP) {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s has dangling textpart handle %d", el.URN, el.Textpart)}
		}
		for _, c := range el.Children {
			if c < 0 || c >= nEl {
				return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s has dangling child handle %d", el.URN, c)}
			}
			if doc.Elements[c].Parent != i {
				return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s lists child %s that names a different parent", el.URN, doc.Elements[c].URN)}
			}
		}
		if el.Parent != NoHandle && !containsHandle(doc.Elements[el.Parent].Children, i) {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s missing from its parent's children", el.URN)}
		}

		// The textpart columns on an element are derived caches of its
		// owner; independent values mean the producer wrote them by hand.
		if el.Textpart == NoHandle {
			if el.TextpartURN != "" || el.TextpartIdx != NoHandle {
				return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s caches a textpart it does not reference", el.URN)}
			}
		} else {
			owner := doc.Textparts[el.Textpart]
			if el.TextpartURN != owner.URN || el.TextpartIdx != owner.Idx {
				return &StructuralError{Event: -1, Msg: fmt.Sprintf("element %s textpart cache disagrees with owner %s", el.URN, owner.URN)}
			}
		}
	}

	for i, tok := range doc.Tokens {
		if tok.Textpart < 0 || tok.Textpart >= nTP {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("token %d (%s) has dangling textpart handle %d", i, tok.URN, tok.Textpart)}
		}
		if tok.Element != NoHandle && (tok.Element < 0 || tok.Element >= nEl) {
			return &StructuralError{Event: -1, Msg: fmt.Sprintf("token %d (%s) has dangling element handle %d", i, tok.URN, tok.Element)}
		}
	}
	return nil
}

func containsHandle(handles []int, h int) bool {
	for _, c := range handles {
		if c == h {
			return true
		}
	}
	return false
}

// validateAcyclic walks every parent chain with a step bound of the
// node count; a chain that fails to reach a root within the bound
// loops.
func validateAcyclic(doc *Document) error {
	for _, tp := range doc.Textparts {
		steps := 0
		for at := tp.Parent; at != NoHandle; at = doc.Textparts[at].Parent {
			steps++
			if steps > len(doc.Textparts) {
				return &CyclicStructureError{Kind: "textpart", Handle: tp.Handle}
			}
		}
	}
	for _, el := range doc.Elements {
		steps := 0
		for at := el.Parent; at != NoHandle; at = doc.Elements[at].Parent {
			steps++
			if steps > len(doc.Elements) {
				return &CyclicStructureError{Kind: "element", Handle: el.Handle}
			}
		}
	}
	return nil
}

func validateUniqueURNs(doc *Document) error {
	seen := make(map[string]struct{}, 1+len(doc.Textparts)+len(doc.Elements)+len(doc.Tokens))
	seen[doc.URN] = struct{}{}

	claim := func(urn string) error {
		if _, dup := seen[urn]; dup {
			return &DuplicateURNError{URN: urn, Scope: "batch"}
		}
		seen[urn] = struct{}{}
		return nil
	}

	for _, tp := range doc.Textparts {
		if err := claim(tp.URN); err != nil {
			return err
		}
	}
	for _, el := range doc.Elements {
		if err := claim(el.URN); err != nil {
			return err
		}
	}
	for _, tok := range doc.Tokens {
		if err := claim(tok.URN); err != nil {
			return err
		}
	}
	return nil
}

func validateOrdering(doc *Document) error {
	// Token positions per textpart must be exactly {0..n-1}.
	positions := make(map[int][]int)
	for _, tok := range doc.Tokens {
		positions[tok.Textpart] = append(positions[tok.Textpart], tok.Position)
	}
	for tpHandle, ps := range positions {
		urn := doc.Textparts[tpHandle].URN
		seen := make([]bool, len(ps))
		for _, p := range ps {
			if p < 0 || p >= len(ps) {
				return &OrderingError{Scope: urn, Msg: fmt.Sprintf("token position %d outside dense range [0,%d)", p, len(ps))}
			}
			if seen[p] {
				return &OrderingError{Scope: urn, Msg: fmt.Sprintf("token position %d assigned twice", p)}
			}
			seen[p] = true
		}
	}

	// Sibling indices are dense from 0, in child order, in every scope.
	rootIdx := 0
	for _, tp := range doc.Textparts {
		if tp.Parent != NoHandle {
			continue
		}
		if tp.Idx != rootIdx {
			return &OrderingError{Scope: doc.URN, Msg: fmt.Sprintf("root textpart %s has idx %d, want %d", tp.URN, tp.Idx, rootIdx)}
		}
		rootIdx++
	}
	for _, tp := range doc.Textparts {
		for i, c := range tp.Children {
			if doc.Textparts[c].Idx != i {
				return &OrderingError{Scope: tp.URN, Msg: fmt.Sprintf("child textpart %s has idx %d, want %d", doc.Textparts[c].URN, doc.Textparts[c].Idx, i)}
			}
		}
	}

	topEl := make(map[int]int) // textpart handle -> next top-level element idx
	docEl := 0
	for _, el := range doc.Elements {
		if el.Parent != NoHandle {
			continue
		}
		if el.Textpart == NoHandle {
			if el.Idx != docEl {
				return &OrderingError{Scope: doc.URN, Msg: fmt.Sprintf("document element %s has idx %d, want %d", el.URN, el.Idx, docEl)}
			}
			docEl++
			continue
		}
		want := topEl[el.Textpart]
		if el.Idx != want {
			return &OrderingError{Scope: doc.Textparts[el.Textpart].URN, Msg: fmt.Sprintf("element %s has idx %d, want %d", el.URN, el.Idx, want)}
		}
		topEl[el.Textpart] = want + 1
	}
	for _, el := range doc.Elements {
		for i, c := range el.Children {
			if doc.Elements[c].Idx != i {
				return &OrderingError{Scope: el.URN, Msg: fmt.Sprintf("child element %s has idx %d, want %d", doc.Elements[c].URN, doc.Elements[c].Idx, i)}
			}
		}
	}
	return nil
}
