package corpus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure modes of building and validating a
// document. Callers match them with errors.Is; the typed errors below
// carry the context and unwrap to these.
var (
	// ErrStructural reports a malformed event sequence: mismatched
	// enter/exit pairs, tokens outside a textpart, depth overflow.
	ErrStructural = errors.New("malformed structural event sequence")

	// ErrCyclicStructure reports a cycle in a parent-link graph.
	ErrCyclicStructure = errors.New("cyclic structure")

	// ErrOrderingViolation reports non-dense token positions or
	// sibling indices.
	ErrOrderingViolation = errors.New("ordering violation")

	// ErrBuilderInvariant reports an internal builder collision that
	// should be unreachable through the event interface.
	ErrBuilderInvariant = errors.New("builder invariant violated")

	// ErrDuplicateURN reports a URN collision: within a batch, against
	// committed rows, or between in-flight ingestions.
	ErrDuplicateURN = errors.New("duplicate urn")
)

// StructuralError describes where a malformed event sequence failed.
// Event is the zero-based ordinal of the offending event, or -1 when
// the failure is detected at end of stream.
type StructuralError struct {
	Event int
	Msg   string
}

func (e *StructuralError) Error() string {
	if e.Event < 0 {
		return fmt.Sprintf("structural error at end of stream: %s", e.Msg)
	}
	return fmt.Sprintf("structural error at event %d: %s", e.Event, e.Msg)
}

func (e *StructuralError) Unwrap() error { return ErrStructural }

// CyclicStructureError identifies the node whose parent chain loops.
type CyclicStructureError struct {
	Kind   string // "element" or "textpart"
	Handle int
}

func (e *CyclicStructureError) Error() string {
	return fmt.Sprintf("cyclic structure: %s %d parent chain loops", e.Kind, e.Handle)
}

func (e *CyclicStructureError) Unwrap() error { return ErrCyclicStructure }

// OrderingError describes a density violation in token positions or
// sibling indices within one scope.
type OrderingError struct {
	Scope string
	Msg   string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("ordering violation in %s: %s", e.Scope, e.Msg)
}

func (e *OrderingError) Unwrap() error { return ErrOrderingViolation }

// InvariantError reports a condition the builder is supposed to make
// impossible. Seeing one means a bug, not bad input.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("builder invariant violated: %s", e.Msg)
}

func (e *InvariantError) Unwrap() error { return ErrBuilderInvariant }

// DuplicateURNError identifies the colliding URN and where the
// collision was seen ("batch", "store", or "in-flight").
type DuplicateURNError struct {
	URN   string
	Scope string
}

func (e *DuplicateURNError) Error() string {
	return fmt.Sprintf("duplicate urn %s (%s)", e.URN, e.Scope)
}

func (e *DuplicateURNError) Unwrap() error { return ErrDuplicateURN }
