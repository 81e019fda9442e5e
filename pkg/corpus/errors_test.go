package corpus

import (
	"errors"
	"testing"
)

// Every typed error must match its sentinel through errors.Is; the CLI
// and callers rely on that for dispatch.
func TestErrorSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"structural", &StructuralError{Event: 3, Msg: "x"}, ErrStructural},
		{"cyclic", &CyclicStructureError{Kind: "element", Handle: 1}, ErrCyclicStructure},
		{"ordering", &OrderingError{Scope: "urn:x:y:1", Msg: "x"}, ErrOrderingViolation},
		{"invariant", &InvariantError{Msg: "x"}, ErrBuilderInvariant},
		{"duplicate", &DuplicateURNError{URN: "urn:x:y:1", Scope: "batch"}, ErrDuplicateURN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("%v does not match its sentinel", tt.err)
			}
			if tt.err.Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrStructural, ErrCyclicStructure, ErrOrderingViolation, ErrBuilderInvariant, ErrDuplicateURN}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Errorf("sentinel %v matches %v", a, b)
			}
		}
	}
}
