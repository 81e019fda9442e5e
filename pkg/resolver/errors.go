package resolver

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound reports a URN that matches no committed row.
	ErrNotFound = errors.New("urn not found")

	// ErrInvalidRange reports a range whose endpoints cannot form a
	// span: no common ancestor textpart, reversed document order, or an
	// endpoint without tokens.
	ErrInvalidRange = errors.New("invalid range")
)

// NotFoundError carries the URN that failed to resolve. It unwraps to
// ErrNotFound.
type NotFoundError struct {
	URN string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("urn not found: %s", e.URN)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// RangeError explains why a pair of endpoints is not a valid range. It
// unwraps to ErrInvalidRange.
type RangeError struct {
	Start  string
	End    string
	Reason string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid range %s .. %s: %s", e.Start, e.End, e.Reason)
}

func (e *RangeError) Unwrap() error { return ErrInvalidRange }
