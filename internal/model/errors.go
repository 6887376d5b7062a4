package model

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedUnit reports a compiled unit that could not be decoded.
	ErrMalformedUnit = errors.New("malformed unit")

	// ErrInvalidModel reports a model that violates a structural invariant,
	// such as a type owning itself.
	ErrInvalidModel = errors.New("invalid model")
)

// UnitError describes a decode failure of one unit. It matches
// ErrMalformedUnit with errors.Is and unwraps to the specific cause.
type UnitError struct {
	// Path is the unit path inside its artifact; empty until the scanner
	// context is known.
	Path string
	// Offset is the byte offset where decoding stopped, or -1.
	Offset int
	Reason string
	Err    error
}

func (e *UnitError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	loc := e.Path
	if loc == "" {
		loc = "unit"
	}
	if e.Offset >= 0 {
		return fmt.Sprintf("%s: %s at offset %d: %s", loc, ErrMalformedUnit, e.Offset, msg)
	}
	return fmt.Sprintf("%s: %s: %s", loc, ErrMalformedUnit, msg)
}

func (e *UnitError) Unwrap() error { return e.Err }

func (e *UnitError) Is(target error) bool { return target == ErrMalformedUnit }

// WithPath returns err with the unit path filled in. Errors that are not a
// *UnitError are returned unchanged.
func WithPath(err error, path string) error {
	var ue *UnitError
	if errors.As(err, &ue) && ue.Path == "" {
		cp := *ue
		cp.Path = path
		return &cp
	}
	return err
}
