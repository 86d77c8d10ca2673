package eval

import "errors"

var (
	// ErrMissingVar is returned when fewer values are bound than the tape
	// has variables. Missing variables are never defaulted.
	ErrMissingVar = errors.New("missing variable binding")
	// ErrShortColumn is returned when a batch input column is shorter than
	// the output.
	ErrShortColumn = errors.New("input column shorter than output")
)
