package models

import "errors"

// Error kinds shared across the pipeline. Wrap with fmt.Errorf("%w: ...") to
// attach detail while keeping errors.Is checks working.
var (
	ErrMalformedInput = errors.New("malformed input data")
	ErrBudgetExceeded = errors.New("sampling budget exceeded")
	ErrEmptyPosterior = errors.New("empty posterior")
)
