package scheduling

import "errors"

// Error kinds returned by the scheduler. Callers classify with errors.Is; the
// wrapped message says which rule failed. ErrStorage carries persistence
// faults unchanged; the scheduler never interprets their internals.
var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidArgument   = errors.New("invalid appointment request")
	ErrConflict          = errors.New("conflicting appointment")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStorage           = errors.New("storage failure")
)
