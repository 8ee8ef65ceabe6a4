package domain

import "errors"

var (
	// ErrNotObject is reported when a task payload is not a JSON object.
	ErrNotObject = errors.New("task must be a JSON object")
	// ErrMissingID is reported when a task payload has no "id" field.
	ErrMissingID = errors.New("field is required")
	// ErrInvalidID is reported when "id" is present but not an integer.
	ErrInvalidID = errors.New("field must be an integer")
)

// ValidationError describes a task payload the server refuses to store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
