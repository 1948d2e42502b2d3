package lifecycle

import "fmt"

// ValidationError signals an incomplete or malformed submission. The caller
// can recover by correcting the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Message)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// InvalidTransitionError signals an out-of-order admin action, e.g. a district
// admin deciding before block approval. Not retryable.
type InvalidTransitionError struct {
	Stage       string
	ActiveStage string
	Status      string
}

func (e *InvalidTransitionError) Error() string {
	if e.ActiveStage == "" {
		return fmt.Sprintf("stage %q cannot be decided while application status is %q", e.Stage, e.Status)
	}
	return fmt.Sprintf("stage %q cannot be decided while stage %q is under review", e.Stage, e.ActiveStage)
}

// IllegalStateError signals an operation invoked from a state it is not valid
// in, e.g. paying for an unapproved application. Not retryable.
type IllegalStateError struct {
	Operation string
	Status    string
}

func (e *IllegalStateError) Error() string {
	return fmt.Sprintf("operation %q is not allowed in status %q", e.Operation, e.Status)
}

// NetworkError wraps a backend failure that was degraded to cached data.
// Retryable on the next interaction.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend unreachable during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
