package workout

import "fmt"

// ValidationError reports user input that cannot become a workout.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CorruptStateError reports a persisted store that cannot be decoded.
type CorruptStateError struct {
	Reason string
	Err    error
}

func (e *CorruptStateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt workout state: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt workout state: %s", e.Reason)
}

func (e *CorruptStateError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed read, write or removal of the persisted slot.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("error during workout %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
