// Package apperr classifies failures surfaced by the agenda core so the
// transport layer can present them without inspecting error strings.
package apperr

import (
	"errors"
	"fmt"
)

// Reason identifies which user input failed validation.
type Reason string

const (
	EmptyDescription Reason = "EmptyDescription"
	PastNotification Reason = "PastNotification"
)

var (
	// ErrNotFound is returned when an update or delete touched no row.
	ErrNotFound = errors.New("event not found")
	// ErrInvalidArgument is returned for negative offset components.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotReady is returned for mutations before the first successful load.
	ErrNotReady = errors.New("agenda not loaded")
	// ErrSuperseded is returned by a load whose result was discarded because
	// a newer load was requested meanwhile.
	ErrSuperseded = errors.New("load superseded")
)

// ValidationError is a user-correctable input error. No state is mutated
// when it is returned.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	switch e.Reason {
	case EmptyDescription:
		return "validation: description is empty"
	case PastNotification:
		return "validation: notification time is in the past"
	default:
		return fmt.Sprintf("validation: %s", e.Reason)
	}
}

// Validation builds a ValidationError for r.
func Validation(r Reason) error {
	return &ValidationError{Reason: r}
}

// PersistenceError wraps a storage failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SchedulingError wraps a notification capability failure. It never
// invalidates an already successful write.
type SchedulingError struct {
	EventID int64
	Err     error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("scheduling: event %d: %v", e.EventID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError with reason r.
// An empty r matches any reason.
func IsValidation(err error, r Reason) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return r == "" || ve.Reason == r
}

func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}

func IsScheduling(err error) bool {
	var se *SchedulingError
	return errors.As(err, &se)
}
