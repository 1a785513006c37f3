package domain

import (
	"errors"
	"fmt"
)

// ErrMoveInFlight is returned when a move is rejected because another move
// for the same board is still being persisted.
var ErrMoveInFlight = errors.New("move already in flight for board")

// InvalidMoveError is returned for malformed or incomplete move events.
// It is never surfaced to users as a failure; the gesture is simply dropped.
type InvalidMoveError struct {
	Reason string
}

func (e *InvalidMoveError) Error() string {
	return "invalid move: " + e.Reason
}

// InvalidMove builds an InvalidMoveError from a format string
func InvalidMove(format string, args ...any) error {
	return &InvalidMoveError{Reason: fmt.Sprintf(format, args...)}
}

// PersistenceError is returned when a write to the remote store fails
type PersistenceError struct {
	Op       string
	ItemUUID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s %s: %v", e.Op, e.ItemUUID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// LoadError is returned when authoritative state cannot be loaded
type LoadError struct {
	BoardUUID string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load board %s: %v", e.BoardUUID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a resource does not exist
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// NotFound builds a NotFoundError
func NotFound(resource, key string) error {
	return &NotFoundError{Resource: resource, Key: key}
}

// IsNotFound reports whether err wraps a NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// ValidationError is returned when input fails validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ForbiddenError is returned when the acting user may not change a board
type ForbiddenError struct {
	UserID string
	Action string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: user %q is not the board owner", e.Action, e.UserID)
}

// IsForbidden reports whether err wraps a ForbiddenError
func IsForbidden(err error) bool {
	var fe *ForbiddenError
	return errors.As(err, &fe)
}

// ETagMismatchError is returned when an etag doesn't match
type ETagMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *ETagMismatchError) Error() string {
	return fmt.Sprintf("etag mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// CheckETag validates an etag against the current value
func CheckETag(expected, actual int64) error {
	if expected != actual {
		return &ETagMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
