package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrRateLimited   = errors.New("rate limited")
	ErrSecurityCheck = errors.New("security check failed")
	ErrForbidden     = errors.New("forbidden")
)

// PersistenceError is returned by every failed insert or update. Err keeps the
// engine message for logs; callers show a generic message to end users.
type PersistenceError struct {
	Op        string
	Err       error
	Duplicate bool
}

func NewPersistenceError(op string, err error, duplicate bool) *PersistenceError {
	return &PersistenceError{Op: op, Err: err, Duplicate: duplicate}
}

func (e *PersistenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("persistence: %s failed", e.Op)
	}
	return fmt.Sprintf("persistence: %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Is makes duplicate-key failures match ErrConflict.
func (e *PersistenceError) Is(target error) bool {
	return e.Duplicate && target == ErrConflict
}
