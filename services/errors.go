package services

import (
	"fmt"

	"kavyalok/database"

	"github.com/pkg/errors"
)

// Error kinds the HTTP layer maps onto status codes.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("unauthorized")
)

var ErrInvalidCredentials error = &kindError{kind: ErrAuth, msg: "invalid email or password"}

// kindError carries a user-facing message and the kind it belongs to.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
func (e *kindError) Cause() error  { return e.kind }

func Validationf(format string, args ...interface{}) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...interface{}) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...interface{}) error {
	return &kindError{kind: ErrForbidden, msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...interface{}) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

func isStoreNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

// notFoundOr turns a store miss into a NotFound error with msg and wraps
// anything else.
func notFoundOr(err error, msg, what string) error {
	if isStoreNotFound(err) {
		return NotFoundf("%s", msg)
	}
	return errors.Wrap(err, what)
}
