// Package errors wraps github.com/pkg/errors with printf-style helpers so call
// sites can attach context in one line.
package errors

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// New returns an error with a stack trace. Args are applied to message when present.
func New(message string, args ...interface{}) error {
	if len(args) > 0 {
		return errors.Errorf(message, args...)
	}

	return errors.New(message)
}

// Wrap annotates err with message and a stack trace. Wrap returns nil if err is nil.
func Wrap(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	if len(args) > 0 {
		return errors.Wrapf(err, message, args...)
	}

	return errors.Wrap(err, message)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Cause returns the innermost error that does not implement Cause.
func Cause(err error) error {
	return errors.Cause(err)
}

// Join returns an error matching every non-nil err in errs.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
