package exceptions

import (
	"errors"
	"fmt"
)

func New(message ...any) error {
	return errors.New(fmt.Sprint(message...))
}

// Cause wraps err with message. A nil cause yields nil.
func Cause(cause error, message ...any) error {
	if cause == nil {
		return nil
	}
	return &causeError{fmt.Sprint(message...), cause}
}

// Cause1 joins a sentinel error and its cause so both match errors.Is.
func Cause1(err error, cause error) error {
	if cause == nil {
		return err
	}
	return &causeError1{err, cause}
}

func Extend(cause error, message ...any) error {
	if cause == nil {
		return nil
	}
	return &extendedError{fmt.Sprint(message...), cause}
}

type extendedError struct {
	message string
	cause   error
}

func (e *extendedError) Error() string {
	return e.cause.Error() + ": " + e.message
}

func (e *extendedError) Unwrap() error {
	return e.cause
}
