package oops

import (
	"errors"
	"fmt"
)

// A Kind tells callers how an error should be surfaced. Everything that is
// not explicitly classified is an UpstreamFailure.
type Kind int

const (
	KindUpstreamFailure Kind = iota
	KindNotFound
	KindForbidden
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindForbidden:
		return "Forbidden"
	case KindInvalidInput:
		return "InvalidInput"
	default:
		return "UpstreamFailure"
	}
}

/*
A KindedError carries a Kind, a stable machine-readable Code, and a Message
that is safe to show to an end user. Package-level sentinels are declared with
Sentinel and compared with errors.Is, which matches on Code:

	var ErrThreadClosed = oops.Sentinel(oops.KindForbidden, "thread_closed", "This thread has been deleted.")

	if errors.Is(err, ErrThreadClosed) { ... }
*/
type KindedError struct {
	Kind    Kind
	Code    string
	Message string
	Wrapped error
}

func Sentinel(kind Kind, code, message string) *KindedError {
	return &KindedError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

func (e *KindedError) Error() string {
	if e.Wrapped == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
}

func (e *KindedError) Unwrap() error {
	return e.Wrapped
}

func (e *KindedError) Is(target error) bool {
	t, ok := target.(*KindedError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of the sentinel that wraps the underlying cause.
func (e *KindedError) Wrap(cause error) error {
	copied := *e
	copied.Wrapped = cause
	return &copied
}

// Withf returns a copy of the sentinel with a more specific user-facing message.
func (e *KindedError) Withf(format string, args ...interface{}) error {
	copied := *e
	copied.Message = fmt.Sprintf(format, args...)
	return &copied
}

var ErrInvalidInput = Sentinel(KindInvalidInput, "invalid_input", "The request was invalid.")

// InvalidInput builds a user-facing validation error.
func InvalidInput(format string, args ...interface{}) error {
	return ErrInvalidInput.Withf(format, args...)
}

// KindOf reports the kind of the first KindedError in err's chain.
func KindOf(err error) Kind {
	var kinded *KindedError
	if errors.As(err, &kinded) {
		return kinded.Kind
	}
	return KindUpstreamFailure
}

// Retryable is true only for upstream failures.
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindUpstreamFailure
}

// PublicMessage returns the user-safe message for err, or a generic one if
// err carries no classification.
func PublicMessage(err error) string {
	var kinded *KindedError
	if errors.As(err, &kinded) {
		return kinded.Message
	}
	return "Something went wrong on our end. Please try again."
}

// CodeOf returns the Code of the first KindedError in err's chain.
func CodeOf(err error) string {
	var kinded *KindedError
	if errors.As(err, &kinded) {
		return kinded.Code
	}
	return "upstream_failure"
}
