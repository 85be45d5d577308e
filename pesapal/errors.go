package pesapal

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the failures surfaced by this package.
type ErrorKind string

const (
	// KindValidation marks malformed caller input, detected before any
	// network call.
	KindValidation ErrorKind = "VALIDATION"
	// KindAuthentication marks a failed credential exchange.
	KindAuthentication ErrorKind = "AUTHENTICATION"
	// KindAPI marks a non-retriable gateway rejection, or a 5xx that
	// survived the retry budget.
	KindAPI ErrorKind = "API"
	// KindResponseFormat marks a 2xx body that did not match the expected
	// shape.
	KindResponseFormat ErrorKind = "RESPONSE_FORMAT"
	// KindTransport marks a connection or timeout failure that exhausted
	// the retry budget.
	KindTransport ErrorKind = "TRANSPORT"
)

// Error is the single error type returned by this package. StatusCode is
// the upstream HTTP status when one was received, 0 otherwise. Code is the
// gateway-supplied error code, when the response body carried one.
type Error struct {
	Kind       ErrorKind
	Message    string
	Code       string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("pesapal: [%s] %s", e.Kind, e.Message)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status: %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts the package error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err is a package error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}

func newValidationError(format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

func newTransportError(message string, cause error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: message,
		Err:     cause,
	}
}

func newResponseFormatError(message string, cause error) *Error {
	return &Error{
		Kind:    KindResponseFormat,
		Message: message,
		Err:     cause,
	}
}

// asAuthenticationError reclassifies any failure of the credential
// exchange as an authentication error, keeping the upstream status, code
// and cause intact.
func asAuthenticationError(err error) *Error {
	if e, ok := AsError(err); ok {
		return &Error{
			Kind:       KindAuthentication,
			Message:    e.Message,
			Code:       e.Code,
			StatusCode: e.StatusCode,
			Err:        e,
		}
	}
	return &Error{
		Kind:    KindAuthentication,
		Message: "credential exchange failed",
		Err:     err,
	}
}
