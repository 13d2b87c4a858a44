// Package apierr classifies failures from the remote prediction services into
// a small taxonomy: validation, transport, service and state errors. Every
// error carries both a technical message and a human-readable one; callers
// surface the human message and keep the technical detail on demand.
package apierr

import (
	"errors"
	"fmt"
)

// Kind partitions errors by how they are handled and surfaced.
type Kind int

const (
	// KindValidation: request or response failed schema/bounds checking.
	// Never retried.
	KindValidation Kind = iota
	// KindTransport: network unreachable or request-level failure.
	// Retried once with a fixed delay before surfacing.
	KindTransport
	// KindService: non-2xx HTTP response with a server-supplied detail.
	KindService
	// KindState: programmer/usage error, e.g. simulating with no loaded
	// prediction. Surfaced inline, never sent to a global boundary.
	KindState
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindService:
		return "service"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Error is a classified failure.
type Error struct {
	Kind        Kind
	StatusCode  int    // HTTP status for service errors, 0 otherwise
	Message     string // Technical message
	UserMessage string // Human-readable message, always set
	Err         error  // Underlying cause, if any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation wraps a schema/bounds failure.
func Validation(err error) *Error {
	return &Error{
		Kind:        KindValidation,
		Message:     err.Error(),
		UserMessage: "Invalid student data provided. Please check your inputs.",
		Err:         err,
	}
}

// Transport wraps a network-level failure.
func Transport(err error) *Error {
	return &Error{
		Kind:        KindTransport,
		Message:     "request failed",
		UserMessage: "Unable to connect to the prediction service. Please check your connection.",
		Err:         err,
	}
}

// State reports a usage error such as acting on a missing subject.
func State(msg string) *Error {
	return &Error{
		Kind:        KindState,
		Message:     msg,
		UserMessage: msg,
	}
}

// FromStatus builds a service error from a non-2xx HTTP response, mapping the
// status code to a user-facing message. detail is the server-supplied message
// (falling back to the status text at the call site).
func FromStatus(statusCode int, detail string) *Error {
	return &Error{
		Kind:        KindService,
		StatusCode:  statusCode,
		Message:     detail,
		UserMessage: userMessageForStatus(statusCode),
	}
}

func userMessageForStatus(statusCode int) string {
	switch statusCode {
	case 400:
		return "Invalid student data provided. Please check your inputs."
	case 404:
		return "The requested resource was not found."
	case 503:
		return "The prediction model is currently unavailable. Please try again later."
	default:
		if statusCode >= 500 {
			return "The prediction service is experiencing issues. Please try again later."
		}
		return "An error occurred. Please try again."
	}
}

// KindOf classifies any error; errors outside the taxonomy report KindState.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindState
}

// UserMessage extracts the human-readable message from any error.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.UserMessage
	}
	return "An unexpected error occurred. Please try again."
}

// Is reports whether err is a classified error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
