// Package apperror defines the error taxonomy shared by the client. Every
// failure that reaches a caller or the session error field is an *Error with
// one of the kinds below.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind categorises an application error
type Kind int

const (
	// Unknown is for unspecified errors
	Unknown Kind = iota
	// Validation is raised before any network call for bad form input
	Validation
	// Request is a non-2xx response from the backend
	Request
	// Transport is a failed round trip: network, timeout or unparseable body
	Transport
	// StateCorruption is a malformed persisted snapshot found at startup
	StateCorruption
	// Superseded marks a response dropped because a newer request or a
	// logout replaced it
	Superseded
	// Unauthenticated is an authenticated call attempted without a token
	Unauthenticated
	// Config is a configuration problem
	Config
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Request:
		return "request"
	case Transport:
		return "transport"
	case StateCorruption:
		return "state corruption"
	case Superseded:
		return "superseded"
	case Unauthenticated:
		return "unauthenticated"
	case Config:
		return "config"
	default:
		return "unknown"
	}
}

// TransportMessage is what users see for every transport failure
const TransportMessage = "Network error. Please check your connection and try again."

// Error is the application error type. Message is the single human-readable
// string surfaced to users; Err keeps the underlying cause for debugging.
type Error struct {
	Kind    Kind
	Message string
	// Status is the HTTP status for Request errors
	Status int
	// Fields holds per-field messages for Validation errors
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error of the given kind
func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NewValidation creates a Validation error from per-field messages. The
// summary message lists the fields in a stable order.
func NewValidation(fields map[string]string) *Error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fields[name])
	}
	return &Error{Kind: Validation, Message: strings.Join(msgs, "; "), Fields: fields}
}

// NewRequest creates a Request error for an HTTP status
func NewRequest(status int, message string) *Error {
	return &Error{Kind: Request, Message: message, Status: status}
}

// NewTransport wraps a transport failure behind the generic message
func NewTransport(err error) *Error {
	return New(Transport, TransportMessage, err)
}

// NewStateCorruption creates a StateCorruption error
func NewStateCorruption(message string, err error) *Error {
	return New(StateCorruption, message, err)
}

// NewSuperseded creates a Superseded error for the named operation
func NewSuperseded(op string) *Error {
	return New(Superseded, op+" superseded by a newer request", nil)
}

// NewUnauthenticated creates an Unauthenticated error
func NewUnauthenticated(message string) *Error {
	return New(Unauthenticated, message, nil)
}

// NewConfig creates a Config error
func NewConfig(message string, err error) *Error {
	return New(Config, message, err)
}

// FromError finds the first *Error in err's chain
func FromError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or Unknown
func KindOf(err error) Kind {
	if appErr, ok := FromError(err); ok {
		return appErr.Kind
	}
	return Unknown
}

// Message returns the user-facing message for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := FromError(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// IsValidation checks if an error is a Validation error
func IsValidation(err error) bool { return KindOf(err) == Validation }

// IsRequest checks if an error is a Request error
func IsRequest(err error) bool { return KindOf(err) == Request }

// IsTransport checks if an error is a Transport error
func IsTransport(err error) bool { return KindOf(err) == Transport }

// IsStateCorruption checks if an error is a StateCorruption error
func IsStateCorruption(err error) bool { return KindOf(err) == StateCorruption }

// IsSuperseded checks if an error is a Superseded error
func IsSuperseded(err error) bool { return KindOf(err) == Superseded }

// IsUnauthenticated checks if an error is an Unauthenticated error
func IsUnauthenticated(err error) bool { return KindOf(err) == Unauthenticated }

// IsConfig checks if an error is a Config error
func IsConfig(err error) bool { return KindOf(err) == Config }

// StatusOf returns the HTTP status carried by a Request error, or 0
func StatusOf(err error) int {
	if appErr, ok := FromError(err); ok {
		return appErr.Status
	}
	return 0
}
