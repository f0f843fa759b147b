package internal

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures into the closed set of kinds the rest of
// the application switches on.
type ErrorType int

const (
	// ErrAuth covers salt/login handshake failures reported by the remote
	// service.
	ErrAuth ErrorType = iota
	// ErrNotAuthenticated marks operations attempted without a valid session.
	ErrNotAuthenticated
	// ErrRemote is a well-formed XML response carrying a non-OK status for
	// search or download-link resolution.
	ErrRemote
	// ErrProtocol is a malformed or unexpectedly shaped XML response.
	ErrProtocol
	// ErrNetwork is a transport-level failure (DNS, timeout, non-2xx).
	ErrNetwork
	// ErrIO is a local filesystem failure during a download write.
	ErrIO
)

// String returns the string representation of ErrorType.
func (et ErrorType) String() string {
	switch et {
	case ErrAuth:
		return "Auth"
	case ErrNotAuthenticated:
		return "NotAuthenticated"
	case ErrRemote:
		return "Remote"
	case ErrProtocol:
		return "Protocol"
	case ErrNetwork:
		return "Network"
	case ErrIO:
		return "IO"
	default:
		return "Unknown"
	}
}

// WebshareError is the typed error carried across the core. The remote
// service's own message and code are preserved as fields rather than
// flattened into a formatted string.
type WebshareError struct {
	Type    ErrorType
	Code    string // remote-reported code, e.g. "LOGIN_FATAL_1"; may be empty
	Message string
	Err     error // wrapped transport or parser cause, if any
}

// Error implements the error interface.
func (e *WebshareError) Error() string {
	msg := e.Message
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg = fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("webshare %s error: %s (code: %s)", e.Type, msg, e.Code)
	}
	return fmt.Sprintf("webshare %s error: %s", e.Type, msg)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (e *WebshareError) Unwrap() error {
	return e.Err
}

// NewAuthError creates an error for login handshake failures. code carries
// the remote-reported code when the service supplied one.
func NewAuthError(message, code string) *WebshareError {
	return &WebshareError{Type: ErrAuth, Message: message, Code: code}
}

// NewNotAuthenticatedError creates an error for operations that require a
// logged-in session.
func NewNotAuthenticatedError() *WebshareError {
	return &WebshareError{Type: ErrNotAuthenticated, Message: "not logged in"}
}

// NewRemoteError creates an error for a non-OK status in a well-formed
// response.
func NewRemoteError(message string) *WebshareError {
	return &WebshareError{Type: ErrRemote, Message: message}
}

// NewProtocolError creates an error for malformed or unexpected responses.
func NewProtocolError(message string, cause error) *WebshareError {
	return &WebshareError{Type: ErrProtocol, Message: message, Err: cause}
}

// NewNetworkError creates an error for transport-level failures.
func NewNetworkError(operation string, cause error) *WebshareError {
	return &WebshareError{Type: ErrNetwork, Message: fmt.Sprintf("%s request failed", operation), Err: cause}
}

// NewIOError creates an error for local filesystem failures.
func NewIOError(message string, cause error) *WebshareError {
	return &WebshareError{Type: ErrIO, Message: message, Err: cause}
}

// IsErrorType reports whether err is a WebshareError of the given type.
func IsErrorType(err error, t ErrorType) bool {
	var we *WebshareError
	if errors.As(err, &we) {
		return we.Type == t
	}
	return false
}
