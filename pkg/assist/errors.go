// Package assist implements the conversational core shared by the voice and
// chat surfaces: the tool dispatcher that mutates the form record, the
// turn-based chat session, and the prompt construction both sessions use.
package assist

import "fmt"

// ErrorKind categorizes assistant failures.
type ErrorKind string

const (
	ErrCredentialMissing ErrorKind = "credential_missing"
	ErrDeviceUnsupported ErrorKind = "device_unsupported"
	ErrPermissionDenied  ErrorKind = "permission_denied"
	ErrTransport         ErrorKind = "transport"
	ErrTimeout           ErrorKind = "timeout"
	ErrServerRejected    ErrorKind = "server_rejected"
	ErrProtocol          ErrorKind = "protocol_error"
)

// Error is the canonical assistant error. Every caught failure path surfaces
// one of these; none is silently dropped.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error { return e.Err }

// NewCredentialMissingError reports an absent API credential.
func NewCredentialMissingError(message string) *Error {
	return &Error{Kind: ErrCredentialMissing, Message: message}
}

// NewDeviceUnsupportedError reports that no capture capability exists.
func NewDeviceUnsupportedError(message string, err error) *Error {
	return &Error{Kind: ErrDeviceUnsupported, Message: message, Err: err}
}

// NewPermissionDeniedError reports declined device access.
func NewPermissionDeniedError(message string, err error) *Error {
	return &Error{Kind: ErrPermissionDenied, Message: message, Err: err}
}

// NewTransportError reports a generic network or stream failure.
func NewTransportError(message string, err error) *Error {
	return &Error{Kind: ErrTransport, Message: message, Err: err}
}

// NewTimeoutError reports an exceeded request deadline (turn-based only).
func NewTimeoutError(message string) *Error {
	return &Error{Kind: ErrTimeout, Message: message}
}

// NewServerRejectedError reports a non-2xx or malformed server response.
func NewServerRejectedError(message string) *Error {
	return &Error{Kind: ErrServerRejected, Message: message}
}

// NewProtocolError reports an unparseable response body.
func NewProtocolError(message string, err error) *Error {
	return &Error{Kind: ErrProtocol, Message: message, Err: err}
}
