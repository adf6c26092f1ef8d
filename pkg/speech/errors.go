package speech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Status is the closed set of operation outcomes. Every fault a public
// operation can hit maps onto exactly one of these, so callers branch on
// Status instead of platform error types.
type Status int

const (
	StatusOK Status = iota
	// StatusTimeout - the socket send/receive timeout expired. The session
	// stays usable, the caller may retry the same operation.
	StatusTimeout
	// StatusSocket - reset, refused, unreachable and friends. Fatal to the
	// session.
	StatusSocket
	// StatusBrokenMessage - the stream ended or produced garbage before a
	// complete message was read.
	StatusBrokenMessage
	// StatusUnexpectedResponse - the handshake reply lacks the expected
	// trigger. The raw text is kept in Error.Response.
	StatusUnexpectedResponse
	// StatusTLS - the TLS handshake failed during session creation.
	StatusTLS
	// StatusRejected - the service answered negotiation with a non-success
	// code. The assigned session id is kept in Error.SessionID.
	StatusRejected
	// StatusInvalidInput - rejected client-side before any network write.
	StatusInvalidInput
	// StatusDisposed - operation on an already disposed session.
	StatusDisposed
	// StatusCancelled - the caller's context was cancelled. Distinct from
	// all transport faults, the session is not disposed.
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusTimeout:
		return "Timeout"
	case StatusSocket:
		return "SocketError"
	case StatusBrokenMessage:
		return "BrokenMessage"
	case StatusUnexpectedResponse:
		return "UnexpectedServerResponse"
	case StatusTLS:
		return "SslNegotiationError"
	case StatusRejected:
		return "Rejected"
	case StatusInvalidInput:
		return "InvalidInput"
	case StatusDisposed:
		return "Disposed"
	case StatusCancelled:
		return "Cancelled"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Error is the only error type returned by the package's operations.
type Error struct {
	Status Status
	// Code is the platform error code for StatusSocket, 0 otherwise.
	Code syscall.Errno
	// Response is the raw handshake text for StatusUnexpectedResponse.
	Response string
	// SessionID is the service-assigned id, filled for session operations
	// and for StatusRejected so the id stays available for support.
	SessionID string

	err error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Status, e.err)
	}
	return e.Status.String()
}

func (e *Error) Unwrap() error { return e.err }

// StatusOf extracts the outcome of an operation error. Nil maps to StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusSocket
}

var errMalformedMessage = errors.New("malformed message")

// classify funnels a transport fault into the closed outcome set.
// Priority: cancellation, timed-out socket, socket fault with a platform
// code, truncated or malformed stream. TLS and handshake-text faults are
// assigned at the connection establisher, the only place they can happen.
func classify(ctx context.Context, err error) *Error {
	if err == nil {
		return nil
	}
	if ctx != nil && ctx.Err() != nil {
		return &Error{Status: StatusCancelled, err: ctx.Err()}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return &Error{Status: StatusTimeout, err: err}
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{Status: StatusSocket, Code: errno, err: err}
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, errMalformedMessage) {
		return &Error{Status: StatusBrokenMessage, err: err}
	}
	return &Error{Status: StatusSocket, err: err}
}
