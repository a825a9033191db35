package core

import (
	"errors"
	"fmt"
)

// Error codes for protocol-visible errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	// ErrDeadHandle is returned by a handle whose connection has closed.
	ErrDeadHandle = errors.New("connection handle is closed")
	// ErrSlowConsumer is returned when a handle's outbound buffer is full.
	ErrSlowConsumer = errors.New("connection outbound buffer full")
	// ErrSessionClosed is returned when authenticating an already closed session.
	ErrSessionClosed = errors.New("session closed")
)

// PersistenceError reports that a notification could not be stored.
// Nothing was delivered when it is returned.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist notification: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
