package transport

import (
	"errors"
	"fmt"
)

var (
	ErrChannelClosed    = errors.New("data channel closed")
	ErrChannelNotOpen   = errors.New("data channel not open")
	ErrConnectionFailed = errors.New("peer connection failed")
	ErrClosed           = errors.New("transport closed")
)

// Error records the transport operation that failed.
type Error struct {
	Op      string
	Err     error
	Details string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

func WrapError(op string, err error, details string) *Error {
	return &Error{Op: op, Err: err, Details: details}
}
