package pkg

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport means the inspector could not be reached.
	ErrTransport = errors.New("transport error")
	// ErrBackend means the inspector answered with a non-success status.
	ErrBackend = errors.New("backend error")
	// ErrMalformedResponse means a success payload lacked expected fields.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidInput means a caller value is outside the accepted domain.
	ErrInvalidInput = errors.New("invalid input")
)

// GatewayError describes a failed inspector call. errors.Is matches it
// against its Kind as well as the wrapped cause.
type GatewayError struct {
	Op     string
	Pid    int32
	Status int
	Kind   error
	Err    error
}

func (e *GatewayError) Error() string {
	msg := e.Op
	if e.Pid != 0 {
		msg += fmt.Sprintf(" pid %d", e.Pid)
	}
	msg += ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) Is(target error) bool {
	return target == e.Kind
}
