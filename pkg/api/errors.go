package api

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned for capabilities the backend does not offer.
var ErrNotImplemented = errors.New("not implemented by backend")

// Error is an application failure: the backend answered with a non-2xx
// status. Detail carries the server's message verbatim when it sent one.
type Error struct {
	Status int
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// TransportError means no usable response arrived: connection failures,
// cancelled contexts, undecodable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// AsAPIError extracts the application error from err, if any.
func AsAPIError(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
