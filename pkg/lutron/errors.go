package lutron

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when raw I/O is attempted on a closed session.
	ErrNotConnected = errors.New("not connected")

	ErrNoResponse         = errors.New("no response from hub")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrMalformedResponse  = errors.New("malformed response")

	ErrInvalidZone       = errors.New("invalid zone")
	ErrInvalidBrightness = errors.New("brightness must be between 0 and 100")
	ErrInvalidFade       = errors.New("fade time must not be negative")
)

// ConnectError reports that the TCP connection to the hub could not be opened.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError reports a write or read failure on an open connection.
// The session is disconnected before a TransportError is returned.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err came from the connection itself
// rather than from the content of a reply.
func IsTransportError(err error) bool {
	var te *TransportError
	var ce *ConnectError
	return errors.As(err, &te) || errors.As(err, &ce)
}
