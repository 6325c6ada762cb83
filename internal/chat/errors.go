package chat

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to the command layer.
var (
	// ErrStreamClosed indicates the server closed the inbound stream.
	ErrStreamClosed = errors.New("chat stream closed by server")

	// ErrTokenRejected indicates the server answered the token with null.
	ErrTokenRejected = errors.New("chat token is not valid")
)

// Handshake steps reported by ProtocolError.
const (
	StepGreeting     = "greeting"
	StepRegistration = "registration"
	StepAuth         = "auth"
)

// ConnectError represents a failed connection attempt. Refused connections,
// unresolvable hosts, timeouts and cancellation all end up here.
type ConnectError struct {
	Address string
	Err     error
}

// Error implements the error interface.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Address, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// ProtocolError represents a server reply that did not match the dialog step.
type ProtocolError struct {
	Step  string
	Reply string
	Err   error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Reply != "" {
		return fmt.Sprintf("error while %s: unexpected reply %q: %v", e.Step, e.Reply, e.Err)
	}
	return fmt.Sprintf("error while %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func newProtocolError(step, reply string, err error) error {
	return &ProtocolError{Step: step, Reply: reply, Err: err}
}
