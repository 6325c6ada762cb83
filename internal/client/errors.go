package client

import (
	"context"
	"errors"

	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/history"
)

// Exit codes of the minechat commands.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitConfig        = 2
	ExitConnect       = 3
	ExitProtocol      = 4
	ExitTokenRejected = 5
	ExitHistoryWrite  = 6
	ExitStreamClosed  = 7
	ExitInterrupted   = 130
)

// ExitCode maps an error returned by Post or Listen to a process exit code.
func ExitCode(err error) int {
	var (
		connectErr  *chat.ConnectError
		protocolErr *chat.ProtocolError
		writeErr    *history.WriteError
	)

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &connectErr):
		return ExitConnect
	case errors.Is(err, chat.ErrTokenRejected):
		return ExitTokenRejected
	case errors.As(err, &protocolErr):
		return ExitProtocol
	case errors.As(err, &writeErr):
		return ExitHistoryWrite
	case errors.Is(err, chat.ErrStreamClosed):
		return ExitStreamClosed
	default:
		return ExitFailure
	}
}

// Describe returns the user-facing diagnostic for err.
func Describe(err error) string {
	var (
		connectErr  *chat.ConnectError
		protocolErr *chat.ProtocolError
		writeErr    *history.WriteError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return "interrupted"
	case errors.As(err, &connectErr):
		return "can`t connect to chat at " + connectErr.Address
	case errors.Is(err, chat.ErrTokenRejected):
		return "chat token is not valid. exiting ..."
	case errors.As(err, &protocolErr):
		return "chat server replied unexpectedly during " + protocolErr.Step
	case errors.As(err, &writeErr):
		return "can`t add record to history file " + writeErr.Path
	case errors.Is(err, chat.ErrStreamClosed):
		return "chat server closed the stream"
	default:
		return err.Error()
	}
}
