package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/omochice/minechat/pkg/protocol"
	"google.golang.org/protobuf/types/known/structpb"
)

// AuthStatus is the outcome of the authentication dialog.
type AuthStatus int

const (
	AuthRejected AuthStatus = iota
	AuthAuthenticated
)

// String returns the string representation of AuthStatus
func (s AuthStatus) String() string {
	switch s {
	case AuthRejected:
		return "REJECTED"
	case AuthAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// AuthResult is the server's verdict on a token. A rejection is a valid
// answer, not an error.
type AuthResult struct {
	Status  AuthStatus
	Account protocol.Account
	Info    *structpb.Struct
}

// Authenticated reports whether the server accepted the token.
func (r AuthResult) Authenticated() bool {
	return r.Status == AuthAuthenticated
}

// ReadGreeting consumes the banner the server sends on every new connection.
// It must be read before anything is written or later replies misalign.
func ReadGreeting(ctx context.Context, conn Conn) (string, error) {
	greeting, err := conn.ReadLine(ctx)
	if err != nil {
		return "", newProtocolError(StepGreeting, "", err)
	}
	slog.DebugContext(ctx, "get init response from server", "init_response", greeting)
	return greeting, nil
}

// Register asks the server for a new account on a fresh connection and
// returns it. The connection is not usable for posting afterwards.
func Register(ctx context.Context, conn Conn, username string) (protocol.Account, error) {
	if _, err := ReadGreeting(ctx, conn); err != nil {
		return protocol.Account{}, err
	}

	slog.DebugContext(ctx, "start registering user", "username", username)
	// An empty line instead of a token asks for registration.
	if err := send(ctx, conn, ""); err != nil {
		return protocol.Account{}, err
	}

	prompt, err := conn.ReadLine(ctx)
	if err != nil {
		return protocol.Account{}, newProtocolError(StepRegistration, "", err)
	}
	slog.DebugContext(ctx, "awaiting login", "server_response", prompt)

	if err := send(ctx, conn, protocol.SanitizeLine(username)); err != nil {
		return protocol.Account{}, err
	}

	reply, err := conn.ReadLine(ctx)
	if err != nil {
		return protocol.Account{}, newProtocolError(StepRegistration, "", err)
	}

	account, err := protocol.DecodeRegistration(reply)
	if err != nil {
		return protocol.Account{}, newProtocolError(StepRegistration, reply, err)
	}

	slog.DebugContext(ctx, "user registered", "nickname", account.Nickname)
	return account, nil
}

// Authenticate presents token on a fresh connection. On success the same
// connection accepts messages.
func Authenticate(ctx context.Context, conn Conn, token string) (AuthResult, error) {
	if _, err := ReadGreeting(ctx, conn); err != nil {
		return AuthResult{}, err
	}

	if err := send(ctx, conn, protocol.SanitizeLine(token)); err != nil {
		return AuthResult{}, err
	}

	reply, err := conn.ReadLine(ctx)
	if err != nil {
		return AuthResult{}, newProtocolError(StepAuth, "", err)
	}

	info, err := protocol.DecodeAuth(reply)
	if err != nil {
		return AuthResult{}, newProtocolError(StepAuth, reply, err)
	}
	if info == nil {
		slog.DebugContext(ctx, "token rejected")
		return AuthResult{Status: AuthRejected}, nil
	}

	account := protocol.AccountFromInfo(info)
	slog.DebugContext(ctx, "auth successfully", "nickname", account.Nickname)
	return AuthResult{Status: AuthAuthenticated, Account: account, Info: info}, nil
}

func send(ctx context.Context, conn Conn, line string) error {
	if err := conn.WriteLine(ctx, line); err != nil {
		return fmt.Errorf("failed to send to %s: %w", conn.RemoteAddr(), err)
	}
	if err := conn.Flush(ctx); err != nil {
		return fmt.Errorf("failed to send to %s: %w", conn.RemoteAddr(), err)
	}
	return nil
}
