package client

import (
	"context"
	"log/slog"

	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/pkg/protocol"
)

// PostResult describes the identity a message was posted under.
type PostResult struct {
	// Token is the account hash used for authentication. When Registered is
	// true it was created by this call and the caller should keep it.
	Token      string
	Registered bool
	Account    protocol.Account
}

// Post sends message to the chat. Without a configured token it first
// registers cfg.Username on its own connection, then authenticates and
// submits on a second one. A freshly registered token is returned even when
// a later step fails.
func Post(ctx context.Context, cfg *config.Config, message string) (PostResult, error) {
	dialer := NewDialer(cfg, cfg.PostAddress())
	result := PostResult{Token: cfg.Token}

	if result.Token == "" {
		err := chat.WithConn(ctx, dialer, func(conn chat.Conn) error {
			account, err := chat.Register(ctx, conn, cfg.Username)
			if err != nil {
				return err
			}
			result.Token = account.Hash
			result.Registered = true
			result.Account = account
			return nil
		})
		if result.Registered {
			slog.InfoContext(ctx, "registered new account",
				"nickname", result.Account.Nickname, "token", result.Token)
		}
		if err != nil {
			return result, err
		}
	}

	err := chat.WithConn(ctx, dialer, func(conn chat.Conn) error {
		auth, err := chat.Authenticate(ctx, conn, result.Token)
		if err != nil {
			return err
		}
		if !auth.Authenticated() {
			return chat.ErrTokenRejected
		}
		result.Account = auth.Account

		if err := chat.Submit(ctx, conn, message); err != nil {
			return err
		}
		slog.DebugContext(ctx, "message sent", "nickname", auth.Account.Nickname, "message", message)
		return nil
	})
	return result, err
}
