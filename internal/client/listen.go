package client

import (
	"context"
	"log/slog"

	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/internal/history"
)

// Sink persists chat records.
type Sink interface {
	Append(history.Record) error
}

// Listen follows the chat stream until ctx is cancelled or the stream ends.
// Each line goes to emit first and then to sink.
func Listen(ctx context.Context, cfg *config.Config, sink Sink, emit func(history.Record)) error {
	dialer := NewDialer(cfg, cfg.ListenAddress())

	return chat.WithConn(ctx, dialer, func(conn chat.Conn) error {
		slog.InfoContext(ctx, "following chat", "remote", conn.RemoteAddr())
		return chat.Follow(ctx, conn, chat.FollowOptions{
			Emit:   emit,
			Append: sink.Append,
		})
	})
}
