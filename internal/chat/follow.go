package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/omochice/minechat/internal/history"
)

// FollowOptions wires the follower to its collaborators.
type FollowOptions struct {
	// Now stamps inbound lines. Defaults to time.Now.
	Now func() time.Time

	// Emit shows a record in the live view.
	Emit func(history.Record)

	// Append persists a record. An error stops the follower.
	Append func(history.Record) error
}

// Follow reads the inbound stream until the context is cancelled, the server
// closes the stream or a record cannot be persisted. It never reconnects.
func Follow(ctx context.Context, conn Conn, opts FollowOptions) error {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	for {
		line, err := conn.ReadLine(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w (%s): %w", ErrStreamClosed, conn.RemoteAddr(), err)
			}
			return fmt.Errorf("failed to read from %s: %w", conn.RemoteAddr(), err)
		}

		record := history.Record{Received: now(), Text: line}

		if opts.Emit != nil {
			opts.Emit(record)
		}
		if opts.Append != nil {
			if err := opts.Append(record); err != nil {
				return err
			}
		}
	}
}
