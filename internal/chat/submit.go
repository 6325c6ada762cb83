package chat

import (
	"context"
	"fmt"

	"github.com/omochice/minechat/pkg/protocol"
)

// Submit posts message on an authenticated connection. Every line of the
// message is framed with a blank line and the whole batch goes out in a
// single flush.
func Submit(ctx context.Context, conn Conn, message string) error {
	frames := protocol.EncodeMessage(message)
	if len(frames) == 0 {
		return nil
	}

	for _, frame := range frames {
		if err := conn.WriteLine(ctx, frame); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}

	if err := conn.Flush(ctx); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}
