// Package chat provides the minechat protocol logic shared by all transports:
// the handshake dialogs, message submission and the follower loop.
package chat

import (
	"context"
	"fmt"
)

// Conn abstracts a line-oriented bidirectional connection for both TCP and
// WebSocket. This interface isolates transport details from chat logic.
type Conn interface {
	// ReadLine reads a single line without its terminator.
	// Returns io.EOF when connection is closed.
	ReadLine(ctx context.Context) (string, error)

	// WriteLine buffers a single line; the terminator is appended.
	WriteLine(ctx context.Context, line string) error

	// Flush sends every buffered line to the peer.
	Flush(ctx context.Context) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Dialer opens a fresh Conn to a fixed endpoint.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// WithConn dials d, hands the connection to fn and closes it on every exit
// path, including panics and context cancellation. A close error is only
// returned when fn itself succeeded.
func WithConn(ctx context.Context, d Dialer, fn func(Conn) error) (err error) {
	conn, err := d.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close connection to %s: %w", conn.RemoteAddr(), cerr)
		}
	}()

	return fn(conn)
}
