// Package tcp provides the TCP transport for the minechat protocol.
package tcp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/transport"
)

// Conn adapts net.Conn to chat.Conn interface.
type Conn struct {
	conn      net.Conn
	r         *bufio.Reader
	w         *bufio.Writer
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	return &Conn{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}
}

// ReadLine implements chat.Conn.
// A final line without terminator is returned before io.EOF.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	stop := transport.InterruptOnDone(ctx, c.conn.SetReadDeadline)
	line, err := c.r.ReadString('\n')
	stop()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		if errors.Is(err, io.EOF) && line != "" {
			return transport.TrimLine(line), nil
		}
		return "", err
	}
	return transport.TrimLine(line), nil
}

// WriteLine implements chat.Conn.
func (c *Conn) WriteLine(ctx context.Context, line string) error {
	_, err := c.w.WriteString(line + "\n")
	return err
}

// Flush implements chat.Conn.
func (c *Conn) Flush(ctx context.Context) error {
	stop := transport.InterruptOnDone(ctx, c.conn.SetWriteDeadline)
	err := c.w.Flush()
	stop()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Close implements chat.Conn.
// Buffered lines are flushed before the socket is closed.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		var ferr error
		if c.w.Buffered() > 0 {
			ferr = c.w.Flush()
		}
		c.closeErr = errors.Join(ferr, c.conn.Close())
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens TCP connections to a single chat endpoint.
type Dialer struct {
	Address string
	Timeout time.Duration
}

// NewDialer creates a Dialer for address. A zero timeout falls back to
// transport.DefaultConnectTimeout.
func NewDialer(address string, timeout time.Duration) *Dialer {
	return &Dialer{Address: address, Timeout: timeout}
}

// Dial implements chat.Dialer. The timeout bounds the connect attempt only;
// reads and writes on the returned connection have no deadline.
func (d *Dialer) Dial(ctx context.Context) (chat.Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = transport.DefaultConnectTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.DebugContext(ctx, "trying to connect to chat", "address", d.Address, "timeout", timeout)

	var nd net.Dialer
	conn, err := nd.DialContext(dialCtx, "tcp", d.Address)
	if err != nil {
		return nil, &chat.ConnectError{Address: d.Address, Err: err}
	}

	slog.DebugContext(ctx, "connected to chat", "address", d.Address, "local", conn.LocalAddr().String())
	return NewConn(conn), nil
}
