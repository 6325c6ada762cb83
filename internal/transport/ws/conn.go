// Package ws provides WebSocket transport implementation for the minechat
// protocol. Lines travel in text frames: one flush is one frame, and an
// inbound frame may carry several newline separated lines.
package ws

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/transport"
)

// Conn adapts a WebSocket net.Conn using gobwas/ws to chat.Conn interface.
type Conn struct {
	conn      net.Conn
	rw        io.ReadWriter
	state     ws.State
	pending   []string
	out       bytes.Buffer
	closeOnce sync.Once
	closeErr  error
}

// NewClientConn wraps the client side of an established WebSocket. br holds
// bytes the dialer read past the handshake and may be nil.
func NewClientConn(conn net.Conn, br *bufio.Reader) *Conn {
	var r io.Reader = conn
	if br != nil {
		r = br
	}
	return &Conn{
		conn:  conn,
		rw:    readWriter{Reader: r, Writer: conn},
		state: ws.StateClientSide,
	}
}

// NewServerConn wraps the server side of an upgraded WebSocket.
func NewServerConn(conn net.Conn) *Conn {
	return &Conn{conn: conn, rw: conn, state: ws.StateServerSide}
}

// ReadLine implements chat.Conn.
// A close frame from the peer reads as io.EOF.
func (c *Conn) ReadLine(ctx context.Context) (string, error) {
	for len(c.pending) == 0 {
		stop := transport.InterruptOnDone(ctx, c.conn.SetReadDeadline)
		data, _, err := wsutil.ReadData(c.rw, c.state)
		stop()

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			var closed wsutil.ClosedError
			if errors.As(err, &closed) || errors.Is(err, io.ErrUnexpectedEOF) {
				return "", io.EOF
			}
			return "", err
		}
		c.pending = splitFrame(string(data))
	}

	line := c.pending[0]
	c.pending = c.pending[1:]
	return line, nil
}

// WriteLine implements chat.Conn.
func (c *Conn) WriteLine(ctx context.Context, line string) error {
	c.out.WriteString(line)
	c.out.WriteByte('\n')
	return nil
}

// Flush implements chat.Conn.
// Everything written since the last flush goes out as one text frame.
func (c *Conn) Flush(ctx context.Context) error {
	if c.out.Len() == 0 {
		return nil
	}

	stop := transport.InterruptOnDone(ctx, c.conn.SetWriteDeadline)
	err := wsutil.WriteMessage(c.conn, c.state, ws.OpText, c.out.Bytes())
	stop()
	c.out.Reset()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// Close implements chat.Conn.
// Pending lines and a close frame are sent before the socket is closed.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
		var ferr error
		if c.out.Len() > 0 {
			ferr = wsutil.WriteMessage(c.conn, c.state, ws.OpText, c.out.Bytes())
			c.out.Reset()
		}
		body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
		_ = wsutil.WriteMessage(c.conn, c.state, ws.OpClose, body)
		c.closeErr = errors.Join(ferr, c.conn.Close())
	})
	return c.closeErr
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

type readWriter struct {
	io.Reader
	io.Writer
}

func splitFrame(payload string) []string {
	lines := strings.Split(strings.TrimSuffix(payload, "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

// Dialer opens WebSocket connections to a single chat endpoint.
type Dialer struct {
	URL     string
	Timeout time.Duration
}

// NewDialer creates a Dialer for a ws:// or wss:// URL.
func NewDialer(url string, timeout time.Duration) *Dialer {
	return &Dialer{URL: url, Timeout: timeout}
}

// Dial implements chat.Dialer. The timeout covers the TCP connect and the
// upgrade handshake.
func (d *Dialer) Dial(ctx context.Context) (chat.Conn, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = transport.DefaultConnectTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	slog.DebugContext(ctx, "trying to connect to chat", "url", d.URL, "timeout", timeout)

	conn, br, _, err := ws.Dialer{Timeout: timeout}.Dial(dialCtx, d.URL)
	if err != nil {
		return nil, &chat.ConnectError{Address: d.URL, Err: err}
	}

	slog.DebugContext(ctx, "connected to chat", "url", d.URL)
	return NewClientConn(conn, br), nil
}
