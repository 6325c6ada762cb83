package ws

import (
	"fmt"
	"net"
	"time"

	"github.com/gobwas/ws"
	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/transport/tcp"
)

// upgradeTimeout bounds the HTTP upgrade of an accepted socket.
const upgradeTimeout = 5 * time.Second

// NewServer creates a server that upgrades every accepted connection to a
// WebSocket and serves it with handler.
func NewServer(address string, handler tcp.Handler) *tcp.Server {
	return tcp.NewWithUpgrader(address, handler, Upgrade)
}

// Upgrade performs the server side of the WebSocket handshake on conn.
func Upgrade(conn net.Conn) (chat.Conn, error) {
	if err := conn.SetDeadline(time.Now().Add(upgradeTimeout)); err != nil {
		return nil, err
	}
	if _, err := ws.Upgrade(conn); err != nil {
		return nil, fmt.Errorf("failed to upgrade WebSocket connection: %w", err)
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return nil, err
	}
	return NewServerConn(conn), nil
}
