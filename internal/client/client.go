// Package client runs the two minechat client flows: posting a message and
// following the chat stream.
package client

import (
	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/internal/transport/tcp"
	"github.com/omochice/minechat/internal/transport/ws"
)

// NewDialer returns a dialer for address (host:port) over the configured
// network.
func NewDialer(cfg *config.Config, address string) chat.Dialer {
	switch cfg.Network {
	case config.NetworkWebSocket:
		return ws.NewDialer("ws://"+address+"/", cfg.ConnectTimeout)
	default:
		return tcp.NewDialer(address, cfg.ConnectTimeout)
	}
}
