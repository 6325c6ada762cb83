// Package server implements a local minechat-compatible chat server. It is
// used by the integration tests and by minechat-server for manual runs.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/internal/transport/tcp"
	"github.com/omochice/minechat/internal/transport/ws"
	"github.com/omochice/minechat/pkg/protocol"
)

const (
	// Greeting opens every post-port connection.
	Greeting = "Hello %username%! Enter your personal hash or leave it empty to create new account."
	// Prompt asks a new user for a nickname.
	Prompt = "Enter preferred nickname below:"
	// Welcome follows a successful authentication.
	Welcome = "Welcome to chat! Post your message below. End it with an empty line."

	followerQueue = 64
)

// Options configures the server ports and transport.
type Options struct {
	ListenAddress string
	PostAddress   string
	Network       config.Network
}

// Server runs the read-only stream port and the post port of a chat.
type Server struct {
	hub      *chat.Hub
	listen   *tcp.Server
	post     *tcp.Server
	accounts map[string]protocol.Account
	mu       sync.RWMutex
}

// New creates a server. Nothing is bound until Listen or Start.
func New(opts Options) *Server {
	s := &Server{
		hub:      chat.NewHub(),
		accounts: make(map[string]protocol.Account),
	}

	switch opts.Network {
	case config.NetworkWebSocket:
		s.listen = ws.NewServer(opts.ListenAddress, s.serveFollower)
		s.post = ws.NewServer(opts.PostAddress, s.servePoster)
	default:
		s.listen = tcp.New(opts.ListenAddress, s.serveFollower)
		s.post = tcp.New(opts.PostAddress, s.servePoster)
	}
	return s
}

// Listen binds both ports.
func (s *Server) Listen() error {
	if err := s.listen.Listen(); err != nil {
		return err
	}
	if err := s.post.Listen(); err != nil {
		s.listen.Stop()
		return err
	}
	return nil
}

// Serve accepts on both ports until Stop is called.
func (s *Server) Serve() error {
	errCh := make(chan error, 2)
	go func() { errCh <- s.listen.Serve() }()
	go func() { errCh <- s.post.Serve() }()

	return errors.Join(<-errCh, <-errCh)
}

// Start binds and serves until Stop is called.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Stop closes both ports and every open connection.
func (s *Server) Stop() {
	s.post.Stop()
	s.listen.Stop()
}

// ListenAddr returns the bound address of the stream port.
func (s *Server) ListenAddr() string {
	return s.listen.Addr()
}

// PostAddr returns the bound address of the post port.
func (s *Server) PostAddr() string {
	return s.post.Addr()
}

// FollowerCount returns the number of connected followers.
func (s *Server) FollowerCount() int {
	return s.hub.SubscriberCount()
}

// Register creates an account for nickname and returns it.
func (s *Server) Register(nickname string) (protocol.Account, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return protocol.Account{}, fmt.Errorf("failed to generate account hash: %w", err)
	}

	account := protocol.Account{
		Nickname: protocol.SanitizeLine(strings.TrimSpace(nickname)),
		Hash:     hex.EncodeToString(buf),
	}

	s.mu.Lock()
	s.accounts[account.Hash] = account
	s.mu.Unlock()

	slog.Info("account registered", "nickname", account.Nickname)
	return account, nil
}

// Broadcast sends line to every connected follower.
func (s *Server) Broadcast(line string) int {
	return s.hub.Broadcast(line)
}

func (s *Server) lookup(token string) (protocol.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[token]
	return account, ok
}

// serveFollower pushes broadcast lines to conn until the follower leaves or
// the server stops.
func (s *Server) serveFollower(conn chat.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := chat.NewSubscriber(conn, followerQueue)
	s.hub.Register(sub)
	defer s.hub.Unregister(sub)

	slog.Debug("follower connected", "remote", conn.RemoteAddr())

	// Followers never speak; a read only returns when they go away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, err := conn.ReadLine(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case line := <-sub.Outgoing:
			if err := send(ctx, conn, line); err != nil {
				slog.Debug("follower write failed", "remote", conn.RemoteAddr(), "error", err)
				return
			}
		case <-gone:
			slog.Debug("follower disconnected", "remote", conn.RemoteAddr())
			return
		}
	}
}

// servePoster runs the greeting dialog and then broadcasts every posted line.
func (s *Server) servePoster(conn chat.Conn) {
	ctx := context.Background()

	if err := send(ctx, conn, Greeting); err != nil {
		return
	}

	token, err := conn.ReadLine(ctx)
	if err != nil {
		return
	}

	if strings.TrimSpace(token) == "" {
		s.register(ctx, conn)
		return
	}

	account, ok := s.lookup(strings.TrimSpace(token))
	if !ok {
		slog.Info("unknown token", "remote", conn.RemoteAddr())
		_ = send(ctx, conn, protocol.EncodeNull())
		return
	}

	reply, err := protocol.EncodeAccount(account)
	if err != nil {
		slog.Error("failed to encode account", "error", err)
		return
	}
	if err := send(ctx, conn, reply); err != nil {
		return
	}
	if err := send(ctx, conn, Welcome); err != nil {
		return
	}

	for {
		line, err := conn.ReadLine(ctx)
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		delivered := s.hub.Broadcast(account.Nickname + ": " + line)
		slog.Debug("message posted", "nickname", account.Nickname, "followers", delivered)
	}
}

func (s *Server) register(ctx context.Context, conn chat.Conn) {
	if err := send(ctx, conn, Prompt); err != nil {
		return
	}

	nickname, err := conn.ReadLine(ctx)
	if err != nil {
		return
	}

	account, err := s.Register(nickname)
	if err != nil {
		slog.Error("registration failed", "error", err)
		return
	}

	reply, err := protocol.EncodeAccount(account)
	if err != nil {
		slog.Error("failed to encode account", "error", err)
		return
	}
	_ = send(ctx, conn, reply)
}

func send(ctx context.Context, conn chat.Conn, line string) error {
	if err := conn.WriteLine(ctx, line); err != nil {
		return err
	}
	return conn.Flush(ctx)
}
