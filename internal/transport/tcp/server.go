package tcp

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/omochice/minechat/internal/chat"
)

// Handler serves one accepted connection. The server closes the connection
// once the handler returns.
type Handler func(conn chat.Conn)

// Upgrader turns an accepted socket into a chat.Conn, e.g. after a protocol
// handshake.
type Upgrader func(conn net.Conn) (chat.Conn, error)

// Server accepts TCP connections and hands each one to a Handler.
type Server struct {
	address  string
	handler  Handler
	upgrade  Upgrader
	listener net.Listener
	conns    map[net.Conn]struct{}
	mu       sync.Mutex
	quit     chan struct{}
	wg       sync.WaitGroup
}

// New creates a TCP server that serves connections with handler.
func New(address string, handler Handler) *Server {
	return NewWithUpgrader(address, handler, func(conn net.Conn) (chat.Conn, error) {
		return NewConn(conn), nil
	})
}

// NewWithUpgrader creates a server that runs upgrade on every accepted
// socket before handing it to handler.
func NewWithUpgrader(address string, handler Handler, upgrade Upgrader) *Server {
	return &Server{
		address: address,
		handler: handler,
		upgrade: upgrade,
		conns:   make(map[net.Conn]struct{}),
		quit:    make(chan struct{}),
	}
}

// Listen binds the listening socket so Addr is known before Serve runs.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	slog.Info("TCP server started", "address", listener.Addr().String())
	return nil
}

// Start binds and serves until Stop is called.
func (s *Server) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve()
}

// Serve accepts connections on a listener bound by Listen.
func (s *Server) Serve() error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return fmt.Errorf("TCP server %s is not listening", s.address)
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return nil
			default:
				slog.Warn("failed to accept TCP connection", "error", err)
				continue
			}
		}

		if !s.track(conn) {
			conn.Close()
			return nil
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// Stop stops the TCP server and closes every open connection.
func (s *Server) Stop() {
	s.mu.Lock()
	select {
	case <-s.quit:
		s.mu.Unlock()
		return
	default:
		close(s.quit)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.quit:
		return false
	default:
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	c, err := s.upgrade(conn)
	if err != nil {
		slog.Warn("failed to set up connection", "remote", conn.RemoteAddr().String(), "error", err)
		conn.Close()
		return
	}
	defer c.Close()
	s.handler(c)
}
