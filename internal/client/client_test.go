package client_test

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/omochice/minechat/internal/chat"
	"github.com/omochice/minechat/internal/client"
	"github.com/omochice/minechat/internal/config"
	"github.com/omochice/minechat/internal/history"
	"github.com/omochice/minechat/internal/transport/tcp"
	"github.com/omochice/minechat/internal/transport/ws"
)

// script plays the server side of one accepted connection.
type script func(t *testing.T, r *bufio.Reader, w net.Conn)

// mockServer serves accepted connections with scripts, in order, and records
// everything each client sent.
type mockServer struct {
	t        *testing.T
	listener net.Listener
	mu       sync.Mutex
	received []string
	wg       sync.WaitGroup
}

func startMockServer(t *testing.T, scripts ...script) *mockServer {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := &mockServer{t: t, listener: l}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for _, play := range scripts {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conn.SetDeadline(time.Now().Add(2 * time.Second))
			rec := &recorder{r: conn}
			play(t, bufio.NewReader(rec), conn)
			// Let the client finish and hang up first.
			io.Copy(io.Discard, rec)
			conn.Close()

			s.mu.Lock()
			s.received = append(s.received, rec.String())
			s.mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		l.Close()
		s.wg.Wait()
	})
	return s
}

func (s *mockServer) port(t *testing.T) int {
	t.Helper()

	_, p, _ := net.SplitHostPort(s.listener.Addr().String())
	port, err := strconv.Atoi(p)
	if err != nil {
		t.Fatalf("bad port %q: %v", p, err)
	}
	return port
}

// Received returns what each finished connection sent, in accept order.
func (s *mockServer) Received() []string {
	s.listener.Close()
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

type recorder struct {
	r  io.Reader
	sb strings.Builder
}

func (r *recorder) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.sb.Write(p[:n])
	return n, err
}

func (r *recorder) String() string {
	return r.sb.String()
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()

	line, err := r.ReadString('\n')
	if err != nil {
		t.Errorf("server read error: %v", err)
	}
	return strings.TrimSuffix(line, "\n")
}

func reply(lines ...string) script {
	return func(t *testing.T, r *bufio.Reader, w net.Conn) {
		w.Write([]byte("Hello %username%!\n"))
		for _, line := range lines {
			readLine(t, r)
			w.Write([]byte(line + "\n"))
		}
	}
}

func testConfig(port int) *config.Config {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.ListenPort = port
	cfg.PostPort = port
	cfg.ConnectTimeout = time.Second
	return cfg
}

func TestPost_WithToken(t *testing.T) {
	srv := startMockServer(t, reply(`{"nickname": "Vasya", "account_hash": "abc"}`))

	cfg := testConfig(srv.port(t))
	cfg.Token = "abc"

	result, err := client.Post(context.Background(), cfg, "hi\nthere")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if result.Registered {
		t.Error("Post() registered although a token was configured")
	}
	if result.Token != "abc" || result.Account.Nickname != "Vasya" {
		t.Errorf("Post() = %+v", result)
	}

	got := srv.Received()
	want := []string{"abc\nhi\n\nthere\n\n"}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("server received %q, want %q", got, want)
	}
}

func TestPost_RegistersWithoutToken(t *testing.T) {
	srv := startMockServer(t,
		reply("Enter preferred nickname below:", `{"nickname": "Vasya", "account_hash": "new"}`),
		reply(`{"nickname": "Vasya", "account_hash": "new"}`),
	)

	cfg := testConfig(srv.port(t))
	cfg.Username = "Vasya"

	result, err := client.Post(context.Background(), cfg, "hello")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	if !result.Registered || result.Token != "new" {
		t.Errorf("Post() = %+v, want registered token %q", result, "new")
	}

	got := srv.Received()
	want := []string{"\nVasya\n", "new\nhello\n\n"}
	if len(got) != len(want) {
		t.Fatalf("server received %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("connection %d sent %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPost_TokenRejected(t *testing.T) {
	for _, answer := range []string{"null", ""} {
		t.Run(strconv.Quote(answer), func(t *testing.T) {
			srv := startMockServer(t, reply(answer))

			cfg := testConfig(srv.port(t))
			cfg.Token = "stale"

			_, err := client.Post(context.Background(), cfg, "hello")
			if !errors.Is(err, chat.ErrTokenRejected) {
				t.Fatalf("Post() error = %v, want ErrTokenRejected", err)
			}

			got := srv.Received()
			if len(got) != 1 || got[0] != "stale\n" {
				t.Errorf("server received %q, want only the token", got)
			}
		})
	}
}

func TestPost_RegisteredTokenSurvivesLaterFailure(t *testing.T) {
	srv := startMockServer(t,
		reply("Enter preferred nickname below:", `{"account_hash": "fresh"}`),
		reply("not json"),
	)

	cfg := testConfig(srv.port(t))

	result, err := client.Post(context.Background(), cfg, "hello")
	var perr *chat.ProtocolError
	if !errors.As(err, &perr) || perr.Step != chat.StepAuth {
		t.Fatalf("Post() error = %v, want auth ProtocolError", err)
	}
	if result.Token != "fresh" || !result.Registered {
		t.Errorf("Post() = %+v, want the registered token", result)
	}
}

func TestPost_ConnectError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	_, p, _ := net.SplitHostPort(l.Addr().String())
	port, _ := strconv.Atoi(p)
	l.Close()

	cfg := testConfig(port)
	cfg.Token = "abc"

	_, err = client.Post(context.Background(), cfg, "hello")
	var cerr *chat.ConnectError
	if !errors.As(err, &cerr) {
		t.Fatalf("Post() error = %v, want *chat.ConnectError", err)
	}
	if client.ExitCode(err) != client.ExitConnect {
		t.Errorf("ExitCode() = %d, want %d", client.ExitCode(err), client.ExitConnect)
	}
}

type memorySink struct {
	records []history.Record
	err     error
}

func (s *memorySink) Append(r history.Record) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, r)
	return nil
}

func TestListen_RecordsUntilServerCloses(t *testing.T) {
	srv := startMockServer(t, func(t *testing.T, r *bufio.Reader, w net.Conn) {
		w.Write([]byte("Vasya: hi\nPetya: hey\n"))
		w.(*net.TCPConn).CloseWrite()
	})

	sink := &memorySink{}
	var emitted []string

	err := client.Listen(context.Background(), testConfig(srv.port(t)), sink, func(r history.Record) {
		emitted = append(emitted, r.Text)
	})
	if !errors.Is(err, chat.ErrStreamClosed) {
		t.Fatalf("Listen() error = %v, want ErrStreamClosed", err)
	}

	want := []string{"Vasya: hi", "Petya: hey"}
	if len(sink.records) != len(want) || len(emitted) != len(want) {
		t.Fatalf("sink %v, emitted %q, want %q", sink.records, emitted, want)
	}
	for i := range want {
		if sink.records[i].Text != want[i] || emitted[i] != want[i] {
			t.Errorf("record %d = %q / %q, want %q", i, sink.records[i].Text, emitted[i], want[i])
		}
		if sink.records[i].Received.IsZero() {
			t.Errorf("record %d has no timestamp", i)
		}
	}
}

func TestListen_SinkFailureStops(t *testing.T) {
	srv := startMockServer(t, func(t *testing.T, r *bufio.Reader, w net.Conn) {
		w.Write([]byte("Vasya: hi\n"))
	})

	writeErr := &history.WriteError{Path: "/nope", Err: errors.New("read-only")}
	err := client.Listen(context.Background(), testConfig(srv.port(t)), &memorySink{err: writeErr}, func(history.Record) {})

	if client.ExitCode(err) != client.ExitHistoryWrite {
		t.Errorf("Listen() error = %v, exit code %d, want %d", err, client.ExitCode(err), client.ExitHistoryWrite)
	}
}

func TestListen_Cancelled(t *testing.T) {
	srv := startMockServer(t, func(t *testing.T, r *bufio.Reader, w net.Conn) {})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.Listen(ctx, testConfig(srv.port(t)), &memorySink{}, func(history.Record) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Listen() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen() did not return after cancellation")
	}
}

func TestNewDialer_PicksTransport(t *testing.T) {
	cfg := config.Default()

	td, ok := client.NewDialer(cfg, "example.org:5000").(*tcp.Dialer)
	if !ok {
		t.Fatalf("NewDialer() for %q is not a TCP dialer", cfg.Network)
	}
	if td.Address != "example.org:5000" || td.Timeout != cfg.ConnectTimeout {
		t.Errorf("tcp dialer = %+v", td)
	}

	cfg.Network = config.NetworkWebSocket
	wd, ok := client.NewDialer(cfg, "example.org:5000").(*ws.Dialer)
	if !ok {
		t.Fatalf("NewDialer() for %q is not a WebSocket dialer", cfg.Network)
	}
	if wd.URL != "ws://example.org:5000/" {
		t.Errorf("ws dialer URL = %q", wd.URL)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, client.ExitOK},
		{"cancelled", context.Canceled, client.ExitInterrupted},
		{"connect", &chat.ConnectError{Address: "h:1", Err: errors.New("refused")}, client.ExitConnect},
		{"rejected", chat.ErrTokenRejected, client.ExitTokenRejected},
		{"protocol", &chat.ProtocolError{Step: chat.StepAuth, Err: errors.New("bad")}, client.ExitProtocol},
		{"history", &history.WriteError{Path: "x", Err: errors.New("denied")}, client.ExitHistoryWrite},
		{"stream", chat.ErrStreamClosed, client.ExitStreamClosed},
		{"other", errors.New("boom"), client.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := client.ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
			if tt.err != nil && client.Describe(tt.err) == "" {
				t.Errorf("Describe(%v) is empty", tt.err)
			}
		})
	}
}
