package telnet

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/hangman/internal/config"
)

// echoHandler is a test SessionHandler that echoes lines back to the client.
type echoHandler struct {
	sessionCount atomic.Int32
	ended        atomic.Int32
}

func (h *echoHandler) HandleSession(_ context.Context, conn *Conn) error {
	h.sessionCount.Add(1)
	defer h.ended.Add(1)
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "quit" {
			_ = conn.WriteLine("bye")
			return nil
		}
		_ = conn.WriteLine("echo: " + line)
	}
}

func startAcceptor(t *testing.T, handler SessionHandler) (*Acceptor, chan error) {
	t.Helper()
	cfg := config.TelnetConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	acc := NewAcceptor(cfg, handler, zaptest.NewLogger(t))
	errCh := make(chan error, 1)
	go func() { errCh <- acc.Start() }()
	return acc, errCh
}

// readUntil reads from r until the accumulated text contains want.
func readUntil(t *testing.T, conn net.Conn, r *bufio.Reader, want string) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var sb strings.Builder
	for !strings.Contains(sb.String(), want) {
		b, err := r.ReadByte()
		require.NoError(t, err, "waiting for %q, got %q", want, sb.String())
		sb.WriteByte(b)
	}
	return sb.String()
}

func TestAcceptorStartAndStop(t *testing.T) {
	handler := &echoHandler{}
	acc, errCh := startAcceptor(t, handler)

	conn, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)

	negotiation := readUntil(t, conn, r, string([]byte{IAC, WILL, OptSuppressGoAhead}))
	assert.Len(t, negotiation, 3)

	_, err = conn.Write([]byte("hello\r\n"))
	require.NoError(t, err)
	readUntil(t, conn, r, "echo: hello\r\n")

	_, err = conn.Write([]byte("quit\r\n"))
	require.NoError(t, err)
	readUntil(t, conn, r, "bye")

	acc.Stop()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("acceptor did not stop in time")
	}
	assert.Equal(t, int32(1), handler.sessionCount.Load())
}

func TestAcceptorMultipleClients(t *testing.T) {
	handler := &echoHandler{}
	acc, _ := startAcceptor(t, handler)
	addr := acc.Addr()

	const numClients = 3
	for i := 0; i < numClients; i++ {
		conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
		require.NoError(t, err)
		r := bufio.NewReader(conn)
		_, err = conn.Write([]byte("quit\r\n"))
		require.NoError(t, err)
		readUntil(t, conn, r, "bye")
		_ = conn.Close()
	}

	assert.Eventually(t, func() bool { return handler.ended.Load() == numClients }, 2*time.Second, 10*time.Millisecond)
	acc.Stop()
	assert.Equal(t, int32(numClients), handler.sessionCount.Load())
}

func TestAcceptorStopClosesOpenSessions(t *testing.T) {
	handler := &echoHandler{}
	acc, errCh := startAcceptor(t, handler)

	conn, err := net.DialTimeout("tcp", acc.Addr(), 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
	r := bufio.NewReader(conn)
	_, err = conn.Write([]byte("ping\r\n"))
	require.NoError(t, err)
	readUntil(t, conn, r, "echo: ping")

	acc.Stop()
	assert.Equal(t, int32(1), handler.ended.Load(), "Stop waits for the session to return")
	require.NoError(t, <-errCh)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	rest, err := io.ReadAll(r)
	require.NoError(t, err, "server side of the connection is closed")
	assert.Equal(t, "\r\n", string(rest))
}

func TestAcceptorListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	acc := NewAcceptor(config.TelnetConfig{Host: "127.0.0.1", Port: port}, &echoHandler{}, zaptest.NewLogger(t))
	assert.Error(t, acc.Start())
}
