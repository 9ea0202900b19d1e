package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/hangman/internal/frontend/telnet"
)

// TelnetClient is a line-oriented test client for the hangman Telnet frontend.
// Output is accumulated with Telnet commands and ANSI colors removed.
type TelnetClient struct {
	conn   net.Conn
	reader *bufio.Reader
	t      *testing.T
	seen   strings.Builder
}

// NewTelnetClient dials the given address and returns a test client.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t *testing.T, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() { _ = conn.Close() })

	t.Logf("telnet client connected to %s [%s]", addr, time.Since(start))
	return &TelnetClient{
		conn:   conn,
		reader: bufio.NewReader(conn),
		t:      t,
	}
}

// ReadUntil reads until the plain-text output since the last match contains
// substr and returns that output.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the output up to and including substr, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string, timeout time.Duration) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		text := telnet.StripANSI(c.seen.String())
		if i := strings.Index(text, substr); i >= 0 {
			c.seen.Reset()
			c.seen.WriteString(text[i+len(substr):])
			return text[:i+len(substr)]
		}
		b, err := c.reader.ReadByte()
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, text, err)
		}
		if b == telnet.IAC {
			c.skipCommand()
			continue
		}
		c.seen.WriteByte(b)
	}
}

// skipCommand discards the option bytes that follow IAC. Only the three-byte
// negotiation form is ever sent by the server.
func (c *TelnetClient) skipCommand() {
	verb, err := c.reader.ReadByte()
	if err != nil {
		return
	}
	if verb >= telnet.WILL && verb <= telnet.DONT {
		_, _ = c.reader.ReadByte()
	}
}

// Send writes a line of text to the server, appending \r\n.
//
// Precondition: text should not contain trailing newline characters.
// Postcondition: text + \r\n is written to the connection.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Command sends text and waits for expect.
func (c *TelnetClient) Command(text, expect string) string {
	c.t.Helper()
	c.Send(text)
	return c.ReadUntil(expect, 5*time.Second)
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
