package telnet

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"sync"
	"time"
)

// Telnet command bytes (RFC 854) and the options this server negotiates.
const (
	IAC  byte = 255
	DONT byte = 254
	DO   byte = 253
	WONT byte = 252
	WILL byte = 251
	SB   byte = 250
	SE   byte = 240

	OptSuppressGoAhead byte = 3
)

// MaxLineBytes caps one input line; bytes past the cap are discarded.
const MaxLineBytes = 512

// Conn is a line-oriented Telnet connection. Reads come from one goroutine;
// writes are serialized and may come from any goroutine.
type Conn struct {
	raw    net.Conn
	reader *bufio.Reader
	wmu    sync.Mutex

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewConn wraps a raw TCP connection.
//
// Precondition: raw must be a valid, open network connection.
func NewConn(raw net.Conn, readTimeout, writeTimeout time.Duration) *Conn {
	return &Conn{
		raw:          raw,
		reader:       bufio.NewReaderSize(raw, 4096),
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
	}
}

// Negotiate tells the client the server will not send go-ahead.
func (c *Conn) Negotiate() error {
	return c.Write([]byte{IAC, WILL, OptSuppressGoAhead})
}

// ReadLine returns the next input line without its terminator. Telnet
// command sequences and control characters other than tab are dropped and
// invalid UTF-8 is replaced with U+FFFD.
//
// Postcondition: Returns the line, or a partial line and the read error.
func (c *Conn) ReadLine() (string, error) {
	if c.readTimeout > 0 {
		_ = c.raw.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	var line bytes.Buffer
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			return decode(line.Bytes()), err
		}
		switch {
		case b == IAC:
			if err := c.skipCommand(); err != nil {
				return decode(line.Bytes()), err
			}
		case b == '\n':
			return decode(line.Bytes()), nil
		case b == '\r':
			if next, err := c.reader.Peek(1); err == nil && (next[0] == '\n' || next[0] == 0) {
				_, _ = c.reader.ReadByte()
			}
			return decode(line.Bytes()), nil
		case b < 32 && b != '\t', b == 127:
		case line.Len() < MaxLineBytes:
			line.WriteByte(b)
		}
	}
}

// skipCommand consumes the rest of a command whose IAC was already read.
func (c *Conn) skipCommand() error {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return err
	}
	switch cmd {
	case WILL, WONT, DO, DONT:
		_, err = c.reader.ReadByte()
		return err
	case SB:
		prev := byte(0)
		for {
			b, err := c.reader.ReadByte()
			if err != nil {
				return err
			}
			if prev == IAC && b == SE {
				return nil
			}
			prev = b
		}
	}
	return nil
}

func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "�")
}

// WriteLine sends text followed by CRLF. Bare newlines in text are expanded to CRLF.
func (c *Conn) WriteLine(text string) error {
	return c.Write([]byte(strings.ReplaceAll(text, "\n", "\r\n") + "\r\n"))
}

// WritePrompt sends text without a line terminator.
func (c *Conn) WritePrompt(text string) error {
	return c.Write([]byte(text))
}

// Write sends raw bytes under the write deadline.
func (c *Conn) Write(data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.writeTimeout > 0 {
		_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	_, err := c.raw.Write(data)
	return err
}

// Close closes the underlying connection, unblocking any pending ReadLine.
func (c *Conn) Close() error {
	return c.raw.Close()
}

// RemoteAddr returns the remote network address of the client.
func (c *Conn) RemoteAddr() net.Addr {
	return c.raw.RemoteAddr()
}
