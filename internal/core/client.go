package core

import (
	"bytes"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const (
	// receiveSize is how much is read from the socket per call.
	receiveSize = 1 << 12
	// receiveLimit caps the unframed receive buffer. A peer that sends this
	// much without a line separator is disconnected.
	receiveLimit = 1 << 16
)

var lineSeparator = []byte("\r\n")

// ClientTable resolves a connection id to its live client, if any. The
// account registry holds connection ids rather than client pointers so a
// finished connection never pins its client.
type ClientTable interface {
	Lookup(id string) *Client
}

// ServerControl is the slice of the accept loop visible to handlers.
type ServerControl interface {
	ClientTable
	// StopAccepting flips the accept loop off and returns a snapshot of the
	// connected clients. The second result is false when the loop was
	// already stopped.
	StopAccepting() ([]*Client, bool)
}

// Client is one accepted connection with \r\n line framing on both
// directions. Reads are only made by the connection's own worker; writes may
// come from any goroutine and are serialised by a mutex.
type Client struct {
	ID   string
	Addr string

	// Name and Account are set on login and cleared on logout. They are
	// only written and read by the owning worker; rooms capture the name
	// at connect time so broadcasts never touch this field.
	Name    string
	Account *Account
	Server  ServerControl

	conn net.Conn
	buf  []byte

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an accepted connection. The id is a fresh UUID; Addr is the
// remote host without the port.
func NewClient(conn net.Conn) *Client {
	addr := ""
	if ra := conn.RemoteAddr(); ra != nil {
		if host, _, err := net.SplitHostPort(ra.String()); err == nil {
			addr = host
		} else {
			addr = ra.String()
		}
	}
	return &Client{ID: uuid.NewString(), Addr: addr, conn: conn}
}

// NewConsoleClient builds a client with no transport. Prints go to the debug
// log. Used for operator-initiated shutdown, which drives the admin console
// without a socket.
func NewConsoleClient(name string, server ServerControl) *Client {
	return &Client{ID: uuid.NewString(), Name: name, Server: server}
}

// ReadLine returns the next complete line including its \r\n separator. The
// receive buffer grows until a separator arrives; overflow or a transport
// error closes the connection and returns ErrDisconnected.
func (c *Client) ReadLine() ([]byte, error) {
	if c.conn == nil {
		return nil, ErrDisconnected
	}
	for !bytes.Contains(c.buf, lineSeparator) {
		chunk := make([]byte, receiveSize)
		n, err := c.conn.Read(chunk)
		if n > 0 {
			if len(c.buf)+n > receiveLimit {
				slog.Warn("receive buffer overflow", "client", c.ID, "addr", c.Addr)
				return nil, c.shutdown()
			}
			c.buf = append(c.buf, chunk[:n]...)
		}
		if err != nil {
			return nil, c.shutdown()
		}
	}
	cut := bytes.Index(c.buf, lineSeparator) + len(lineSeparator)
	line := c.buf[:cut:cut]
	c.buf = append([]byte(nil), c.buf[cut:]...)
	return line, nil
}

// Input optionally sends a prompt, then reads one line and strips the
// separator.
func (c *Client) Input(prompt ...string) (string, error) {
	if len(prompt) > 0 {
		if err := c.Print(prompt[0]); err != nil {
			return "", err
		}
	}
	line, err := c.ReadLine()
	if err != nil {
		return "", err
	}
	return string(line[:len(line)-len(lineSeparator)]), nil
}

// Print joins values with spaces, appends a newline, normalizes the result
// and sends it.
func (c *Client) Print(values ...any) error {
	return c.send(fmt.Sprintln(values...))
}

func (c *Client) send(text string) error {
	data := []byte(NormalizeNewlines(text))
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrDisconnected
	}
	if c.conn == nil {
		slog.Debug("console print", "client", c.Name, "text", strings.TrimRight(text, "\r\n"))
		return nil
	}
	if _, err := c.conn.Write(data); err != nil {
		c.closed = true
		c.conn.Close()
		return ErrDisconnected
	}
	return nil
}

// Close shuts the connection down exactly once. It always returns
// ErrDisconnected unless suppress is true and this call did the closing;
// that lets callers either propagate the disconnect or swallow it.
func (c *Client) Close(suppress bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrDisconnected
	}
	c.closed = true
	if c.conn != nil {
		if tc, ok := c.conn.(*net.TCPConn); ok {
			_ = tc.CloseRead()
			_ = tc.CloseWrite()
		}
		c.conn.Close()
	}
	if suppress {
		return nil
	}
	return ErrDisconnected
}

// Closed reports whether the connection has been shut down.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) shutdown() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		c.conn.Close()
	}
	c.mu.Unlock()
	return ErrDisconnected
}

// NormalizeNewlines rewrites text so every run of \r and \n bytes becomes
// exactly one \r\n. Applying it twice is a no-op.
func NormalizeNewlines(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 2)
	for i := 0; i < len(text); {
		ch := text[i]
		if ch == '\r' || ch == '\n' {
			b.WriteString("\r\n")
			for i < len(text) && (text[i] == '\r' || text[i] == '\n') {
				i++
			}
			continue
		}
		b.WriteByte(ch)
		i++
	}
	return b.String()
}
