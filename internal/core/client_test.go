package core

import (
	"bufio"
	"errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

// receiver collects the lines written to the far end of a piped client.
type receiver struct {
	mu    sync.Mutex
	lines []string
}

func (r *receiver) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// waitLines polls until at least n lines arrived or the deadline passes.
func (r *receiver) waitLines(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lines := r.snapshot(); len(lines) >= n {
			return lines
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, have %v", n, r.snapshot())
	return nil
}

// newPipeClient wires a client to an in-memory connection and drains its
// output into a receiver.
func newPipeClient(name string) (*Client, net.Conn, *receiver) {
	server, peer := net.Pipe()
	c := NewClient(server)
	c.Name = name
	r := &receiver{}
	go func() {
		reader := bufio.NewReader(peer)
		for {
			line, err := reader.ReadString('\n')
			if line != "" {
				r.mu.Lock()
				r.lines = append(r.lines, strings.TrimRight(line, "\r\n"))
				r.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()
	return c, peer, r
}

func TestNormalizeNewlines(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"plain", "plain"},
		{"a\nb", "a\r\nb"},
		{"a\r\nb", "a\r\nb"},
		{"a\n\n\r\rb", "a\r\nb"},
		{"\n", "\r\n"},
		{"a\n", "a\r\n"},
	}
	for _, c := range cases {
		got := NormalizeNewlines(c.in)
		if got != c.want {
			t.Errorf("NormalizeNewlines(%q) = %q, want %q", c.in, got, c.want)
		}
		if again := NormalizeNewlines(got); again != got {
			t.Errorf("NormalizeNewlines not idempotent on %q: %q then %q", c.in, got, again)
		}
	}
}

func TestReadLineFraming(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()
	c := NewClient(server)

	go peer.Write([]byte("hello\r\nworld\r\n"))

	line, err := c.ReadLine()
	if err != nil {
		t.Fatalf("first ReadLine: %v", err)
	}
	if string(line) != "hello\r\n" {
		t.Fatalf("first line = %q", line)
	}
	line, err = c.ReadLine()
	if err != nil {
		t.Fatalf("second ReadLine: %v", err)
	}
	if string(line) != "world\r\n" {
		t.Fatalf("second line = %q", line)
	}
}

func TestReadLineSplitAcrossWrites(t *testing.T) {
	server, peer := net.Pipe()
	defer peer.Close()
	c := NewClient(server)

	go func() {
		peer.Write([]byte("par"))
		peer.Write([]byte("tial\r"))
		peer.Write([]byte("\n"))
	}()

	line, err := c.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if string(line) != "partial\r\n" {
		t.Fatalf("line = %q", line)
	}
}

func TestReadLineOverflowDisconnects(t *testing.T) {
	server, peer := net.Pipe()
	c := NewClient(server)

	go func() {
		junk := make([]byte, 1<<12)
		for i := range junk {
			junk[i] = 'x'
		}
		for {
			if _, err := peer.Write(junk); err != nil {
				return
			}
		}
	}()

	_, err := c.ReadLine()
	if !errors.Is(err, ErrDisconnected) {
		t.Fatalf("expected ErrDisconnected, got %v", err)
	}
	if !c.Closed() {
		t.Fatal("client should be closed after overflow")
	}
}

func TestInputPromptAndAnswer(t *testing.T) {
	c, peer, r := newPipeClient("tester")
	go peer.Write([]byte("the answer\r\n"))

	got, err := c.Input("Question?")
	if err != nil {
		t.Fatalf("Input: %v", err)
	}
	if got != "the answer" {
		t.Fatalf("Input = %q", got)
	}
	lines := r.waitLines(t, 1)
	if lines[0] != "Question?" {
		t.Fatalf("prompt = %q", lines[0])
	}
}

func TestPrintNormalizesOutput(t *testing.T) {
	c, _, r := newPipeClient("tester")
	if err := c.Print("first\nsecond"); err != nil {
		t.Fatalf("Print: %v", err)
	}
	lines := r.waitLines(t, 2)
	if lines[0] != "first" || lines[1] != "second" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestCloseIdempotent(t *testing.T) {
	server, _ := net.Pipe()
	c := NewClient(server)

	if err := c.Close(true); err != nil {
		t.Fatalf("first suppressed close: %v", err)
	}
	if err := c.Close(true); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("second close = %v, want ErrDisconnected", err)
	}

	server2, _ := net.Pipe()
	c2 := NewClient(server2)
	if err := c2.Close(false); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("unsuppressed close = %v, want ErrDisconnected", err)
	}
}

func TestPrintAfterCloseFails(t *testing.T) {
	server, _ := net.Pipe()
	c := NewClient(server)
	_ = c.Close(true)
	if err := c.Print("anything"); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("Print after close = %v, want ErrDisconnected", err)
	}
}

func TestConsoleClientHasNoTransport(t *testing.T) {
	c := NewConsoleClient("operator", nil)
	if err := c.Print("to the log"); err != nil {
		t.Fatalf("console Print: %v", err)
	}
	if _, err := c.ReadLine(); !errors.Is(err, ErrDisconnected) {
		t.Fatalf("console ReadLine = %v, want ErrDisconnected", err)
	}
}

func TestChannelLineEcho(t *testing.T) {
	c, _, r := newPipeClient("tester")
	line := ChannelLine{Source: "alice", Text: "hi there"}
	if err := line.Echo(c); err != nil {
		t.Fatalf("Echo: %v", err)
	}
	lines := r.waitLines(t, 1)
	if lines[0] != "[alice] hi there" {
		t.Fatalf("echo = %q", lines[0])
	}
}
