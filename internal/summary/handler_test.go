package summary

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Blastus/confabulator/internal/core"
)

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

func newPipeClient(name string) (*core.Client, *receiver) {
	server, peer := net.Pipe()
	c := core.NewClient(server)
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
	return c, r
}

func TestSummarizerEmptyBuffer(t *testing.T) {
	client, recv := newPipeClient("reader")
	room := core.NewChannelRoom("lobby", "reader")
	s := &Summarizer{client: client, room: room, clauses: 1, rng: seeded()}

	next, err := s.Handle()
	if err != nil || next != nil {
		t.Fatalf("Handle: next=%v err=%v", next, err)
	}
	lines := recv.waitLines(t, 1)
	if lines[0] != "There is nothing worth summarizing." {
		t.Fatalf("output = %q", lines[0])
	}
}

func TestSummarizerProducesFramedParagraph(t *testing.T) {
	client, recv := newPipeClient("reader")
	room := core.NewChannelRoom("lobby", "reader")
	buffer := []core.ChannelLine{
		{Source: "alice", Text: "cats chase mice around the yard."},
		{Source: "bob", Text: "dogs chase cats around the house."},
		{Source: "alice", Text: "mice fear cats and dogs alike."},
		{Source: "bob", Text: "cats nap after they chase mice."},
	}
	s := &Summarizer{
		client:  client,
		room:    room,
		buffer:  buffer,
		clauses: (len(buffer) + 3) / 4,
		rng:     seeded(),
	}

	next, err := s.Handle()
	if err != nil || next != nil {
		t.Fatalf("Handle: next=%v err=%v", next, err)
	}
	// One clause between two matching rulers.
	lines := recv.waitLines(t, 3)
	if len(lines[0]) == 0 || lines[0] != strings.Repeat("~", len(lines[0])) {
		t.Fatalf("missing ruler: %q", lines[0])
	}
	if lines[2] != lines[0] {
		t.Fatalf("rulers differ: %q vs %q", lines[0], lines[2])
	}
	sentence := lines[1]
	if !strings.ContainsAny(sentence[len(sentence)-1:], "!.?") {
		t.Fatalf("sentence ends badly: %q", sentence)
	}
	if len(lines[0]) != len(sentence) {
		t.Fatalf("ruler length %d does not match sentence length %d", len(lines[0]), len(sentence))
	}

	if room.MemberCount() != 1 {
		t.Fatal("summarizer did not rejoin the channel")
	}
}

func TestSummarizerHandlesSparseBuffer(t *testing.T) {
	client, recv := newPipeClient("reader")
	room := core.NewChannelRoom("lobby", "reader")
	buffer := []core.ChannelLine{
		{Source: "alice", Text: "hi"},
		{Source: "bob", Text: ""},
	}
	s := &Summarizer{client: client, room: room, buffer: buffer, clauses: 1, rng: seeded()}

	next, err := s.Handle()
	if err != nil || next != nil {
		t.Fatalf("Handle: next=%v err=%v", next, err)
	}
	lines := recv.waitLines(t, 1)
	if lines[0] != "There is nothing worth summarizing." {
		t.Fatalf("output = %q", lines[0])
	}
}
