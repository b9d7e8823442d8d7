package netsrv

import (
	"testing"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/session"
)

func noHandler(*core.Client) session.Handler { return nil }

func TestStopAcceptingIsOneShot(t *testing.T) {
	s := New("127.0.0.1:0", noHandler)
	if !s.Looping() {
		t.Fatal("fresh server should be accepting")
	}

	clients, wasRunning := s.StopAccepting()
	if !wasRunning {
		t.Fatal("first stop reported an already-stopped server")
	}
	if len(clients) != 0 {
		t.Fatalf("clients = %v", clients)
	}
	if s.Looping() {
		t.Fatal("loop flag survived the stop")
	}

	if _, wasRunning := s.StopAccepting(); wasRunning {
		t.Fatal("second stop should be a no-op")
	}
}

func TestRunAfterStopReturnsImmediately(t *testing.T) {
	s := New("127.0.0.1:0", noHandler)
	s.StopAccepting()
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	s.Wait()
}

func TestLookupAndCount(t *testing.T) {
	s := New("127.0.0.1:0", noHandler)
	if s.ClientCount() != 0 {
		t.Fatalf("count = %d", s.ClientCount())
	}
	if s.Lookup("no-such-id") != nil {
		t.Fatal("lookup invented a client")
	}
}
