// Package netsrv runs the TCP accept loop and owns the table of live
// connections.
package netsrv

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/metrics"
	"github.com/Blastus/confabulator/internal/session"
)

// Server accepts line-protocol connections and runs one handler stack per
// client. It satisfies core.ServerControl so handlers can stop the loop.
type Server struct {
	addr string
	seed func(*core.Client) session.Handler

	mu      sync.Mutex
	loop    bool
	ln      net.Listener
	clients map[string]*core.Client

	wg sync.WaitGroup
}

// New builds a server listening on addr; seed supplies the root handler for
// each accepted connection.
func New(addr string, seed func(*core.Client) session.Handler) *Server {
	return &Server{
		addr:    addr,
		seed:    seed,
		loop:    true,
		clients: make(map[string]*core.Client),
	}
}

// Run accepts connections until StopAccepting flips the loop flag. It
// returns once the listener is drained; connection workers may still be
// running, use Wait for those.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}
	s.mu.Lock()
	s.ln = ln
	running := s.loop
	s.mu.Unlock()
	if !running {
		ln.Close()
		return nil
	}
	slog.Info("chat server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.Looping() {
				slog.Warn("accept", "err", err)
				continue
			}
			break
		}
		s.mu.Lock()
		if !s.loop {
			s.mu.Unlock()
			conn.Close()
			break
		}
		client := core.NewClient(conn)
		client.Server = s
		s.clients[client.ID] = client
		s.mu.Unlock()

		metrics.ConnectionsTotal.Inc()
		metrics.ActiveConnections.Inc()
		slog.Debug("connection accepted", "client", client.ID, "addr", client.Addr)

		s.wg.Add(1)
		go s.serve(client)
	}
	ln.Close()
	return nil
}

func (s *Server) serve(client *core.Client) {
	defer s.wg.Done()
	stack := session.NewStack(client, s.seed(client), func() { s.release(client) })
	stack.Run()
}

// release is the unconditional teardown for one connection: drop it from
// the table, free its account binding, and make sure the socket is closed.
func (s *Server) release(client *core.Client) {
	s.mu.Lock()
	delete(s.clients, client.ID)
	s.mu.Unlock()
	if account := client.Account; account != nil {
		account.ReleaseClient(client.ID)
	}
	_ = client.Close(true)
	metrics.ActiveConnections.Dec()
	slog.Info("connection closed", "client", client.ID, "name", client.Name)
}

// Lookup resolves a connection id to its client.
func (s *Server) Lookup(id string) *core.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clients[id]
}

// ClientCount reports how many connections are currently tracked.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Looping reports whether the accept loop is still taking connections.
func (s *Server) Looping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// StopAccepting flips the loop flag off and pokes the listener with a
// throwaway connection so a blocked Accept observes the flag. It returns a
// snapshot of the connected clients; the second result is false when the
// loop had already been stopped.
func (s *Server) StopAccepting() ([]*core.Client, bool) {
	s.mu.Lock()
	if !s.loop {
		s.mu.Unlock()
		return nil, false
	}
	s.loop = false
	var addr string
	if s.ln != nil {
		addr = s.ln.Addr().String()
	}
	clients := make([]*core.Client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if addr != "" {
		if conn, err := net.Dial("tcp", addr); err == nil {
			conn.Close()
		}
	}
	slog.Info("accept loop stopped", "clients", len(clients))
	return clients, true
}

// Wait blocks until every connection worker has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}
