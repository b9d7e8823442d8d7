// Package httpapi exposes a small read-only HTTP surface next to the chat
// port: health, a state snapshot, and Prometheus metrics.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Blastus/confabulator/internal/core"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stats reports live connection counts.
type Stats interface {
	ClientCount() int
}

// Server is the Echo application.
type Server struct {
	echo  *echo.Echo
	ctx   *core.Context
	stats Stats
}

// New constructs an Echo app with the monitoring routes.
func New(serverCtx *core.Context, stats Stats) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, ctx: serverCtx, stats: stats}
	s.registerRoutes()
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/state", s.handleState)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status:  "ok",
		Clients: s.stats.ClientCount(),
	})
}

type accountSummary struct {
	Name          string `json:"name"`
	Administrator bool   `json:"administrator"`
	Online        bool   `json:"online"`
}

type channelSummary struct {
	Name    string `json:"name"`
	Owner   string `json:"owner"`
	State   string `json:"state"`
	Members int    `json:"members"`
	Lines   int    `json:"lines"`
}

type stateResponse struct {
	Clients  int              `json:"clients"`
	Accounts []accountSummary `json:"accounts"`
	Channels []channelSummary `json:"channels"`
}

func (s *Server) handleState(c echo.Context) error {
	accounts := []accountSummary{}
	for _, name := range s.ctx.Accounts.Names() {
		admin, _ := s.ctx.Accounts.IsAdministrator(name)
		accounts = append(accounts, accountSummary{
			Name:          name,
			Administrator: admin,
			Online:        s.ctx.Accounts.IsOnline(name),
		})
	}

	channels := []channelSummary{}
	for _, room := range s.ctx.Channels.Rooms() {
		channels = append(channels, channelSummary{
			Name:    room.Name(),
			Owner:   room.Owner(),
			State:   room.State().String(),
			Members: room.MemberCount(),
			Lines:   len(room.BufferSnapshot()),
		})
	}

	return c.JSON(http.StatusOK, stateResponse{
		Clients:  s.stats.ClientCount(),
		Accounts: accounts,
		Channels: channels,
	})
}
