// Command server runs the Confabulator chat service: a line-oriented TCP
// protocol for interactive sessions plus a small HTTP surface for
// monitoring. State lives in a SQLite database under the given root path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/Blastus/confabulator/internal/core"
	"github.com/Blastus/confabulator/internal/handlers"
	"github.com/Blastus/confabulator/internal/httpapi"
	"github.com/Blastus/confabulator/internal/netsrv"
	"github.com/Blastus/confabulator/internal/session"
	"github.com/Blastus/confabulator/internal/store"
)

// Version is injected at build time with -ldflags.
var Version = "1.0.0-dev"

func main() {
	addr := flag.String("addr", ":8989", "chat listen address")
	httpAddr := flag.String("http", ":8990", "monitoring HTTP listen address")
	dbPath := flag.String("db", "", "SQLite database path (defaults to <root>/confabulator.db)")
	debug := flag.Bool("debug", false, "Enable debug logging (auto-enabled for dev builds)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [flags] <root_path> [subcommand ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *debug || strings.Contains(Version, "dev") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	args := flag.Args()
	root := "."
	if len(args) > 0 {
		root = args[0]
		args = args[1:]
	}
	path := *dbPath
	if path == "" {
		path = filepath.Join(root, "confabulator.db")
	}

	if RunCLI(args, path) {
		return
	}

	slog.Info("starting server", "version", Version, "addr", *addr, "db", path)

	st, err := store.New(path)
	if err != nil {
		slog.Error("open store", "err", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("close store", "err", closeErr)
		}
	}()

	serverCtx := core.NewContext()
	if err := loadState(serverCtx, st); err != nil {
		slog.Error("load state", "err", err)
		os.Exit(1)
	}

	srv := netsrv.New(*addr, func(client *core.Client) session.Handler {
		return handlers.NewBanFilter(serverCtx, client)
	})
	serverCtx.Accounts.BindClients(srv)

	httpCtx, cancelHTTP := context.WithCancel(context.Background())
	defer cancelHTTP()
	go func() {
		if err := httpapi.New(serverCtx, srv).Run(httpCtx, *httpAddr); err != nil {
			slog.Error("http api", "err", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
			slog.Info("received interrupt")
			handlers.CompleteShutdown(serverCtx, srv)
		}
	}()

	if err := srv.Run(); err != nil {
		slog.Error("chat server", "err", err)
		os.Exit(1)
	}
	srv.Wait()
	cancelHTTP()

	if err := saveState(serverCtx, st); err != nil {
		slog.Error("save state", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
