package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/fatiguetrack/internal/config"
	"github.com/meltforce/fatiguetrack/internal/logging"
	"github.com/meltforce/fatiguetrack/internal/mcp"
	"github.com/meltforce/fatiguetrack/internal/server"
	"github.com/meltforce/fatiguetrack/internal/session"
	"github.com/meltforce/fatiguetrack/internal/storage"
	"go.uber.org/multierr"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, logCloser := logging.New(cfg.Logging)
	log.Info("FatigueTrack starting", "version", Version)

	err = run(cfg, *migrateOnly, log)
	if err != nil {
		log.Error("fatal", "error", err)
	}
	logCloser.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, migrateOnly bool, log *slog.Logger) (err error) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, storeCloser, err := openStore(ctx, cfg.Database, migrateOnly, log)
	if err != nil {
		return err
	}
	if storeCloser != nil {
		defer func() { err = multierr.Append(err, storeCloser.Close()) }()
	}
	if migrateOnly {
		log.Info("migrate-only: exiting")
		return nil
	}

	metrics := server.NewMetrics(server.NewRegistry())
	mgr := session.NewManager(store, log,
		session.WithTables(cfg.Fatigue.Tables()),
		session.WithIdleTimeout(cfg.Sessions.IdleTimeout),
		session.WithObserver(metrics),
	)
	if _, err := mgr.Restore(ctx); err != nil {
		return fmt.Errorf("restoring sessions: %w", err)
	}

	mcpSrv := mcp.New(mcp.NewLocal(mgr), Version, log)
	mcpHTTP := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			return mcp.WithUserID(ctx, server.UserFromRequest(r).Login)
		}),
	)
	opts := []server.Option{server.WithMCP(mcpHTTP)}

	// Start server: tsnet or plain HTTP
	var listener net.Listener
	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			return fmt.Errorf("tsnet start: %w", err)
		}
		defer func() { err = multierr.Append(err, tsServer.Close()) }()

		lc, err := tsServer.LocalClient()
		if err != nil {
			return fmt.Errorf("tsnet local client: %w", err)
		}
		opts = append(opts, server.WithTailscale(lc))

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			return fmt.Errorf("tsnet listen: %w", err)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	srv := server.New(mgr, metrics, cfg.Auth.APIKey, log, opts...)
	httpSrv := &http.Server{Handler: srv}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Deferred after the store and tsnet closers, so the loop is gone
	// before either of them closes.
	var evicting sync.WaitGroup
	defer func() {
		stop()
		evicting.Wait()
	}()
	if cfg.Sessions.IdleTimeout > 0 {
		evicting.Add(1)
		go func() {
			defer evicting.Done()
			evictLoop(ctx, mgr, cfg.Sessions.IdleTimeout, log)
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Info("shutting down", "signal", sig)
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// openStore connects the configured session store. The memory driver
// returns a nil store and closer.
func openStore(ctx context.Context, db config.DatabaseConfig, migrateOnly bool, log *slog.Logger) (session.Store, io.Closer, error) {
	switch db.Driver {
	case config.DriverPostgres:
		dsn := db.DSN()
		version, err := storage.RunMigrations(dsn, "migrations")
		if err != nil {
			return nil, nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("migrations applied", "version", version)
		if migrateOnly {
			return nil, nil, nil
		}
		pg, err := storage.New(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting database: %w", err)
		}
		log.Info("database connected", "driver", db.Driver)
		return pg, pg, nil

	case config.DriverSQLite:
		lite, err := storage.OpenSQLite(db.Path)
		if err != nil {
			return nil, nil, err
		}
		log.Info("database opened", "driver", db.Driver, "path", db.Path)
		return lite, lite, nil

	default:
		log.Info("sessions kept in memory only")
		return nil, nil, nil
	}
}

// evictLoop closes idle sessions periodically so they do not linger between
// requests.
func evictLoop(ctx context.Context, mgr *session.Manager, every time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(every / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := mgr.EvictIdle(ctx); n > 0 {
				log.Info("idle sessions closed", "count", n)
			}
		}
	}
}
