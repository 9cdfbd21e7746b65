package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/meltforce/fatiguetrack/internal/config"
	"github.com/meltforce/fatiguetrack/internal/fatigue"
	"github.com/meltforce/fatiguetrack/internal/logging"
	"github.com/meltforce/fatiguetrack/internal/mcp"
	"github.com/meltforce/fatiguetrack/internal/session"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "FatigueTrack server URL; empty keeps sessions in this process")
	apiKey := flag.String("api-key", "", "API key for the server (or FATIGUETRACK_API_KEY)")
	configPath := flag.String("config", "", "optional config file for fatigue rate overrides")
	logLevel := flag.String("log-level", "warn", "log level (debug, info, warn, error)")
	flag.Parse()

	// stdout carries the protocol, so logs go to stderr.
	log := slog.New(logging.NewHandler(os.Stderr, "text", logging.ParseLevel(*logLevel)))

	var ds mcp.DataSource
	if *serverURL != "" {
		key := *apiKey
		if key == "" {
			key = os.Getenv("FATIGUETRACK_API_KEY")
		}
		ds = mcp.NewHTTPClient(*serverURL, key)
		log.Info("using remote sessions", "server", *serverURL)
	} else {
		tables := fatigue.DefaultTables()
		if *configPath != "" {
			cfg, err := config.Load(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
				os.Exit(1)
			}
			tables = cfg.Fatigue.Tables()
		}
		ds = mcp.NewLocal(session.NewManager(nil, log, session.WithTables(tables)))
		log.Info("using in-process sessions")
	}

	s := mcp.New(ds, Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("stdio server failed", "error", err)
		os.Exit(1)
	}
}
