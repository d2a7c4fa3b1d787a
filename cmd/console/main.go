// Package main provides an interactive terminal dashboard backed by a running
// Firewatch API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/firewatch/firewatch/internal/client"
	"github.com/firewatch/firewatch/internal/config"
	"github.com/firewatch/firewatch/internal/dashboard"
	"github.com/firewatch/firewatch/internal/logging"
)

// Version is set at compile time via ldflags.
var Version = "dev"

func main() {
	cfg, err := config.Load()

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	log := logging.New(logging.Config{
		Service: "firewatch-console",
		Version: Version,
		Level:   cfg.LogLevel,
		Pretty:  isatty.IsTerminal(os.Stderr.Fd()),
		Output:  os.Stderr,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	apiURL := flag.String("api", cfg.APIURL, "Firewatch API base URL")
	poll := flag.Duration("poll", dashboard.DefaultPollInterval, "node feed poll interval")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(client.Config{BaseURL: *apiURL, Timeout: 15 * time.Second, Logger: log})
	con := newConsole(os.Stdout, interactive)

	session := dashboard.NewSession(dashboard.SessionConfig{
		Readings:      api,
		Routes:        api,
		Geocoder:      api,
		Pins:          api,
		Inventory:     cfg.Inventory,
		Notifier:      con,
		Logger:        log,
		PollInterval:  *poll,
		OnSuggestions: con.showSuggestions,
		OnTransition:  con.showTransition,
	})
	con.session = session

	if err := session.Start(ctx); err != nil {
		log.Fatal().Err(err).Str("api_url", *apiURL).Msg("failed to connect to API")
	}
	defer session.Close()

	if interactive {
		con.printf("Firewatch console %s connected to %s. Type help for commands.\n", Version, *apiURL)
	}
	if err := con.run(ctx, os.Stdin); err != nil {
		log.Error().Err(err).Msg("reading input")
	}
}
