package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumela/huecircle/internal/circle"
	"github.com/lumela/huecircle/internal/cli"
	"github.com/lumela/huecircle/internal/config"
	"github.com/lumela/huecircle/internal/consent"
	"github.com/lumela/huecircle/internal/invites"
	"github.com/lumela/huecircle/internal/logging"
	"github.com/lumela/huecircle/internal/selftest"
	"github.com/lumela/huecircle/internal/storage"
)

// janitorInterval is how often expired invites and signals are swept
// while the shell is running.
const janitorInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "huecircle:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadConfig()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", cfg.LogLevel, err)
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
	log := logging.NewZerologLogger(zl)

	// Refuse to start if any runtime assertion has gone soft.
	selftest.MustPass()

	backend, err := openBackend(cfg, log)
	if err != nil {
		return err
	}
	defer backend.Close()

	store := storage.New(backend, log)
	directory := &consent.Static{Enabled: cfg.ShareDisplayName}

	circleSvc := circle.NewService(store, directory, directory, log)
	inviteSvc := invites.NewService(store, circleSvc, log)

	janitor := invites.NewJanitor(inviteSvc, janitorInterval, log, circleSvc.SweepExpiredSignals)
	janitor.Start()
	defer janitor.Stop()

	app := cli.NewApp(circleSvc, inviteSvc, store, directory, log, cfg.Scheme, os.Stdin, os.Stdout)
	return app.Run(context.Background())
}

func openBackend(cfg *config.Config, log logging.Logger) (storage.Backend, error) {
	if cfg.InMemory {
		return storage.NewMemoryBackend(), nil
	}
	return storage.OpenBadger(storage.BadgerConfig{Path: cfg.StorePath, Logger: log})
}
