// Package main provides the memkeep worker entry point.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/memkeep/memkeep/internal/config"
	"github.com/memkeep/memkeep/internal/db/sqlite"
	"github.com/memkeep/memkeep/internal/worker"
	"github.com/memkeep/memkeep/internal/worker/sdk"
	"github.com/memkeep/memkeep/pkg/client"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	dbPath := flag.String("db", "", "Store file path (default: ~/.memkeep/memkeep.db)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Get()

	setupLogging(cfg, *debug)

	if client.IsWorkerRunning(cfg.WorkerPort) {
		log.Fatal().Int("port", cfg.WorkerPort).Msg("Another worker is already running")
	}

	if err := config.EnsureDataDir(); err != nil {
		log.Fatal().Err(err).Msg("Failed to create data directory")
	}

	path := config.DBPath()
	if *dbPath != "" {
		path = *dbPath
	}

	store, err := sqlite.Open(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to open store")
	}

	generator := sdk.NewAnthropicGenerator(cfg.Model)
	var embedder sdk.Embedder
	if e := sdk.NewOpenAIEmbedder(); e != nil {
		embedder = e
		log.Info().Msg("Embedding-based dedup enabled")
	}

	svc := worker.New(Version, cfg, store, generator, embedder)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Shutting down")

		ctx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.ShutdownGraceSecs)*time.Second)
		defer cancel()

		if err := svc.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Shutdown incomplete")
		}
		os.Exit(0)
	}()

	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Worker failed")
	}
}

func setupLogging(cfg *config.Config, debug bool) {
	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && cfg.LogLevel != "" {
		level = parsed
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
