package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	newscraper "github.com/imajij/news-scrapper"
	"github.com/imajij/news-scrapper/config"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to optional YAML config file")
	flag.Parse()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	fileCfg, err := config.LoadConfigFile(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file")
	}
	cfg := config.Resolve(fileCfg)

	store, err := newscraper.OpenStore(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open article store")
	}
	defer store.Close()

	fetcher := newscraper.NewFetcher(cfg.FetchTimeout, cfg.UserAgent)
	orch := newscraper.NewOrchestrator(fetcher, store)
	cache := newscraper.NewResponseCache(cfg.CacheTTL)
	api := newscraper.NewAPIServer(orch, store, cache)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: api.Routes(),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("news scraper API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM with a bounded drain.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("forced shutdown after drain timeout")
	}
	log.Info().Msg("shutdown complete")
}
