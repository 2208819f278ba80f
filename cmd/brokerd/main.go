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

	"github.com/rs/zerolog/log"

	"paperbroker/internal/config"
	"paperbroker/internal/engine"
	"paperbroker/internal/logger"
	"paperbroker/internal/quotes"
	"paperbroker/internal/repository"
	"paperbroker/internal/server"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDatabase(ctx, cfg.Database.URL, cfg.OpeningBalance())
	if err != nil {
		log.Fatal().Err(err).Msg("database initialization failed")
	}
	defer db.Close()

	clientOpts := []quotes.ClientOption{
		quotes.WithTimeout(time.Duration(cfg.Quotes.TimeoutSeconds) * time.Second),
		quotes.WithRateLimit(cfg.Quotes.RateLimit),
		quotes.WithLogger(log.Logger),
	}
	if cfg.Quotes.BaseURL != "" {
		clientOpts = append(clientOpts, quotes.WithBaseURL(cfg.Quotes.BaseURL))
	}
	resolver := quotes.NewResolver(quotes.NewClient(clientOpts...), cfg.Broker.DefaultSuffix)

	topSymbols := make([]engine.CuratedSymbol, 0, len(cfg.Broker.TopSymbols))
	for _, s := range cfg.Broker.TopSymbols {
		topSymbols = append(topSymbols, engine.CuratedSymbol{Symbol: s.Symbol, Name: s.Name})
	}

	eng := engine.NewEngine(
		&db,
		resolver,
		engine.NewConfig(cfg.Broker.DefaultSuffix, topSymbols),
		log.Logger,
	)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.New(eng, log.Logger).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	log.Info().
		Str("addr", cfg.Server.Addr).
		Int("top_symbols", len(topSymbols)).
		Str("opening_balance", cfg.Broker.OpeningBalance).
		Msg("brokerd started")

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
}
