// Replay executes a CSV trade script (symbol,side,quantity per row) against
// a user's account at current market prices. Useful for seeding demo
// accounts or rebuilding one from an exported journal.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"paperbroker/internal/config"
	"paperbroker/internal/engine"
	"paperbroker/internal/logger"
	"paperbroker/internal/quotes"
	"paperbroker/internal/repository"
	"paperbroker/types"
)

type scriptOrder struct {
	symbol   string
	side     types.Side
	quantity int64
}

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	username := flag.String("user", "", "account to trade against")
	scriptPath := flag.String("script", "", "path to the CSV trade script")
	flag.Parse()

	if *username == "" || *scriptPath == "" {
		log.Fatal().Msg("-user and -script are required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	orders, err := readScript(*scriptPath)
	if err != nil {
		log.Fatal().Err(err).Str("script", *scriptPath).Msg("read script failed")
	}

	ctx := context.Background()
	db, err := repository.NewDatabase(ctx, cfg.Database.URL, cfg.OpeningBalance())
	if err != nil {
		log.Fatal().Err(err).Msg("database initialization failed")
	}
	defer db.Close()

	clientOpts := []quotes.ClientOption{
		quotes.WithTimeout(time.Duration(cfg.Quotes.TimeoutSeconds) * time.Second),
		quotes.WithRateLimit(cfg.Quotes.RateLimit),
	}
	if cfg.Quotes.BaseURL != "" {
		clientOpts = append(clientOpts, quotes.WithBaseURL(cfg.Quotes.BaseURL))
	}
	resolver := quotes.NewResolver(quotes.NewClient(clientOpts...), cfg.Broker.DefaultSuffix)

	eng := engine.NewEngine(
		&db,
		resolver,
		engine.NewConfig(cfg.Broker.DefaultSuffix, nil),
		log.Logger,
	)

	bar := initProgressBar(len(orders))
	failed := 0
	for _, order := range orders {
		var err error
		switch order.side {
		case types.SideTypeBuy:
			_, err = eng.ExecuteBuy(ctx, *username, order.symbol, order.quantity)
		case types.SideTypeSell:
			_, err = eng.ExecuteSell(ctx, *username, order.symbol, order.quantity)
		}
		if err != nil {
			failed++
			log.Warn().Err(err).
				Str("symbol", order.symbol).
				Str("side", string(order.side)).
				Int64("quantity", order.quantity).
				Msg("order skipped")
		}
		bar.Add(1)
	}

	log.Info().
		Int("orders", len(orders)).
		Int("failed", failed).
		Str("user", *username).
		Msg("replay finished")
}

func readScript(path string) ([]scriptOrder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}

	var orders []scriptOrder
	for i, rec := range records {
		// Tolerate a header row
		if i == 0 && strings.EqualFold(rec[0], "symbol") {
			continue
		}
		if len(rec) < 3 {
			continue
		}
		qty, err := strconv.ParseInt(strings.TrimSpace(rec[2]), 10, 64)
		if err != nil {
			continue
		}
		side := types.Side(strings.ToUpper(strings.TrimSpace(rec[1])))
		if side != types.SideTypeBuy && side != types.SideTypeSell {
			continue
		}
		orders = append(orders, scriptOrder{
			symbol:   strings.TrimSpace(rec[0]),
			side:     side,
			quantity: qty,
		})
	}
	return orders, nil
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Replaying trades..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
