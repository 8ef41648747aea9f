package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/harborview-research/epi-cli/internal/fetcher"
	"github.com/harborview-research/epi-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "epi.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    cfg.Fetch.UserAgent,
		Timeout:      time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		MaxRetries:   cfg.Fetch.MaxRetries,
		RateLimiters: fetcher.DefaultRateLimiters(),
	})
}
