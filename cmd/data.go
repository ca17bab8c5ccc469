package main

import (
	"context"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/floodaudit/floodaudit/internal/dataset"
	"github.com/floodaudit/floodaudit/internal/filter"
	"github.com/floodaudit/floodaudit/internal/loader"
	"github.com/floodaudit/floodaudit/internal/prepare"
	"github.com/floodaudit/floodaudit/internal/store"
)

func prepareOptions() prepare.Options {
	opts := prepare.DefaultOptions()
	if cfg.Prepare.ExcludedYears != nil {
		opts.ExcludedYears = cfg.Prepare.ExcludedYears
	}
	if cfg.Prepare.SuspiciousThreshold > 0 {
		opts.SuspiciousThreshold = cfg.Prepare.SuspiciousThreshold
	}
	return opts
}

func newTableCache() *loader.Cache {
	return loader.NewCache(loader.Options{Delimiter: cfg.Data.DelimiterRune()})
}

func newDataset(tables *loader.Cache) *dataset.Service {
	return dataset.New(cfg.Data.Path, tables, prepareOptions())
}

// loadSnapshot loads and prepares the configured dataset once.
func loadSnapshot(ctx context.Context) (*dataset.Snapshot, error) {
	return newDataset(newTableCache()).Current(ctx)
}

// parseCriteria binds a query-string style filter, e.g. "region=NCR&year_min=2023".
func parseCriteria(raw string) (filter.Criteria, error) {
	q, err := url.ParseQuery(raw)
	if err != nil {
		return filter.Criteria{}, eris.Wrapf(filter.ErrInvalidCriteria, "filter: %v", err)
	}
	return filter.FromQuery(q)
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "floodaudit.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func fetchTimeout() time.Duration {
	return time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
}
