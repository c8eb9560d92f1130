package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/agroproductivo/etl-cli/internal/cropcat"
	"github.com/agroproductivo/etl-cli/internal/etl/dimensional"
)

// dbPool creates a pgxpool.Pool from the configured database URL.
func dbPool(ctx context.Context) (*pgxpool.Pool, error) {
	dsn := cfg.Store.DatabaseURL
	if dsn == "" {
		return nil, eris.New("agroetl: no database_url configured (set store.database_url or AGROETL_STORE_DATABASE_URL)")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "agroetl: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "agroetl: ping database")
	}

	return pool, nil
}

// loadCatalog returns the configured crop catalog, falling back to the
// embedded one.
func loadCatalog() (*cropcat.Catalog, error) {
	if cfg.Extract.CropCatalog == "" {
		return cropcat.Default(), nil
	}
	return cropcat.Load(cfg.Extract.CropCatalog)
}

// dimMode parses the configured dimension update mode.
func dimMode() (dimensional.Mode, error) {
	return dimensional.ParseMode(cfg.Analytics.DimUpdateMode)
}
