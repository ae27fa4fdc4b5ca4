package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"product-meta-viewer/internal/config"
	"product-meta-viewer/internal/report"
	"product-meta-viewer/internal/search"
	"product-meta-viewer/internal/store"
)

// app bundles the catalog and the services built on it.
type app struct {
	cfg     *config.Config
	catalog store.Catalog
	pinger  store.Pinger
	closer  io.Closer
	reports *report.Service
	matcher *search.Matcher
}

// openApp connects to the configured catalog and wires the report services.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if cfg.FixturePath != "" {
		mem, err := store.LoadFixture(cfg.FixturePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.FixturePath).Msg("Serving catalog fixture")
		a.catalog = mem
	} else {
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database connection: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		log.Info().Str("host", cfg.Postgres.Host).Str("db", cfg.Postgres.DBName).Msg("Database connection established")
		pg := store.NewPostgresStore(db)
		a.catalog, a.pinger, a.closer = pg, pg, pg
	}

	d := cfg.Display
	money, err := report.NewMoneyFormatter(d.CurrencyCode, d.CurrencySymbol, d.CurrencyLocale, d.SymbolAfter)
	if err != nil {
		a.Close()
		return nil, err
	}
	extractor := report.NewExtractor(a.catalog, report.Settings{
		AdminURL:      d.AdminURL,
		WeightUnit:    d.WeightUnit,
		DimensionUnit: d.DimensionUnit,
		DateLayout:    d.DateLayout,
	}, money)
	a.reports = report.NewService(a.catalog, extractor, report.NewFormatter())
	a.matcher = search.NewMatcher(a.catalog, cfg.Search.Limit, cfg.Search.BatchSize)
	return a, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
