// Package app assembles the ledger from configuration: the store, the
// optional GCS settings document and BigQuery export, the engine and the
// recurring scheduler. Every binary starts from Open.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/config"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/infra/gcs"
	"github.com/dvloznov/finance-ledger/internal/ledger"
	"github.com/dvloznov/finance-ledger/internal/recurring"
	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/dvloznov/finance-ledger/internal/store/memory"
	"github.com/dvloznov/finance-ledger/internal/store/sqlite"
)

// App holds the wired components.
type App struct {
	Config    config.Config
	Log       zerolog.Logger
	Store     store.Store
	Engine    *ledger.Engine
	Recurring *recurring.Service

	// Exporter is nil when the BigQuery export is not configured.
	Exporter *infraBQ.Exporter

	closers []func() error
}

// Open builds an App from cfg. Extra engine options (a fixed clock in
// tests) are applied after the configured location.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger, opts ...ledger.Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log}
	if err := a.openStore(ctx); err != nil {
		return nil, err
	}

	var settings store.SettingsStore = a.Store
	if cfg.SettingsBucket != "" {
		objects, err := gcs.NewStorageObjects(ctx)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		a.closers = append(a.closers, objects.Close)
		settings = gcs.NewSettingsStore(objects, cfg.SettingsBucket, cfg.SettingsObject)
		log.Info().
			Str("bucket", cfg.SettingsBucket).
			Str("object", cfg.SettingsObject).
			Msg("Using GCS settings store")
	}

	if cfg.ExportEnabled() {
		exporter, err := infraBQ.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		a.Exporter = exporter
		a.closers = append(a.closers, exporter.Close)
	}

	a.Engine = ledger.New(a.Store, settings, append([]ledger.Option{ledger.WithLocation(loc)}, opts...)...)
	a.Recurring = recurring.New(a.Engine)
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.StoreDriver {
	case config.DriverMemory:
		a.Store = memory.New()
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, a.Config.SQLitePath)
		if err != nil {
			return fmt.Errorf("Open: %w", err)
		}
		applied, err := s.Migrate(ctx)
		if err != nil {
			s.Close()
			return fmt.Errorf("Open: %w", err)
		}
		if len(applied) > 0 {
			a.Log.Info().Strs("migrations", applied).Msg("Applied schema migrations")
		}
		a.Store = s
	default:
		return fmt.Errorf("Open: unknown store driver %q", a.Config.StoreDriver)
	}
	a.closers = append(a.closers, a.Store.Close)
	return nil
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
