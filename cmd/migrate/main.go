// Command migrate applies the SQLite schema migrations and, when the export
// is configured, creates the BigQuery snapshot table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/config"
	infraBQ "github.com/dvloznov/finance-ledger/internal/infra/bigquery"
	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store/sqlite"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	status := flag.Bool("status", false, "list applied migrations and exit")
	cfg.RegisterFlags(flag.CommandLine)
	flag.Parse()

	log, err := logger.Configure(os.Stderr, cfg.LogLevel, logger.Format(cfg.LogFormat))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := context.Background()
	if *status {
		err = printStatus(ctx, cfg, os.Stdout)
	} else {
		err = run(ctx, cfg, log)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}
}

// run migrates the SQLite database and ensures the BigQuery table exists.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	if cfg.StoreDriver != config.DriverSQLite {
		log.Info().Str("store", cfg.StoreDriver).Msg("Store has no schema, skipping SQLite migrations")
	} else {
		s, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		defer s.Close()

		log.Info().Str("db", cfg.SQLitePath).Int("known", len(sqlite.Migrations)).Msg("Applying SQLite migrations")
		applied, err := s.Migrate(ctx)
		for _, name := range applied {
			log.Info().Str("migration", name).Msg("Applied migration")
		}
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			log.Info().Msg("No new migrations to apply. Database is up to date.")
		}
	}

	if !cfg.ExportEnabled() {
		return nil
	}
	exporter, err := infraBQ.NewExporter(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable)
	if err != nil {
		return err
	}
	defer exporter.Close()

	created, err := exporter.EnsureTable(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Str("project", cfg.BigQueryProject).
		Str("dataset", cfg.BigQueryDataset).
		Str("table", cfg.BigQueryTable).
		Bool("created", created).
		Msg("BigQuery snapshot table ready")
	return nil
}

// printStatus writes one line per recorded migration.
func printStatus(ctx context.Context, cfg config.Config, w io.Writer) error {
	if cfg.StoreDriver != config.DriverSQLite {
		return fmt.Errorf("status needs the sqlite store, got %q", cfg.StoreDriver)
	}
	s, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return err
	}
	defer s.Close()

	applied, err := s.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	recorded := make(map[string]bool, len(applied))
	for _, am := range applied {
		recorded[am.Version] = true
		fmt.Fprintf(w, "  [OK]      %s_%s (%s)\n", am.Version, am.Name, am.AppliedAt)
	}
	for _, m := range sqlite.Migrations {
		if !recorded[m.Version] {
			fmt.Fprintf(w, "  [PENDING] %s_%s\n", m.Version, m.Name)
		}
	}
	return nil
}
