package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/store/sqlite"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "ledger.db")
	return cfg
}

func TestRun_AppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	if err := run(ctx, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if err := run(ctx, cfg, zerolog.Nop()); err != nil {
		t.Fatalf("second run() error = %v", err)
	}

	var after bytes.Buffer
	if err := printStatus(ctx, cfg, &after); err != nil {
		t.Fatalf("printStatus() error = %v", err)
	}
	if got := strings.Count(after.String(), "[OK]"); got != len(sqlite.Migrations) {
		t.Errorf("applied = %d, want %d\n%s", got, len(sqlite.Migrations), after.String())
	}
	if strings.Contains(after.String(), "[PENDING]") {
		t.Errorf("pending migrations after run:\n%s", after.String())
	}
}

func TestRun_MemoryStoreSkips(t *testing.T) {
	cfg := config.Default()
	cfg.StoreDriver = config.DriverMemory
	if err := run(context.Background(), cfg, zerolog.Nop()); err != nil {
		t.Errorf("run() error = %v", err)
	}
	if err := printStatus(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Error("printStatus() on memory store succeeded, want error")
	}
}
