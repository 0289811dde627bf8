package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dvloznov/finance-ledger/internal/store"
	"github.com/dvloznov/finance-ledger/internal/store/storetest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return openTemp(t) })
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTemp(t)

	applied, err := s.Migrate(context.Background())
	if err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("second Migrate() applied %v, want nothing", applied)
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	s, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if applied, err := s.Migrate(ctx); err != nil || len(applied) != len(Migrations) {
		t.Fatalf("Migrate() = %v, %v", applied, err)
	}
	if err := s.SetSetting(ctx, store.SettingMonthlyBudget, "250000"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	s.Close()

	reopened, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()
	v, ok, err := reopened.GetSetting(ctx, store.SettingMonthlyBudget)
	if err != nil || !ok || v != "250000" {
		t.Errorf("GetSetting() after reopen = %q, %v, %v", v, ok, err)
	}
}
