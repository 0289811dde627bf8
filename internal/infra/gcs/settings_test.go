package gcs

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// fakeObjects is an in-memory ObjectStore with real generation semantics.
type fakeObjects struct {
	mu   sync.Mutex
	data []byte
	gen  int64

	// BeforeWriteFunc runs before each write, outside the lock.
	BeforeWriteFunc func()
	WriteErr        error
}

func (f *fakeObjects) Read(ctx context.Context, bucket, object string) ([]byte, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.data...), f.gen, nil
}

func (f *fakeObjects) Write(ctx context.Context, bucket, object string, data []byte, gen int64) error {
	if f.BeforeWriteFunc != nil {
		f.BeforeWriteFunc()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.WriteErr != nil {
		return f.WriteErr
	}
	if gen != f.gen {
		return ErrPreconditionFailed
	}
	f.data = append([]byte(nil), data...)
	f.gen++
	return nil
}

func TestSettingsStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewSettingsStore(&fakeObjects{}, "bucket", "settings.json")

	if _, ok, err := s.GetSetting(ctx, "monthly_budget"); err != nil || ok {
		t.Fatalf("GetSetting(unset) = ok %v, err %v", ok, err)
	}
	if err := s.SetSetting(ctx, "monthly_budget", "250000"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}
	if err := s.SetSetting(ctx, "last_recurring_transaction_check_date", "2024-03-01"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}

	v, ok, err := s.GetSetting(ctx, "monthly_budget")
	if err != nil || !ok || v != "250000" {
		t.Errorf("GetSetting() = %q, %v, %v; want 250000", v, ok, err)
	}
}

func TestSettingsStore_RetriesOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	objects := &fakeObjects{}
	s := NewSettingsStore(objects, "bucket", "settings.json")
	other := NewSettingsStore(objects, "bucket", "settings.json")

	interfered := false
	objects.BeforeWriteFunc = func() {
		if interfered {
			return
		}
		interfered = true
		objects.BeforeWriteFunc = nil
		if err := other.SetSetting(ctx, "monthly_budget", "1000"); err != nil {
			t.Errorf("concurrent SetSetting() error = %v", err)
		}
	}

	if err := s.SetSetting(ctx, "last_recurring_transaction_check_date", "2024-03-01"); err != nil {
		t.Fatalf("SetSetting() error = %v", err)
	}

	for key, want := range map[string]string{
		"monthly_budget":                        "1000",
		"last_recurring_transaction_check_date": "2024-03-01",
	} {
		got, ok, err := s.GetSetting(ctx, key)
		if err != nil || !ok || got != want {
			t.Errorf("GetSetting(%s) = %q, %v, %v; want %q", key, got, ok, err, want)
		}
	}
}

func TestSettingsStore_GivesUp(t *testing.T) {
	objects := &fakeObjects{WriteErr: ErrPreconditionFailed}
	s := NewSettingsStore(objects, "bucket", "settings.json")

	err := s.SetSetting(context.Background(), "monthly_budget", "1")
	if !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("SetSetting() error = %v, want ErrPreconditionFailed", err)
	}
}
