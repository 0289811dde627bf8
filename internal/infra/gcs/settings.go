package gcs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ledger/internal/logger"
	"github.com/dvloznov/finance-ledger/internal/store"
)

const maxWriteAttempts = 5

// SettingsStore implements store.SettingsStore on one JSON object holding a
// flat string map.
type SettingsStore struct {
	objects ObjectStore
	bucket  string
	object  string
}

// NewSettingsStore stores settings in gs://bucket/object.
func NewSettingsStore(objects ObjectStore, bucket, object string) *SettingsStore {
	return &SettingsStore{objects: objects, bucket: bucket, object: object}
}

func (s *SettingsStore) load(ctx context.Context) (map[string]string, int64, error) {
	data, gen, err := s.objects.Read(ctx, s.bucket, s.object)
	if err != nil {
		return nil, 0, err
	}
	values := make(map[string]string)
	if len(data) == 0 {
		return values, gen, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, 0, fmt.Errorf("decoding gs://%s/%s: %w", s.bucket, s.object, err)
	}
	return values, gen, nil
}

// GetSetting implements store.SettingsStore.
func (s *SettingsStore) GetSetting(ctx context.Context, key string) (string, bool, error) {
	values, _, err := s.load(ctx)
	if err != nil {
		return "", false, fmt.Errorf("GetSetting: %s: %w", key, err)
	}
	v, ok := values[key]
	return v, ok, nil
}

// SetSetting implements store.SettingsStore. It re-reads and retries when
// another writer updates the object between read and write.
func (s *SettingsStore) SetSetting(ctx context.Context, key, value string) error {
	log := logger.FromContext(ctx)
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		values, gen, err := s.load(ctx)
		if err != nil {
			return fmt.Errorf("SetSetting: %s: %w", key, err)
		}
		values[key] = value
		data, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("SetSetting: %s: encoding: %w", key, err)
		}

		err = s.objects.Write(ctx, s.bucket, s.object, data, gen)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrPreconditionFailed) {
			return fmt.Errorf("SetSetting: %s: %w", key, err)
		}
		log.Debug().
			Str("key", key).
			Int("attempt", attempt).
			Int64("generation", gen).
			Msg("Settings object changed concurrently, retrying")
	}
	return fmt.Errorf("SetSetting: %s: gave up after %d attempts: %w", key, maxWriteAttempts, ErrPreconditionFailed)
}

var _ store.SettingsStore = (*SettingsStore)(nil)
