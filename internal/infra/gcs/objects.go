// Package gcs keeps ledger settings in a single JSON object in Google Cloud
// Storage. Writes use object generation preconditions, so concurrent writers
// never lose each other's keys.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrPreconditionFailed means the object changed since it was read.
var ErrPreconditionFailed = errors.New("gcs: precondition failed")

// ObjectStore provides generation-aware reads and writes of small objects.
// This interface enables mocking of Cloud Storage in tests.
type ObjectStore interface {
	// Read returns the object's bytes and generation. A missing object
	// yields nil data and generation 0.
	Read(ctx context.Context, bucket, object string) ([]byte, int64, error)

	// Write stores data only if the object's generation still equals gen
	// (0 means the object must not exist yet). It returns
	// ErrPreconditionFailed when another writer got there first.
	Write(ctx context.Context, bucket, object string, data []byte, gen int64) error
}

// StorageObjects is the ObjectStore backed by a Cloud Storage client.
type StorageObjects struct {
	client *storage.Client
}

// NewStorageObjects creates a client using Application Default Credentials.
func NewStorageObjects(ctx context.Context) (*StorageObjects, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewStorageObjects: creating storage client: %w", err)
	}
	return &StorageObjects{client: client}, nil
}

// Close closes the storage client.
func (s *StorageObjects) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Read implements ObjectStore.
func (s *StorageObjects) Read(ctx context.Context, bucket, object string) ([]byte, int64, error) {
	rc, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("Read: opening %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, 0, fmt.Errorf("Read: reading %s/%s: %w", bucket, object, err)
	}
	return data, rc.Attrs.Generation, nil
}

// Write implements ObjectStore.
func (s *StorageObjects) Write(ctx context.Context, bucket, object string, data []byte, gen int64) error {
	cond := storage.Conditions{GenerationMatch: gen}
	if gen == 0 {
		cond = storage.Conditions{DoesNotExist: true}
	}

	w := s.client.Bucket(bucket).Object(object).If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("Write: %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("Write: %s/%s: %w", bucket, object, ErrPreconditionFailed)
		}
		return fmt.Errorf("Write: finalize %s/%s: %w", bucket, object, err)
	}
	return nil
}

var _ ObjectStore = (*StorageObjects)(nil)
