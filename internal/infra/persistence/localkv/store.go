// Package localkv implements the local persistent key-value store on a Go CDK
// blob bucket. With a file:// bucket URL the values live on local disk and
// survive process restart.
package localkv

import (
	"context"
	"log/slog"

	"beacon/config"
	"beacon/internal/domain/repository"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	// Register the file and in-memory bucket drivers.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

type blobStore struct {
	bucket *blob.Bucket
}

// StoreParams holds dependencies for the local store, injected by Fx.
type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// New opens the configured bucket as the local persistent store.
func New(params StoreParams) (repository.KVStore, error) {
	cfg := params.Config.Outbox
	if cfg == nil || cfg.BucketURL == "" {
		return nil, errors.New("outbox bucket URL is required")
	}

	bucket, err := blob.OpenBucket(params.Ctx, cfg.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", cfg.BucketURL)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Closing local store bucket")

			return bucket.Close()
		},
	})

	return &blobStore{bucket: bucket}, nil
}

// NewWithBucket wraps an already opened bucket. Used by tests with memblob.
func NewWithBucket(bucket *blob.Bucket) repository.KVStore {
	return &blobStore{bucket: bucket}
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (s *blobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, repository.ErrKeyNotFound
		}

		return nil, errors.Wrapf(err, "failed to read key %s", key)
	}

	return data, nil
}

// Set stores value under key, replacing any previous value.
func (s *blobStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.bucket.WriteAll(ctx, key, value, nil); err != nil {
		return errors.Wrapf(err, "failed to write key %s", key)
	}

	return nil
}

// Remove deletes the value under key. Removing a missing key is a no-op.
func (s *blobStore) Remove(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "failed to delete key %s", key)
	}

	return nil
}
