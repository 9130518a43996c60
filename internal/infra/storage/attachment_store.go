// Package storage uploads queued message attachments to a blob bucket.
package storage

import (
	"context"
	"log/slog"
	"os"
	"path"
	"strings"

	"beacon/config"
	"beacon/internal/domain/entity"
	"beacon/internal/domain/service"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"

	// Register the bucket drivers used for attachment uploads.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
)

type blobAttachmentStore struct {
	bucket *blob.Bucket
	logger *slog.Logger
}

// StoreParams holds dependencies for the attachment store, injected by Fx.
type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

// New opens the configured attachments bucket.
func New(params StoreParams) (service.AttachmentStore, error) {
	cfg := params.Config.Attachments
	if cfg == nil || cfg.BucketURL == "" {
		return nil, errors.New("attachments bucket URL is required")
	}

	bucket, err := blob.OpenBucket(params.Ctx, cfg.BucketURL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open bucket %s", cfg.BucketURL)
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			params.Logger.Info("Closing attachments bucket")

			return bucket.Close()
		},
	})

	return NewWithBucket(bucket, params.Logger), nil
}

// NewWithBucket wraps an already opened bucket. Used by tests with memblob.
func NewWithBucket(bucket *blob.Bucket, logger *slog.Logger) service.AttachmentStore {
	return &blobAttachmentStore{bucket: bucket, logger: logger}
}

// UploadAll uploads every attachment and returns the remote keys in order.
// Any failure aborts the batch so the whole entry stays queued for retry.
func (s *blobAttachmentStore) UploadAll(ctx context.Context, kind entity.MessageKind, attachments []entity.Attachment) ([]string, error) {
	keys := make([]string, 0, len(attachments))
	for _, attachment := range attachments {
		key, err := s.upload(ctx, kind, attachment)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func (s *blobAttachmentStore) upload(ctx context.Context, kind entity.MessageKind, attachment entity.Attachment) (string, error) {
	data, err := readLocal(attachment.URI)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read attachment %s", attachment.Name)
	}

	key := path.Join(string(kind), uuid.NewString()+"-"+path.Base(attachment.Name))
	opts := &blob.WriterOptions{ContentType: attachment.Type}
	if err := s.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return "", errors.Wrapf(err, "failed to upload attachment %s", attachment.Name)
	}

	s.logger.Debug("attachment uploaded",
		slog.String("key", key),
		slog.Int("bytes", len(data)),
	)

	return key, nil
}

// readLocal loads the attachment bytes from the device-local URI.
func readLocal(uri string) ([]byte, error) {
	return os.ReadFile(strings.TrimPrefix(uri, "file://"))
}
