package service

import (
	"context"

	"beacon/internal/domain/entity"
)

// AttachmentStore uploads locally captured blobs referenced by a queued
// message. A message counts as delivered only after its attachments and its
// record have both been written.
type AttachmentStore interface {
	// UploadAll uploads every attachment and returns the remote URLs in the
	// same order. Any failure aborts the batch; the caller keeps the entry
	// queued for retry.
	UploadAll(ctx context.Context, messageKind entity.MessageKind, attachments []entity.Attachment) ([]string, error)
}
