package impl

import (
	"context"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/errors"
)

// messageDeliverer writes one queue entry to the remote store: attachments
// first, then the message record. A message counts as delivered only after
// both succeed; any failure keeps the entry queued.
type messageDeliverer struct {
	messageRepo repository.MessageRepository
	attachments service.AttachmentStore
}

// NewMessageDeliverer creates the deliverer shared by the direct send path and
// the outbound queue replay.
func NewMessageDeliverer(messageRepo repository.MessageRepository, attachments service.AttachmentStore) service.QueueDeliverer {
	return &messageDeliverer{
		messageRepo: messageRepo,
		attachments: attachments,
	}
}

// Deliver implements service.QueueDeliverer.
func (d *messageDeliverer) Deliver(ctx context.Context, entry *entity.QueueEntry) (string, error) {
	if len(entry.Attachments) > 0 {
		if _, err := d.attachments.UploadAll(ctx, entry.Payload.Kind, entry.Attachments); err != nil {
			return "", errors.Wrap(err, "failed to upload attachments")
		}
	}

	message := entry.Payload
	id, err := d.messageRepo.CreateMessage(ctx, &message)
	if err != nil {
		return "", errors.Wrap(err, "failed to create message")
	}

	return id, nil
}
