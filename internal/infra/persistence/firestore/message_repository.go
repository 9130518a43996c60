package firestore

import (
	"context"
	"log/slog"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection names per message kind.
const (
	sosCollection    = "sos_messages"
	reportCollection = "incident_reports"
)

type messageRepository struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewMessageRepository creates a Firestore-backed emergency message repository.
func NewMessageRepository(client *firestore.Client, logger *slog.Logger) repository.MessageRepository {
	return &messageRepository{client: client, logger: logger}
}

func collectionFor(kind entity.MessageKind) string {
	if kind == entity.KindReport {
		return reportCollection
	}

	return sosCollection
}

// CreateMessage persists a new emergency message and returns the remotely
// assigned ID.
func (r *messageRepository) CreateMessage(ctx context.Context, message *entity.EmergencyMessage) (string, error) {
	ref, _, err := r.client.Collection(collectionFor(message.Kind)).Add(ctx, message)
	if err != nil {
		return "", errors.Wrap(err, "failed to create emergency message")
	}

	return ref.ID, nil
}

// FindMessageByID retrieves a message of the given kind by ID.
func (r *messageRepository) FindMessageByID(ctx context.Context, kind entity.MessageKind, id string) (*entity.EmergencyMessage, error) {
	snap, err := r.client.Collection(collectionFor(kind)).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrMessageNotFound
		}

		return nil, errors.Wrapf(err, "failed to get message %s", id)
	}

	var message entity.EmergencyMessage
	if err := snap.DataTo(&message); err != nil {
		return nil, errors.Wrapf(err, "failed to decode message %s", id)
	}
	message.ID = snap.Ref.ID

	return &message, nil
}

// FindMessages retrieves messages of the given kind, newest first.
func (r *messageRepository) FindMessages(ctx context.Context, kind entity.MessageKind, limit int) ([]*entity.EmergencyMessage, error) {
	query := r.client.Collection(collectionFor(kind)).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	docs := query.Documents(ctx)
	defer docs.Stop()

	var messages []*entity.EmergencyMessage
	for {
		snap, err := docs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to iterate messages")
		}

		var message entity.EmergencyMessage
		if err := snap.DataTo(&message); err != nil {
			r.logger.Warn("skipping malformed message document",
				slog.String("doc_id", snap.Ref.ID),
				slog.Any("error", err),
			)

			continue
		}
		message.ID = snap.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}

// UpdateStatus sets the status of a message.
func (r *messageRepository) UpdateStatus(ctx context.Context, kind entity.MessageKind, id string, messageStatus entity.MessageStatus) error {
	_, err := r.client.Collection(collectionFor(kind)).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(messageStatus)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return repository.ErrMessageNotFound
		}

		return errors.Wrapf(err, "failed to update message %s", id)
	}

	return nil
}
