package repository

import (
	"context"
	"errors"

	"beacon/internal/domain/entity"
)

// Domain-specific errors for message persistence.
var (
	// ErrMessageNotFound is returned when an emergency message is not found.
	ErrMessageNotFound = errors.New("emergency message not found")
)

// MessageRepository defines the interface for emergency message persistence.
// SOS messages and incident reports live in separate collections keyed by
// entity.MessageKind.
type MessageRepository interface {
	// CreateMessage persists a new emergency message and returns the
	// remotely assigned ID.
	CreateMessage(ctx context.Context, message *entity.EmergencyMessage) (string, error)

	// FindMessageByID retrieves a message of the given kind by ID.
	FindMessageByID(ctx context.Context, kind entity.MessageKind, id string) (*entity.EmergencyMessage, error)

	// FindMessages retrieves messages of the given kind, newest first.
	FindMessages(ctx context.Context, kind entity.MessageKind, limit int) ([]*entity.EmergencyMessage, error)

	// UpdateStatus sets the status of a message.
	UpdateStatus(ctx context.Context, kind entity.MessageKind, id string, status entity.MessageStatus) error
}
