package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// SendMessageInput represents the input for sending an emergency message
type SendMessageInput struct {
	AuthorID    string                     `json:"author_id" validate:"required"`
	Message     string                     `json:"message" validate:"required"`
	Location    *entity.LocationDescriptor `json:"location,omitempty"`
	Attachments []entity.Attachment        `json:"attachments,omitempty"`

	// IdempotencyKey, when set, suppresses a duplicate enqueue of the same
	// logical message while the first is still queued.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// MessageUsecase defines the emergency message send path and the operator
// surface over SOS messages and incident reports.
type MessageUsecase interface {
	// SendSOS attempts direct delivery of an SOS message; on remote failure
	// the message is queued and the result reports Queued. A queued send is
	// a success from the caller's point of view, never an error.
	SendSOS(ctx context.Context, input *SendMessageInput) (*entity.SendResult, error)

	// SendReport is the incident report counterpart of SendSOS.
	SendReport(ctx context.Context, input *SendMessageInput) (*entity.SendResult, error)

	// FlushOutbox replays every queued message kind in FIFO order and sums
	// the results.
	FlushOutbox(ctx context.Context) (entity.FlushResult, error)

	// PendingCount returns the total number of queued messages across kinds.
	PendingCount(ctx context.Context) (int, error)

	// GetMessage retrieves one message of the given kind. A missing message
	// yields nil, nil rather than an error.
	GetMessage(ctx context.Context, kind entity.MessageKind, id string) (*entity.EmergencyMessage, error)

	// ListMessages retrieves messages of the given kind, newest first,
	// narrowed by the location hierarchy.
	ListMessages(ctx context.Context, kind entity.MessageKind, limit int, crit entity.LocationCriteria) ([]*entity.EmergencyMessage, error)

	// UpdateStatus moves a message forward in its status lifecycle. A
	// regression or an unknown status is rejected.
	UpdateStatus(ctx context.Context, kind entity.MessageKind, id string, status entity.MessageStatus) error
}
