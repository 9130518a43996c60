package impl

import (
	"context"
	"log/slog"
	"time"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/errors"
	"beacon/internal/usecase"

	"github.com/google/uuid"
)

type messageService struct {
	messageRepo repository.MessageRepository
	deliver     service.QueueDeliverer
	queues      map[entity.MessageKind]service.OutboundQueue
	publisher   service.EventPublisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewMessageService creates a new message service instance
func NewMessageService(
	messageRepo repository.MessageRepository,
	deliverer service.QueueDeliverer,
	queues map[entity.MessageKind]service.OutboundQueue,
	publisher service.EventPublisher,
	logger *slog.Logger,
) usecase.MessageUsecase {
	return &messageService{
		messageRepo: messageRepo,
		deliver:     deliverer,
		queues:      queues,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// SendSOS attempts direct delivery of an SOS message, queuing it on failure.
func (s *messageService) SendSOS(ctx context.Context, input *usecase.SendMessageInput) (*entity.SendResult, error) {
	return s.send(ctx, entity.KindSOS, input)
}

// SendReport is the incident report counterpart of SendSOS.
func (s *messageService) SendReport(ctx context.Context, input *usecase.SendMessageInput) (*entity.SendResult, error) {
	return s.send(ctx, entity.KindReport, input)
}

func (s *messageService) send(ctx context.Context, kind entity.MessageKind, input *usecase.SendMessageInput) (*entity.SendResult, error) {
	// Validation rejects before any I/O happens.
	if input.AuthorID == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("author_id is required")
	}
	if input.Message == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("message is required")
	}

	entry := &entity.QueueEntry{
		Payload: entity.EmergencyMessage{
			Kind:      kind,
			AuthorID:  input.AuthorID,
			Message:   input.Message,
			Location:  input.Location,
			CreatedAt: s.now(),
			Status:    entity.StatusPending,
		},
		Attachments:    input.Attachments,
		IdempotencyKey: input.IdempotencyKey,
	}

	id, err := s.deliver.Deliver(ctx, entry)
	if err != nil {
		// A failed send degrades to queuing. The caller sees an accepted,
		// pending-delivery result, never an error.
		s.logger.Warn("direct send failed, queuing message",
			slog.String("kind", string(kind)),
			slog.Any("error", err),
		)

		if err := s.queues[kind].Enqueue(ctx, entry); err != nil {
			return nil, errors.Wrap(err, "failed to enqueue message")
		}

		return &entity.SendResult{Queued: true}, nil
	}

	s.publishReceived(ctx, kind, id, entry)

	return &entity.SendResult{ID: id}, nil
}

// publishReceived emits the trigger event for a delivered SOS. Incident
// reports do not page the fan-out.
func (s *messageService) publishReceived(ctx context.Context, kind entity.MessageKind, id string, entry *entity.QueueEntry) {
	if kind != entity.KindSOS {
		return
	}

	event := &service.AlertEvent{
		RequestID: uuid.NewString(),
		Type:      service.EventSOSReceived,
		MessageID: id,
	}
	if entry.Payload.Location != nil {
		event.Latitude = entry.Payload.Location.Latitude
		event.Longitude = entry.Payload.Location.Longitude
		event.Region = entry.Payload.Location.Region
	}

	if err := s.publisher.PublishAlertEvent(ctx, event); err != nil {
		s.logger.Error("failed to publish sos received event",
			slog.String("message_id", id),
			slog.Any("error", err),
		)
	}
}

// FlushOutbox replays every queue kind in FIFO order and sums the results.
func (s *messageService) FlushOutbox(ctx context.Context) (entity.FlushResult, error) {
	var total entity.FlushResult
	for _, kind := range []entity.MessageKind{entity.KindSOS, entity.KindReport} {
		queue, ok := s.queues[kind]
		if !ok {
			continue
		}

		result, err := queue.Flush(ctx)
		total.Attempted += result.Attempted
		total.Succeeded += result.Succeeded
		if err != nil {
			return total, errors.Wrapf(err, "failed to flush %s outbox", kind)
		}
	}

	return total, nil
}

// PendingCount returns the total number of queued messages across kinds.
func (s *messageService) PendingCount(ctx context.Context) (int, error) {
	total := 0
	for _, queue := range s.queues {
		count, err := queue.Len(ctx)
		if err != nil {
			return 0, errors.Wrap(err, "failed to count queued messages")
		}
		total += count
	}

	return total, nil
}

// GetMessage retrieves one message. A missing message yields nil, nil.
func (s *messageService) GetMessage(ctx context.Context, kind entity.MessageKind, id string) (*entity.EmergencyMessage, error) {
	message, err := s.messageRepo.FindMessageByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return nil, nil
		}

		return nil, errors.Wrap(err, "failed to find message by ID")
	}

	return message, nil
}

// ListMessages retrieves messages newest first, narrowed by the hierarchy.
func (s *messageService) ListMessages(ctx context.Context, kind entity.MessageKind, limit int, crit entity.LocationCriteria) ([]*entity.EmergencyMessage, error) {
	messages, err := s.messageRepo.FindMessages(ctx, kind, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find messages")
	}

	return entity.FilterByLocation(messages, crit), nil
}

// UpdateStatus moves a message forward in its status lifecycle.
func (s *messageService) UpdateStatus(ctx context.Context, kind entity.MessageKind, id string, status entity.MessageStatus) error {
	if !kind.ValidStatus(status) {
		return domainerrors.ErrValidationFailed.WithDetails("unknown status for message kind")
	}

	message, err := s.messageRepo.FindMessageByID(ctx, kind, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return domainerrors.ErrMessageNotFound
		}

		return errors.Wrap(err, "failed to find message by ID")
	}

	if !kind.CanTransition(message.Status, status) {
		return domainerrors.ErrStatusRegression
	}

	if err := s.messageRepo.UpdateStatus(ctx, kind, id, status); err != nil {
		return errors.Wrap(err, "failed to update message status")
	}

	return nil
}
