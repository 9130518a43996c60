// Package outbox implements the durable FIFO queue of undelivered emergency
// messages on top of the local persistent key-value store.
package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"

	"github.com/pkg/errors"
)

// Queue persists the whole ordered entry list as one JSON value under a
// well-known key per queue kind. The storage layer gives no atomicity across
// a read-append-write sequence, so every mutation holds the queue mutex:
// without it two concurrent enqueues could each write back a list missing the
// other's entry.
type Queue struct {
	mu      sync.Mutex
	store   repository.KVStore
	deliver service.QueueDeliverer
	key     string
	logger  *slog.Logger
}

// NewQueue creates the outbound queue for one message kind.
func NewQueue(store repository.KVStore, deliverer service.QueueDeliverer, kind entity.MessageKind, logger *slog.Logger) *Queue {
	return &Queue{
		store:   store,
		deliver: deliverer,
		key:     "outbox/" + string(kind),
		logger:  logger,
	}
}

// Enqueue appends an entry to the persisted queue. An entry whose idempotency
// key is already queued is dropped, closing the double-tap window; entries
// without a key keep at-least-once semantics.
func (q *Queue) Enqueue(ctx context.Context, entry *entity.QueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return err
	}

	if entry.IdempotencyKey != "" {
		for _, queued := range entries {
			if queued.IdempotencyKey == entry.IdempotencyKey {
				q.logger.Debug("duplicate enqueue suppressed",
					slog.String("idempotency_key", entry.IdempotencyKey),
				)

				return nil
			}
		}
	}

	entries = append(entries, entry)

	return q.persist(ctx, entries)
}

// Flush replays the queue in FIFO order. Entries are independent: only the
// delivered ones are removed, and a failing entry keeps its place relative to
// the other survivors so it is retried first on the next pass.
func (q *Queue) Flush(ctx context.Context) (entity.FlushResult, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return entity.FlushResult{}, err
	}
	if len(entries) == 0 {
		return entity.FlushResult{}, nil
	}

	result := entity.FlushResult{Attempted: len(entries)}
	remaining := make([]*entity.QueueEntry, 0, len(entries))

	for _, entry := range entries {
		id, err := q.deliver.Deliver(ctx, entry)
		if err != nil {
			q.logger.Warn("queued message delivery failed, keeping entry",
				slog.String("kind", string(entry.Payload.Kind)),
				slog.Any("error", err),
			)
			remaining = append(remaining, entry)

			continue
		}

		result.Succeeded++
		q.logger.Info("queued message delivered",
			slog.String("kind", string(entry.Payload.Kind)),
			slog.String("message_id", id),
		)
	}

	if err := q.persist(ctx, remaining); err != nil {
		return result, err
	}

	return result, nil
}

// Len returns the number of queued entries.
func (q *Queue) Len(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, err := q.load(ctx)
	if err != nil {
		return 0, err
	}

	return len(entries), nil
}

func (q *Queue) load(ctx context.Context) ([]*entity.QueueEntry, error) {
	data, err := q.store.Get(ctx, q.key)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load outbox")
	}

	var entries []*entity.QueueEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "failed to decode outbox")
	}

	return entries, nil
}

func (q *Queue) persist(ctx context.Context, entries []*entity.QueueEntry) error {
	if len(entries) == 0 {
		return errors.Wrap(q.store.Remove(ctx, q.key), "failed to clear outbox")
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "failed to encode outbox")
	}

	return errors.Wrap(q.store.Set(ctx, q.key, data), "failed to persist outbox")
}
