package service

import (
	"context"

	"beacon/internal/domain/entity"
)

// OutboundQueue is the durable FIFO buffer of not-yet-delivered emergency
// messages. Entries survive process restart and are replayed by Flush.
// Implementations must serialize Enqueue and Flush internally so concurrent
// callers cannot lose entries to a read-modify-write race.
type OutboundQueue interface {
	// Enqueue appends an entry to the persisted queue. An entry carrying an
	// idempotency key already present in the queue is dropped silently.
	Enqueue(ctx context.Context, entry *entity.QueueEntry) error

	// Flush replays the queue in FIFO order, removing only the entries that
	// were delivered. Entries are independent: a failure in the middle keeps
	// that entry queued while later entries may still succeed. Idempotent
	// and cheap when the queue is empty.
	Flush(ctx context.Context) (entity.FlushResult, error)

	// Len returns the number of queued entries.
	Len(ctx context.Context) (int, error)
}

// QueueDeliverer delivers a single queue entry to the remote store, returning
// the remotely assigned message ID. Used by OutboundQueue implementations
// during Flush and by the send path for the direct attempt.
type QueueDeliverer interface {
	Deliver(ctx context.Context, entry *entity.QueueEntry) (string, error)
}

// DeliverFunc adapts a function to the QueueDeliverer interface.
type DeliverFunc func(ctx context.Context, entry *entity.QueueEntry) (string, error)

// Deliver implements QueueDeliverer.
func (f DeliverFunc) Deliver(ctx context.Context, entry *entity.QueueEntry) (string, error) {
	return f(ctx, entry)
}
