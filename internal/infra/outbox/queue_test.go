package outbox

import (
	"context"
	"log/slog"
	"testing"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/service"
	"beacon/internal/infra/persistence/localkv"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

// fakeDeliverer records delivered messages and fails the ones listed in fail.
type fakeDeliverer struct {
	delivered []string
	fail      map[string]bool
}

func (d *fakeDeliverer) Deliver(_ context.Context, entry *entity.QueueEntry) (string, error) {
	if d.fail[entry.Payload.Message] {
		return "", errors.New("remote unavailable")
	}
	d.delivered = append(d.delivered, entry.Payload.Message)

	return "id-" + entry.Payload.Message, nil
}

func sosEntry(message string) *entity.QueueEntry {
	return &entity.QueueEntry{
		Payload: entity.EmergencyMessage{
			Kind:     entity.KindSOS,
			AuthorID: "user-1",
			Message:  message,
			Status:   entity.StatusPending,
		},
	}
}

func TestQueue_RoundTripAcrossRestart(t *testing.T) {
	ctx := context.Background()
	store := localkv.NewWithBucket(memblob.OpenBucket(nil))
	deliverer := &fakeDeliverer{}
	logger := slog.Default()

	queue := NewQueue(store, deliverer, entity.KindSOS, logger)
	for _, message := range []string{"m1", "m2", "m3"} {
		require.NoError(t, queue.Enqueue(ctx, sosEntry(message)))
	}

	// Simulate a process restart: a fresh queue over the same store.
	restarted := NewQueue(store, deliverer, entity.KindSOS, logger)

	result, err := restarted.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FlushResult{Attempted: 3, Succeeded: 3}, result)
	assert.Equal(t, []string{"m1", "m2", "m3"}, deliverer.delivered)

	remaining, err := restarted.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestQueue_PartialFailureKeepsEntryInOrder(t *testing.T) {
	ctx := context.Background()
	store := localkv.NewWithBucket(memblob.OpenBucket(nil))
	deliverer := &fakeDeliverer{fail: map[string]bool{"m2": true}}

	queue := NewQueue(store, deliverer, entity.KindSOS, slog.Default())
	for _, message := range []string{"m1", "m2", "m3"} {
		require.NoError(t, queue.Enqueue(ctx, sosEntry(message)))
	}

	result, err := queue.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FlushResult{Attempted: 3, Succeeded: 2}, result)
	assert.Equal(t, []string{"m1", "m3"}, deliverer.delivered)

	remaining, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	// The failing entry is retried at the head of the next flush.
	deliverer.fail = nil
	deliverer.delivered = nil

	result, err = queue.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FlushResult{Attempted: 1, Succeeded: 1}, result)
	assert.Equal(t, []string{"m2"}, deliverer.delivered)
}

func TestQueue_FlushEmptyIsNoOp(t *testing.T) {
	ctx := context.Background()
	deliverer := &fakeDeliverer{}
	queue := NewQueue(localkv.NewWithBucket(memblob.OpenBucket(nil)), deliverer, entity.KindSOS, slog.Default())

	result, err := queue.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FlushResult{}, result)
	assert.Empty(t, deliverer.delivered)
}

func TestQueue_IdempotencyKeySuppressesDuplicate(t *testing.T) {
	ctx := context.Background()
	deliverer := &fakeDeliverer{}
	queue := NewQueue(localkv.NewWithBucket(memblob.OpenBucket(nil)), deliverer, entity.KindSOS, slog.Default())

	entry := sosEntry("m1")
	entry.IdempotencyKey = "tap-1"
	require.NoError(t, queue.Enqueue(ctx, entry))

	duplicate := sosEntry("m1")
	duplicate.IdempotencyKey = "tap-1"
	require.NoError(t, queue.Enqueue(ctx, duplicate))

	remaining, err := queue.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestQueue_NoKeyMeansAtLeastOnce(t *testing.T) {
	ctx := context.Background()
	deliverer := &fakeDeliverer{}
	queue := NewQueue(localkv.NewWithBucket(memblob.OpenBucket(nil)), deliverer, entity.KindSOS, slog.Default())

	require.NoError(t, queue.Enqueue(ctx, sosEntry("m1")))
	require.NoError(t, queue.Enqueue(ctx, sosEntry("m1")))

	result, err := queue.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.FlushResult{Attempted: 2, Succeeded: 2}, result)
}

var _ service.OutboundQueue = (*Queue)(nil)
