package firestore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const alertsCollection = "alerts"

type alertRepository struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewAlertRepository creates a Firestore-backed alert repository.
func NewAlertRepository(client *firestore.Client, logger *slog.Logger) repository.AlertRepository {
	return &alertRepository{client: client, logger: logger}
}

// CreateAlert persists a new alert and returns the remotely assigned ID.
func (r *alertRepository) CreateAlert(ctx context.Context, alert *entity.Alert) (string, error) {
	ref, _, err := r.client.Collection(alertsCollection).Add(ctx, alert)
	if err != nil {
		return "", errors.Wrap(err, "failed to create alert")
	}

	return ref.ID, nil
}

// FindAlertByID retrieves an alert by its unique ID.
func (r *alertRepository) FindAlertByID(ctx context.Context, id string) (*entity.Alert, error) {
	snap, err := r.client.Collection(alertsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrAlertNotFound
		}

		return nil, errors.Wrapf(err, "failed to get alert %s", id)
	}

	return alertFromDoc(snap)
}

// FindAlerts retrieves alerts, optionally restricted to active ones.
func (r *alertRepository) FindAlerts(ctx context.Context, activeOnly bool) ([]*entity.Alert, error) {
	query := r.client.Collection(alertsCollection).Query
	if activeOnly {
		query = query.Where("isActive", "==", true)
	}

	return r.collectAlerts(query.Documents(ctx))
}

// FindExpiredActive retrieves active alerts whose expiry has passed.
func (r *alertRepository) FindExpiredActive(ctx context.Context) ([]*entity.Alert, error) {
	query := r.client.Collection(alertsCollection).
		Where("isActive", "==", true).
		Where("expiresAt", "<=", time.Now())

	return r.collectAlerts(query.Documents(ctx))
}

// SetActive toggles the active flag of an alert.
func (r *alertRepository) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.client.Collection(alertsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "isActive", Value: active},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return repository.ErrAlertNotFound
		}

		return errors.Wrapf(err, "failed to update alert %s", id)
	}

	return nil
}

// SubscribeActive opens a live snapshot subscription to the active alert
// collection. The active filter is applied server-side as an index
// optimization; consumers re-validate locally because server state may lag.
func (r *alertRepository) SubscribeActive(ctx context.Context, onSnapshot func([]*entity.Alert), onError func(error)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)

	snapshots := r.client.Collection(alertsCollection).
		Where("isActive", "==", true).
		Snapshots(subCtx)

	go func() {
		for {
			snap, err := snapshots.Next()
			if err != nil {
				if subCtx.Err() == nil {
					// Stream terminated abnormally. No internal retry;
					// resubscription is the consumer's call.
					r.logger.Error("alert snapshot stream terminated",
						slog.Any("error", err),
					)
					if onError != nil {
						onError(err)
					}
				}

				return
			}

			alerts, err := r.collectAlerts(snap.Documents)
			if err != nil {
				r.logger.Error("failed to decode alert snapshot",
					slog.Any("error", err),
				)

				continue
			}

			onSnapshot(alerts)
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			snapshots.Stop()
		})
	}

	return stop, nil
}

func (r *alertRepository) collectAlerts(docs *firestore.DocumentIterator) ([]*entity.Alert, error) {
	defer docs.Stop()

	var alerts []*entity.Alert
	for {
		snap, err := docs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to iterate alerts")
		}

		alert, err := alertFromDoc(snap)
		if err != nil {
			r.logger.Warn("skipping malformed alert document",
				slog.String("doc_id", snap.Ref.ID),
				slog.Any("error", err),
			)

			continue
		}

		alerts = append(alerts, alert)
	}

	return alerts, nil
}

func alertFromDoc(snap *firestore.DocumentSnapshot) (*entity.Alert, error) {
	var alert entity.Alert
	if err := snap.DataTo(&alert); err != nil {
		return nil, errors.Wrapf(err, "failed to decode alert %s", snap.Ref.ID)
	}
	alert.ID = snap.Ref.ID

	return &alert, nil
}
