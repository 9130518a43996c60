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

const sheltersCollection = "shelters"

type shelterRepository struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewShelterRepository creates a Firestore-backed shelter repository.
func NewShelterRepository(client *firestore.Client, logger *slog.Logger) repository.ShelterRepository {
	return &shelterRepository{client: client, logger: logger}
}

// FindActiveShelters retrieves every active shelter record.
func (r *shelterRepository) FindActiveShelters(ctx context.Context) ([]*entity.ShelterRecord, error) {
	docs := r.client.Collection(sheltersCollection).
		Where("isActive", "==", true).
		Documents(ctx)
	defer docs.Stop()

	var shelters []*entity.ShelterRecord
	for {
		snap, err := docs.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to iterate shelters")
		}

		var shelter entity.ShelterRecord
		if err := snap.DataTo(&shelter); err != nil {
			r.logger.Warn("skipping malformed shelter document",
				slog.String("doc_id", snap.Ref.ID),
				slog.Any("error", err),
			)

			continue
		}
		shelter.ID = snap.Ref.ID
		shelters = append(shelters, &shelter)
	}

	return shelters, nil
}

// FindShelterByID retrieves a shelter by its unique ID.
func (r *shelterRepository) FindShelterByID(ctx context.Context, id string) (*entity.ShelterRecord, error) {
	snap, err := r.client.Collection(sheltersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, repository.ErrShelterNotFound
		}

		return nil, errors.Wrapf(err, "failed to get shelter %s", id)
	}

	var shelter entity.ShelterRecord
	if err := snap.DataTo(&shelter); err != nil {
		return nil, errors.Wrapf(err, "failed to decode shelter %s", id)
	}
	shelter.ID = snap.Ref.ID

	return &shelter, nil
}

// CreateShelter persists a new shelter record and returns its ID.
func (r *shelterRepository) CreateShelter(ctx context.Context, shelter *entity.ShelterRecord) (string, error) {
	ref, _, err := r.client.Collection(sheltersCollection).Add(ctx, shelter)
	if err != nil {
		return "", errors.Wrap(err, "failed to create shelter")
	}

	return ref.ID, nil
}

// UpdateOccupancy sets the current occupancy of a shelter.
func (r *shelterRepository) UpdateOccupancy(ctx context.Context, id string, occupancy int) error {
	_, err := r.client.Collection(sheltersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "currentOccupancy", Value: occupancy},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return repository.ErrShelterNotFound
		}

		return errors.Wrapf(err, "failed to update shelter %s", id)
	}

	return nil
}
