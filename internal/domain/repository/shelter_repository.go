package repository

import (
	"context"
	"errors"

	"beacon/internal/domain/entity"
)

// Domain-specific errors for shelter persistence.
var (
	// ErrShelterNotFound is returned when a shelter is not found.
	ErrShelterNotFound = errors.New("shelter not found")
)

// ShelterRepository defines the interface for the remote shelter directory.
type ShelterRepository interface {
	// FindActiveShelters retrieves every active shelter record.
	FindActiveShelters(ctx context.Context) ([]*entity.ShelterRecord, error)

	// FindShelterByID retrieves a shelter by its unique ID.
	FindShelterByID(ctx context.Context, id string) (*entity.ShelterRecord, error)

	// CreateShelter persists a new shelter record and returns its ID.
	CreateShelter(ctx context.Context, shelter *entity.ShelterRecord) (string, error)

	// UpdateOccupancy sets the current occupancy of a shelter.
	UpdateOccupancy(ctx context.Context, id string, occupancy int) error
}
