package usecase

import (
	"context"

	"beacon/internal/domain/entity"
)

// CreateShelterInput represents the input for registering a shelter
type CreateShelterInput struct {
	Name      string                    `json:"name" validate:"required"`
	Address   string                    `json:"address"`
	Location  entity.LocationDescriptor `json:"location"`
	Capacity  int                       `json:"capacity" validate:"gte=0"`
	Amenities []string                  `json:"amenities,omitempty"`
}

// ShelterUsecase defines the shelter directory with its TTL cache.
type ShelterUsecase interface {
	// GetAll returns the shelter directory, served from the cache while the
	// envelope is fresh. forceRefresh bypasses the freshness check. A remote
	// failure falls back to any prior snapshot, even an expired one.
	GetAll(ctx context.Context, forceRefresh bool) ([]*entity.ShelterRecord, error)

	// GetNearby returns shelters within radiusKm of center, optionally
	// restricted to those offering the given amenity.
	GetNearby(ctx context.Context, center entity.Coordinate, radiusKm float64, amenity string) ([]*entity.ShelterRecord, error)

	// GetShelter retrieves one shelter by ID.
	GetShelter(ctx context.Context, id string) (*entity.ShelterRecord, error)

	// CreateShelter registers a new shelter and invalidates the cache.
	CreateShelter(ctx context.Context, input *CreateShelterInput) (*entity.ShelterRecord, error)

	// UpdateOccupancy sets the current occupancy and invalidates the cache.
	UpdateOccupancy(ctx context.Context, id string, occupancy int) error

	// ShelterQR renders the PNG placard QR code for a shelter site.
	ShelterQR(ctx context.Context, id string) ([]byte, error)
}
