package impl

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"beacon/config"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/errors"
	"beacon/internal/geo"
	"beacon/internal/usecase"
)

// shelterCacheKey is the single KV key holding the serialized envelope.
const shelterCacheKey = "cache/shelters"

type shelterService struct {
	shelterRepo repository.ShelterRepository
	kv          repository.KVStore
	qr          service.QRCodeService
	ttl         time.Duration
	logger      *slog.Logger
	now         func() time.Time

	// mu guards envelope replacement so concurrent readers never observe a
	// half-written cache.
	mu       sync.Mutex
	envelope *entity.CacheEnvelope
}

// NewShelterService creates a new shelter service instance
func NewShelterService(
	shelterRepo repository.ShelterRepository,
	kv repository.KVStore,
	qr service.QRCodeService,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.ShelterUsecase {
	ttl := 24 * time.Hour
	if cfg.ShelterCache != nil && cfg.ShelterCache.TTL > 0 {
		ttl = cfg.ShelterCache.TTL
	}

	return &shelterService{
		shelterRepo: shelterRepo,
		kv:          kv,
		qr:          qr,
		ttl:         ttl,
		logger:      logger,
		now:         time.Now,
	}
}

// GetAll returns the shelter directory, served from the cache while fresh.
func (s *shelterService) GetAll(ctx context.Context, forceRefresh bool) ([]*entity.ShelterRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	envelope := s.loadEnvelope(ctx)
	if envelope != nil && !forceRefresh && envelope.Fresh(s.now(), s.ttl) {
		return envelope.Snapshot, nil
	}

	shelters, err := s.shelterRepo.FindActiveShelters(ctx)
	if err != nil {
		// A prior snapshot, even an expired one, beats no data during an
		// outage. Only propagate when nothing cached exists.
		if envelope != nil {
			s.logger.Warn("shelter refresh failed, serving stale snapshot",
				slog.Time("cached_at", envelope.CachedAt),
				slog.Any("error", err),
			)

			return envelope.Snapshot, nil
		}

		return nil, domainerrors.ErrRemoteUnavailable.WithDetails(err.Error())
	}

	s.replaceEnvelope(ctx, &entity.CacheEnvelope{
		Snapshot: shelters,
		CachedAt: s.now(),
	})

	return shelters, nil
}

// GetNearby returns shelters within radiusKm of center, optionally restricted
// to those offering the given amenity.
func (s *shelterService) GetNearby(ctx context.Context, center entity.Coordinate, radiusKm float64, amenity string) ([]*entity.ShelterRecord, error) {
	shelters, err := s.GetAll(ctx, false)
	if err != nil {
		return nil, err
	}

	bound := geo.Bound(center, radiusKm)

	nearby := make([]*entity.ShelterRecord, 0, len(shelters))
	for _, shelter := range shelters {
		if !bound.Contains(shelter.Location.Point()) {
			continue
		}
		if !geo.WithinRadius(center, shelter.Location.Coordinate, radiusKm) {
			continue
		}
		if amenity != "" && !slices.Contains(shelter.Amenities, amenity) {
			continue
		}

		nearby = append(nearby, shelter)
	}

	return nearby, nil
}

// GetShelter retrieves one shelter by ID.
func (s *shelterService) GetShelter(ctx context.Context, id string) (*entity.ShelterRecord, error) {
	shelter, err := s.shelterRepo.FindShelterByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrShelterNotFound) {
			return nil, domainerrors.ErrShelterNotFound
		}

		return nil, errors.Wrap(err, "failed to find shelter by ID")
	}

	return shelter, nil
}

// CreateShelter registers a new shelter and invalidates the cache.
func (s *shelterService) CreateShelter(ctx context.Context, input *usecase.CreateShelterInput) (*entity.ShelterRecord, error) {
	if input.Name == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("name is required")
	}
	if input.Capacity < 0 {
		return nil, domainerrors.ErrValidationFailed.WithDetails("capacity must not be negative")
	}

	shelter := &entity.ShelterRecord{
		Name:      input.Name,
		Address:   input.Address,
		Location:  input.Location,
		Capacity:  input.Capacity,
		Amenities: input.Amenities,
		IsActive:  true,
	}

	id, err := s.shelterRepo.CreateShelter(ctx, shelter)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create shelter")
	}
	shelter.ID = id

	s.invalidate(ctx)

	return shelter, nil
}

// UpdateOccupancy sets the current occupancy and invalidates the cache.
func (s *shelterService) UpdateOccupancy(ctx context.Context, id string, occupancy int) error {
	if occupancy < 0 {
		return domainerrors.ErrValidationFailed.WithDetails("occupancy must not be negative")
	}

	if err := s.shelterRepo.UpdateOccupancy(ctx, id, occupancy); err != nil {
		if errors.Is(err, repository.ErrShelterNotFound) {
			return domainerrors.ErrShelterNotFound
		}

		return errors.Wrap(err, "failed to update shelter occupancy")
	}

	s.invalidate(ctx)

	return nil
}

// ShelterQR renders the PNG placard QR code for a shelter site.
func (s *shelterService) ShelterQR(ctx context.Context, id string) ([]byte, error) {
	shelter, err := s.GetShelter(ctx, id)
	if err != nil {
		return nil, err
	}

	png, err := s.qr.GenerateShelterQR(shelter.ID, shelter.Location.Latitude, shelter.Location.Longitude)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate shelter QR code")
	}

	return png, nil
}

// loadEnvelope returns the in-memory envelope, falling back to the persisted
// copy after a restart. Callers hold the mutex.
func (s *shelterService) loadEnvelope(ctx context.Context) *entity.CacheEnvelope {
	if s.envelope != nil {
		return s.envelope
	}

	data, err := s.kv.Get(ctx, shelterCacheKey)
	if err != nil {
		if !errors.Is(err, repository.ErrKeyNotFound) {
			s.logger.Warn("failed to load persisted shelter cache", slog.Any("error", err))
		}

		return nil
	}

	var envelope entity.CacheEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn("discarding malformed persisted shelter cache", slog.Any("error", err))

		return nil
	}

	s.envelope = &envelope

	return s.envelope
}

// replaceEnvelope swaps the cache and persists it best-effort. Callers hold
// the mutex.
func (s *shelterService) replaceEnvelope(ctx context.Context, envelope *entity.CacheEnvelope) {
	s.envelope = envelope

	data, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn("failed to encode shelter cache", slog.Any("error", err))

		return
	}
	if err := s.kv.Set(ctx, shelterCacheKey, data); err != nil {
		s.logger.Warn("failed to persist shelter cache", slog.Any("error", err))
	}
}

// invalidate drops the envelope so the next read refreshes.
func (s *shelterService) invalidate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.envelope = nil
	if err := s.kv.Remove(ctx, shelterCacheKey); err != nil {
		s.logger.Warn("failed to remove persisted shelter cache", slog.Any("error", err))
	}
}
