// Package impl contains the concrete usecase implementations.
package impl

import (
	"context"
	"log/slog"
	"sort"
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

	"github.com/google/uuid"
)

type alertService struct {
	alertRepo repository.AlertRepository
	positions service.PositionProvider
	publisher service.EventPublisher
	config    *config.Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewAlertService creates a new alert service instance
func NewAlertService(
	alertRepo repository.AlertRepository,
	positions service.PositionProvider,
	publisher service.EventPublisher,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.AlertUsecase {
	if cfg.Feed == nil {
		cfg.Feed = &config.FeedConfig{DefaultRadiusKm: 10, MaxRadiusKm: 100}
	}

	return &alertService{
		alertRepo: alertRepo,
		positions: positions,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// feedState guards callback delivery against a concurrent Unsubscribe. Once
// closed is set under the mutex, no callback can start.
type feedState struct {
	mu     sync.Mutex
	closed bool
}

// SubscribeNearby establishes the geofenced live feed.
func (s *alertService) SubscribeNearby(ctx context.Context, opts usecase.FeedOptions, onUpdate func([]*entity.Alert)) (func(), error) {
	radius := opts.RadiusKm
	if radius <= 0 {
		radius = s.config.Feed.DefaultRadiusKm
	}
	if radius > s.config.Feed.MaxRadiusKm {
		return nil, domainerrors.ErrRadiusOutOfRange
	}

	center, err := s.resolveCenter(ctx, opts)
	if err != nil {
		return nil, err
	}

	state := &feedState{}

	onSnapshot := func(alerts []*entity.Alert) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.closed {
			return
		}

		onUpdate(s.nearbyView(alerts, center, radius))
	}

	onError := func(streamErr error) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if state.closed {
			return
		}

		s.logger.Error("alert feed stream terminated",
			slog.Any("error", streamErr),
		)
		if opts.OnError != nil {
			opts.OnError(streamErr)
		}
	}

	stopListener, err := s.alertRepo.SubscribeActive(ctx, onSnapshot, onError)
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to active alerts")
	}

	stop := func() {
		state.mu.Lock()
		if state.closed {
			state.mu.Unlock()

			return
		}
		state.closed = true
		state.mu.Unlock()

		stopListener()
	}

	return stop, nil
}

// resolveCenter picks the supplied center or falls back to the position
// provider. Without a position there is nothing meaningful to filter, so the
// subscription never gets established.
func (s *alertService) resolveCenter(ctx context.Context, opts usecase.FeedOptions) (entity.Coordinate, error) {
	if opts.Center != nil {
		return *opts.Center, nil
	}

	center, err := s.positions.CurrentPosition(ctx, opts.DeviceID)
	if err != nil {
		s.logger.Warn("feed center resolution failed",
			slog.String("device_id", opts.DeviceID),
			slog.Any("error", err),
		)

		return entity.Coordinate{}, domainerrors.ErrLocationUnavailable
	}

	return center, nil
}

// nearbyView recomputes the full feed from one snapshot: radius and activity
// filter, then severity rank with newest-first ties.
func (s *alertService) nearbyView(alerts []*entity.Alert, center entity.Coordinate, radiusKm float64) []*entity.Alert {
	bound := geo.Bound(center, radiusKm)

	view := make([]*entity.Alert, 0, len(alerts))
	for _, alert := range alerts {
		// The server-side active filter is an index optimization only.
		if !alert.IsActive {
			continue
		}
		if !bound.Contains(alert.Location.Point()) {
			continue
		}
		if !geo.WithinRadius(center, alert.Location.Coordinate, radiusKm) {
			continue
		}

		view = append(view, alert)
	}

	sort.SliceStable(view, func(i, j int) bool {
		ri, rj := view[i].Severity.Rank(), view[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}

		return view[i].CreatedAt.After(view[j].CreatedAt)
	})

	return view
}

// CreateAlert validates and persists a new alert, then publishes the trigger
// event consumed by the external fan-out.
func (s *alertService) CreateAlert(ctx context.Context, input *usecase.CreateAlertInput) (*entity.Alert, error) {
	if input.Title == "" {
		return nil, domainerrors.ErrValidationFailed.WithDetails("title is required")
	}
	if !input.Severity.Valid() {
		return nil, domainerrors.ErrInvalidSeverity
	}
	if !input.ExpiresAt.After(s.now()) {
		return nil, domainerrors.ErrValidationFailed.WithDetails("expires_at must be in the future")
	}

	alert := &entity.Alert{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Severity:    input.Severity,
		Location:    input.Location,
		CreatedAt:   s.now(),
		ExpiresAt:   input.ExpiresAt,
		IsActive:    true,
	}

	id, err := s.alertRepo.CreateAlert(ctx, alert)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create alert")
	}
	alert.ID = id

	event := &service.AlertEvent{
		RequestID: uuid.NewString(),
		Type:      service.EventAlertCreated,
		AlertID:   alert.ID,
		Severity:  string(alert.Severity),
		Latitude:  alert.Location.Latitude,
		Longitude: alert.Location.Longitude,
		Region:    alert.Location.Region,
		Title:     alert.Title,
	}
	if err := s.publisher.PublishAlertEvent(ctx, event); err != nil {
		// The alert is already persisted; the fan-out trigger is best-effort.
		s.logger.Error("failed to publish alert created event",
			slog.String("alert_id", alert.ID),
			slog.Any("error", err),
		)
	}

	return alert, nil
}

// GetAlert retrieves one alert by ID.
func (s *alertService) GetAlert(ctx context.Context, id string) (*entity.Alert, error) {
	alert, err := s.alertRepo.FindAlertByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return nil, domainerrors.ErrAlertNotFound
		}

		return nil, errors.Wrap(err, "failed to find alert by ID")
	}

	return alert, nil
}

// ListAlerts retrieves alerts narrowed by the location hierarchy.
func (s *alertService) ListAlerts(ctx context.Context, activeOnly bool, crit entity.LocationCriteria) ([]*entity.Alert, error) {
	alerts, err := s.alertRepo.FindAlerts(ctx, activeOnly)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find alerts")
	}

	return entity.FilterByLocation(alerts, crit), nil
}

// SetAlertActive toggles the active flag of an alert.
func (s *alertService) SetAlertActive(ctx context.Context, id string, active bool) error {
	if err := s.alertRepo.SetActive(ctx, id, active); err != nil {
		if errors.Is(err, repository.ErrAlertNotFound) {
			return domainerrors.ErrAlertNotFound
		}

		return errors.Wrap(err, "failed to set alert active flag")
	}

	return nil
}

// SweepExpired deactivates active alerts whose expiry has passed.
func (s *alertService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.alertRepo.FindExpiredActive(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find expired alerts")
	}

	swept := 0
	for _, alert := range expired {
		if err := s.alertRepo.SetActive(ctx, alert.ID, false); err != nil {
			s.logger.Warn("failed to deactivate expired alert",
				slog.String("alert_id", alert.ID),
				slog.Any("error", err),
			)

			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("expired alerts deactivated", slog.Int("count", swept))
	}

	return swept, nil
}
