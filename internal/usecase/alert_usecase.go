// Package usecase defines the application-facing interfaces of the core.
package usecase

import (
	"context"
	"time"

	"beacon/internal/domain/entity"
)

// CreateAlertInput represents the input for creating a new alert
type CreateAlertInput struct {
	Title       string                    `json:"title" validate:"required"`
	Description string                    `json:"description"`
	Category    string                    `json:"category"`
	Severity    entity.Severity           `json:"severity" validate:"required"`
	Location    entity.LocationDescriptor `json:"location"`
	ExpiresAt   time.Time                 `json:"expires_at" validate:"required"`
}

// FeedOptions configures a geofenced feed subscription.
type FeedOptions struct {
	// Center of the geofence. When nil the position provider resolves the
	// center from DeviceID.
	Center *entity.Coordinate

	// DeviceID identifies the device whose position anchors the feed when
	// Center is not supplied.
	DeviceID string

	// RadiusKm is the geofence radius. Zero falls back to the configured
	// default.
	RadiusKm float64

	// OnError, when non-nil, is invoked once if the underlying stream
	// terminates abnormally. The feed does not resubscribe on its own; the
	// consumer decides whether to call SubscribeNearby again.
	OnError func(error)
}

// AlertUsecase defines the geofenced alert feed and the administrative alert
// operations.
type AlertUsecase interface {
	// SubscribeNearby establishes a live feed of active alerts within the
	// geofence. onUpdate receives the full sorted list on the initial
	// snapshot and on every subsequent change. The returned stop function is
	// idempotent and guarantees no callback runs after it returns.
	SubscribeNearby(ctx context.Context, opts FeedOptions, onUpdate func([]*entity.Alert)) (stop func(), err error)

	// CreateAlert validates and persists a new alert, then publishes the
	// trigger event for the external fan-out.
	CreateAlert(ctx context.Context, input *CreateAlertInput) (*entity.Alert, error)

	// GetAlert retrieves one alert by ID.
	GetAlert(ctx context.Context, id string) (*entity.Alert, error)

	// ListAlerts retrieves alerts narrowed by the location hierarchy.
	ListAlerts(ctx context.Context, activeOnly bool, crit entity.LocationCriteria) ([]*entity.Alert, error)

	// SetAlertActive toggles the active flag. Alerts are never hard-deleted.
	SetAlertActive(ctx context.Context, id string, active bool) error

	// SweepExpired deactivates active alerts whose expiry has passed and
	// returns how many were swept.
	SweepExpired(ctx context.Context) (int, error)
}
