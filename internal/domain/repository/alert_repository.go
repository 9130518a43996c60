// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"errors"

	"beacon/internal/domain/entity"
)

// Domain-specific errors for alert persistence.
var (
	// ErrAlertNotFound is returned when an alert is not found.
	ErrAlertNotFound = errors.New("alert not found")
)

// AlertRepository defines the interface for the live alert collection.
type AlertRepository interface {
	// CreateAlert persists a new alert and returns the remotely assigned ID.
	CreateAlert(ctx context.Context, alert *entity.Alert) (string, error)

	// FindAlertByID retrieves an alert by its unique ID.
	FindAlertByID(ctx context.Context, id string) (*entity.Alert, error)

	// FindAlerts retrieves alerts, optionally restricted to active ones.
	FindAlerts(ctx context.Context, activeOnly bool) ([]*entity.Alert, error)

	// FindExpiredActive retrieves active alerts whose expiry has passed.
	FindExpiredActive(ctx context.Context) ([]*entity.Alert, error)

	// SetActive toggles the active flag of an alert.
	SetActive(ctx context.Context, id string, active bool) error

	// SubscribeActive opens a live subscription to the active alert
	// collection. onSnapshot receives the full collection on the initial
	// snapshot and on every change. The server-side active filter is an
	// index optimization only; consumers re-validate locally. The returned
	// stop function detaches the listener and is idempotent; onError, when
	// non-nil, is invoked once if the stream terminates abnormally.
	SubscribeActive(ctx context.Context, onSnapshot func([]*entity.Alert), onError func(error)) (stop func(), err error)
}
