// Package service defines interfaces for external collaborators.
package service

import (
	"context"
	"errors"

	"beacon/internal/domain/entity"
)

// ErrPositionUnavailable is returned when the current position cannot be
// determined. Feed setup aborts on it.
var ErrPositionUnavailable = errors.New("current position unavailable")

// PositionProvider resolves the device position used as the geofence center.
type PositionProvider interface {
	// CurrentPosition returns the current position for the given device, or
	// ErrPositionUnavailable.
	CurrentPosition(ctx context.Context, deviceID string) (entity.Coordinate, error)

	// WatchPosition invokes callback on every position change until the
	// returned stop function is called.
	WatchPosition(ctx context.Context, deviceID string, callback func(entity.Coordinate)) (stop func(), err error)
}
