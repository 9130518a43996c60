// Package position resolves device positions from the last-known position
// documents reported by clients.
package position

import (
	"context"
	"log/slog"
	"sync"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/service"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const positionsCollection = "device_positions"

type firestoreProvider struct {
	client *firestore.Client
	logger *slog.Logger
}

// NewFirestoreProvider creates a position provider reading last-known device
// positions from Firestore.
func NewFirestoreProvider(client *firestore.Client, logger *slog.Logger) service.PositionProvider {
	return &firestoreProvider{client: client, logger: logger}
}

// CurrentPosition returns the last position reported by the device. A missing
// or malformed document maps to ErrPositionUnavailable: feed setup must abort
// rather than geofence around a bogus point.
func (p *firestoreProvider) CurrentPosition(ctx context.Context, deviceID string) (entity.Coordinate, error) {
	snap, err := p.client.Collection(positionsCollection).Doc(deviceID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.Coordinate{}, service.ErrPositionUnavailable
		}

		return entity.Coordinate{}, service.ErrPositionUnavailable
	}

	var coord entity.Coordinate
	if err := snap.DataTo(&coord); err != nil {
		p.logger.Warn("malformed device position document",
			slog.String("device_id", deviceID),
			slog.Any("error", err),
		)

		return entity.Coordinate{}, service.ErrPositionUnavailable
	}

	return coord, nil
}

// WatchPosition streams position changes for the device until stopped.
func (p *firestoreProvider) WatchPosition(ctx context.Context, deviceID string, callback func(entity.Coordinate)) (func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	snapshots := p.client.Collection(positionsCollection).Doc(deviceID).Snapshots(watchCtx)

	go func() {
		for {
			snap, err := snapshots.Next()
			if err != nil {
				return
			}
			if !snap.Exists() {
				continue
			}

			var coord entity.Coordinate
			if err := snap.DataTo(&coord); err != nil {
				continue
			}

			callback(coord)
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
