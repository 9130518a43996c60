// Package delivery defines the transport-facing entry points of the service.
package delivery

import "context"

// Delivery is a serving transport, started by the application runner.
type Delivery interface {
	Serve(ctx context.Context) error
}
