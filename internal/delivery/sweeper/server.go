// Package sweeper runs the cron-driven maintenance jobs: the alert expiry
// sweep and the outbound queue replay.
package sweeper

import (
	"context"
	"log/slog"

	"beacon/config"
	"beacon/internal/delivery"
	"beacon/internal/usecase"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
)

// Params holds dependencies for the sweeper, injected by Fx.
type Params struct {
	fx.In
	fx.Lifecycle

	Config    *config.Config
	Logger    *slog.Logger
	AlertUC   usecase.AlertUsecase
	MessageUC usecase.MessageUsecase
}

type sweeper struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewServer schedules the maintenance jobs.
func NewServer(params Params) (delivery.Delivery, error) {
	cfg := params.Config.Sweeper
	if cfg == nil {
		return nil, errors.New("sweeper configuration is required")
	}

	scheduler := cron.New()

	if _, err := scheduler.AddFunc(cfg.ExpirySchedule, func() {
		swept, err := params.AlertUC.SweepExpired(context.Background())
		if err != nil {
			params.Logger.Error("expiry sweep failed", slog.Any("error", err))

			return
		}
		if swept > 0 {
			params.Logger.Info("expiry sweep completed", slog.Int("swept", swept))
		}
	}); err != nil {
		return nil, errors.Wrap(err, "failed to schedule expiry sweep")
	}

	if _, err := scheduler.AddFunc(cfg.FlushSchedule, func() {
		result, err := params.MessageUC.FlushOutbox(context.Background())
		if err != nil {
			params.Logger.Error("outbox replay failed", slog.Any("error", err))

			return
		}
		if result.Attempted > 0 {
			params.Logger.Info("outbox replay completed",
				slog.Int("attempted", result.Attempted),
				slog.Int("succeeded", result.Succeeded),
			)
		}
	}); err != nil {
		return nil, errors.Wrap(err, "failed to schedule outbox replay")
	}

	server := &sweeper{cron: scheduler, logger: params.Logger}

	params.Append(fx.Hook{
		OnStop: server.stop,
	})

	return server, nil
}

// Serve starts the scheduler. Jobs run on the cron goroutine.
func (s *sweeper) Serve(ctx context.Context) error {
	s.logger.Info("Starting maintenance scheduler")
	s.cron.Start()

	<-ctx.Done()

	return nil
}

func (s *sweeper) stop(ctx context.Context) error {
	s.logger.Info("Stopping maintenance scheduler")

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for running jobs")
	}
}
