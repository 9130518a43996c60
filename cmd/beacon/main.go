package main

import (
	"context"
	"log/slog"
	"os"

	"beacon/config"
	"beacon/internal/delivery"
	"beacon/internal/delivery/http"
	"beacon/internal/delivery/http/middleware"
	"beacon/internal/delivery/http/router/handler"
	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"
	"beacon/internal/infra/auth"
	logs "beacon/internal/infra/log"
	"beacon/internal/infra/outbox"
	"beacon/internal/infra/persistence/firestore"
	"beacon/internal/infra/persistence/localkv"
	"beacon/internal/infra/position"
	"beacon/internal/infra/pubsub"
	"beacon/internal/infra/qrcode"
	"beacon/internal/infra/storage"
	"beacon/internal/usecase/impl"

	"go.uber.org/fx"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectRepo(),
		injectService(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		firestore.NewClient,
	)
}

func injectRepo() fx.Option {
	return fx.Options(
		fx.Provide(
			firestore.NewAlertRepository,
			firestore.NewMessageRepository,
			firestore.NewShelterRepository,
			localkv.New,
		),
	)
}

func injectService() fx.Option {
	return fx.Options(
		fx.Provide(
			auth.NewJWTService,
			position.NewFirestoreProvider,
			pubsub.NewEventPublisher,
			storage.New,
			impl.NewMessageDeliverer,
			newOutboundQueues,
			newQRCodeService,
		),
	)
}

// newOutboundQueues builds one durable queue per message kind over the local
// persistent store.
func newOutboundQueues(store repository.KVStore, deliverer service.QueueDeliverer, logger *slog.Logger) map[entity.MessageKind]service.OutboundQueue {
	return map[entity.MessageKind]service.OutboundQueue{
		entity.KindSOS:    outbox.NewQueue(store, deliverer, entity.KindSOS, logger),
		entity.KindReport: outbox.NewQueue(store, deliverer, entity.KindReport, logger),
	}
}

// newQRCodeService creates a QR code service with dependency injection
func newQRCodeService(cfg *config.Config) service.QRCodeService {
	if cfg.QRCode == nil {
		// Use default values if not configured
		return qrcode.NewQRCodeService(256, "M")
	}

	return qrcode.NewQRCodeService(cfg.QRCode.Size, cfg.QRCode.ErrorCorrectionLevel)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewAlertService,
			impl.NewMessageService,
			impl.NewShelterService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewAuthMiddleware,
			middleware.NewErrorMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewAlertHandler,
			handler.NewMessageHandler,
			handler.NewShelterHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
