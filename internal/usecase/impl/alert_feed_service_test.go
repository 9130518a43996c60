package impl

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"beacon/config"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/service"
	"beacon/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAlertRepo drives the feed by hand: the test pushes snapshots and stream
// errors through the captured callbacks.
type fakeAlertRepo struct {
	mu          sync.Mutex
	onSnapshot  func([]*entity.Alert)
	onError     func(error)
	subscribed  bool
	stopped     bool
	alerts      []*entity.Alert
	expired     []*entity.Alert
	deactivated []string
	createErr   error
}

func (r *fakeAlertRepo) CreateAlert(_ context.Context, _ *entity.Alert) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}

	return "alert-1", nil
}

func (r *fakeAlertRepo) FindAlertByID(_ context.Context, _ string) (*entity.Alert, error) {
	return nil, errors.New("not implemented")
}

func (r *fakeAlertRepo) FindAlerts(_ context.Context, _ bool) ([]*entity.Alert, error) {
	return r.alerts, nil
}

func (r *fakeAlertRepo) FindExpiredActive(_ context.Context) ([]*entity.Alert, error) {
	return r.expired, nil
}

func (r *fakeAlertRepo) SetActive(_ context.Context, id string, active bool) error {
	if !active {
		r.deactivated = append(r.deactivated, id)
	}

	return nil
}

func (r *fakeAlertRepo) SubscribeActive(_ context.Context, onSnapshot func([]*entity.Alert), onError func(error)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.subscribed = true
	r.onSnapshot = onSnapshot
	r.onError = onError

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.stopped = true
	}, nil
}

func (r *fakeAlertRepo) push(alerts []*entity.Alert) {
	r.mu.Lock()
	onSnapshot := r.onSnapshot
	r.mu.Unlock()

	onSnapshot(alerts)
}

type stubPositions struct {
	pos entity.Coordinate
	err error
}

func (p *stubPositions) CurrentPosition(_ context.Context, _ string) (entity.Coordinate, error) {
	return p.pos, p.err
}

func (p *stubPositions) WatchPosition(_ context.Context, _ string, _ func(entity.Coordinate)) (func(), error) {
	return func() {}, nil
}

type stubPublisher struct {
	events []*service.AlertEvent
	err    error
}

func (p *stubPublisher) PublishAlertEvent(_ context.Context, event *service.AlertEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)

	return nil
}

func (p *stubPublisher) Close() error { return nil }

func feedConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Feed = &config.FeedConfig{DefaultRadiusKm: 10, MaxRadiusKm: 100}

	return cfg
}

// sanFrancisco anchors the geofence scenarios.
var sanFrancisco = entity.Coordinate{Latitude: 37.7749, Longitude: -122.4194}

func feedOptions(radiusKm float64) usecase.FeedOptions {
	center := sanFrancisco

	return usecase.FeedOptions{Center: &center, RadiusKm: radiusKm}
}

func createAlertInput(title string, severity entity.Severity, expiresAt time.Time) *usecase.CreateAlertInput {
	return &usecase.CreateAlertInput{
		Title:     title,
		Severity:  severity,
		Location:  entity.LocationDescriptor{Coordinate: sanFrancisco},
		ExpiresAt: expiresAt,
	}
}

func activeAlert(id string, severity entity.Severity, lat, lng float64, createdAt time.Time) *entity.Alert {
	return &entity.Alert{
		ID:       id,
		Title:    "t-" + id,
		Severity: severity,
		Location: entity.LocationDescriptor{
			Coordinate: entity.Coordinate{Latitude: lat, Longitude: lng},
		},
		CreatedAt: createdAt,
		ExpiresAt: createdAt.Add(24 * time.Hour),
		IsActive:  true,
	}
}

func TestSubscribeNearby_KeepsOnlyAlertsWithinRadius(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	var got []*entity.Alert
	stop, err := svc.SubscribeNearby(context.Background(), feedOptions(5), func(alerts []*entity.Alert) {
		got = alerts
	})
	require.NoError(t, err)
	defer stop()

	now := time.Now()
	near := activeAlert("near", entity.SeverityHigh, 37.7849, -122.4194, now) // ~1.1 km away
	far := activeAlert("far", entity.SeverityCritical, 38.5, -121.5, now)     // ~110 km away
	repo.push([]*entity.Alert{far, near})

	require.Len(t, got, 1)
	assert.Equal(t, "near", got[0].ID)
}

func TestSubscribeNearby_SortsBySeverityThenRecency(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	var got []*entity.Alert
	stop, err := svc.SubscribeNearby(context.Background(), feedOptions(5), func(alerts []*entity.Alert) {
		got = alerts
	})
	require.NoError(t, err)
	defer stop()

	now := time.Now()
	repo.push([]*entity.Alert{
		activeAlert("low", entity.SeverityLow, 37.775, -122.419, now),
		activeAlert("critical-old", entity.SeverityCritical, 37.776, -122.419, now.Add(-time.Hour)),
		activeAlert("critical-new", entity.SeverityCritical, 37.777, -122.419, now),
		activeAlert("medium", entity.SeverityMedium, 37.778, -122.419, now),
	})

	require.Len(t, got, 4)
	assert.Equal(t, "critical-new", got[0].ID)
	assert.Equal(t, "critical-old", got[1].ID)
	assert.Equal(t, "medium", got[2].ID)
	assert.Equal(t, "low", got[3].ID)
}

func TestSubscribeNearby_RevalidatesActivityLocally(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	got := []*entity.Alert{{ID: "sentinel"}}
	stop, err := svc.SubscribeNearby(context.Background(), feedOptions(5), func(alerts []*entity.Alert) {
		got = alerts
	})
	require.NoError(t, err)
	defer stop()

	inactive := activeAlert("inactive", entity.SeverityHigh, 37.775, -122.419, time.Now())
	inactive.IsActive = false
	repo.push([]*entity.Alert{inactive})

	assert.Empty(t, got)
}

func TestSubscribeNearby_PositionUnavailableAbortsSetup(t *testing.T) {
	repo := &fakeAlertRepo{}
	positions := &stubPositions{err: service.ErrPositionUnavailable}
	svc := NewAlertService(repo, positions, &stubPublisher{}, feedConfig(), slog.Default())

	opts := usecase.FeedOptions{DeviceID: "device-1", RadiusKm: 5}
	stop, err := svc.SubscribeNearby(context.Background(), opts, func([]*entity.Alert) {})
	assert.ErrorIs(t, err, domainerrors.ErrLocationUnavailable)
	assert.Nil(t, stop)
	assert.False(t, repo.subscribed)
}

func TestSubscribeNearby_RadiusAboveMaximumRejected(t *testing.T) {
	svc := NewAlertService(&fakeAlertRepo{}, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	_, err := svc.SubscribeNearby(context.Background(), feedOptions(101), func([]*entity.Alert) {})
	assert.ErrorIs(t, err, domainerrors.ErrRadiusOutOfRange)
}

func TestSubscribeNearby_StopSilencesCallbacksAndIsIdempotent(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	calls := 0
	stop, err := svc.SubscribeNearby(context.Background(), feedOptions(5), func([]*entity.Alert) {
		calls++
	})
	require.NoError(t, err)

	repo.push([]*entity.Alert{activeAlert("a", entity.SeverityHigh, 37.775, -122.419, time.Now())})
	assert.Equal(t, 1, calls)

	stop()
	stop()
	assert.True(t, repo.stopped)

	repo.push([]*entity.Alert{activeAlert("b", entity.SeverityHigh, 37.775, -122.419, time.Now())})
	assert.Equal(t, 1, calls)
}

func TestSubscribeNearby_StreamErrorReachesHook(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	var streamErr error
	opts := feedOptions(5)
	opts.OnError = func(err error) { streamErr = err }

	stop, err := svc.SubscribeNearby(context.Background(), opts, func([]*entity.Alert) {})
	require.NoError(t, err)
	defer stop()

	repo.onError(errors.New("stream closed"))
	require.Error(t, streamErr)
	assert.Contains(t, streamErr.Error(), "stream closed")
}

func TestCreateAlert_ValidationRejectedBeforePersistence(t *testing.T) {
	repo := &fakeAlertRepo{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	future := time.Now().Add(time.Hour)

	_, err := svc.CreateAlert(context.Background(), createAlertInput("", entity.SeverityHigh, future))
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	_, err = svc.CreateAlert(context.Background(), createAlertInput("flood", "extreme", future))
	assert.ErrorIs(t, err, domainerrors.ErrInvalidSeverity)

	_, err = svc.CreateAlert(context.Background(), createAlertInput("flood", entity.SeverityHigh, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)
}

func TestCreateAlert_PublishesTriggerEvent(t *testing.T) {
	repo := &fakeAlertRepo{}
	publisher := &stubPublisher{}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, publisher, feedConfig(), slog.Default())

	alert, err := svc.CreateAlert(context.Background(), createAlertInput("flood warning", entity.SeverityCritical, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "alert-1", alert.ID)
	assert.True(t, alert.IsActive)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, service.EventAlertCreated, publisher.events[0].Type)
	assert.Equal(t, "alert-1", publisher.events[0].AlertID)
	assert.Equal(t, "critical", publisher.events[0].Severity)
}

func TestCreateAlert_PublishFailureDoesNotFailCreation(t *testing.T) {
	repo := &fakeAlertRepo{}
	publisher := &stubPublisher{err: errors.New("broker down")}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, publisher, feedConfig(), slog.Default())

	alert, err := svc.CreateAlert(context.Background(), createAlertInput("flood warning", entity.SeverityHigh, time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "alert-1", alert.ID)
}

func TestSweepExpired_DeactivatesEveryExpiredAlert(t *testing.T) {
	now := time.Now()
	repo := &fakeAlertRepo{expired: []*entity.Alert{
		activeAlert("e1", entity.SeverityHigh, 37.775, -122.419, now.Add(-48*time.Hour)),
		activeAlert("e2", entity.SeverityLow, 37.776, -122.419, now.Add(-48*time.Hour)),
	}}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	swept, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	assert.ElementsMatch(t, []string{"e1", "e2"}, repo.deactivated)
}

func TestListAlerts_AppliesHierarchyFilter(t *testing.T) {
	now := time.Now()
	california := activeAlert("ca", entity.SeverityHigh, 37.775, -122.419, now)
	california.Location.Region = "California"
	oregon := activeAlert("or", entity.SeverityHigh, 44.05, -123.09, now)
	oregon.Location.Region = "Oregon"

	repo := &fakeAlertRepo{alerts: []*entity.Alert{california, oregon}}
	svc := NewAlertService(repo, &stubPositions{pos: sanFrancisco}, &stubPublisher{}, feedConfig(), slog.Default())

	alerts, err := svc.ListAlerts(context.Background(), true, entity.LocationCriteria{Region: "california"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "ca", alerts[0].ID)
}
