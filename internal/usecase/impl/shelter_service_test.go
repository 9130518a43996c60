package impl

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"beacon/config"
	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/repository"
	"beacon/internal/infra/persistence/localkv"
	"beacon/internal/infra/qrcode"
	"beacon/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/memblob"
)

// countingShelterRepo counts remote reads so tests can assert the cache
// actually short-circuits them.
type countingShelterRepo struct {
	shelters []*entity.ShelterRecord
	err      error
	calls    int
}

func (r *countingShelterRepo) FindActiveShelters(_ context.Context) ([]*entity.ShelterRecord, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}

	return r.shelters, nil
}

func (r *countingShelterRepo) FindShelterByID(_ context.Context, id string) (*entity.ShelterRecord, error) {
	for _, shelter := range r.shelters {
		if shelter.ID == id {
			return shelter, nil
		}
	}

	return nil, repository.ErrShelterNotFound
}

func (r *countingShelterRepo) CreateShelter(_ context.Context, _ *entity.ShelterRecord) (string, error) {
	return "shelter-new", nil
}

func (r *countingShelterRepo) UpdateOccupancy(_ context.Context, id string, _ int) error {
	for _, shelter := range r.shelters {
		if shelter.ID == id {
			return nil
		}
	}

	return repository.ErrShelterNotFound
}

func shelterFixture() []*entity.ShelterRecord {
	return []*entity.ShelterRecord{
		{
			ID:   "s1",
			Name: "Civic Center",
			Location: entity.LocationDescriptor{
				Coordinate: entity.Coordinate{Latitude: 37.7793, Longitude: -122.4193},
			},
			Capacity:  200,
			Amenities: []string{"medical", "pets"},
			IsActive:  true,
		},
		{
			ID:   "s2",
			Name: "Sacramento Hall",
			Location: entity.LocationDescriptor{
				Coordinate: entity.Coordinate{Latitude: 38.5816, Longitude: -121.4944},
			},
			Capacity:  80,
			Amenities: []string{"medical"},
			IsActive:  true,
		},
	}
}

func cacheConfig(ttl time.Duration) *config.Config {
	cfg := &config.Config{}
	cfg.ShelterCache = &config.ShelterCacheConfig{TTL: ttl}
	cfg.QRCode = &config.QRCodeConfig{Size: 256, ErrorCorrectionLevel: "M"}

	return cfg
}

func newShelterServiceAt(repo repository.ShelterRepository, kv repository.KVStore, ttl time.Duration, now *time.Time) usecase.ShelterUsecase {
	svc := NewShelterService(repo, kv, qrcode.NewQRCodeService(256, "M"), cacheConfig(ttl), slog.Default())
	svc.(*shelterService).now = func() time.Time { return *now }

	return svc
}

func TestGetAll_FreshCacheSkipsRemote(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	first, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, first, 2)
	assert.Equal(t, 1, repo.calls)

	second, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, repo.calls, "fresh cache must not hit the remote store")
}

func TestGetAll_TTLBoundary(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	_, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	// Exactly at the TTL the envelope is still fresh.
	now = now.Add(24 * time.Hour)
	_, err = svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	// One millisecond past the TTL it is not.
	now = now.Add(time.Millisecond)
	_, err = svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestGetAll_ForceRefreshBypassesFreshness(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	_, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)

	_, err = svc.GetAll(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

func TestGetAll_RemoteFailureServesStaleSnapshot(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	_, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)

	// Past the TTL with the remote down: the expired snapshot still serves.
	now = now.Add(48 * time.Hour)
	repo.err = errors.New("remote down")

	shelters, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, shelters, 2)
}

func TestGetAll_NoEnvelopePropagatesRemoteFailure(t *testing.T) {
	repo := &countingShelterRepo{err: errors.New("remote down")}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	_, err := svc.GetAll(context.Background(), false)
	assert.ErrorIs(t, err, domainerrors.ErrRemoteUnavailable)
}

func TestGetAll_EnvelopeSurvivesRestart(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)
	_, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	// A fresh service over the same store stands in for a restarted process.
	restarted := newShelterServiceAt(repo, kv, 24*time.Hour, &now)
	shelters, err := restarted.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, shelters, 2)
	assert.Equal(t, 1, repo.calls, "persisted envelope must serve without a remote call")
}

func TestGetNearby_RadiusAndAmenityFilter(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	// Sacramento is ~120 km from San Francisco; only the Civic Center is near.
	nearby, err := svc.GetNearby(context.Background(), sanFrancisco, 5, "")
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, "s1", nearby[0].ID)

	withPets, err := svc.GetNearby(context.Background(), sanFrancisco, 200, "pets")
	require.NoError(t, err)
	require.Len(t, withPets, 1)
	assert.Equal(t, "s1", withPets[0].ID)

	withMedical, err := svc.GetNearby(context.Background(), sanFrancisco, 200, "medical")
	require.NoError(t, err)
	assert.Len(t, withMedical, 2)
}

func TestCreateShelter_InvalidatesCache(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	_, err := svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, repo.calls)

	shelter, err := svc.CreateShelter(context.Background(), &usecase.CreateShelterInput{
		Name:     "New Gym",
		Capacity: 50,
	})
	require.NoError(t, err)
	assert.Equal(t, "shelter-new", shelter.ID)
	assert.True(t, shelter.IsActive)

	_, err = svc.GetAll(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "creation must invalidate the cached snapshot")
}

func TestUpdateOccupancy_Validation(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	err := svc.UpdateOccupancy(context.Background(), "s1", -1)
	assert.ErrorIs(t, err, domainerrors.ErrValidationFailed)

	err = svc.UpdateOccupancy(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, domainerrors.ErrShelterNotFound)

	err = svc.UpdateOccupancy(context.Background(), "s1", 42)
	assert.NoError(t, err)
}

func TestShelterQR_RendersPNGForKnownShelter(t *testing.T) {
	repo := &countingShelterRepo{shelters: shelterFixture()}
	kv := localkv.NewWithBucket(memblob.OpenBucket(nil))
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newShelterServiceAt(repo, kv, 24*time.Hour, &now)

	png, err := svc.ShelterQR(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 0x50, 0x4E, 0x47}, png[:4])

	_, err = svc.ShelterQR(context.Background(), "missing")
	assert.ErrorIs(t, err, domainerrors.ErrShelterNotFound)
}
