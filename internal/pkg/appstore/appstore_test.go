package appstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/internal/pkg/appcache"
	"github.com/sanghsetu/memberdesk/internal/pkg/lifecycle"
)

var errBackendDown = errors.New("dial tcp: connection refused")

// fakeAppRepo is an in-memory ApplicationRepository. down fails every call
// like an unreachable backend; downWrites fails only the write path, the
// half-outage where reads still answer but writes time out.
type fakeAppRepo struct {
	byMember   map[uint]*models.Application
	history    map[uint][]models.Application
	nextID     uint
	down       bool
	downWrites bool
	saves      int
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{
		byMember: make(map[uint]*models.Application),
		history:  make(map[uint][]models.Application),
		nextID:   1,
	}
}

func (f *fakeAppRepo) Create(app *models.Application) error {
	if f.down || f.downWrites {
		return errBackendDown
	}
	app.ID = f.nextID
	f.nextID++
	f.byMember[app.MemberID] = app
	return nil
}

func (f *fakeAppRepo) GetByID(id uint) (*models.Application, error) {
	if f.down {
		return nil, errBackendDown
	}
	for _, app := range f.byMember {
		if app.ID == id {
			return app.Clone(), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAppRepo) GetByApplicationID(applicationID string) (*models.Application, error) {
	if f.down {
		return nil, errBackendDown
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAppRepo) GetActiveByMemberID(memberID uint) (*models.Application, error) {
	if f.down {
		return nil, errBackendDown
	}
	app, ok := f.byMember[memberID]
	if !ok || app.Status == models.AppStatusRejected {
		return nil, gorm.ErrRecordNotFound
	}
	return app.Clone(), nil
}

func (f *fakeAppRepo) ListByMemberID(memberID uint) ([]models.Application, error) {
	if f.down {
		return nil, errBackendDown
	}
	return f.history[memberID], nil
}

func (f *fakeAppRepo) Save(app *models.Application) error {
	if f.down || f.downWrites {
		return errBackendDown
	}
	f.saves++
	f.byMember[app.MemberID] = app.Clone()
	return nil
}

func (f *fakeAppRepo) ListPendingForStage(stage, state, district, block string, offset, limit int) ([]models.Application, error) {
	return nil, nil
}

func (f *fakeAppRepo) CountPendingForStage(stage, state, district, block string) (int64, error) {
	return 0, nil
}

func (f *fakeAppRepo) CountByStatus() (map[string]int64, error) {
	return nil, nil
}

func (f *fakeAppRepo) IncrementStatusViews(id uint, delta int64) error {
	return nil
}

func (f *fakeAppRepo) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	return nil, nil
}

// fakeCache is an in-memory SnapshotCache.
type fakeCache struct {
	snaps map[uint]appcache.Snapshot
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[uint]appcache.Snapshot)}
}

func (f *fakeCache) Get(_ context.Context, memberID uint) (*appcache.Snapshot, error) {
	snap, ok := f.snaps[memberID]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return &snap, nil
}

func (f *fakeCache) Replace(_ context.Context, memberID uint, snap appcache.Snapshot) error {
	f.snaps[memberID] = snap
	return nil
}

func (f *fakeCache) MarkStale(_ context.Context, memberID uint) error {
	snap, ok := f.snaps[memberID]
	if !ok {
		return nil
	}
	snap.Stale = true
	f.snaps[memberID] = snap
	return nil
}

// fakeQueue records write-behind saves.
type fakeQueue struct {
	saved []*models.Application
}

func (f *fakeQueue) EnqueueSave(app *models.Application) error {
	f.saved = append(f.saved, app.Clone())
	return nil
}

func testMember() *models.Member {
	return &models.Member{
		ID:         42,
		Name:       "Asha Kumari",
		Email:      "asha@example.com",
		Phone:      "9876543210",
		Occupation: "Teacher",
		Address:    "12 Main Road",
		State:      "Bihar",
		District:   "Patna",
		Block:      "Phulwari",
	}
}

func TestGetRefreshesCache(t *testing.T) {
	repo := newFakeAppRepo()
	cache := newFakeCache()
	store := NewStore(repo, cache, &fakeQueue{})

	_, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)

	res, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, models.AppStatusBlockReview, res.Application.Status)

	snap, err := cache.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, snap.Stale)
	assert.Equal(t, res.Application.Status, snap.Application.Status)
}

func TestGetNotFoundIsDefinitive(t *testing.T) {
	store := NewStore(newFakeAppRepo(), newFakeCache(), &fakeQueue{})

	_, err := store.Get(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetFallsBackToStaleSnapshotWhenBackendDown(t *testing.T) {
	repo := newFakeAppRepo()
	cache := newFakeCache()
	store := NewStore(repo, cache, &fakeQueue{})

	created, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)

	repo.down = true
	res, err := store.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, created.Application.Status, res.Application.Status)

	snap, _ := cache.Get(context.Background(), 42)
	assert.True(t, snap.Stale)
}

func TestGetBackendDownNoCacheSurfacesNetworkError(t *testing.T) {
	repo := newFakeAppRepo()
	repo.down = true
	store := NewStore(repo, newFakeCache(), &fakeQueue{})

	_, err := store.Get(context.Background(), 42)
	var ne *lifecycle.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, errBackendDown)
}

func TestCreateIsIdempotent(t *testing.T) {
	repo := newFakeAppRepo()
	store := NewStore(repo, newFakeCache(), &fakeQueue{})

	first, err := store.Create(context.Background(), testMember(), map[string]interface{}{"referrer": "none"})
	require.NoError(t, err)

	second, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Application.ID, second.Application.ID)
	assert.Len(t, repo.byMember, 1)
}

func TestCreateValidatesThroughLifecycle(t *testing.T) {
	member := testMember()
	member.Phone = ""
	store := NewStore(newFakeAppRepo(), newFakeCache(), &fakeQueue{})

	_, err := store.Create(context.Background(), member, nil)
	var ve *lifecycle.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCreateQueuesWriteWhenBackendDown(t *testing.T) {
	repo := newFakeAppRepo()
	cache := newFakeCache()
	queue := &fakeQueue{}
	store := NewStore(repo, cache, queue)

	repo.downWrites = true
	res, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	require.Len(t, queue.saved, 1)
	assert.Equal(t, models.AppStatusBlockReview, queue.saved[0].Status)

	// The optimistic snapshot is cached for reads during the outage
	snap, err := cache.Get(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, snap.Stale)
}

func TestCreateDuringOutageIsIdempotentViaCache(t *testing.T) {
	repo := newFakeAppRepo()
	cache := newFakeCache()
	queue := &fakeQueue{}
	store := NewStore(repo, cache, queue)

	repo.downWrites = true
	_, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)

	// Retry during a full outage must not queue a duplicate: the cached
	// optimistic snapshot answers the idempotency check.
	repo.down = true
	res, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Len(t, queue.saved, 1)
}

func TestSaveQueuesWriteWhenBackendDown(t *testing.T) {
	repo := newFakeAppRepo()
	queue := &fakeQueue{}
	store := NewStore(repo, newFakeCache(), queue)

	created, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)

	app := created.Application
	require.NoError(t, lifecycle.Decide(app, models.StageBlock, models.DecisionApproved, 10, "Block Admin", ""))

	repo.down = true
	res, err := store.Save(context.Background(), app)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	require.Len(t, queue.saved, 1)
	assert.Equal(t, models.AppStatusDistrictReview, queue.saved[0].Status)
}

func TestSaveWithoutQueueSurfacesNetworkError(t *testing.T) {
	repo := newFakeAppRepo()
	store := NewStore(repo, newFakeCache(), nil)

	created, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)

	repo.down = true
	_, err = store.Save(context.Background(), created.Application)
	var ne *lifecycle.NetworkError
	require.ErrorAs(t, err, &ne)
}

func TestCreateLinksPreviousRejectedApplication(t *testing.T) {
	repo := newFakeAppRepo()
	repo.history[42] = []models.Application{
		{ID: 9, MemberID: 42, Status: models.AppStatusRejected},
	}
	store := NewStore(repo, newFakeCache(), &fakeQueue{})

	res, err := store.Create(context.Background(), testMember(), nil)
	require.NoError(t, err)
	require.NotNil(t, res.Application.PreviousApplicationID)
	assert.Equal(t, uint(9), *res.Application.PreviousApplicationID)
}

func TestCreateFullOutageWithoutCacheFails(t *testing.T) {
	// Idempotency cannot be verified and nothing is cached: refusing beats
	// risking a duplicate submission.
	repo := newFakeAppRepo()
	repo.down = true
	queue := &fakeQueue{}
	store := NewStore(repo, newFakeCache(), queue)

	_, err := store.Create(context.Background(), testMember(), nil)
	var ne *lifecycle.NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Empty(t, queue.saved)
}
