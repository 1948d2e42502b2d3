package syncreconciler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/internal/pkg/appcache"
	"github.com/sanghsetu/memberdesk/internal/pkg/appstore"
	"github.com/sanghsetu/memberdesk/internal/pkg/featuregate"
)

var errBackendDown = errors.New("dial tcp: connection refused")

// fakeAppRepo serves one application per member and can simulate outages and
// slow fetches.
type fakeAppRepo struct {
	mu       sync.Mutex
	byMember map[uint]*models.Application
	down     bool
	fetches  int
	block    chan struct{}
}

func newFakeAppRepo() *fakeAppRepo {
	return &fakeAppRepo{byMember: make(map[uint]*models.Application)}
}

func (f *fakeAppRepo) set(app *models.Application) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byMember[app.MemberID] = app
}

func (f *fakeAppRepo) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *fakeAppRepo) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeAppRepo) GetActiveByMemberID(memberID uint) (*models.Application, error) {
	f.mu.Lock()
	f.fetches++
	down := f.down
	app := f.byMember[memberID]
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if down {
		return nil, errBackendDown
	}
	if app == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return app.Clone(), nil
}

func (f *fakeAppRepo) Create(app *models.Application) error { return nil }
func (f *fakeAppRepo) GetByID(id uint) (*models.Application, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAppRepo) GetByApplicationID(applicationID string) (*models.Application, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeAppRepo) ListByMemberID(memberID uint) ([]models.Application, error) { return nil, nil }
func (f *fakeAppRepo) Save(app *models.Application) error                         { return nil }
func (f *fakeAppRepo) ListPendingForStage(stage, state, district, block string, offset, limit int) ([]models.Application, error) {
	return nil, nil
}
func (f *fakeAppRepo) CountPendingForStage(stage, state, district, block string) (int64, error) {
	return 0, nil
}
func (f *fakeAppRepo) CountByStatus() (map[string]int64, error)     { return nil, nil }
func (f *fakeAppRepo) IncrementStatusViews(id uint, d int64) error  { return nil }
func (f *fakeAppRepo) GetDailyStats(s, e time.Time) ([]models.DailyStats, error) {
	return nil, nil
}

// fakeMemberRepo serves a single member.
type fakeMemberRepo struct {
	mu     sync.Mutex
	member *models.Member
}

func (f *fakeMemberRepo) GetByID(id uint) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.member == nil || f.member.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	m := *f.member
	return &m, nil
}

func (f *fakeMemberRepo) Create(member *models.Member) error          { return nil }
func (f *fakeMemberRepo) GetByEmail(email string) (*models.Member, error) {
	return nil, gorm.ErrRecordNotFound
}
func (f *fakeMemberRepo) Update(member *models.Member) error          { return nil }
func (f *fakeMemberRepo) Delete(id uint) error                        { return nil }
func (f *fakeMemberRepo) List(o, l int) ([]models.Member, error)      { return nil, nil }
func (f *fakeMemberRepo) Count() (int64, error)                       { return 0, nil }
func (f *fakeMemberRepo) Search(q string) ([]models.Member, error)    { return nil, nil }
func (f *fakeMemberRepo) GetDailyStats(s, e time.Time) ([]models.DailyStats, error) {
	return nil, nil
}

// fakeCache is a minimal in-memory SnapshotCache.
type fakeCache struct {
	mu    sync.Mutex
	snaps map[uint]appcache.Snapshot
}

func newFakeCache() *fakeCache {
	return &fakeCache{snaps: make(map[uint]appcache.Snapshot)}
}

func (f *fakeCache) Get(_ context.Context, memberID uint) (*appcache.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[memberID]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return &snap, nil
}

func (f *fakeCache) Replace(_ context.Context, memberID uint, snap appcache.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[memberID] = snap
	return nil
}

func (f *fakeCache) MarkStale(_ context.Context, memberID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[memberID]
	if ok {
		snap.Stale = true
		f.snaps[memberID] = snap
	}
	return nil
}

func testSetup() (*Reconciler, *fakeAppRepo, *fakeMemberRepo) {
	apps := newFakeAppRepo()
	members := &fakeMemberRepo{member: &models.Member{ID: 42, PaymentStatus: models.PAYMENT_PENDING}}
	store := appstore.NewStore(apps, newFakeCache(), nil)
	return New(store, members), apps, members
}

func TestRefreshNoApplication(t *testing.T) {
	rec, _, _ := testSetup()

	res, err := rec.Refresh(context.Background(), 42, TriggerRouteEnter)
	require.NoError(t, err)
	assert.Nil(t, res.Application)
	assert.Equal(t, featuregate.VariantIncomplete, res.Gate.DashboardVariant)
	assert.Equal(t, 4, res.Stages.TotalCount)
	assert.False(t, res.Offline)
}

func TestRefreshReturnsGateAndStages(t *testing.T) {
	rec, apps, _ := testSetup()
	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusDistrictReview})

	res, err := rec.Refresh(context.Background(), 42, TriggerRouteEnter)
	require.NoError(t, err)
	require.NotNil(t, res.Application)
	assert.Equal(t, featuregate.VariantUnderReview, res.Gate.DashboardVariant)
	assert.False(t, res.Changed)
}

func TestRefreshDetectsDivergence(t *testing.T) {
	rec, apps, _ := testSetup()
	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusBlockReview})

	_, err := rec.Refresh(context.Background(), 42, TriggerRouteEnter)
	require.NoError(t, err)

	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusDistrictReview})
	res, err := rec.Refresh(context.Background(), 42, TriggerBackground)
	require.NoError(t, err)
	assert.True(t, res.Changed)

	// Stable state does not re-notify
	res, err = rec.Refresh(context.Background(), 42, TriggerBackground)
	require.NoError(t, err)
	assert.False(t, res.Changed)
}

func TestOfflineAfterConsecutiveFailures(t *testing.T) {
	rec, apps, _ := testSetup()
	apps.setDown(true)

	res, err := rec.Refresh(context.Background(), 42, TriggerBackground)
	require.NoError(t, err)
	assert.False(t, res.Offline, "one failure is not offline yet")

	res, err = rec.Refresh(context.Background(), 42, TriggerBackground)
	require.NoError(t, err)
	assert.True(t, res.Offline)
	assert.True(t, rec.IsOffline(42))

	// A successful refresh clears the indicator
	apps.setDown(false)
	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusBlockReview})
	res, err = rec.Refresh(context.Background(), 42, TriggerManual)
	require.NoError(t, err)
	assert.False(t, res.Offline)
	assert.False(t, rec.IsOffline(42))
}

func TestRefreshSingleFlight(t *testing.T) {
	rec, apps, _ := testSetup()
	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusBlockReview})

	gate := make(chan struct{})
	apps.mu.Lock()
	apps.block = gate
	apps.mu.Unlock()

	const waiters = 5
	var wg sync.WaitGroup
	results := make([]Result, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := rec.Refresh(context.Background(), 42, TriggerRouteEnter)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	// Let the duplicates pile onto the in-flight call, then release it
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, apps.fetchCount(), "duplicates must join the in-flight refresh")
	for _, res := range results {
		require.NotNil(t, res.Application)
		assert.Equal(t, models.AppStatusBlockReview, res.Application.Status)
	}
}

func TestRefreshCancelledCallerGetsContextError(t *testing.T) {
	rec, apps, _ := testSetup()
	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusBlockReview})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rec.Refresh(ctx, 42, TriggerRouteEnter)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRefreshCancelledWaiterDoesNotBlockOthers(t *testing.T) {
	rec, apps, _ := testSetup()
	apps.set(&models.Application{ID: 1, MemberID: 42, Status: models.AppStatusBlockReview})

	gate := make(chan struct{})
	apps.mu.Lock()
	apps.block = gate
	apps.mu.Unlock()

	started := make(chan struct{})
	var leadRes Result
	var leadErr error
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		close(started)
		leadRes, leadErr = rec.Refresh(context.Background(), 42, TriggerRouteEnter)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	// The waiter navigates away mid-flight
	ctx, cancel := context.WithCancel(context.Background())
	waiterErr := make(chan error, 1)
	go func() {
		_, err := rec.Refresh(ctx, 42, TriggerRouteEnter)
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-waiterErr, context.Canceled)

	// The shared fetch still completes for the lead caller
	close(gate)
	wg.Wait()
	require.NoError(t, leadErr)
	require.NotNil(t, leadRes.Application)
}
