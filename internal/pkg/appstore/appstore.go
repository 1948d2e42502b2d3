package appstore

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/appcache"
	"github.com/sanghsetu/memberdesk/internal/pkg/lifecycle"
)

// ErrNotFound is returned by Get when the member has no active application.
// This is a definitive backend answer, not a degradation.
var ErrNotFound = errors.New("no active application")

// SnapshotCache is the subset of the appcache store used here. The cache is
// subordinate to backend truth: it is only read when the backend is
// unreachable.
type SnapshotCache interface {
	Get(ctx context.Context, memberID uint) (*appcache.Snapshot, error)
	Replace(ctx context.Context, memberID uint, snap appcache.Snapshot) error
	MarkStale(ctx context.Context, memberID uint) error
}

// PendingQueue accepts write-behind application saves for retry when the
// backend is unreachable.
type PendingQueue interface {
	EnqueueSave(app *models.Application) error
}

// Result is what callers get from store reads: the application plus cache
// provenance. A stale result must be treated as read-only for authorization
// decisions unless no better data exists.
type Result struct {
	Application  *models.Application
	Stale        bool
	LastSyncedAt time.Time
}

// Store is the persistence-facing application accessor. The GORM repository
// is authoritative; the snapshot cache covers backend outages.
type Store struct {
	apps  repository.ApplicationRepository
	cache SnapshotCache
	queue PendingQueue
}

// NewStore wires an application store from its collaborators. queue may be
// nil, in which case unreachable-backend writes fail instead of queueing.
func NewStore(apps repository.ApplicationRepository, cache SnapshotCache, queue PendingQueue) *Store {
	return &Store{apps: apps, cache: cache, queue: queue}
}

// Get fetches the member's active application from the backend, refreshing
// the cache on success. On backend failure it degrades to the last cached
// snapshot tagged stale; without a cached copy the network error surfaces.
func (s *Store) Get(ctx context.Context, memberID uint) (Result, error) {
	app, err := s.apps.GetActiveByMemberID(memberID)
	if err == nil {
		now := time.Now()
		snap := appcache.Snapshot{Application: app.Clone(), LastSyncedAt: now}
		if cerr := s.cache.Replace(ctx, memberID, snap); cerr != nil {
			log.Warnf("[AppStore] Cache refresh failed for member %d: %v", memberID, cerr)
		}
		return Result{Application: app, LastSyncedAt: now}, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Result{}, ErrNotFound
	}

	// Backend unreachable: fall back to the cached snapshot if one exists.
	cached, cerr := s.cache.Get(ctx, memberID)
	if cerr == nil && cached != nil && cached.Application != nil {
		if merr := s.cache.MarkStale(ctx, memberID); merr != nil {
			log.Warnf("[AppStore] Could not mark snapshot stale for member %d: %v", memberID, merr)
		}
		return Result{
			Application:  cached.Application,
			Stale:        true,
			LastSyncedAt: cached.LastSyncedAt,
		}, nil
	}
	return Result{}, &lifecycle.NetworkError{Op: "get", Err: err}
}

// Create submits a membership application for the member. Idempotent: an
// existing active non-terminal application is returned unchanged instead of
// creating a duplicate. On backend failure the submission is queued as a
// pending write and the locally built record is returned tagged stale.
func (s *Store) Create(ctx context.Context, member *models.Member, details map[string]interface{}) (Result, error) {
	existing, err := s.apps.GetActiveByMemberID(member.ID)
	if err == nil {
		return Result{Application: existing, LastSyncedAt: time.Now()}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		// Cannot verify idempotency against the backend; check the cache
		// before queueing anything to avoid duplicate submissions.
		cached, cerr := s.cache.Get(ctx, member.ID)
		if cerr == nil && cached != nil && cached.Application != nil && !cached.Application.IsTerminal() {
			return Result{
				Application:  cached.Application,
				Stale:        true,
				LastSyncedAt: cached.LastSyncedAt,
			}, nil
		}
		return Result{}, &lifecycle.NetworkError{Op: "create", Err: err}
	}

	app := &models.Application{Status: models.AppStatusDraft}
	if prev := s.lastRejectedID(member.ID); prev != 0 {
		app.PreviousApplicationID = &prev
	}
	if err := lifecycle.Submit(app, member, details); err != nil {
		return Result{}, err
	}

	if err := s.apps.Create(app); err != nil {
		return s.degradeWrite(ctx, member.ID, app, "create", err)
	}

	now := time.Now()
	snap := appcache.Snapshot{Application: app.Clone(), LastSyncedAt: now}
	if cerr := s.cache.Replace(ctx, member.ID, snap); cerr != nil {
		log.Warnf("[AppStore] Cache refresh failed for member %d: %v", member.ID, cerr)
	}
	return Result{Application: app, LastSyncedAt: now}, nil
}

// Save persists the complete application snapshot. On backend failure the
// write is queued for retry and the cache keeps the optimistic copy tagged
// stale so the member still sees their latest state.
func (s *Store) Save(ctx context.Context, app *models.Application) (Result, error) {
	if err := s.apps.Save(app); err != nil {
		return s.degradeWrite(ctx, app.MemberID, app, "save", err)
	}

	now := time.Now()
	snap := appcache.Snapshot{Application: app.Clone(), LastSyncedAt: now}
	if cerr := s.cache.Replace(ctx, app.MemberID, snap); cerr != nil {
		log.Warnf("[AppStore] Cache refresh failed for member %d: %v", app.MemberID, cerr)
	}
	return Result{Application: app, LastSyncedAt: now}, nil
}

// degradeWrite queues a failed write for retry and keeps the optimistic
// snapshot in the cache, tagged stale.
func (s *Store) degradeWrite(ctx context.Context, memberID uint, app *models.Application, op string, cause error) (Result, error) {
	if s.queue == nil {
		return Result{}, &lifecycle.NetworkError{Op: op, Err: cause}
	}
	if qerr := s.queue.EnqueueSave(app); qerr != nil {
		return Result{}, &lifecycle.NetworkError{Op: op, Err: qerr}
	}

	now := time.Now()
	snap := appcache.Snapshot{Application: app.Clone(), Stale: true, LastSyncedAt: now}
	if cerr := s.cache.Replace(ctx, memberID, snap); cerr != nil {
		log.Warnf("[AppStore] Cache write-behind failed for member %d: %v", memberID, cerr)
	}
	log.Warnf("[AppStore] Backend unreachable during %s for member %d, write queued", op, memberID)
	return Result{Application: app, Stale: true, LastSyncedAt: now}, nil
}

// lastRejectedID finds the newest rejected application for re-application
// linkage. Best effort: a backend failure here just leaves the link empty.
func (s *Store) lastRejectedID(memberID uint) uint {
	apps, err := s.apps.ListByMemberID(memberID)
	if err != nil {
		return 0
	}
	for _, a := range apps {
		if a.Status == models.AppStatusRejected {
			return a.ID
		}
	}
	return 0
}
