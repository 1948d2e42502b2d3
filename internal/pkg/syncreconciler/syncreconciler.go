package syncreconciler

import (
	"context"
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/app/repository"
	"github.com/sanghsetu/memberdesk/internal/pkg/appstore"
	"github.com/sanghsetu/memberdesk/internal/pkg/featuregate"
	"github.com/sanghsetu/memberdesk/internal/pkg/stageview"
)

// Trigger names why a refresh ran. Route enter, manual refresh and the
// background timer are the only entry points; pages never fetch on their own.
type Trigger string

const (
	TriggerRouteEnter Trigger = "route_enter"
	TriggerManual     Trigger = "manual"
	TriggerBackground Trigger = "background"
)

// offlineThreshold is how many consecutive backend failures flip the
// non-blocking offline indicator.
const offlineThreshold = 2

// Result carries everything a navigation boundary needs after a refresh.
type Result struct {
	Application *models.Application
	Gate        featuregate.Snapshot
	Stages      stageview.View
	Stale       bool
	Offline     bool
	Changed     bool
}

// call is one in-flight refresh shared by duplicate requesters.
type call struct {
	done chan struct{}
	res  Result
	err  error
}

// Reconciler serializes application refreshes per member: a refresh in
// flight absorbs concurrent duplicates, so an interleaved stale response can
// never roll the view back.
type Reconciler struct {
	store   *appstore.Store
	members repository.MemberRepository

	mu       sync.Mutex
	inflight map[uint]*call
	failures map[uint]int
	lastSeen map[uint]stateFingerprint
}

// stateFingerprint is the divergence check between refreshes: a change in
// either field means gate-dependent views must re-render.
type stateFingerprint struct {
	appStatus     string
	paymentStatus string
	known         bool
}

// New creates a reconciler over the application store and member repository.
func New(store *appstore.Store, members repository.MemberRepository) *Reconciler {
	return &Reconciler{
		store:    store,
		members:  members,
		inflight: make(map[uint]*call),
		failures: make(map[uint]int),
		lastSeen: make(map[uint]stateFingerprint),
	}
}

// Refresh runs one serialized refresh for the member. A concurrent duplicate
// joins the in-flight call instead of issuing a second fetch. When ctx is
// cancelled (the member navigated away) the result is discarded for this
// caller; the shared fetch still completes and updates the cache.
func (r *Reconciler) Refresh(ctx context.Context, memberID uint, trigger Trigger) (Result, error) {
	r.mu.Lock()
	if c, ok := r.inflight[memberID]; ok {
		r.mu.Unlock()
		select {
		case <-c.done:
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			return c.res, c.err
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	c := &call{done: make(chan struct{})}
	r.inflight[memberID] = c
	r.mu.Unlock()

	// The fetch itself runs on a background context: cancellation only
	// suppresses this caller's side effects, it does not abort the shared
	// refresh other requesters may be waiting on.
	c.res, c.err = r.refresh(context.Background(), memberID, trigger)

	r.mu.Lock()
	delete(r.inflight, memberID)
	r.mu.Unlock()
	close(c.done)

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	return c.res, c.err
}

// IsOffline reports whether the member's backend has failed enough times in a
// row to show the "offline - showing last known status" indicator.
func (r *Reconciler) IsOffline(memberID uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[memberID] >= offlineThreshold
}

func (r *Reconciler) refresh(ctx context.Context, memberID uint, trigger Trigger) (Result, error) {
	member, merr := r.members.GetByID(memberID)

	var app *models.Application
	stale := false
	backendFailed := false

	res, err := r.store.Get(ctx, memberID)
	switch {
	case err == nil:
		app = res.Application
		stale = res.Stale
		backendFailed = res.Stale
	case errors.Is(err, appstore.ErrNotFound):
		// Definitive: the member has no application yet.
	default:
		// Unreachable and no cached fallback either.
		backendFailed = true
	}
	if merr != nil {
		backendFailed = true
		log.Warnf("[SyncReconciler] Member %d load failed during %s refresh: %v", memberID, trigger, merr)
	}

	r.mu.Lock()
	if backendFailed {
		r.failures[memberID]++
	} else {
		r.failures[memberID] = 0
	}
	offline := r.failures[memberID] >= offlineThreshold

	fresh := fingerprint(member, app)
	prev := r.lastSeen[memberID]
	changed := prev.known && (prev.appStatus != fresh.appStatus || prev.paymentStatus != fresh.paymentStatus)
	if !backendFailed {
		r.lastSeen[memberID] = fresh
	}
	r.mu.Unlock()

	if changed {
		log.Infof("[SyncReconciler] Member %d diverged (%s -> %s), views notified",
			memberID, prev.appStatus, fresh.appStatus)
	}

	return Result{
		Application: app,
		Gate:        featuregate.Evaluate(member, app),
		Stages:      stageview.Evaluate(app),
		Stale:       stale,
		Offline:     offline,
		Changed:     changed,
	}, nil
}

func fingerprint(member *models.Member, app *models.Application) stateFingerprint {
	fp := stateFingerprint{known: true}
	if member != nil {
		fp.paymentStatus = member.PaymentStatus
	}
	if app != nil {
		fp.appStatus = app.Status
	}
	return fp
}
