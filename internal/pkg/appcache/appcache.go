package appcache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/sanghsetu/memberdesk/app/models"
	"github.com/sanghsetu/memberdesk/internal/pkg/cache"
)

const (
	// Redis key prefix for cached application snapshots
	SnapshotKeyPrefix = "application:snapshot:"

	// Snapshots expire if no sync has touched them for a week
	SnapshotTTL = 7 * 24 * time.Hour
)

// Snapshot mirrors the authoritative Application record plus the cache
// bookkeeping fields. It is always written as one blob so readers never see
// an inconsistent approvals/status pairing.
type Snapshot struct {
	Application  *models.Application `json:"application"`
	Stale        bool                `json:"stale"`
	LastSyncedAt time.Time           `json:"last_synced_at"`
}

// Listener receives change notifications after a snapshot replacement.
type Listener func(memberID uint, snap Snapshot)

// Store is the single owner of the local application cache. All writes go
// through Replace/MarkStale; there are no field-level setters.
type Store struct {
	client *redis.Client

	mu        sync.RWMutex
	listeners map[int]Listener
	nextID    int
}

// NewStore creates a snapshot store on the shared cache client.
func NewStore() *Store {
	return &Store{
		client:    cache.GetClient(),
		listeners: make(map[int]Listener),
	}
}

// NewStoreWithClient creates a snapshot store on a specific Redis client
// (used by tests with an isolated DB).
func NewStoreWithClient(client *redis.Client) *Store {
	return &Store{
		client:    client,
		listeners: make(map[int]Listener),
	}
}

func snapshotKey(memberID uint) string {
	return fmt.Sprintf("%s%d", SnapshotKeyPrefix, memberID)
}

// Get returns the cached snapshot for a member, or nil when none exists.
func (s *Store) Get(ctx context.Context, memberID uint) (*Snapshot, error) {
	data, err := s.client.Get(ctx, snapshotKey(memberID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot for member %d: %w", memberID, err)
	}
	return &snap, nil
}

// Replace atomically overwrites the member's snapshot with a fresh copy and
// notifies subscribers. This is the only way to write cache content.
func (s *Store) Replace(ctx context.Context, memberID uint, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for member %d: %w", memberID, err)
	}

	if err := s.client.Set(ctx, snapshotKey(memberID), data, SnapshotTTL).Err(); err != nil {
		return err
	}

	s.notify(memberID, snap)
	return nil
}

// MarkStale re-writes the existing snapshot with the stale flag set. A
// missing snapshot is a no-op.
func (s *Store) MarkStale(ctx context.Context, memberID uint) error {
	snap, err := s.Get(ctx, memberID)
	if err != nil || snap == nil {
		return err
	}
	if snap.Stale {
		return nil
	}
	snap.Stale = true

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, snapshotKey(memberID), data, SnapshotTTL).Err()
}

// Delete removes the member's snapshot (used on logout / account removal).
func (s *Store) Delete(ctx context.Context, memberID uint) error {
	return s.client.Del(ctx, snapshotKey(memberID)).Err()
}

// Subscribe registers a change listener and returns an unsubscribe function.
// Listeners fire after every Replace, giving gate-dependent surfaces a single
// notification path instead of ad hoc broadcast events.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(memberID uint, snap Snapshot) {
	s.mu.RLock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("[AppCache] Listener panic for member %d: %v", memberID, r)
				}
			}()
			fn(memberID, snap)
		}()
	}
}
