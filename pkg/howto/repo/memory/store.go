// Package memory provides an in-memory ContentStore with live
// subscriptions. It backs tests and the default server configuration.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/makerhub/howto/pkg/howto"
)

// Store implements howto.ContentStore using in-memory maps. Every write
// broadcasts a fresh full-collection snapshot to open streams, and stats
// writes broadcast to the matching stats streams.
type Store struct {
	mu        sync.RWMutex
	howtos    map[uuid.UUID]*howto.Howto
	stats     map[uuid.UUID]*howto.HowtoStats
	collSubs  map[int]*collectionSub
	statsSubs map[int]*statsSub
	nextSubID int
}

// New creates a new in-memory store
func New() *Store {
	return &Store{
		howtos:    make(map[uuid.UUID]*howto.Howto),
		stats:     make(map[uuid.UUID]*howto.HowtoStats),
		collSubs:  make(map[int]*collectionSub),
		statsSubs: make(map[int]*statsSub),
	}
}

func (s *Store) GetHowto(ctx context.Context, id uuid.UUID) (*howto.Howto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.howtos[id]
	if !exists {
		return nil, howto.ErrHowtoNotFound
	}

	// Return a copy to prevent external modifications
	copied := *h
	return &copied, nil
}

func (s *Store) SetHowto(ctx context.Context, h *howto.Howto) error {
	if h == nil || h.ID == uuid.Nil {
		return fmt.Errorf("howto id is required")
	}

	s.mu.Lock()
	// Slugs are the unique lookup key; a write may keep its own slug but
	// never take another record's.
	if h.Slug != "" {
		for id, existing := range s.howtos {
			if id != h.ID && existing.Slug == h.Slug {
				s.mu.Unlock()
				return howto.ErrDuplicateSlug
			}
		}
	}
	copied := *h
	s.howtos[h.ID] = &copied
	snapshot := s.snapshotLocked()
	subs := make([]*collectionSub, 0, len(s.collSubs))
	for _, sub := range s.collSubs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.send(snapshot)
	}
	return nil
}

func (s *Store) QueryEqual(ctx context.Context, field, value string) ([]*howto.Howto, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*howto.Howto
	for _, h := range s.howtos {
		var match bool
		switch field {
		case "slug":
			match = h.Slug == value
		case "created_by":
			match = h.CreatedBy == value
		default:
			return nil, fmt.Errorf("unsupported query field: %s", field)
		}
		if match {
			copied := *h
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *Store) GetStats(ctx context.Context, howtoID uuid.UUID) (*howto.HowtoStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, exists := s.stats[howtoID]
	if !exists {
		return nil, howto.ErrStatsNotFound
	}
	copied := *stats
	return &copied, nil
}

// SetStats writes a stats sub-record and notifies its live streams. The
// core service treats stats as read-only; this entry point exists for the
// aggregation job and for tests.
func (s *Store) SetStats(ctx context.Context, stats *howto.HowtoStats) error {
	if stats == nil || stats.HowtoID == uuid.Nil {
		return fmt.Errorf("stats howto id is required")
	}

	s.mu.Lock()
	copied := *stats
	s.stats[stats.HowtoID] = &copied
	subs := make([]*statsSub, 0)
	for _, sub := range s.statsSubs {
		if sub.howtoID == stats.HowtoID {
			subs = append(subs, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.send(&copied)
	}
	return nil
}

func (s *Store) SubscribeStats(ctx context.Context, howtoID uuid.UUID) (howto.StatsSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &statsSub{
		store:   s,
		id:      s.nextSubID,
		howtoID: howtoID,
		ch:      make(chan *howto.HowtoStats, 1),
	}
	s.nextSubID++
	s.statsSubs[sub.id] = sub

	// Emit the current record immediately when one exists.
	if stats, exists := s.stats[howtoID]; exists {
		copied := *stats
		sub.send(&copied)
	}
	return sub, nil
}

func (s *Store) StreamAll(ctx context.Context) (howto.CollectionSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := &collectionSub{
		store: s,
		id:    s.nextSubID,
		ch:    make(chan []*howto.Howto, 1),
	}
	s.nextSubID++
	s.collSubs[sub.id] = sub

	sub.send(s.snapshotLocked())
	return sub, nil
}

// ActiveStatsSubscriptions reports how many live stats streams are open,
// optionally narrowed to one how-to. Used by tests.
func (s *Store) ActiveStatsSubscriptions(howtoID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sub := range s.statsSubs {
		if howtoID == uuid.Nil || sub.howtoID == howtoID {
			n++
		}
	}
	return n
}

// snapshotLocked must be called with s.mu held.
func (s *Store) snapshotLocked() []*howto.Howto {
	out := make([]*howto.Howto, 0, len(s.howtos))
	for _, h := range s.howtos {
		copied := *h
		out = append(out, &copied)
	}
	return out
}

func (s *Store) dropCollSub(sub *collectionSub) {
	s.mu.Lock()
	delete(s.collSubs, sub.id)
	s.mu.Unlock()
	sub.close()
}

func (s *Store) dropStatsSub(sub *statsSub) {
	s.mu.Lock()
	delete(s.statsSubs, sub.id)
	s.mu.Unlock()
	sub.close()
}

// collectionSub is one live full-collection stream. The channel holds the
// latest snapshot only; a slow reader sees the newest state, not a backlog.
type collectionSub struct {
	store *Store
	id    int
	ch    chan []*howto.Howto

	mu     sync.Mutex
	closed bool
}

func (c *collectionSub) Snapshots() <-chan []*howto.Howto { return c.ch }

func (c *collectionSub) Unsubscribe() { c.store.dropCollSub(c) }

func (c *collectionSub) send(snapshot []*howto.Howto) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case <-c.ch:
	default:
	}
	c.ch <- snapshot
}

func (c *collectionSub) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

// statsSub is one live stats stream for a single how-to.
type statsSub struct {
	store   *Store
	id      int
	howtoID uuid.UUID
	ch      chan *howto.HowtoStats

	mu     sync.Mutex
	closed bool
}

func (s *statsSub) Updates() <-chan *howto.HowtoStats { return s.ch }

func (s *statsSub) Unsubscribe() { s.store.dropStatsSub(s) }

func (s *statsSub) send(stats *howto.HowtoStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- stats
}

func (s *statsSub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
