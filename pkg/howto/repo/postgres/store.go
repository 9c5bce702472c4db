// Package postgres provides a PostgreSQL-backed ContentStore using pgx.
//
// Records are persisted as jsonb alongside the columns the store queries
// by. Live streams are served by an in-process broadcaster fed from this
// store's own writes; cross-process change feeds are out of scope.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/makerhub/howto/pkg/howto"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store implements howto.ContentStore using PostgreSQL.
type Store struct {
	db     DBTX
	schema string

	mu        sync.Mutex
	collSubs  map[int]*collectionSub
	statsSubs map[int]*statsSub
	nextSubID int
}

// Option configures a Store.
type Option func(*Store)

// WithSchema overrides the default "content" schema.
func WithSchema(schema string) Option {
	return func(s *Store) {
		s.schema = schema
	}
}

// New creates a new PostgreSQL store
func New(db DBTX, opts ...Option) *Store {
	s := &Store{
		db:        db,
		schema:    "content",
		collSubs:  make(map[int]*collectionSub),
		statsSubs: make(map[int]*statsSub),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewWithPool creates a new PostgreSQL store with a connection pool
func NewWithPool(pool *pgxpool.Pool, opts ...Option) *Store {
	return New(pool, opts...)
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("%s.%s", s.schema, name)
}

// EnsureSchema creates the schema and tables when they do not exist yet.
// Deployments that run managed migrations can skip this.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, s.schema),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id UUID PRIMARY KEY,
				slug TEXT NOT NULL,
				created_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
				record JSONB NOT NULL
			)`, s.table("howto")),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS howto_slug_idx ON %s (slug) WHERE slug <> ''`, s.table("howto")),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS howto_created_by_idx ON %s (created_by)`, s.table("howto")),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				howto_id UUID PRIMARY KEY,
				views BIGINT NOT NULL DEFAULT 0,
				voted_useful BIGINT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, s.table("howto_stats")),
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return s.handlePostgresError("ensure_schema", err)
		}
	}
	return nil
}

// Error handling helper
func (s *Store) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			// Writes upsert by id; the only remaining unique constraint
			// is the slug index.
			return howto.ErrDuplicateSlug
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// decodeRecord is the validated decode step at the subscription/read
// boundary: a row whose jsonb does not decode to a Howto is treated as
// absent rather than returned half-populated.
func decodeRecord(raw []byte) (*howto.Howto, bool) {
	var h howto.Howto
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, false
	}
	if h.ID == uuid.Nil {
		return nil, false
	}
	return &h, true
}

func (s *Store) GetHowto(ctx context.Context, id uuid.UUID) (*howto.Howto, error) {
	query := fmt.Sprintf(`SELECT record FROM %s WHERE id = $1`, s.table("howto"))

	var raw []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, howto.ErrHowtoNotFound
		}
		return nil, s.handlePostgresError("get_howto", err)
	}

	h, ok := decodeRecord(raw)
	if !ok {
		return nil, howto.ErrHowtoNotFound
	}
	return h, nil
}

func (s *Store) SetHowto(ctx context.Context, h *howto.Howto) error {
	if h == nil || h.ID == uuid.Nil {
		return fmt.Errorf("howto id is required")
	}

	record, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("failed to encode howto record: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, slug, created_by, created_at, record)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET slug = EXCLUDED.slug,
		    created_by = EXCLUDED.created_by,
		    record = EXCLUDED.record`, s.table("howto"))

	_, err = s.db.Exec(ctx, query, h.ID, h.Slug, h.CreatedBy, h.CreatedAt, record)
	if err != nil {
		return s.handlePostgresError("set_howto", err)
	}

	s.broadcastCollection(ctx)
	return nil
}

func (s *Store) QueryEqual(ctx context.Context, field, value string) ([]*howto.Howto, error) {
	var column string
	switch field {
	case "slug":
		column = "slug"
	case "created_by":
		column = "created_by"
	default:
		return nil, fmt.Errorf("unsupported query field: %s", field)
	}

	query := fmt.Sprintf(`SELECT record FROM %s WHERE %s = $1`, s.table("howto"), column)
	rows, err := s.db.Query(ctx, query, value)
	if err != nil {
		return nil, s.handlePostgresError("query_equal", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) listAll(ctx context.Context) ([]*howto.Howto, error) {
	query := fmt.Sprintf(`SELECT record FROM %s ORDER BY created_at DESC`, s.table("howto"))
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, s.handlePostgresError("list_all", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]*howto.Howto, error) {
	var out []*howto.Howto
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan howto record: %w", err)
		}
		if h, ok := decodeRecord(raw); ok {
			out = append(out, h)
		}
	}
	return out, rows.Err()
}

func (s *Store) GetStats(ctx context.Context, howtoID uuid.UUID) (*howto.HowtoStats, error) {
	query := fmt.Sprintf(`
		SELECT howto_id, views, voted_useful, updated_at
		FROM %s WHERE howto_id = $1`, s.table("howto_stats"))

	var stats howto.HowtoStats
	err := s.db.QueryRow(ctx, query, howtoID).
		Scan(&stats.HowtoID, &stats.Views, &stats.VotedUseful, &stats.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, howto.ErrStatsNotFound
		}
		return nil, s.handlePostgresError("get_stats", err)
	}
	return &stats, nil
}

// SetStats upserts a stats sub-record and notifies its live streams.
func (s *Store) SetStats(ctx context.Context, stats *howto.HowtoStats) error {
	if stats == nil || stats.HowtoID == uuid.Nil {
		return fmt.Errorf("stats howto id is required")
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (howto_id, views, voted_useful, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (howto_id) DO UPDATE
		SET views = EXCLUDED.views,
		    voted_useful = EXCLUDED.voted_useful,
		    updated_at = EXCLUDED.updated_at`, s.table("howto_stats"))

	_, err := s.db.Exec(ctx, query, stats.HowtoID, stats.Views, stats.VotedUseful, stats.UpdatedAt)
	if err != nil {
		return s.handlePostgresError("set_stats", err)
	}

	copied := *stats
	s.mu.Lock()
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
	sub := &statsSub{
		store:   s,
		id:      s.nextSubID,
		howtoID: howtoID,
		ch:      make(chan *howto.HowtoStats, 1),
	}
	s.nextSubID++
	s.statsSubs[sub.id] = sub
	s.mu.Unlock()

	if stats, err := s.GetStats(ctx, howtoID); err == nil {
		sub.send(stats)
	}
	return sub, nil
}

func (s *Store) StreamAll(ctx context.Context) (howto.CollectionSubscription, error) {
	s.mu.Lock()
	sub := &collectionSub{
		store: s,
		id:    s.nextSubID,
		ch:    make(chan []*howto.Howto, 1),
	}
	s.nextSubID++
	s.collSubs[sub.id] = sub
	s.mu.Unlock()

	if snapshot, err := s.listAll(ctx); err == nil {
		sub.send(snapshot)
	}
	return sub, nil
}

func (s *Store) broadcastCollection(ctx context.Context) {
	s.mu.Lock()
	subs := make([]*collectionSub, 0, len(s.collSubs))
	for _, sub := range s.collSubs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	if len(subs) == 0 {
		return
	}
	snapshot, err := s.listAll(ctx)
	if err != nil {
		return
	}
	for _, sub := range subs {
		sub.send(snapshot)
	}
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
