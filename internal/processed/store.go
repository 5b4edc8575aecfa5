// Package processed tracks which media items have already received a
// decision, so they are never presented twice across restarts.
package processed

import (
	"context"
	"database/sql"
	"sync"

	"github.com/rs/zerolog"
)

// DefaultCapacity bounds the durable processed set. Once exceeded, the
// oldest-inserted entries are evicted first.
const DefaultCapacity = 12000

// Store is a bounded, insertion-ordered record of processed item IDs.
// The in-memory mirrors are the source of truth during the process
// lifetime; every mutation is persisted synchronously, with write
// failures logged but never surfaced to the caller.
type Store struct {
	db       *sql.DB
	capacity int
	logger   zerolog.Logger

	mu     sync.Mutex
	loaded bool
	set    map[string]struct{}
	order  []string
}

// NewStore creates a processed store over db with the given capacity.
// A capacity <= 0 falls back to DefaultCapacity.
func NewStore(db *sql.DB, capacity int, logger zerolog.Logger) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		db:       db,
		capacity: capacity,
		logger:   logger.With().Str("component", "processed").Logger(),
		set:      make(map[string]struct{}),
	}
}

// IsProcessed reports whether id already has a recorded decision.
func (s *Store) IsProcessed(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	_, ok := s.set[id]
	return ok
}

// MarkProcessed records a decision for id. It is idempotent: marking
// an already-recorded id is a no-op with no persistence side effect.
func (s *Store) MarkProcessed(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)

	if _, ok := s.set[id]; ok {
		return
	}

	s.set[id] = struct{}{}
	s.order = append(s.order, id)

	evicted := s.evictLocked()
	s.persistLocked(ctx, id, evicted)
}

// Count returns the number of recorded ids.
func (s *Store) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(ctx)
	return len(s.order)
}

// Clear drops every recorded id, durably.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM processed_items`); err != nil {
		return err
	}
	s.loaded = true
	s.set = make(map[string]struct{})
	s.order = nil
	return nil
}

// loadLocked populates the in-memory mirrors from durable storage the
// first time the store is touched in this process.
func (s *Store) loadLocked(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM processed_items ORDER BY seq ASC`)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load processed ids, starting empty")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			s.logger.Error().Err(err).Msg("failed to scan processed id")
			continue
		}
		if _, ok := s.set[id]; ok {
			continue
		}
		s.set[id] = struct{}{}
		s.order = append(s.order, id)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error().Err(err).Msg("error iterating processed ids")
	}

	s.logger.Debug().Int("count", len(s.order)).Msg("loaded processed ids")
}

// evictLocked trims the oldest entries above capacity and returns the
// evicted ids.
func (s *Store) evictLocked() []string {
	overflow := len(s.order) - s.capacity
	if overflow <= 0 {
		return nil
	}

	evicted := append([]string(nil), s.order[:overflow]...)
	s.order = s.order[overflow:]
	for _, id := range evicted {
		delete(s.set, id)
	}
	return evicted
}

// persistLocked writes one insertion and any evictions in a single
// transaction. Failures are logged and swallowed: the engine must stay
// responsive even when the persistence backing is broken.
func (s *Store) persistLocked(ctx context.Context, inserted string, evicted []string) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin processed-id transaction")
		return
	}

	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO processed_items (item_id) VALUES (?)`, inserted); err != nil {
		s.logger.Error().Err(err).Str("id", inserted).Msg("failed to persist processed id")
		tx.Rollback()
		return
	}

	for _, id := range evicted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM processed_items WHERE item_id = ?`, id); err != nil {
			s.logger.Error().Err(err).Str("id", id).Msg("failed to evict processed id")
			tx.Rollback()
			return
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error().Err(err).Msg("failed to commit processed-id transaction")
	}
}
