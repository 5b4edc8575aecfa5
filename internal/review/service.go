// Package review decides when the user has done enough meaningful work
// to be asked for an app-store style rating. Counters live in the
// settings table so they survive restarts.
package review

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

const (
	keyProcessedCount      = "review.processed_count"
	keyLaunchCount         = "review.launch_count"
	keyLastPromptAt        = "review.last_prompt_at"
	keyLastPromptVersion   = "review.last_prompt_version"
	keyRated               = "review.rated"
	keySignificantDeletion = "review.significant_deletion"

	boolTrue = "true"

	// Eligibility thresholds.
	minProcessed          = 20
	minLaunches           = 3
	minDaysBetweenPrompts = 60

	// A committed batch at least this large counts as a moment worth
	// asking after.
	significantDeletionSize = 5
)

type Service struct {
	db      *sql.DB
	version string
	logger  zerolog.Logger
}

// NewService creates the review heuristics service. version is the app
// version used for the once-per-version prompt guard.
func NewService(db *sql.DB, version string, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		version: version,
		logger:  logger.With().Str("component", "review").Logger(),
	}
}

// RecordLaunch increments the launch counter. Call once per process.
func (s *Service) RecordLaunch(ctx context.Context) {
	s.incrementInt(ctx, keyLaunchCount, 1)
}

// RecordProcessed increments the processed-decision counter.
func (s *Service) RecordProcessed(ctx context.Context) {
	s.incrementInt(ctx, keyProcessedCount, 1)
}

// RecordSuccessfulDeletion notes a committed delete batch. Large
// batches mark the session as prompt-worthy.
func (s *Service) RecordSuccessfulDeletion(ctx context.Context, count int) {
	if count < significantDeletionSize {
		return
	}
	if err := s.setString(ctx, keySignificantDeletion, boolTrue); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record significant deletion")
	}
}

// MarkPrompted records that the prompt was shown now, for the current
// version, and clears the prompt-worthy flag.
func (s *Service) MarkPrompted(ctx context.Context) error {
	if err := s.setString(ctx, keyLastPromptAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := s.setString(ctx, keyLastPromptVersion, s.version); err != nil {
		return err
	}
	return s.setString(ctx, keySignificantDeletion, "false")
}

// MarkRated permanently suppresses future prompts.
func (s *Service) MarkRated(ctx context.Context) error {
	return s.setString(ctx, keyRated, boolTrue)
}

// CanRequestReview reports whether all prompt conditions hold: enough
// decisions, enough launches, a recent significant deletion, not
// already rated, not prompted for this version, and a cool-down since
// the previous prompt.
func (s *Service) CanRequestReview(ctx context.Context) bool {
	if s.getBool(ctx, keyRated) {
		return false
	}
	if v, err := s.getString(ctx, keyLastPromptVersion); err == nil && v == s.version {
		return false
	}
	if s.getInt(ctx, keyProcessedCount) < minProcessed {
		return false
	}
	if s.getInt(ctx, keyLaunchCount) < minLaunches {
		return false
	}
	if !s.getBool(ctx, keySignificantDeletion) {
		return false
	}
	if raw, err := s.getString(ctx, keyLastPromptAt); err == nil && raw != "" {
		last, err := time.Parse(time.RFC3339, raw)
		if err == nil && time.Since(last) < minDaysBetweenPrompts*24*time.Hour {
			return false
		}
	}
	return true
}

// ProcessedCount returns the lifetime decision counter.
func (s *Service) ProcessedCount(ctx context.Context) int {
	return s.getInt(ctx, keyProcessedCount)
}

func (s *Service) incrementInt(ctx context.Context, key string, by int) {
	if err := s.setString(ctx, key, strconv.Itoa(s.getInt(ctx, key)+by)); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to update counter")
	}
}

func (s *Service) getInt(ctx context.Context, key string) int {
	val, err := s.getString(ctx, key)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}

func (s *Service) getBool(ctx context.Context, key string) bool {
	val, err := s.getString(ctx, key)
	return err == nil && val == boolTrue
}

func (s *Service) getString(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	return value, err
}

func (s *Service) setString(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}
