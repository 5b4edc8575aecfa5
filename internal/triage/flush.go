package triage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/swipeclean/swipeclean/internal/library"
)

// Flush commits the pending batch if one exists. Safe to call from
// timers, the threshold trigger and the API; concurrent calls collapse
// into at most one in-flight commit.
func (s *Service) Flush(ctx context.Context) {
	s.flush(ctx, false)
}

// FlushPendingDeletes forces a commit and waits for any in-flight one
// to finish first. Used before rebuilds and on shutdown.
func (s *Service) FlushPendingDeletes(ctx context.Context) {
	s.flush(ctx, true)
}

// rearmFlushTimerLocked restarts the debounce timer. Each enqueue
// pushes the commit out by the full delay.
func (s *Service) rearmFlushTimerLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
	}
	s.flushTimer = time.AfterFunc(s.cfg.DeleteFlushDelay, func() {
		s.Flush(context.Background())
	})
}

func (s *Service) stopFlushTimerLocked() {
	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
}

func (s *Service) flush(ctx context.Context, wait bool) {
	for {
		s.mu.Lock()
		if !s.flushing {
			break
		}
		done := s.flushDone
		s.mu.Unlock()
		if !wait {
			return
		}
		<-done
	}

	if len(s.pendingDeletes) == 0 {
		s.pendingCount = 0
		s.stopFlushTimerLocked()
		s.mu.Unlock()
		return
	}

	s.flushing = true
	s.flushDone = make(chan struct{})
	s.stopFlushTimerLocked()

	batch := s.pendingDeletes
	s.pendingDeletes = nil
	s.pendingCount = 0
	commitID := uuid.NewString()[:8]
	s.mu.Unlock()

	s.logger.Debug().
		Str("commit", commitID).
		Int("count", len(batch)).
		Msg("Committing delete batch")

	err := s.source.Delete(ctx, batch)

	var notice, errMsg string
	s.mu.Lock()
	if err == nil {
		if s.pendingStatsCount < len(batch) {
			s.pendingStatsCount = 0
		} else {
			s.pendingStatsCount -= len(batch)
		}
		for _, item := range batch {
			delete(s.pendingIDs, item.ID)
		}
		s.logger.Info().
			Str("commit", commitID).
			Int("count", len(batch)).
			Msg("Delete batch committed")
	} else {
		// The items came back: undo their optimistic stats, put them
		// at the head of both the queue and a fresh batch, and keep
		// them in pendingIDs so rebuilds still exclude them.
		rollback := len(batch)
		if s.pendingStatsCount < rollback {
			rollback = s.pendingStatsCount
		}
		s.pendingStatsCount -= rollback
		s.stats.Deleted -= rollback
		if s.stats.Deleted < 0 {
			s.stats.Deleted = 0
		}

		s.queue.pushFront(batch)
		restored := make([]library.MediaItem, 0, len(batch)+len(s.pendingDeletes))
		restored = append(restored, batch...)
		restored = append(restored, s.pendingDeletes...)
		s.pendingDeletes = restored
		s.pendingCount = len(s.pendingDeletes)

		if s.current == nil {
			s.advanceLocked()
		} else {
			s.preview = s.queue.peekFront()
		}

		var de *library.DeleteError
		switch {
		case errors.Is(err, library.ErrUserCancelled):
			notice = "Deletion was cancelled. Your items are safe."
			s.setNoticeLocked(notice)
			s.logger.Warn().
				Str("commit", commitID).
				Int("count", len(batch)).
				Msg("Delete batch cancelled by user")
		case errors.As(err, &de):
			errMsg = de.Message
			s.errorMessage = errMsg
			s.logger.Error().
				Err(err).
				Str("commit", commitID).
				Int("count", len(batch)).
				Msg("Delete batch failed")
		default:
			errMsg = err.Error()
			s.errorMessage = errMsg
			s.logger.Error().
				Err(err).
				Str("commit", commitID).
				Int("count", len(batch)).
				Msg("Delete batch failed")
		}
	}

	s.flushing = false
	close(s.flushDone)
	committed := err == nil
	count := len(batch)
	s.mu.Unlock()

	if committed && s.review != nil {
		s.review.RecordSuccessfulDeletion(ctx, count)
	}
	if s.hub != nil {
		if notice != "" {
			s.hub.Broadcast("triage:notice", map[string]string{"message": notice})
		}
		if errMsg != "" {
			s.hub.Broadcast("triage:error", map[string]string{"message": errMsg})
		}
	}
	s.publish()
}
