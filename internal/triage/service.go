package triage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/swipeclean/swipeclean/internal/library"
)

// Service is the review engine. All queue, batch and statistics state
// is guarded by one mutex; the only operations performed outside it
// are the media source's Fetch and Delete calls.
type Service struct {
	cfg       Config
	source    library.Source
	processed ProcessedStore
	logger    zerolog.Logger

	review ReviewRecorder
	hub    Broadcaster

	mu sync.Mutex

	authState AuthState
	queue     assetQueue
	current   *library.MediaItem
	preview   *library.MediaItem
	loading   bool
	stats     Stats

	albums        []library.Album
	selectedAlbum library.Album
	dateFilter    library.DateFilter
	mediaFilter   library.MediaTypeFilter
	includeVideos bool
	randomize     bool

	pendingDeletes    []library.MediaItem
	pendingIDs        map[string]struct{}
	pendingStatsCount int
	pendingCount      int
	flushTimer        *time.Timer
	flushing          bool
	flushDone         chan struct{}

	errorMessage  string
	noticeMessage string
	noticeTimer   *time.Timer

	bootstrapped bool
}

// NewService creates the review engine over the given media source and
// processed store.
func NewService(source library.Source, processed ProcessedStore, cfg Config, logger zerolog.Logger) *Service {
	return &Service{
		cfg:           cfg.withDefaults(),
		source:        source,
		processed:     processed,
		logger:        logger.With().Str("component", "triage").Logger(),
		authState:     AuthStateIdle,
		selectedAlbum: library.AllAlbum(0),
		dateFilter:    library.DateFilterAll,
		mediaFilter:   library.MediaFilterAll,
		pendingIDs:    make(map[string]struct{}),
	}
}

// SetReviewRecorder wires the review-prompt heuristics observer.
func (s *Service) SetReviewRecorder(r ReviewRecorder) {
	s.review = r
}

// SetBroadcaster wires the state event broadcaster.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.hub = b
}

// Bootstrap performs the once-per-process startup: resolve
// authorization (requesting it if undetermined) and load the queue.
func (s *Service) Bootstrap(ctx context.Context) {
	s.mu.Lock()
	if s.bootstrapped {
		s.mu.Unlock()
		return
	}
	s.bootstrapped = true
	s.mu.Unlock()

	s.ensureAuthorization(ctx, true)
}

// RefreshAuthorizationStatus re-reads the store's authorization state
// without prompting. Call when the app returns to the foreground.
func (s *Service) RefreshAuthorizationStatus(ctx context.Context) {
	s.ensureAuthorization(ctx, false)
}

// KeepCurrent records a Keep decision for the presented item.
func (s *Service) KeepCurrent(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	item := *s.current
	s.stats.Kept++
	s.processed.MarkProcessed(ctx, item.ID)
	s.advanceLocked()
	s.mu.Unlock()

	if s.review != nil {
		s.review.RecordProcessed(ctx)
	}
	s.publish()
}

// SkipCurrent records a Skip decision: the item goes to the back of
// the queue and will be presented again after the rest of the pass.
func (s *Service) SkipCurrent(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	item := *s.current
	s.stats.Skipped++
	s.processed.MarkProcessed(ctx, item.ID)
	s.queue.pushBack(item)
	s.advanceLocked()
	s.mu.Unlock()

	if s.review != nil {
		s.review.RecordProcessed(ctx)
	}
	s.publish()
}

// DeleteCurrent records a Delete decision: the item joins the pending
// batch, the deleted statistic is counted optimistically, and a commit
// is scheduled on the debounce/threshold policy.
func (s *Service) DeleteCurrent(ctx context.Context) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	item := *s.current

	s.pendingDeletes = append(s.pendingDeletes, item)
	s.pendingIDs[item.ID] = struct{}{}
	s.pendingStatsCount++
	s.pendingCount = len(s.pendingDeletes)
	s.stats.Deleted++
	s.processed.MarkProcessed(ctx, item.ID)
	s.advanceLocked()

	s.rearmFlushTimerLocked()
	thresholdHit := len(s.pendingDeletes) >= s.cfg.DeleteBatchThreshold
	s.mu.Unlock()

	if s.review != nil {
		s.review.RecordProcessed(ctx)
	}
	if thresholdHit {
		go s.Flush(context.WithoutCancel(ctx))
	}
	s.publish()
}

// ReloadLibrary flushes any pending deletions and rebuilds the queue
// from a fresh fetch.
func (s *Service) ReloadLibrary(ctx context.Context, resetStats bool) {
	s.reload(ctx, resetStats)
}

// SelectAlbum scopes the queue to one album (or AllAlbumID for none).
func (s *Service) SelectAlbum(ctx context.Context, albumID string) error {
	s.mu.Lock()
	if albumID == s.selectedAlbum.ID {
		s.mu.Unlock()
		return nil
	}

	var selected *library.Album
	if albumID == library.AllAlbumID {
		a := library.AllAlbum(s.queue.len())
		selected = &a
	} else {
		for _, album := range s.albums {
			if album.ID == albumID {
				a := album
				selected = &a
				break
			}
		}
	}
	if selected == nil {
		s.mu.Unlock()
		return fmt.Errorf("unknown album %q", albumID)
	}

	s.selectedAlbum = *selected
	s.mu.Unlock()

	s.reload(ctx, false)
	return nil
}

// SetDateFilter switches the creation-date filter; unchanged values
// are a no-op.
func (s *Service) SetDateFilter(ctx context.Context, filter library.DateFilter) error {
	if !filter.Valid() {
		return fmt.Errorf("unknown date filter %q", filter)
	}

	s.mu.Lock()
	if filter == s.dateFilter {
		s.mu.Unlock()
		return nil
	}
	s.dateFilter = filter
	s.mu.Unlock()

	s.reload(ctx, false)
	return nil
}

// SetMediaFilter switches the media-type filter; unchanged values are
// a no-op.
func (s *Service) SetMediaFilter(ctx context.Context, filter library.MediaTypeFilter) error {
	if !filter.Valid() {
		return fmt.Errorf("unknown media filter %q", filter)
	}

	s.mu.Lock()
	if filter == s.mediaFilter {
		s.mu.Unlock()
		return nil
	}
	s.mediaFilter = filter
	s.mu.Unlock()

	s.reload(ctx, false)
	return nil
}

// SetIncludeVideos toggles whether the unrestricted media filter also
// presents videos.
func (s *Service) SetIncludeVideos(ctx context.Context, include bool) {
	s.mu.Lock()
	if include == s.includeVideos {
		s.mu.Unlock()
		return
	}
	s.includeVideos = include
	s.mu.Unlock()

	s.reload(ctx, false)
}

// SetRandomize toggles shuffled presentation order.
func (s *Service) SetRandomize(ctx context.Context, randomize bool) {
	s.mu.Lock()
	if randomize == s.randomize {
		s.mu.Unlock()
		return
	}
	s.randomize = randomize
	s.mu.Unlock()

	s.reload(ctx, false)
}

// ResetStats zeroes the session statistics. The pending badge keeps
// reflecting the live batch.
func (s *Service) ResetStats() {
	s.mu.Lock()
	s.stats = Stats{}
	s.pendingStatsCount = 0
	s.pendingCount = len(s.pendingDeletes)
	s.mu.Unlock()
	s.publish()
}

// ClearError acknowledges the surfaced hard error.
func (s *Service) ClearError() {
	s.mu.Lock()
	s.errorMessage = ""
	s.mu.Unlock()
	s.publish()
}

// ClearNotice dismisses the transient notice early.
func (s *Service) ClearNotice() {
	s.mu.Lock()
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
		s.noticeTimer = nil
	}
	s.noticeMessage = ""
	s.mu.Unlock()
	s.publish()
}

// RefreshAlbums re-reads the album list from the media source. The
// synthetic "all" entry is always present and selection falls back to
// it when the chosen album disappears.
func (s *Service) RefreshAlbums(ctx context.Context) {
	fetched, err := s.source.Albums(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to refresh album list")
		return
	}

	s.mu.Lock()
	list := make([]library.Album, 0, len(fetched)+1)
	list = append(list, library.AllAlbum(s.queue.len()))
	list = append(list, fetched...)
	s.albums = list

	found := false
	for _, album := range list {
		if album.ID == s.selectedAlbum.ID {
			found = true
			break
		}
	}
	if !found {
		s.selectedAlbum = list[0]
	}
	s.mu.Unlock()
	s.publish()
}

// Snapshot returns the observable state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		AuthState:        s.authState,
		Current:          s.current,
		Preview:          s.preview,
		Loading:          s.loading,
		Stats:            s.stats,
		PendingCount:     s.pendingCount,
		Albums:           append([]library.Album(nil), s.albums...),
		SelectedAlbum:    s.selectedAlbum,
		DateFilter:       s.dateFilter,
		DateFilterTitle:  s.dateFilter.Title(),
		DateFilterHint:   s.dateFilter.Subtitle(),
		MediaFilter:      s.mediaFilter,
		MediaFilterTitle: s.mediaFilter.Title(),
		MediaFilterHint:  s.mediaFilter.Subtitle(),
		IncludeVideos:    s.includeVideos,
		Randomize:        s.randomize,
		ErrorMessage:     s.errorMessage,
		NoticeMessage:    s.noticeMessage,
	}
	return snap
}

// ensureAuthorization reconciles the engine with the store's
// authorization status, optionally prompting, then loads or clears the
// queue accordingly.
func (s *Service) ensureAuthorization(ctx context.Context, requestIfNeeded bool) {
	s.mu.Lock()
	prev := s.authState
	s.mu.Unlock()

	status := s.source.AuthorizationStatus(ctx)

	s.mu.Lock()
	s.applyAuthStatusLocked(status)
	if requestIfNeeded && !status.IsAuthorized() {
		s.authState = AuthStateRequesting
		s.mu.Unlock()
		s.publish()

		status = s.source.RequestAuthorization(ctx)

		s.mu.Lock()
		s.applyAuthStatusLocked(status)
	}

	if s.authState.IsAuthorized() {
		resetStats := !prev.IsAuthorized()
		reloadQueue := resetStats || (s.current == nil && s.queue.len() == 0)
		s.mu.Unlock()

		if reloadQueue {
			s.reload(ctx, resetStats)
		} else {
			s.publish()
		}
		return
	}

	// Access lost: drop everything, including the uncommitted batch.
	s.queue.replace(nil)
	s.current = nil
	s.preview = nil
	s.pendingDeletes = nil
	s.pendingIDs = make(map[string]struct{})
	s.pendingStatsCount = 0
	s.pendingCount = 0
	s.stopFlushTimerLocked()
	s.mu.Unlock()
	s.publish()
}

func (s *Service) applyAuthStatusLocked(status library.AuthStatus) {
	switch status {
	case library.AuthAuthorized:
		s.authState = AuthStateAuthorized
	case library.AuthLimited:
		s.authState = AuthStateLimited
	case library.AuthNotDetermined:
		s.authState = AuthStateIdle
	default:
		s.authState = AuthStateDenied
	}
}

// advanceLocked pops the next item into the presented slot. Draining
// the queue after at least one decision closes the session: statistics
// reset so the next pass starts clean.
func (s *Service) advanceLocked() {
	item, ok := s.queue.popFront()
	if !ok {
		s.current = nil
		s.preview = nil
		if s.stats.Processed() > 0 {
			s.stats = Stats{}
			s.pendingStatsCount = 0
			s.pendingCount = len(s.pendingDeletes)
		}
		return
	}

	s.current = &item
	s.preview = s.queue.peekFront()
}

// reload flushes the pending batch, fetches a fresh item list and
// rebuilds the queue, excluding processed and pending-delete ids. The
// flush is awaited so a rebuild never races an uncommitted batch.
func (s *Service) reload(ctx context.Context, resetStats bool) {
	s.mu.Lock()
	if !s.authState.IsAuthorized() {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.flush(ctx, true)

	s.mu.Lock()
	s.loading = true
	opts := library.FetchOptions{
		AlbumID:       s.selectedAlbum.ID,
		Date:          s.dateFilter,
		Media:         s.mediaFilter,
		IncludeVideos: s.includeVideos,
		Randomize:     s.randomize,
	}
	s.mu.Unlock()
	s.publish()

	items, err := s.source.Fetch(ctx, opts)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.queue.replace(nil)
		s.current = nil
		s.preview = nil
		s.errorMessage = fmt.Sprintf("Could not load the media library: %v", err)
		s.logger.Error().Err(err).Msg("library fetch failed")
		s.mu.Unlock()
		s.publish()
		return
	}

	filtered := make([]library.MediaItem, 0, len(items))
	for _, item := range items {
		if _, pending := s.pendingIDs[item.ID]; pending {
			continue
		}
		if s.processed.IsProcessed(ctx, item.ID) {
			continue
		}
		filtered = append(filtered, item)
	}

	s.queue.replace(filtered)
	s.advanceLocked()

	if resetStats {
		s.stats = Stats{}
		s.pendingStatsCount = 0
	}
	s.mu.Unlock()
	s.publish()

	s.RefreshAlbums(ctx)
}

// setNoticeLocked shows a transient notice that auto-dismisses.
func (s *Service) setNoticeLocked(message string) {
	if s.noticeTimer != nil {
		s.noticeTimer.Stop()
	}
	s.noticeMessage = message
	s.noticeTimer = time.AfterFunc(s.cfg.NoticeDismissDelay, func() {
		s.mu.Lock()
		s.noticeMessage = ""
		s.noticeTimer = nil
		s.mu.Unlock()
		s.publish()
	})
}

// publish pushes the current snapshot to connected clients.
func (s *Service) publish() {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast("triage:state", s.Snapshot()); err != nil {
		s.logger.Debug().Err(err).Msg("state broadcast failed")
	}
}
