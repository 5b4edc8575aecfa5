// Package triage implements the review engine: the working queue of
// unreviewed items, the pending-delete batch with its debounce and
// threshold commit policy, session statistics and filter state.
package triage

import (
	"context"
	"time"

	"github.com/swipeclean/swipeclean/internal/library"
)

// Stats counts the decisions made in the current review session.
// Deleted is optimistic: counted at decision time and rolled back if
// the commit of the underlying batch fails.
type Stats struct {
	Kept    int `json:"kept"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}

// Processed returns the total number of decisions in the session.
func (s Stats) Processed() int {
	return s.Kept + s.Deleted + s.Skipped
}

// AuthState is the engine's view of media store authorization.
type AuthState string

const (
	AuthStateIdle       AuthState = "idle"
	AuthStateRequesting AuthState = "requesting"
	AuthStateAuthorized AuthState = "authorized"
	AuthStateLimited    AuthState = "limited"
	AuthStateDenied     AuthState = "denied"
)

// IsAuthorized reports whether the state permits reviewing.
func (a AuthState) IsAuthorized() bool {
	return a == AuthStateAuthorized || a == AuthStateLimited
}

// Config tunes the deletion-batching policy.
type Config struct {
	// DeleteBatchThreshold commits the pending batch immediately once
	// it reaches this many items.
	DeleteBatchThreshold int

	// DeleteFlushDelay is the debounce window: a commit fires this long
	// after the most recent delete decision.
	DeleteFlushDelay time.Duration

	// NoticeDismissDelay is how long transient notices stay visible.
	NoticeDismissDelay time.Duration
}

// DefaultConfig returns the standard batching policy.
func DefaultConfig() Config {
	return Config{
		DeleteBatchThreshold: 15,
		DeleteFlushDelay:     3500 * time.Millisecond,
		NoticeDismissDelay:   3500 * time.Millisecond,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DeleteBatchThreshold <= 0 {
		c.DeleteBatchThreshold = d.DeleteBatchThreshold
	}
	if c.DeleteFlushDelay <= 0 {
		c.DeleteFlushDelay = d.DeleteFlushDelay
	}
	if c.NoticeDismissDelay <= 0 {
		c.NoticeDismissDelay = d.NoticeDismissDelay
	}
	return c
}

// ProcessedStore records decided item ids across restarts.
type ProcessedStore interface {
	IsProcessed(ctx context.Context, id string) bool
	MarkProcessed(ctx context.Context, id string)
}

// ReviewRecorder observes meaningful user actions for review-prompt
// heuristics. Implementations must be cheap and non-blocking.
type ReviewRecorder interface {
	RecordProcessed(ctx context.Context)
	RecordSuccessfulDeletion(ctx context.Context, count int)
}

// Broadcaster pushes state events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload any) error
}

// Snapshot is the observable state served to the UI collaborator.
type Snapshot struct {
	AuthState    AuthState          `json:"authState"`
	Current      *library.MediaItem `json:"current,omitempty"`
	Preview      *library.MediaItem `json:"preview,omitempty"`
	Loading      bool               `json:"loading"`
	Stats        Stats              `json:"stats"`
	PendingCount int                `json:"pendingDeleteCount"`

	Albums        []library.Album `json:"albums"`
	SelectedAlbum library.Album   `json:"selectedAlbum"`

	DateFilter         library.DateFilter      `json:"dateFilter"`
	DateFilterTitle    string                  `json:"dateFilterTitle"`
	DateFilterHint     string                  `json:"dateFilterHint,omitempty"`
	MediaFilter        library.MediaTypeFilter `json:"mediaFilter"`
	MediaFilterTitle   string                  `json:"mediaFilterTitle"`
	MediaFilterHint    string                  `json:"mediaFilterHint,omitempty"`
	IncludeVideos      bool                    `json:"includeVideos"`
	Randomize          bool                    `json:"randomize"`

	ErrorMessage  string `json:"errorMessage,omitempty"`
	NoticeMessage string `json:"noticeMessage,omitempty"`
}
