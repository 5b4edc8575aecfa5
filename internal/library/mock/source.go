// Package mock provides a scriptable in-memory media source for tests
// and for running the server without a real library.
package mock

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/swipeclean/swipeclean/internal/library"
)

// Source is an in-memory library.Source with scriptable outcomes.
type Source struct {
	mu sync.Mutex

	items  []library.MediaItem
	albums []library.Album
	auth   library.AuthStatus

	fetchErr       error
	fetchCalls     int
	deleteOutcomes []error
	deleteGate     chan struct{}
	deleteCalls    [][]library.MediaItem
}

// New creates a mock source that reports authorized access.
func New() *Source {
	return &Source{auth: library.AuthAuthorized}
}

// SetItems replaces the library contents.
func (s *Source) SetItems(items []library.MediaItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]library.MediaItem(nil), items...)
}

// SetAlbums replaces the album list.
func (s *Source) SetAlbums(albums []library.Album) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.albums = append([]library.Album(nil), albums...)
}

// SetAuthStatus sets the reported authorization status.
func (s *Source) SetAuthStatus(status library.AuthStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = status
}

// SetFetchError makes subsequent fetches fail with err.
func (s *Source) SetFetchError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchErr = err
}

// QueueDeleteOutcome appends the outcome for the next delete call.
// A nil outcome means success. With no queued outcomes deletes succeed.
func (s *Source) QueueDeleteOutcome(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteOutcomes = append(s.deleteOutcomes, err)
}

// SetDeleteGate makes delete calls block until the gate receives a
// value (or closes). Used to hold a commit in flight.
func (s *Source) SetDeleteGate(gate chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteGate = gate
}

// DeleteCalls returns a copy of the item sets passed to Delete so far.
func (s *Source) DeleteCalls() [][]library.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([][]library.MediaItem, len(s.deleteCalls))
	for i, c := range s.deleteCalls {
		calls[i] = append([]library.MediaItem(nil), c...)
	}
	return calls
}

// FetchCalls returns how many times Fetch has been called.
func (s *Source) FetchCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchCalls
}

// Fetch implements library.Source.
func (s *Source) Fetch(_ context.Context, opts library.FetchOptions) ([]library.MediaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetchCalls++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}

	now := nowFunc()
	out := make([]library.MediaItem, 0, len(s.items))
	for _, item := range s.items {
		if !opts.Media.Allows(item.MediaType, opts.IncludeVideos) {
			continue
		}
		if !opts.Date.Matches(item.CreationDate, now) {
			continue
		}
		out = append(out, item)
	}

	if opts.Randomize {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	} else {
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].CreationDate, out[j].CreationDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.After(*b)
			}
		})
	}

	return out, nil
}

// Delete implements library.Source. Success removes the items.
func (s *Source) Delete(_ context.Context, items []library.MediaItem) error {
	if len(items) == 0 {
		return nil
	}

	s.mu.Lock()
	s.deleteCalls = append(s.deleteCalls, append([]library.MediaItem(nil), items...))
	gate := s.deleteGate
	var outcome error
	if len(s.deleteOutcomes) > 0 {
		outcome = s.deleteOutcomes[0]
		s.deleteOutcomes = s.deleteOutcomes[1:]
	}
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	if outcome != nil {
		return outcome
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make(map[string]struct{}, len(items))
	for _, item := range items {
		removed[item.ID] = struct{}{}
	}
	kept := s.items[:0]
	for _, item := range s.items {
		if _, gone := removed[item.ID]; !gone {
			kept = append(kept, item)
		}
	}
	s.items = kept
	return nil
}

// Albums implements library.Source.
func (s *Source) Albums(_ context.Context) ([]library.Album, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]library.Album(nil), s.albums...), nil
}

// AuthorizationStatus implements library.Source.
func (s *Source) AuthorizationStatus(_ context.Context) library.AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth
}

// RequestAuthorization implements library.Source. Requesting resolves
// NotDetermined to the configured status, or Authorized by default.
func (s *Source) RequestAuthorization(_ context.Context) library.AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth == library.AuthNotDetermined {
		s.auth = library.AuthAuthorized
	}
	return s.auth
}
