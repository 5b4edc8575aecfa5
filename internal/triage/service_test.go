package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/swipeclean/swipeclean/internal/library"
	"github.com/swipeclean/swipeclean/internal/library/mock"
)

type fakeProcessed struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newFakeProcessed() *fakeProcessed {
	return &fakeProcessed{ids: make(map[string]struct{})}
}

func (f *fakeProcessed) IsProcessed(_ context.Context, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ids[id]
	return ok
}

func (f *fakeProcessed) MarkProcessed(_ context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[id] = struct{}{}
}

// makeItems returns n photos with strictly descending creation dates
// so the newest-first fetch order matches slice order.
func makeItems(n int) []library.MediaItem {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	items := make([]library.MediaItem, 0, n)
	for i := 0; i < n; i++ {
		created := base.Add(-time.Duration(i) * time.Hour)
		items = append(items, library.MediaItem{
			ID:           string(rune('a' + i)),
			Path:         "/photos/" + string(rune('a'+i)) + ".jpg",
			MediaType:    library.MediaTypePhoto,
			CreationDate: &created,
		})
	}
	return items
}

func newTestService(t *testing.T, items []library.MediaItem, cfg Config) (*Service, *mock.Source, *fakeProcessed) {
	t.Helper()

	src := mock.New()
	src.SetItems(items)
	store := newFakeProcessed()
	svc := NewService(src, store, cfg, zerolog.Nop())
	return svc, src, store
}

// quietConfig keeps timers from firing mid-test.
func quietConfig() Config {
	return Config{
		DeleteBatchThreshold: 100,
		DeleteFlushDelay:     time.Hour,
		NoticeDismissDelay:   time.Hour,
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBootstrapLoadsQueue(t *testing.T) {
	svc, _, _ := newTestService(t, makeItems(3), quietConfig())
	svc.Bootstrap(context.Background())

	snap := svc.Snapshot()
	if snap.AuthState != AuthStateAuthorized {
		t.Fatalf("auth state = %q, want authorized", snap.AuthState)
	}
	if snap.Current == nil || snap.Current.ID != "a" {
		t.Fatalf("current = %+v, want item a", snap.Current)
	}
	if snap.Preview == nil || snap.Preview.ID != "b" {
		t.Fatalf("preview = %+v, want item b", snap.Preview)
	}
	if snap.Loading {
		t.Error("loading should be false after bootstrap")
	}
}

func TestBootstrapRequestsAuthorization(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(1), quietConfig())
	src.SetAuthStatus(library.AuthNotDetermined)

	svc.Bootstrap(context.Background())

	snap := svc.Snapshot()
	if snap.AuthState != AuthStateAuthorized {
		t.Fatalf("auth state = %q, want authorized after request", snap.AuthState)
	}
	if snap.Current == nil {
		t.Fatal("expected an item after authorization resolved")
	}
}

func TestDeniedAccessClearsEverything(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(4), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)
	svc.DeleteCurrent(ctx)

	src.SetAuthStatus(library.AuthDenied)
	svc.RefreshAuthorizationStatus(ctx)

	snap := svc.Snapshot()
	if snap.AuthState != AuthStateDenied {
		t.Fatalf("auth state = %q, want denied", snap.AuthState)
	}
	if snap.Current != nil || snap.Preview != nil {
		t.Error("presented items should be cleared when access is lost")
	}
	if snap.PendingCount != 0 {
		t.Errorf("pending count = %d, want 0", snap.PendingCount)
	}
}

func TestKeepAdvancesAndCounts(t *testing.T) {
	svc, _, store := newTestService(t, makeItems(3), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	svc.KeepCurrent(ctx)

	snap := svc.Snapshot()
	if snap.Stats.Kept != 1 {
		t.Errorf("kept = %d, want 1", snap.Stats.Kept)
	}
	if snap.Current == nil || snap.Current.ID != "b" {
		t.Fatalf("current = %+v, want item b", snap.Current)
	}
	if !store.IsProcessed(ctx, "a") {
		t.Error("kept item should be marked processed")
	}
}

func TestSkipSendsItemToBack(t *testing.T) {
	svc, _, _ := newTestService(t, makeItems(3), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	svc.SkipCurrent(ctx)
	if got := svc.Snapshot(); got.Current.ID != "b" || got.Stats.Skipped != 1 {
		t.Fatalf("after skip: current=%q skipped=%d, want b/1", got.Current.ID, got.Stats.Skipped)
	}

	// b and c were untouched, so a comes around again last.
	svc.KeepCurrent(ctx)
	svc.KeepCurrent(ctx)
	if got := svc.Snapshot(); got.Current == nil || got.Current.ID != "a" {
		t.Fatalf("skipped item should be re-presented, got %+v", got.Current)
	}
}

func TestDeleteCountsOptimistically(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(5), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	svc.DeleteCurrent(ctx)
	svc.DeleteCurrent(ctx)

	snap := svc.Snapshot()
	if snap.Stats.Deleted != 2 {
		t.Errorf("deleted = %d, want 2 before any commit", snap.Stats.Deleted)
	}
	if snap.PendingCount != 2 {
		t.Errorf("pending count = %d, want 2", snap.PendingCount)
	}
	if calls := src.DeleteCalls(); len(calls) != 0 {
		t.Errorf("no commit should have happened yet, got %d", len(calls))
	}
	for _, id := range []string{"a", "b"} {
		if svc.queue.contains(id) {
			t.Errorf("%s is pending deletion and must not be in the queue", id)
		}
	}
}

func TestDecisionsWithoutCurrentAreNoOps(t *testing.T) {
	svc, _, _ := newTestService(t, nil, quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	svc.KeepCurrent(ctx)
	svc.DeleteCurrent(ctx)
	svc.SkipCurrent(ctx)

	snap := svc.Snapshot()
	if snap.Stats.Processed() != 0 {
		t.Errorf("stats = %+v, want all zero", snap.Stats)
	}
}

func TestStatsResetWhenQueueDrains(t *testing.T) {
	svc, _, _ := newTestService(t, makeItems(2), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	svc.KeepCurrent(ctx)
	if got := svc.Snapshot().Stats.Kept; got != 1 {
		t.Fatalf("kept = %d, want 1 mid-session", got)
	}

	svc.KeepCurrent(ctx)
	snap := svc.Snapshot()
	if snap.Current != nil {
		t.Fatalf("queue should be drained, current = %+v", snap.Current)
	}
	if snap.Stats.Processed() != 0 {
		t.Errorf("stats = %+v, want reset after drain", snap.Stats)
	}
}

func TestReloadExcludesProcessedItems(t *testing.T) {
	svc, _, store := newTestService(t, makeItems(3), quietConfig())
	ctx := context.Background()
	store.MarkProcessed(ctx, "a")
	store.MarkProcessed(ctx, "c")

	svc.Bootstrap(ctx)

	snap := svc.Snapshot()
	if snap.Current == nil || snap.Current.ID != "b" {
		t.Fatalf("current = %+v, want only unprocessed item b", snap.Current)
	}
	if snap.Preview != nil {
		t.Errorf("preview = %+v, want none", snap.Preview)
	}
}

func TestFetchFailureSurfacesError(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(2), quietConfig())
	src.SetFetchError(errors.New("store unavailable"))

	svc.Bootstrap(context.Background())

	snap := svc.Snapshot()
	if snap.Current != nil {
		t.Errorf("current = %+v, want none on fetch failure", snap.Current)
	}
	if snap.ErrorMessage == "" {
		t.Error("expected a surfaced error message")
	}
	if snap.Loading {
		t.Error("loading flag should be cleared")
	}
}

func TestForegroundRefreshKeepsPresentedItem(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(1), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)
	fetches := src.FetchCalls()

	// The queue behind the presented item is empty, but the user is
	// still looking at it: a foreground refresh must not yank it away.
	svc.RefreshAuthorizationStatus(ctx)

	if got := src.FetchCalls(); got != fetches {
		t.Errorf("fetch calls = %d, want %d (no rebuild while an item is presented)", got, fetches)
	}
	if got := svc.Snapshot(); got.Current == nil || got.Current.ID != "a" {
		t.Errorf("current = %+v, want the presented item untouched", got.Current)
	}
}

func TestReloadPicksUpExternalChanges(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(2), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	// Files appeared in the library behind the engine's back.
	items := makeItems(3)
	src.SetItems(items)

	svc.ReloadLibrary(ctx, false)

	if got := svc.Snapshot(); got.Current == nil || got.Current.ID != "a" {
		t.Fatalf("current = %+v, want head of the refreshed queue", got.Current)
	}
	if !svc.queue.contains("c") {
		t.Error("the externally added item should be queued for review")
	}
}

func TestSelectAlbumUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t, makeItems(1), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)

	if err := svc.SelectAlbum(ctx, "no-such-album"); err == nil {
		t.Fatal("expected error for unknown album")
	}
}

func TestUnchangedFilterIsNoOp(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(2), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)
	fetches := src.FetchCalls()

	if err := svc.SetDateFilter(ctx, library.DateFilterAll); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetMediaFilter(ctx, library.MediaFilterAll); err != nil {
		t.Fatal(err)
	}
	svc.SetIncludeVideos(ctx, false)
	svc.SetRandomize(ctx, false)

	if got := src.FetchCalls(); got != fetches {
		t.Errorf("fetch calls = %d, want %d (unchanged filters must not reload)", got, fetches)
	}
}

func TestChangedFilterReloads(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(2), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)
	fetches := src.FetchCalls()

	if err := svc.SetDateFilter(ctx, library.DateFilterLastWeek); err != nil {
		t.Fatal(err)
	}

	if got := src.FetchCalls(); got != fetches+1 {
		t.Errorf("fetch calls = %d, want %d", got, fetches+1)
	}
	if got := svc.Snapshot().DateFilter; got != library.DateFilterLastWeek {
		t.Errorf("date filter = %q, want last7days", got)
	}
}

func TestInvalidFilterRejected(t *testing.T) {
	svc, _, _ := newTestService(t, makeItems(1), quietConfig())
	ctx := context.Background()

	if err := svc.SetDateFilter(ctx, library.DateFilter("yesterday")); err == nil {
		t.Error("expected error for unknown date filter")
	}
	if err := svc.SetMediaFilter(ctx, library.MediaTypeFilter("audio")); err == nil {
		t.Error("expected error for unknown media filter")
	}
}

func TestRefreshAlbumsInjectsAllEntry(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(2), quietConfig())
	ctx := context.Background()
	src.SetAlbums([]library.Album{{ID: "trips", Title: "Trips", ItemCount: 7}})

	svc.Bootstrap(ctx)

	snap := svc.Snapshot()
	if len(snap.Albums) != 2 {
		t.Fatalf("albums = %d, want 2", len(snap.Albums))
	}
	if snap.Albums[0].ID != library.AllAlbumID {
		t.Errorf("first album = %q, want the synthetic all entry", snap.Albums[0].ID)
	}
}

func TestSelectedAlbumFallsBackWhenGone(t *testing.T) {
	svc, src, _ := newTestService(t, makeItems(2), quietConfig())
	ctx := context.Background()
	src.SetAlbums([]library.Album{{ID: "trips", Title: "Trips"}})
	svc.Bootstrap(ctx)

	if err := svc.SelectAlbum(ctx, "trips"); err != nil {
		t.Fatal(err)
	}
	src.SetAlbums(nil)
	svc.RefreshAlbums(ctx)

	if got := svc.Snapshot().SelectedAlbum.ID; got != library.AllAlbumID {
		t.Errorf("selected album = %q, want fallback to all", got)
	}
}

func TestResetStatsKeepsPendingBadge(t *testing.T) {
	svc, _, _ := newTestService(t, makeItems(4), quietConfig())
	ctx := context.Background()
	svc.Bootstrap(ctx)
	svc.DeleteCurrent(ctx)
	svc.DeleteCurrent(ctx)

	svc.ResetStats()

	snap := svc.Snapshot()
	if snap.Stats.Processed() != 0 {
		t.Errorf("stats = %+v, want zero", snap.Stats)
	}
	if snap.PendingCount != 2 {
		t.Errorf("pending count = %d, want 2 (batch is untouched)", snap.PendingCount)
	}
}
