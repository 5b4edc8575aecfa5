package mock

import (
	"context"
	"testing"
	"time"

	"github.com/swipeclean/swipeclean/internal/library"
)

func TestFetchAppliesDateFilterRelativeToNow(t *testing.T) {
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return fixed }
	t.Cleanup(func() { nowFunc = time.Now })

	recent := fixed.Add(-48 * time.Hour)
	stale := fixed.Add(-20 * 24 * time.Hour)

	s := New()
	s.SetItems([]library.MediaItem{
		{ID: "recent", MediaType: library.MediaTypePhoto, CreationDate: &recent},
		{ID: "stale", MediaType: library.MediaTypePhoto, CreationDate: &stale},
	})

	items, err := s.Fetch(context.Background(), library.FetchOptions{
		Date:  library.DateFilterLastWeek,
		Media: library.MediaFilterAll,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].ID != "recent" {
		t.Fatalf("items = %+v, want just the recent one", items)
	}
}

func TestDeleteOutcomeQueueAndRemoval(t *testing.T) {
	s := New()
	created := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	item := library.MediaItem{ID: "x", MediaType: library.MediaTypePhoto, CreationDate: &created}
	s.SetItems([]library.MediaItem{item})

	s.QueueDeleteOutcome(&library.DeleteError{Message: "boom"})
	if err := s.Delete(context.Background(), []library.MediaItem{item}); err == nil {
		t.Fatal("queued failure should be returned")
	}

	// Failure must not remove the item.
	items, _ := s.Fetch(context.Background(), library.FetchOptions{Date: library.DateFilterAll, Media: library.MediaFilterAll})
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 after failed delete", len(items))
	}

	if err := s.Delete(context.Background(), []library.MediaItem{item}); err != nil {
		t.Fatal(err)
	}
	items, _ = s.Fetch(context.Background(), library.FetchOptions{Date: library.DateFilterAll, Media: library.MediaFilterAll})
	if len(items) != 0 {
		t.Fatalf("items = %d, want 0 after successful delete", len(items))
	}

	if got := len(s.DeleteCalls()); got != 2 {
		t.Errorf("delete calls = %d, want 2", got)
	}
}
