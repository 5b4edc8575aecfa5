package triage

import "github.com/swipeclean/swipeclean/internal/library"

// assetQueue is the FIFO working set of not-yet-reviewed items.
// All methods assume the service mutex is held.
type assetQueue struct {
	items []library.MediaItem
}

func (q *assetQueue) len() int {
	return len(q.items)
}

// replace swaps the whole queue contents.
func (q *assetQueue) replace(items []library.MediaItem) {
	q.items = items
}

// popFront removes and returns the head of the queue.
func (q *assetQueue) popFront() (library.MediaItem, bool) {
	if len(q.items) == 0 {
		return library.MediaItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// peekFront returns the head without removing it.
func (q *assetQueue) peekFront() *library.MediaItem {
	if len(q.items) == 0 {
		return nil
	}
	item := q.items[0]
	return &item
}

// pushBack appends a skipped item to the tail.
func (q *assetQueue) pushBack(item library.MediaItem) {
	q.items = append(q.items, item)
}

// pushFront prepends items in their given order, used to re-present a
// failed delete batch before everything else.
func (q *assetQueue) pushFront(items []library.MediaItem) {
	if len(items) == 0 {
		return
	}
	merged := make([]library.MediaItem, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	merged = append(merged, q.items...)
	q.items = merged
}

// contains reports id membership, for invariant checks in tests.
func (q *assetQueue) contains(id string) bool {
	for _, item := range q.items {
		if item.ID == id {
			return true
		}
	}
	return false
}
