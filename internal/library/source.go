package library

import (
	"context"
	"errors"
	"fmt"
)

// ErrUserCancelled is returned by Delete when the user dismissed the
// store's delete confirmation. Callers treat it as a soft failure.
var ErrUserCancelled = errors.New("deletion cancelled by user")

// DeleteError is a hard delete failure with a user-presentable message.
type DeleteError struct {
	Message string
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete failed: %s", e.Message)
}

// Source is the media store adapter the triage engine consumes.
//
// Fetch returns items newest-creation-date-first unless
// opts.Randomize is set, in which case the result order is shuffled.
// Delete is all-or-nothing for the given set: either every item is
// removed from the store or none is, reported as a single outcome.
// Deleting an empty set succeeds immediately without side effects.
type Source interface {
	Fetch(ctx context.Context, opts FetchOptions) ([]MediaItem, error)
	Delete(ctx context.Context, items []MediaItem) error
	Albums(ctx context.Context) ([]Album, error)
	AuthorizationStatus(ctx context.Context) AuthStatus
	RequestAuthorization(ctx context.Context) AuthStatus
}
