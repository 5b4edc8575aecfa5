// Package library defines the media source contract consumed by the
// triage engine: items, albums, filters and the adapter interface.
package library

import (
	"fmt"
	"time"
)

// MediaType identifies the kind of a media item.
type MediaType string

const (
	MediaTypePhoto MediaType = "photo"
	MediaTypeVideo MediaType = "video"
)

// MediaItem is one photo or video in the external library. The engine
// treats it as a read-only value and keys all bookkeeping on ID.
type MediaItem struct {
	ID           string     `json:"id"`
	Path         string     `json:"path,omitempty"`
	MediaType    MediaType  `json:"mediaType"`
	CreationDate *time.Time `json:"creationDate,omitempty"`
}

// Album is a collection scope inside the media store.
type Album struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ItemCount int    `json:"itemCount"`
}

// AllAlbumID identifies the synthetic "everything" album that carries
// no collection scope.
const AllAlbumID = "all"

// AllAlbum returns the synthetic unscoped album entry.
func AllAlbum(itemCount int) Album {
	return Album{ID: AllAlbumID, Title: "All items", ItemCount: itemCount}
}

// DateFilter restricts fetches to a creation-date window.
type DateFilter string

const (
	DateFilterAll       DateFilter = "all"
	DateFilterLastWeek  DateFilter = "last7days"
	DateFilterLastMonth DateFilter = "last30days"
	DateFilterThisYear  DateFilter = "thisYear"
	DateFilterOlder     DateFilter = "older"
)

// DateFilters lists all selectable date filters in display order.
func DateFilters() []DateFilter {
	return []DateFilter{DateFilterAll, DateFilterLastWeek, DateFilterLastMonth, DateFilterThisYear, DateFilterOlder}
}

// Valid reports whether f is a known date filter.
func (f DateFilter) Valid() bool {
	switch f {
	case DateFilterAll, DateFilterLastWeek, DateFilterLastMonth, DateFilterThisYear, DateFilterOlder:
		return true
	}
	return false
}

// Title returns the display label for the filter.
func (f DateFilter) Title() string {
	switch f {
	case DateFilterLastWeek:
		return "Last 7 days"
	case DateFilterLastMonth:
		return "Last 30 days"
	case DateFilterThisYear:
		return "This year"
	case DateFilterOlder:
		return "Older"
	default:
		return "All time"
	}
}

// Subtitle returns the secondary display hint, empty for "all".
func (f DateFilter) Subtitle() string {
	year := time.Now().Year()
	switch f {
	case DateFilterLastWeek:
		return "The past week"
	case DateFilterLastMonth:
		return "The past month"
	case DateFilterThisYear:
		return fmt.Sprintf("Throughout %d", year)
	case DateFilterOlder:
		return fmt.Sprintf("%d and earlier", year-1)
	default:
		return ""
	}
}

// Bounds returns the creation-date window [lower, upper) the filter
// selects relative to now. A nil bound is unbounded.
func (f DateFilter) Bounds(now time.Time) (lower, upper *time.Time) {
	switch f {
	case DateFilterLastWeek:
		t := now.AddDate(0, 0, -7)
		return &t, nil
	case DateFilterLastMonth:
		t := now.AddDate(0, 0, -30)
		return &t, nil
	case DateFilterThisYear:
		t := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return &t, nil
	case DateFilterOlder:
		t := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return nil, &t
	default:
		return nil, nil
	}
}

// Matches reports whether a creation date falls inside the filter
// window. Items without a creation date only match the unbounded filter.
func (f DateFilter) Matches(creation *time.Time, now time.Time) bool {
	lower, upper := f.Bounds(now)
	if lower == nil && upper == nil {
		return true
	}
	if creation == nil {
		return false
	}
	if lower != nil && creation.Before(*lower) {
		return false
	}
	if upper != nil && !creation.Before(*upper) {
		return false
	}
	return true
}

// MediaTypeFilter restricts fetches to photos, videos or both.
type MediaTypeFilter string

const (
	MediaFilterAll    MediaTypeFilter = "all"
	MediaFilterPhotos MediaTypeFilter = "photos"
	MediaFilterVideos MediaTypeFilter = "videos"
)

// MediaTypeFilters lists all selectable media filters in display order.
func MediaTypeFilters() []MediaTypeFilter {
	return []MediaTypeFilter{MediaFilterAll, MediaFilterPhotos, MediaFilterVideos}
}

// Valid reports whether f is a known media filter.
func (f MediaTypeFilter) Valid() bool {
	switch f {
	case MediaFilterAll, MediaFilterPhotos, MediaFilterVideos:
		return true
	}
	return false
}

// Title returns the display label for the filter.
func (f MediaTypeFilter) Title() string {
	switch f {
	case MediaFilterPhotos:
		return "Photos only"
	case MediaFilterVideos:
		return "Videos only"
	default:
		return "Everything"
	}
}

// Subtitle returns the secondary display hint.
func (f MediaTypeFilter) Subtitle() string {
	switch f {
	case MediaFilterPhotos:
		return "Show only photos"
	case MediaFilterVideos:
		return "Show only videos"
	default:
		return "Photos and videos"
	}
}

// Allows reports whether the filter admits the given media type.
// IncludeVideos only matters for the unrestricted filter: without it,
// "everything" still means photos only, matching the default review flow.
func (f MediaTypeFilter) Allows(mt MediaType, includeVideos bool) bool {
	switch f {
	case MediaFilterPhotos:
		return mt == MediaTypePhoto
	case MediaFilterVideos:
		return mt == MediaTypeVideo
	default:
		if mt == MediaTypeVideo {
			return includeVideos
		}
		return true
	}
}

// FetchOptions describes one fetch against the media source.
type FetchOptions struct {
	AlbumID       string // empty or AllAlbumID means no collection scope
	Date          DateFilter
	Media         MediaTypeFilter
	IncludeVideos bool
	Randomize     bool
}

// AuthStatus is the media store authorization state.
type AuthStatus string

const (
	AuthNotDetermined AuthStatus = "notDetermined"
	AuthAuthorized    AuthStatus = "authorized"
	AuthLimited       AuthStatus = "limitedAccess"
	AuthDenied        AuthStatus = "denied"
)

// IsAuthorized reports whether the status grants library access.
// Limited access counts as authorized for the engine's purposes.
func (s AuthStatus) IsAuthorized() bool {
	return s == AuthAuthorized || s == AuthLimited
}
