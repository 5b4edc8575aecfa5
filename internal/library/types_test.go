package library

import (
	"testing"
	"time"
)

func TestDateFilterMatches(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	daysAgo := func(d int) *time.Time {
		ts := now.AddDate(0, 0, -d)
		return &ts
	}
	lastYear := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		filter   DateFilter
		creation *time.Time
		want     bool
	}{
		{"all matches anything", DateFilterAll, daysAgo(400), true},
		{"all matches nil date", DateFilterAll, nil, true},
		{"last7 recent", DateFilterLastWeek, daysAgo(3), true},
		{"last7 stale", DateFilterLastWeek, daysAgo(10), false},
		{"last7 nil date", DateFilterLastWeek, nil, false},
		{"last30 recent", DateFilterLastMonth, daysAgo(20), true},
		{"last30 stale", DateFilterLastMonth, daysAgo(40), false},
		{"thisYear same year", DateFilterThisYear, daysAgo(100), true},
		{"thisYear previous year", DateFilterThisYear, &lastYear, false},
		{"older previous year", DateFilterOlder, &lastYear, true},
		{"older same year", DateFilterOlder, daysAgo(10), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(tc.creation, now); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDateFilterValid(t *testing.T) {
	for _, f := range DateFilters() {
		if !f.Valid() {
			t.Errorf("%q should be valid", f)
		}
	}
	if DateFilter("lastCentury").Valid() {
		t.Error("unknown filter should be invalid")
	}
}

func TestMediaTypeFilterAllows(t *testing.T) {
	cases := []struct {
		name          string
		filter        MediaTypeFilter
		mt            MediaType
		includeVideos bool
		want          bool
	}{
		{"all allows photos", MediaFilterAll, MediaTypePhoto, false, true},
		{"all hides videos by default", MediaFilterAll, MediaTypeVideo, false, false},
		{"all shows videos when enabled", MediaFilterAll, MediaTypeVideo, true, true},
		{"photos only", MediaFilterPhotos, MediaTypePhoto, true, true},
		{"photos excludes videos", MediaFilterPhotos, MediaTypeVideo, true, false},
		{"videos only", MediaFilterVideos, MediaTypeVideo, false, true},
		{"videos excludes photos", MediaFilterVideos, MediaTypePhoto, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Allows(tc.mt, tc.includeVideos); got != tc.want {
				t.Errorf("Allows = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAuthStatusIsAuthorized(t *testing.T) {
	if !AuthAuthorized.IsAuthorized() || !AuthLimited.IsAuthorized() {
		t.Error("authorized and limited both permit reviewing")
	}
	if AuthDenied.IsAuthorized() || AuthNotDetermined.IsAuthorized() {
		t.Error("denied and undetermined must not permit reviewing")
	}
}
