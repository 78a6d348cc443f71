// Package showtime holds the pure feed-shaping logic: grouping raw show
// records into per-date buckets and filtering out screenings that have
// already started. Nothing in here performs I/O.
package showtime

import (
	"sort"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/utils"
)

// dayLayouts are the accepted formats for a show's day field. The feed
// mostly sends plain dates but occasionally a full timestamp; only the
// calendar date part matters.
var dayLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
}

const keyLayout = "20060102"

// ParseDay extracts the calendar date from a show's day field, discarding
// any time-of-day component.
func ParseDay(day string) (time.Time, error) {
	var lastErr error
	for _, layout := range dayLayouts {
		t, err := time.Parse(layout, day)
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// DateKey formats a parsed day as the compact yyyyMMdd bucket key. Keys
// compare correctly as plain strings.
func DateKey(t time.Time) string {
	return t.Format(keyLayout)
}

// Group buckets shows by calendar date and sorts every bucket ascending by
// start time. The zero-padded HH:MM:SS format makes plain string comparison
// a valid time ordering. A show whose day cannot be parsed is dropped and
// reported; it must never land under an invalid key.
func Group(shows []entity.Show, diag utils.Diagnostics) entity.ProcessedShows {
	processed := make(entity.ProcessedShows)

	for _, show := range shows {
		day, err := ParseDay(show.Day)
		if err != nil {
			diag.Event("show_day_unparseable", map[string]any{
				"showtime_pid": show.ShowtimePID,
				"day":          show.Day,
			})
			continue
		}

		key := DateKey(day)
		processed[key] = append(processed[key], show)
	}

	for _, bucket := range processed {
		sort.SliceStable(bucket, func(i, j int) bool {
			return bucket[i].Time < bucket[j].Time
		})
	}

	return processed
}

// SortedKeys returns the bucket keys in ascending date order.
func SortedKeys(processed entity.ProcessedShows) []string {
	keys := make([]string, 0, len(processed))
	for key := range processed {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
