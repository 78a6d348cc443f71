package showtime

import (
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/pkg/utils"
)

const clockLayout = "15:04:05"

// FilterFuture keeps the shows whose day+time, read in the venue timezone,
// has not yet passed. All venues are assumed to share the single configured
// zone; multi-zone venues are a known limitation of the feed.
//
// A show with a malformed time string degrades to a date-only comparison
// for that show alone. A show with an unparseable day is dropped. The
// function never fails as a whole; every per-show problem is reported
// through the diagnostics hook.
func FilterFuture(shows []entity.Show, now time.Time, venue *time.Location, diag utils.Diagnostics) []entity.Show {
	kept := make([]entity.Show, 0, len(shows))

	for _, show := range shows {
		day, err := ParseDay(show.Day)
		if err != nil {
			diag.Event("show_day_unparseable", map[string]any{
				"showtime_pid": show.ShowtimePID,
				"day":          show.Day,
			})
			continue
		}

		start, err := combine(day, show.Time, venue)
		if err != nil {
			diag.Event("show_time_fallback", map[string]any{
				"showtime_pid": show.ShowtimePID,
				"time":         show.Time,
			})
			// Date-only fallback: keep the show as long as its
			// calendar date is not behind today's.
			if !dayBefore(day, now.In(venue)) {
				kept = append(kept, show)
			}
			continue
		}

		if !start.Before(now) {
			kept = append(kept, show)
		}
	}

	return kept
}

// combine builds the show's start instant in the venue timezone.
func combine(day time.Time, clock string, venue *time.Location) (time.Time, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, venue), nil
}

// dayBefore reports whether a's calendar date falls before b's.
func dayBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}
