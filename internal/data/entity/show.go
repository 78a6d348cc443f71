package entity

// Show is one scheduled screening as delivered by the external showtime feed.
// Venue fields are free text straight from the upstream; nothing here is
// normalized. ShowtimePID is only unique within a single fetch result and
// must be treated as an opaque per-session identifier, not a durable key.
type Show struct {
	ShowtimePID    int    `json:"showtime_pid"`
	MoviePID       string `json:"moviepid"`
	MovieName      string `json:"movie_name"`
	MovieEnglish   string `json:"movie_english"`
	Banner         string `json:"banner"`
	Genres         string `json:"genres"`
	Day            string `json:"day"`
	Time           string `json:"time"`
	Cinema         string `json:"cinema"`
	City           string `json:"city"`
	Chain          string `json:"chain"`
	AvailableSeats int    `json:"available_seats"`
	DeepLink       string `json:"deep_link"`
	IMDbID         string `json:"imdbid"`
}

// ProcessedShows maps a compact date key (yyyyMMdd) to that date's shows,
// sorted ascending by start time. Key order is undefined; consumers sort
// the keys themselves when iterating.
type ProcessedShows map[string][]Show
