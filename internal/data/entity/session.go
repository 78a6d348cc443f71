package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionState names the step the booking dialog is currently on.
type SessionState string

const (
	StateClosed        SessionState = "closed"
	StateCitySelection SessionState = "city_selection"
	StateDateSelection SessionState = "date_selection"
	StateTimeSelection SessionState = "time_selection"
	StateConfirming    SessionState = "confirming"
	StateHandoffActive SessionState = "handoff_active"
)

// BookingSession is the transient selection state for one open booking
// dialog. It lives in memory for the dialog's lifetime; only the client's
// city preference outlives it, via the preference store.
//
// Invariant: SelectedDate is either empty or a key of Processed, and
// SelectedShow is only non-nil when it belongs to Processed[SelectedDate].
type BookingSession struct {
	ID       uuid.UUID
	ClientID string
	MoviePID string

	State SessionState

	SelectedCity string
	SelectedDate string // yyyyMMdd key into Processed, empty when unset
	SelectedShow *Show

	AvailableCities []string
	Processed       ProcessedShows

	// Error carries the user-visible failure message for the last
	// operation, or the fixed no-upcoming-shows message. Empty when the
	// last fetch succeeded with results.
	Error string

	CreatedAt time.Time
	UpdatedAt time.Time
}
