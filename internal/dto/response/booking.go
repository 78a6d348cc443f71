package response

import (
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/showtime"
)

// SessionResponse is the snapshot of a booking session the presentation
// layer renders. Dates come pre-sorted; Shows keeps the per-date buckets in
// start-time order.
type SessionResponse struct {
	SessionID       string                   `json:"session_id"`
	State           entity.SessionState      `json:"state"`
	MoviePID        string                   `json:"movie_pid"`
	SelectedCity    string                   `json:"selected_city,omitempty"`
	SelectedDate    string                   `json:"selected_date,omitempty"`
	SelectedShow    *entity.Show             `json:"selected_show,omitempty"`
	AvailableCities []string                 `json:"available_cities"`
	Dates           []string                 `json:"dates"`
	Shows           map[string][]entity.Show `json:"shows"`
	DeepLink        string                   `json:"deep_link,omitempty"`
	Error           string                   `json:"error,omitempty"`
}

func SessionToResponse(session *entity.BookingSession) *SessionResponse {
	resp := &SessionResponse{
		SessionID:       session.ID.String(),
		State:           session.State,
		MoviePID:        session.MoviePID,
		SelectedCity:    session.SelectedCity,
		SelectedDate:    session.SelectedDate,
		SelectedShow:    session.SelectedShow,
		AvailableCities: session.AvailableCities,
		Dates:           showtime.SortedKeys(session.Processed),
		Shows:           session.Processed,
		Error:           session.Error,
	}

	// The deep link only leaves the server once the handoff is active.
	if session.State == entity.StateHandoffActive && session.SelectedShow != nil {
		resp.DeepLink = session.SelectedShow.DeepLink
	}

	return resp
}
