package request

type OpenSessionRequest struct {
	MoviePID string `json:"movie_pid" validate:"required"`
	ClientID string `json:"client_id" validate:"required"`
}

type SelectCityRequest struct {
	City string `json:"city" validate:"required"`
}

type SelectDateRequest struct {
	// Date is the compact yyyyMMdd bucket key from the session's shows.
	Date string `json:"date" validate:"required,len=8,numeric"`
}

type SelectShowRequest struct {
	ShowtimePID int `json:"showtime_pid" validate:"required"`
}
