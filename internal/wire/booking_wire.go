package wire

import (
	"showtime-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler) {
	r.Route("/api/booking/sessions", func(r chi.Router) {
		// POST /api/booking/sessions - open a booking dialog for a movie
		r.Post("/", bookingHandler.OpenSession)

		r.Route("/{id}", func(r chi.Router) {
			// GET - current session snapshot
			r.Get("/", bookingHandler.GetSession)

			// Selection steps
			r.Post("/city", bookingHandler.SelectCity)
			r.Post("/date", bookingHandler.SelectDate)
			r.Post("/show", bookingHandler.SelectShow)

			// Handoff to the external booking flow
			r.Post("/confirm", bookingHandler.ConfirmSession)

			// Re-fetch the feed for the current city
			r.Post("/refresh", bookingHandler.RefreshSession)

			// DELETE - close the dialog (city preference persists)
			r.Delete("/", bookingHandler.CloseSession)
		})
	})
}
