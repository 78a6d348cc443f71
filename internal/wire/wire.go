package wire

import (
	"net/http"

	"showtime-booking/internal/adaptor"
	"showtime-booking/internal/usecase"
	"showtime-booking/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface.
type App struct {
	Router *chi.Mux
}

// Wiring connects services, handlers and the router.
func Wiring(service *usecase.Service, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, logger)

	return &App{
		Router: router,
	}
}

func setupRouter(handler *adaptor.Handler, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireBooking(r, handler.Booking)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
