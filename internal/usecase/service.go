package usecase

import (
	"fmt"
	"time"

	"showtime-booking/internal/data/repository"
	"showtime-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Booking BookingService
}

func NewService(fetcher Fetcher, repo *repository.Repository, config *utils.Config, log *zap.Logger) (*Service, error) {
	venue, err := time.LoadLocation(config.Booking.VenueTimezone)
	if err != nil {
		return nil, fmt.Errorf("load venue timezone %s: %w", config.Booking.VenueTimezone, err)
	}

	diag := utils.NewDiagnostics(log)

	return &Service{
		Booking: NewBookingService(fetcher, repo.Preference, venue, diag, log),
	}, nil
}
