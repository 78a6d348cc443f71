package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/feed"
	"showtime-booking/internal/showtime"
	"showtime-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NoUpcomingShowsMessage is the fixed error string set when the feed
// answered but every show has already elapsed. The UI special-cases it
// (show "check back later" instead of a retry button), so the wording must
// stay stable and distinguishable from transport failures.
const NoUpcomingShowsMessage = "No upcoming shows available"

var (
	ErrSessionNotFound   = errors.New("booking session not found")
	ErrInvalidTransition = errors.New("action not allowed in current session state")
	ErrUnknownDate       = errors.New("selected date has no shows")
	ErrUnknownShow       = errors.New("selected show is not part of the chosen date")
)

// Fetcher is the slice of the feed client the booking service needs.
type Fetcher interface {
	FetchCities(ctx context.Context, moviePID string) ([]string, error)
	FetchShows(ctx context.Context, moviePID, city string) ([]entity.Show, error)
}

type BookingService interface {
	Open(ctx context.Context, clientID, moviePID string) (*entity.BookingSession, error)
	Get(ctx context.Context, sessionID string) (*entity.BookingSession, error)
	SelectCity(ctx context.Context, sessionID, city string) (*entity.BookingSession, error)
	SelectDate(ctx context.Context, sessionID, dateKey string) (*entity.BookingSession, error)
	SelectShow(ctx context.Context, sessionID string, showtimePID int) (*entity.BookingSession, error)
	Confirm(ctx context.Context, sessionID string) (*entity.BookingSession, error)
	Refresh(ctx context.Context, sessionID string) (*entity.BookingSession, error)
	Close(ctx context.Context, sessionID string) error
	PurgeExpired(ttl time.Duration) int
}

// liveSession pairs a session record with its concurrency guards. epoch is
// bumped whenever the (movie, city) target changes; an in-flight fetch only
// applies its result while the epoch it was issued under is still current,
// so a response for a superseded city is dropped instead of overwriting the
// newer selection.
type liveSession struct {
	mu         sync.Mutex
	data       entity.BookingSession
	epoch      uint64
	refreshing bool
}

type bookingService struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*liveSession

	fetcher Fetcher
	prefs   repository.PreferenceRepository
	venue   *time.Location
	diag    utils.Diagnostics
	log     *zap.Logger
	now     func() time.Time
}

func NewBookingService(
	fetcher Fetcher,
	prefs repository.PreferenceRepository,
	venue *time.Location,
	diag utils.Diagnostics,
	log *zap.Logger,
) BookingService {
	return &bookingService{
		sessions: make(map[uuid.UUID]*liveSession),
		fetcher:  fetcher,
		prefs:    prefs,
		venue:    venue,
		diag:     diag,
		log:      log.With(zap.String("service", "booking")),
		now:      time.Now,
	}
}

// Open starts a booking session for a movie and fetches its cities. When the
// client's remembered city is still on offer, the dialog advances straight
// past city selection.
func (s *bookingService) Open(ctx context.Context, clientID, moviePID string) (*entity.BookingSession, error) {
	if moviePID == "" {
		return nil, feed.ErrMissingMovieID
	}

	now := s.now()
	ls := &liveSession{
		data: entity.BookingSession{
			ID:        uuid.New(),
			ClientID:  clientID,
			MoviePID:  moviePID,
			State:     entity.StateCitySelection,
			Processed: entity.ProcessedShows{},
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	cities, err := s.fetcher.FetchCities(ctx, moviePID)
	if err != nil {
		if errors.Is(err, feed.ErrMissingMovieID) {
			return nil, err
		}
		ls.data.Error = err.Error()
	} else {
		ls.data.AvailableCities = cities
	}

	s.mu.Lock()
	s.sessions[ls.data.ID] = ls
	s.mu.Unlock()

	s.log.Info("Booking session opened",
		zap.String("session_id", ls.data.ID.String()),
		zap.String("movie_pid", moviePID),
		zap.Int("cities", len(cities)),
	)

	if err == nil && clientID != "" {
		preferred, prefErr := s.prefs.Get(ctx, clientID, repository.PreferenceKeySelectedCity)
		if prefErr != nil {
			s.log.Warn("Failed to read city preference", zap.Error(prefErr))
		} else if preferred != "" && containsString(cities, preferred) {
			return s.SelectCity(ctx, ls.data.ID.String(), preferred)
		}
	}

	return snapshot(ls), nil
}

func (s *bookingService) Get(_ context.Context, sessionID string) (*entity.BookingSession, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return snapshot(ls), nil
}

// SelectCity persists the choice as the client's preference, clears any
// date/show selection and loads the shows for (movie, city).
func (s *bookingService) SelectCity(ctx context.Context, sessionID, city string) (*entity.BookingSession, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	if ls.data.State == entity.StateHandoffActive {
		ls.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	ls.data.SelectedCity = city
	ls.data.SelectedDate = ""
	ls.data.SelectedShow = nil
	ls.data.Error = ""
	ls.data.UpdatedAt = s.now()
	ls.epoch++
	epoch := ls.epoch
	moviePID := ls.data.MoviePID
	clientID := ls.data.ClientID
	ls.mu.Unlock()

	if clientID != "" {
		// Preference persistence is best effort; the session continues
		// even when the store is down.
		if err := s.prefs.Set(ctx, clientID, repository.PreferenceKeySelectedCity, city); err != nil {
			s.log.Warn("Failed to persist city preference",
				zap.Error(err),
				zap.String("city", city),
			)
		}
	}

	s.loadShows(ctx, ls, moviePID, city, epoch, true)

	return snapshot(ls), nil
}

// SelectDate narrows the dialog to one calendar date. The date must be a
// bucket of the current processed shows.
func (s *bookingService) SelectDate(_ context.Context, sessionID, dateKey string) (*entity.BookingSession, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	switch ls.data.State {
	case entity.StateDateSelection, entity.StateTimeSelection, entity.StateConfirming:
	default:
		return nil, ErrInvalidTransition
	}

	if _, ok := ls.data.Processed[dateKey]; !ok {
		return nil, ErrUnknownDate
	}

	ls.data.SelectedDate = dateKey
	ls.data.SelectedShow = nil
	ls.data.State = entity.StateTimeSelection
	ls.data.UpdatedAt = s.now()

	return snapshotLocked(ls), nil
}

// SelectShow picks a concrete screening. The show must belong to the bucket
// of the currently selected date.
func (s *bookingService) SelectShow(_ context.Context, sessionID string, showtimePID int) (*entity.BookingSession, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	switch ls.data.State {
	case entity.StateDateSelection, entity.StateTimeSelection, entity.StateConfirming:
	default:
		return nil, ErrInvalidTransition
	}

	if ls.data.SelectedDate == "" {
		return nil, ErrUnknownDate
	}

	show, ok := findShow(ls.data.Processed[ls.data.SelectedDate], showtimePID)
	if !ok {
		return nil, ErrUnknownShow
	}

	ls.data.SelectedShow = &show
	ls.data.State = entity.StateConfirming
	ls.data.UpdatedAt = s.now()

	return snapshotLocked(ls), nil
}

// Confirm hands the session over to the external booking flow. From here on
// the purchase happens entirely outside this system; the caller loads the
// selected show's deep link and we only record that the handoff happened.
func (s *bookingService) Confirm(_ context.Context, sessionID string) (*entity.BookingSession, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.data.State != entity.StateConfirming || ls.data.SelectedShow == nil {
		return nil, ErrInvalidTransition
	}

	ls.data.State = entity.StateHandoffActive
	ls.data.UpdatedAt = s.now()

	s.log.Info("Booking handoff",
		zap.String("session_id", ls.data.ID.String()),
		zap.Int("showtime_pid", ls.data.SelectedShow.ShowtimePID),
		zap.String("cinema", ls.data.SelectedShow.Cinema),
		zap.String("city", ls.data.SelectedCity),
	)

	return snapshotLocked(ls), nil
}

// Refresh re-runs fetch+normalize+filter for the current (movie, city).
// Selections survive unless the selected show vanished from the new feed. A
// refresh already in flight gates re-entry; the duplicate call is a no-op.
func (s *bookingService) Refresh(ctx context.Context, sessionID string) (*entity.BookingSession, error) {
	ls, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	switch ls.data.State {
	case entity.StateDateSelection, entity.StateTimeSelection, entity.StateConfirming:
	default:
		ls.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if ls.refreshing {
		defer ls.mu.Unlock()
		return snapshotLocked(ls), nil
	}
	ls.refreshing = true
	epoch := ls.epoch
	moviePID := ls.data.MoviePID
	city := ls.data.SelectedCity
	ls.mu.Unlock()

	s.loadShows(ctx, ls, moviePID, city, epoch, false)

	return snapshot(ls), nil
}

// Close discards the session. All transient selection state is gone; the
// persisted city preference survives for the next session.
func (s *bookingService) Close(_ context.Context, sessionID string) error {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	s.log.Info("Booking session closed", zap.String("session_id", sessionID))
	return nil
}

// PurgeExpired drops sessions that have seen no activity for ttl. Abandoned
// dialogs would otherwise accumulate for the life of the process.
func (s *bookingService) PurgeExpired(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, ls := range s.sessions {
		ls.mu.Lock()
		stale := ls.data.UpdatedAt.Before(cutoff)
		ls.mu.Unlock()
		if stale {
			delete(s.sessions, id)
			purged++
		}
	}

	if purged > 0 {
		s.log.Info("Purged expired booking sessions", zap.Int("count", purged))
	}
	return purged
}

// loadShows performs fetch+normalize+filter for (movie, city) and applies
// the outcome to the session, unless a newer city selection superseded this
// fetch in the meantime.
func (s *bookingService) loadShows(ctx context.Context, ls *liveSession, moviePID, city string, epoch uint64, fromCitySelect bool) {
	shows, err := s.fetcher.FetchShows(ctx, moviePID, city)

	var processed entity.ProcessedShows
	if err == nil {
		future := showtime.FilterFuture(shows, s.now(), s.venue, s.diag)
		processed = showtime.Group(future, s.diag)
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.refreshing = false

	if ls.epoch != epoch {
		s.diag.Event("stale_fetch_discarded", map[string]any{
			"movie_pid": moviePID,
			"city":      city,
		})
		return
	}

	ls.data.UpdatedAt = s.now()

	if err != nil {
		// Prior processedShows stay intact; the user can retry.
		ls.data.Error = err.Error()
		return
	}

	if len(processed) == 0 {
		ls.data.Error = NoUpcomingShowsMessage
		ls.data.Processed = entity.ProcessedShows{}
		ls.data.SelectedDate = ""
		ls.data.SelectedShow = nil
		// With nothing selectable the dialog cannot legitimately sit in
		// a later step; step back to date selection.
		ls.data.State = entity.StateDateSelection
		return
	}

	ls.data.Error = ""
	ls.data.Processed = processed

	if ls.data.SelectedDate != "" {
		if _, ok := processed[ls.data.SelectedDate]; !ok {
			ls.data.SelectedDate = ""
			ls.data.SelectedShow = nil
		}
	}
	if ls.data.SelectedShow != nil {
		if _, ok := findShow(processed[ls.data.SelectedDate], ls.data.SelectedShow.ShowtimePID); !ok {
			ls.data.SelectedShow = nil
			if ls.data.State == entity.StateConfirming {
				ls.data.State = entity.StateTimeSelection
			}
		}
	}

	// Auto-select the earliest remaining date when none is chosen.
	if ls.data.SelectedDate == "" {
		ls.data.SelectedDate = showtime.SortedKeys(processed)[0]
	}

	if fromCitySelect {
		ls.data.State = entity.StateDateSelection
	}
}

func (s *bookingService) session(sessionID string) (*liveSession, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	s.mu.RLock()
	ls, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// snapshot returns a copy of the session state safe to hand to the adaptor
// layer while the controller keeps mutating the original.
func snapshot(ls *liveSession) *entity.BookingSession {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return snapshotLocked(ls)
}

func snapshotLocked(ls *liveSession) *entity.BookingSession {
	copied := ls.data

	copied.AvailableCities = append([]string(nil), ls.data.AvailableCities...)

	copied.Processed = make(entity.ProcessedShows, len(ls.data.Processed))
	for key, bucket := range ls.data.Processed {
		copied.Processed[key] = bucket
	}

	if ls.data.SelectedShow != nil {
		show := *ls.data.SelectedShow
		copied.SelectedShow = &show
	}

	return &copied
}

func findShow(bucket []entity.Show, showtimePID int) (entity.Show, bool) {
	for _, show := range bucket {
		if show.ShowtimePID == showtimePID {
			return show, true
		}
	}
	return entity.Show{}, false
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
