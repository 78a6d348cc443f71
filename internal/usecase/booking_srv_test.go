package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/feed"
	"showtime-booking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeFetcher serves canned feed data per city. A gated city blocks inside
// FetchShows until its gate channel is closed, which lets tests interleave
// overlapping fetches deterministically.
type fakeFetcher struct {
	mu        sync.Mutex
	cities    []string
	citiesErr error
	shows     map[string][]entity.Show
	showsErr  error
	gate      map[string]chan struct{}
	started   chan string
	showCalls int
}

func (f *fakeFetcher) FetchCities(_ context.Context, moviePID string) ([]string, error) {
	if moviePID == "" {
		return nil, feed.ErrMissingMovieID
	}
	if f.citiesErr != nil {
		return nil, f.citiesErr
	}
	return append([]string(nil), f.cities...), nil
}

func (f *fakeFetcher) FetchShows(_ context.Context, moviePID, city string) ([]entity.Show, error) {
	f.mu.Lock()
	f.showCalls++
	gate := f.gate[city]
	err := f.showsErr
	shows := append([]entity.Show(nil), f.shows[city]...)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- city
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return shows, nil
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.showCalls
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fetcherShow(pid int, city, day, clock string) entity.Show {
	return entity.Show{
		ShowtimePID: pid,
		MoviePID:    "314",
		MovieName:   "Example",
		Day:         day,
		Time:        clock,
		City:        city,
		Cinema:      "Cinema City",
		DeepLink:    "https://tickets.example/" + day,
	}
}

func newTestBooking(f *fakeFetcher, prefs repository.PreferenceRepository) *bookingService {
	if prefs == nil {
		prefs = repository.NewMemoryPreferenceRepository()
	}
	svc := NewBookingService(f, prefs, time.UTC, utils.NopDiagnostics{}, zap.NewNop()).(*bookingService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func defaultFetcher() *fakeFetcher {
	return &fakeFetcher{
		cities: []string{"Haifa", "Tel Aviv"},
		shows: map[string][]entity.Show{
			"Tel Aviv": {
				fetcherShow(1, "Tel Aviv", "2026-03-12", "18:00:00"),
				fetcherShow(2, "Tel Aviv", "2026-03-11", "21:00:00"),
				fetcherShow(3, "Tel Aviv", "2026-03-11", "14:30:00"),
			},
			"Haifa": {
				fetcherShow(9, "Haifa", "2026-03-13", "20:00:00"),
			},
		},
	}
}

func TestOpen_RequiresMovieID(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)

	_, err := svc.Open(context.Background(), "client-1", "")

	assert.ErrorIs(t, err, feed.ErrMissingMovieID)
}

func TestOpen_StartsInCitySelection(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)

	session, err := svc.Open(context.Background(), "client-1", "314")

	require.NoError(t, err)
	assert.Equal(t, entity.StateCitySelection, session.State)
	assert.Equal(t, []string{"Haifa", "Tel Aviv"}, session.AvailableCities)
	assert.Empty(t, session.SelectedCity)
	assert.Empty(t, session.Error)
}

func TestOpen_CityFetchFailureIsSurfacedNotFatal(t *testing.T) {
	f := defaultFetcher()
	f.citiesErr = &feed.FetchError{Op: "cities", StatusCode: 503, Message: "feed down"}
	svc := newTestBooking(f, nil)

	session, err := svc.Open(context.Background(), "client-1", "314")

	require.NoError(t, err)
	assert.Equal(t, entity.StateCitySelection, session.State)
	assert.Contains(t, session.Error, "feed down")
	assert.Empty(t, session.AvailableCities)
}

func TestSelectCity_LoadsShowsAndAutoSelectsEarliestDate(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)
	ctx := context.Background()

	opened, err := svc.Open(ctx, "client-1", "314")
	require.NoError(t, err)

	session, err := svc.SelectCity(ctx, opened.ID.String(), "Tel Aviv")
	require.NoError(t, err)

	assert.Equal(t, entity.StateDateSelection, session.State)
	assert.Equal(t, "Tel Aviv", session.SelectedCity)
	assert.Equal(t, "20260311", session.SelectedDate)
	assert.Empty(t, session.Error)

	bucket := session.Processed["20260311"]
	require.Len(t, bucket, 2)
	assert.Equal(t, "14:30:00", bucket[0].Time)
	assert.Equal(t, "21:00:00", bucket[1].Time)
}

func TestSelectCity_FiltersElapsedShows(t *testing.T) {
	f := defaultFetcher()
	f.shows["Tel Aviv"] = append(f.shows["Tel Aviv"],
		fetcherShow(4, "Tel Aviv", "2026-03-10", "09:00:00"), // earlier today
		fetcherShow(5, "Tel Aviv", "2026-03-09", "20:00:00"),
	)
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	session, err := svc.SelectCity(ctx, opened.ID.String(), "Tel Aviv")
	require.NoError(t, err)

	_, hasToday := session.Processed["20260310"]
	assert.False(t, hasToday)
	_, hasYesterday := session.Processed["20260309"]
	assert.False(t, hasYesterday)
}

func TestSelectCity_EmptyFeedReportsNoUpcomingShows(t *testing.T) {
	f := defaultFetcher()
	f.shows["Tel Aviv"] = nil
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	session, err := svc.SelectCity(ctx, opened.ID.String(), "Tel Aviv")
	require.NoError(t, err)

	assert.Equal(t, NoUpcomingShowsMessage, session.Error)
	assert.Empty(t, session.Processed)
	assert.Empty(t, session.SelectedDate)
}

func TestSelectCity_PersistsPreference(t *testing.T) {
	prefs := repository.NewMemoryPreferenceRepository()
	svc := newTestBooking(defaultFetcher(), prefs)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	_, err := svc.SelectCity(ctx, opened.ID.String(), "Tel Aviv")
	require.NoError(t, err)

	stored, err := prefs.Get(ctx, "client-1", repository.PreferenceKeySelectedCity)
	require.NoError(t, err)
	assert.Equal(t, "Tel Aviv", stored)
}

func TestPreference_RoundTripAcrossSessions(t *testing.T) {
	prefs := repository.NewMemoryPreferenceRepository()
	svc := newTestBooking(defaultFetcher(), prefs)
	ctx := context.Background()

	first, _ := svc.Open(ctx, "client-1", "314")
	_, err := svc.SelectCity(ctx, first.ID.String(), "Tel Aviv")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx, first.ID.String()))

	// Reopening skips city selection because the preference survived.
	second, err := svc.Open(ctx, "client-1", "314")
	require.NoError(t, err)
	assert.Equal(t, "Tel Aviv", second.SelectedCity)
	assert.Equal(t, entity.StateDateSelection, second.State)
	assert.Equal(t, "20260311", second.SelectedDate)
}

func TestPreference_IgnoredWhenCityNoLongerOffered(t *testing.T) {
	prefs := repository.NewMemoryPreferenceRepository()
	require.NoError(t, prefs.Set(context.Background(), "client-1", repository.PreferenceKeySelectedCity, "Eilat"))
	svc := newTestBooking(defaultFetcher(), prefs)

	session, err := svc.Open(context.Background(), "client-1", "314")

	require.NoError(t, err)
	assert.Equal(t, entity.StateCitySelection, session.State)
	assert.Empty(t, session.SelectedCity)
}

func TestStaleResponse_NeverOverwritesNewerCity(t *testing.T) {
	f := defaultFetcher()
	gate := make(chan struct{})
	f.gate = map[string]chan struct{}{"Haifa": gate}
	f.started = make(chan string, 4)
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.SelectCity(ctx, id, "Haifa")
	}()
	require.Equal(t, "Haifa", <-f.started)

	// The user changes their mind while the Haifa fetch hangs.
	session, err := svc.SelectCity(ctx, id, "Tel Aviv")
	require.NoError(t, err)
	require.Equal(t, "Tel Aviv", <-f.started)
	require.Equal(t, "Tel Aviv", session.SelectedCity)

	// Release the stale fetch; its result must be dropped.
	close(gate)
	<-done

	final, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tel Aviv", final.SelectedCity)
	assert.Equal(t, "20260311", final.SelectedDate)
	_, haifaLeaked := final.Processed["20260313"]
	assert.False(t, haifaLeaked, "stale Haifa result overwrote Tel Aviv state")
}

func TestSelectDate_MovesToTimeSelection(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")

	session, err := svc.SelectDate(ctx, id, "20260312")
	require.NoError(t, err)
	assert.Equal(t, entity.StateTimeSelection, session.State)
	assert.Equal(t, "20260312", session.SelectedDate)
	assert.Nil(t, session.SelectedShow)

	_, err = svc.SelectDate(ctx, id, "20991231")
	assert.ErrorIs(t, err, ErrUnknownDate)
}

func TestSelectShow_ValidatesMembership(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")
	svc.SelectDate(ctx, id, "20260311")

	// pid 1 plays on the 12th, not the selected 11th
	_, err := svc.SelectShow(ctx, id, 1)
	assert.ErrorIs(t, err, ErrUnknownShow)

	session, err := svc.SelectShow(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, entity.StateConfirming, session.State)
	require.NotNil(t, session.SelectedShow)
	assert.Equal(t, 3, session.SelectedShow.ShowtimePID)
}

func TestConfirm_ActivatesHandoff(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()

	// Confirming before a show is chosen is rejected.
	_, err := svc.Confirm(ctx, id)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	svc.SelectCity(ctx, id, "Tel Aviv")
	svc.SelectDate(ctx, id, "20260311")
	svc.SelectShow(ctx, id, 3)

	session, err := svc.Confirm(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StateHandoffActive, session.State)
	require.NotNil(t, session.SelectedShow)
	assert.NotEmpty(t, session.SelectedShow.DeepLink)
}

func TestRefresh_KeepsSelectionsWhenShowSurvives(t *testing.T) {
	f := defaultFetcher()
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")
	svc.SelectDate(ctx, id, "20260311")
	svc.SelectShow(ctx, id, 3)

	session, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "20260311", session.SelectedDate)
	require.NotNil(t, session.SelectedShow)
	assert.Equal(t, 3, session.SelectedShow.ShowtimePID)
}

func TestRefresh_ResetsShowThatVanished(t *testing.T) {
	f := defaultFetcher()
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")
	svc.SelectDate(ctx, id, "20260311")
	svc.SelectShow(ctx, id, 3)

	// The 14:30 screening disappears from the feed.
	f.mu.Lock()
	f.shows["Tel Aviv"] = []entity.Show{
		fetcherShow(1, "Tel Aviv", "2026-03-12", "18:00:00"),
		fetcherShow(2, "Tel Aviv", "2026-03-11", "21:00:00"),
	}
	f.mu.Unlock()

	session, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, session.SelectedShow)
	assert.Equal(t, entity.StateTimeSelection, session.State)
	assert.Equal(t, "20260311", session.SelectedDate)
}

func TestRefresh_FetchErrorLeavesShowsIntact(t *testing.T) {
	f := defaultFetcher()
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")

	f.mu.Lock()
	f.showsErr = &feed.FetchError{Op: "shows", StatusCode: 502, Message: "gateway"}
	f.mu.Unlock()

	session, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, session.Error, "gateway")
	assert.Len(t, session.Processed, 2, "prior shows must survive a failed refresh")
	assert.Equal(t, "20260311", session.SelectedDate)
}

func TestRefresh_EmptyFeedStepsBackToDateSelection(t *testing.T) {
	f := defaultFetcher()
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")
	svc.SelectDate(ctx, id, "20260311")
	svc.SelectShow(ctx, id, 3)

	// Every screening drops off the feed while the user is confirming.
	f.mu.Lock()
	f.shows["Tel Aviv"] = nil
	f.mu.Unlock()

	session, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StateDateSelection, session.State)
	assert.Equal(t, NoUpcomingShowsMessage, session.Error)
	assert.Empty(t, session.SelectedDate)
	assert.Nil(t, session.SelectedShow)

	// The stale confirmation cannot be completed.
	_, err = svc.Confirm(ctx, id)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRefresh_InFlightGateBlocksDuplicates(t *testing.T) {
	f := defaultFetcher()
	gate := make(chan struct{})
	f.started = make(chan string, 8)
	svc := newTestBooking(f, nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()
	svc.SelectCity(ctx, id, "Tel Aviv")
	<-f.started
	callsAfterSelect := f.calls()

	f.mu.Lock()
	f.gate = map[string]chan struct{}{"Tel Aviv": gate}
	f.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Refresh(ctx, id)
	}()
	<-f.started

	// A second refresh while the first hangs must not hit the feed.
	_, err := svc.Refresh(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, callsAfterSelect+1, f.calls())

	close(gate)
	<-done
}

func TestClose_DiscardsSession(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")
	id := opened.ID.String()

	require.NoError(t, svc.Close(ctx, id))

	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Close(ctx, id), ErrSessionNotFound)
}

func TestPurgeExpired_DropsIdleSessions(t *testing.T) {
	svc := newTestBooking(defaultFetcher(), nil)
	ctx := context.Background()

	opened, _ := svc.Open(ctx, "client-1", "314")

	// Nothing younger than the TTL goes away.
	assert.Zero(t, svc.PurgeExpired(time.Hour))

	svc.now = func() time.Time { return testNow.Add(2 * time.Hour) }
	assert.Equal(t, 1, svc.PurgeExpired(time.Hour))

	_, err := svc.Get(ctx, opened.ID.String())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
