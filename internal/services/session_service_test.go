package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"passagens/internal/booking"
	"passagens/internal/domain"
	"passagens/internal/domain/models"
	"passagens/internal/mocks"
)

type sessionFixture struct {
	svc      SessionService
	sessions *mocks.SessionStore
	locks    *mocks.LockStore
	trips    *mocks.TripLookup
	bookings *mocks.BookingStore
}

func newSessionFixture() *sessionFixture {
	f := &sessionFixture{
		sessions: mocks.NewSessionStore(),
		locks:    mocks.NewLockStore(),
		trips: &mocks.TripLookup{
			Trips: []models.TripOption{
				{ID: "T1", OriginName: "Ouro Branco", DestinationName: "Mariana", Date: "2026-11-02", DepartureTime: "08:00", Fare: 50},
				{ID: "T2", OriginName: "Ouro Branco", DestinationName: "Mariana", Date: "2026-11-02", DepartureTime: "14:00", Fare: 40},
			},
			Seats: models.SeatMap{Capacity: 10, Occupied: []int{3}},
		},
		bookings: mocks.NewBookingStore(),
	}
	seq := 0
	f.svc = SessionService{
		Sessions: f.sessions,
		Locks:    f.locks,
		Directory: booking.NewDirectory([]models.Locality{
			{ID: 1, Name: "Ouro Branco"},
			{ID: 2, Name: "Mariana"},
		}),
		Trips: f.trips,
		Bookings: BookingService{
			Bookings: f.bookings,
			Now:      func() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) },
			NewID: func() string {
				seq++
				return fmt.Sprintf("B%d", seq)
			},
		},
	}
	return f
}

func (f *sessionFixture) reachSeats(t *testing.T, id, returnDate string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.Search(ctx, id, booking.SearchInput{Origin: "ouro branco", Destination: "Mariana", Date: "2026-11-02", ReturnDate: returnDate}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if _, err := f.svc.LoadTrips(ctx, id); err != nil {
		t.Fatalf("LoadTrips returned error: %v", err)
	}
	if _, err := f.svc.SelectTrip(ctx, id, "T1"); err != nil {
		t.Fatalf("SelectTrip returned error: %v", err)
	}
}

func (f *sessionFixture) pickSeat(t *testing.T, id string, seat int, name string) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.svc.ToggleSeat(ctx, id, seat); err != nil {
		t.Fatalf("ToggleSeat(%d) returned error: %v", seat, err)
	}
	if name == "" {
		return
	}
	if _, err := f.svc.EditPassenger(ctx, id, 0, booking.FieldName, name); err != nil {
		t.Fatalf("EditPassenger returned error: %v", err)
	}
}

func TestGetUnknownSessionStartsAtSearchForm(t *testing.T) {
	f := newSessionFixture()
	sess, err := f.svc.Get(context.Background(), "s-new")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if sess.Stage != booking.StageSearchForm || sess.ID != "s-new" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if f.sessions.SaveCallCount != 0 {
		t.Fatalf("Get must not persist, saves=%d", f.sessions.SaveCallCount)
	}
}

func TestConfirmWithIdentityCreatesBookings(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.reachSeats(t, "s1", "")
	f.pickSeat(t, "s1", 1, "Ana")
	f.pickSeat(t, "s1", 2, "Bruno")

	res, err := f.svc.Confirm(ctx, "s1", &models.Identity{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if res.Next != NextProceedToPayment {
		t.Fatalf("expected %s, got %s", NextProceedToPayment, res.Next)
	}
	if len(res.Bookings) != 1 || res.Bookings[0].Price != 100 || res.Bookings[0].Paid {
		t.Fatalf("unexpected bookings: %+v", res.Bookings)
	}
	if _, err := f.bookings.GetByID(ctx, res.Bookings[0].ID); err != nil {
		t.Fatalf("booking not persisted: %v", err)
	}

	stored, _ := f.svc.Get(ctx, "s1")
	if len(stored.Bookings) != 1 || stored.Identity == nil || stored.Identity.Email != "ana@example.com" {
		t.Fatalf("session not updated: %+v", stored)
	}
	if len(stored.Selections) != 0 {
		t.Fatalf("selections should be cleared after checkout")
	}
}

func TestGetReflectsBookingsSettledOutsideTheSession(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.reachSeats(t, "s1", "")
	f.pickSeat(t, "s1", 1, "Ana")

	res, err := f.svc.Confirm(ctx, "s1", &models.Identity{Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if _, err := f.bookings.MarkPaid(ctx, []string{res.Bookings[0].ID}); err != nil {
		t.Fatalf("MarkPaid returned error: %v", err)
	}

	sess, err := f.svc.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if len(sess.Bookings) != 1 || !sess.Bookings[0].Paid {
		t.Fatalf("session booking should read as paid: %+v", sess.Bookings)
	}
}

func TestConfirmWithoutIdentityDefersUntilAuthenticate(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.reachSeats(t, "s1", "")
	f.pickSeat(t, "s1", 5, "Carla")

	res, err := f.svc.Confirm(ctx, "s1", nil)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if res.Next != NextLoginRequired || len(res.Bookings) != 0 {
		t.Fatalf("expected login_required without bookings, got %+v", res)
	}
	if len(res.Session.Pending) != 1 || res.Session.ResumeTarget != booking.ResumePayment {
		t.Fatalf("legs should be parked, got %+v", res.Session)
	}

	auth, err := f.svc.Authenticate(ctx, "s1", models.Identity{Email: "carla@example.com", Name: "Carla"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if auth.Next != NextProceedToPayment || len(auth.Bookings) != 1 {
		t.Fatalf("expected resumed checkout, got %+v", auth)
	}
	if auth.Bookings[0].PayerEmail != "carla@example.com" || auth.Bookings[0].Price != 50 {
		t.Fatalf("unexpected booking: %+v", auth.Bookings[0])
	}
	if len(auth.Session.Pending) != 0 {
		t.Fatalf("stash should be consumed")
	}
}

func TestAuthenticateWithoutStashOnlyBindsIdentity(t *testing.T) {
	f := newSessionFixture()
	res, err := f.svc.Authenticate(context.Background(), "s1", models.Identity{Email: "x@example.com"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if res.Next != "" || res.Session.Identity == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestConfirmKeepsSelectionsWhenBookingStoreFails(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.reachSeats(t, "s1", "")
	f.pickSeat(t, "s1", 1, "Ana")
	f.bookings.CreateError = errors.New("db down")

	if _, err := f.svc.Confirm(ctx, "s1", &models.Identity{Email: "ana@example.com"}); err == nil {
		t.Fatalf("expected error")
	}
	stored, _ := f.svc.Get(ctx, "s1")
	if stored.Stage != booking.StageSelectingSeats {
		t.Fatalf("expected selecting_seats, got %s", stored.Stage)
	}
	sel := stored.Selection(models.LegOutbound)
	if sel == nil || len(sel.Seats) != 1 || sel.Confirmed {
		t.Fatalf("selection lost: %+v", sel)
	}
}

func TestRoundTripConfirmMovesToReturnList(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	f.reachSeats(t, "s1", "2026-11-05")
	f.pickSeat(t, "s1", 1, "Ana")
	f.pickSeat(t, "s1", 2, "Bruno")

	res, err := f.svc.Confirm(ctx, "s1", nil)
	if err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if res.Next != string(booking.NextReturnTrip) {
		t.Fatalf("expected select_return, got %s", res.Next)
	}
	if res.Session.Leg != models.LegReturn || res.Session.MaxSelectable != 2 {
		t.Fatalf("unexpected session: leg=%s max=%d", res.Session.Leg, res.Session.MaxSelectable)
	}

	if _, err := f.svc.LoadTrips(ctx, "s1"); err != nil {
		t.Fatalf("LoadTrips returned error: %v", err)
	}
	if _, err := f.svc.SelectTrip(ctx, "s1", "T2"); err != nil {
		t.Fatalf("SelectTrip returned error: %v", err)
	}
	sess, err := f.svc.ToggleSeat(ctx, "s1", 7)
	if err != nil {
		t.Fatalf("ToggleSeat returned error: %v", err)
	}
	if got := sess.Selection(models.LegReturn).Passengers[7].Name; got != "Ana" {
		t.Fatalf("expected prefilled Ana, got %q", got)
	}
}

func TestLoadTripsDiscardsStaleResult(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	if _, err := f.svc.Search(ctx, "s1", booking.SearchInput{Origin: "Ouro Branco", Destination: "Mariana", Date: "2026-11-02"}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	f.trips.During = func() {
		if _, err := f.svc.Back(ctx, "s1"); err != nil {
			t.Errorf("Back during lookup returned error: %v", err)
		}
	}

	sess, err := f.svc.LoadTrips(ctx, "s1")
	if err != nil {
		t.Fatalf("LoadTrips returned error: %v", err)
	}
	if sess.Stage != booking.StageSearchForm {
		t.Fatalf("expected search_form, got %s", sess.Stage)
	}
	if len(sess.Trips) != 0 {
		t.Fatalf("stale trips applied: %+v", sess.Trips)
	}
}

func TestLoadTripsFailureLeavesSession(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	if _, err := f.svc.Search(ctx, "s1", booking.SearchInput{Origin: "Ouro Branco", Destination: "Mariana", Date: "2026-11-02"}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	f.trips.Err = domain.UpstreamError{Service: "reserva", Err: domain.ErrLookupFailure}

	_, err := f.svc.LoadTrips(ctx, "s1")
	if !errors.Is(err, domain.ErrLookupFailure) {
		t.Fatalf("expected lookup failure, got %v", err)
	}
	stored, _ := f.svc.Get(ctx, "s1")
	if stored.Stage != booking.StageSelectingTrip || stored.Leg != models.LegOutbound {
		t.Fatalf("session changed: %+v", stored)
	}
}

func TestLoadTripsUsesCache(t *testing.T) {
	f := newSessionFixture()
	f.svc.TripCache = mocks.NewTripCache()
	ctx := context.Background()
	if _, err := f.svc.Search(ctx, "s1", booking.SearchInput{Origin: "Ouro Branco", Destination: "Mariana", Date: "2026-11-02"}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	for i := 0; i < 2; i++ {
		sess, err := f.svc.LoadTrips(ctx, "s1")
		if err != nil {
			t.Fatalf("LoadTrips returned error: %v", err)
		}
		if len(sess.Trips) != 2 {
			t.Fatalf("expected 2 trips, got %d", len(sess.Trips))
		}
	}
	if f.trips.SearchCallCount != 1 {
		t.Fatalf("expected one upstream search, got %d", f.trips.SearchCallCount)
	}
}

func TestInvalidSearchIsNotPersisted(t *testing.T) {
	f := newSessionFixture()
	_, err := f.svc.Search(context.Background(), "s1", booking.SearchInput{Origin: "Atlantis", Destination: "Mariana", Date: "2026-11-02"})
	if !errors.Is(err, domain.ErrInvalidLocation) {
		t.Fatalf("expected invalid location, got %v", err)
	}
	if f.sessions.SaveCallCount != 0 {
		t.Fatalf("failed operation must not persist")
	}
}

func TestBusySessionIsRejected(t *testing.T) {
	f := newSessionFixture()
	f.locks.AlwaysBusy = true
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	_, err := f.svc.ToggleSeat(ctx, "s1", 1)
	if !errors.Is(err, domain.ErrSessionBusy) {
		t.Fatalf("expected session busy, got %v", err)
	}
	if !domain.IsConflict(err) {
		t.Fatalf("expected conflict error, got %T", err)
	}
}

func TestLockIsReleasedAfterFailure(t *testing.T) {
	f := newSessionFixture()
	ctx := context.Background()
	if _, err := f.svc.ToggleSeat(ctx, "s1", 1); err == nil {
		t.Fatalf("expected invalid transition")
	}
	if f.locks.Held("s1") {
		t.Fatalf("lock still held")
	}
}
