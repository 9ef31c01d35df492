package booking

import (
	"math"
	"time"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

// Price is the amount charged for a leg: fare times seat count, in reais
// rounded to the cent.
func Price(fare float64, seats int) float64 {
	return math.Round(fare*float64(seats)*100) / 100
}

// CommittedLegs returns the confirmed selections of every leg the search
// asked for, outbound first.
func (s *Session) CommittedLegs() ([]models.LegSelection, error) {
	if s.Stage != StageCheckout {
		return nil, domain.ConflictError{Resource: "sessão", Msg: "checkout ainda não disponível", Err: domain.ErrInvalidTransition}
	}
	legs := []models.Leg{models.LegOutbound}
	if s.Return != nil {
		legs = append(legs, models.LegReturn)
	}

	out := make([]models.LegSelection, 0, len(legs))
	for _, leg := range legs {
		sel := s.Selections[leg]
		if sel == nil || !sel.Confirmed {
			return nil, domain.ConflictError{Resource: "sessão", Msg: "trecho " + string(leg) + " não confirmado", Err: domain.ErrInvalidTransition}
		}
		out = append(out, cloneSelection(*sel))
	}
	return out, nil
}

// Stash parks confirmed legs until the traveller identifies. The in-progress
// selections are cleared so the legs cannot be checked out twice.
func (s *Session) Stash(legs []models.LegSelection, target string) {
	s.Pending = legs
	s.ResumeTarget = target
	s.clearSelections()
}

// TakeStash returns and clears the parked legs.
func (s *Session) TakeStash() ([]models.LegSelection, string) {
	legs, target := s.Pending, s.ResumeTarget
	s.Pending = nil
	s.ResumeTarget = ""
	return legs, target
}

// AddBookings appends committed bookings and clears the selections they came from.
func (s *Session) AddBookings(bookings []models.Booking) {
	s.Bookings = append(s.Bookings, bookings...)
	s.clearSelections()
}

// MarkPaid flips the listed bookings to paid.
func (s *Session) MarkPaid(ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for i := range s.Bookings {
		if want[s.Bookings[i].ID] {
			s.Bookings[i].MarkPaid()
		}
	}
}

func (s *Session) clearSelections() {
	s.Selections = map[models.Leg]*models.LegSelection{}
	s.SeatMaps = map[models.Leg]models.SeatMap{}
	s.OutboundSnapshot = nil
	s.MaxSelectable = 0
}

// BuildBookings converts confirmed legs into unpaid bookings.
func BuildBookings(legs []models.LegSelection, payerEmail string, now time.Time, newID func() string) []models.Booking {
	out := make([]models.Booking, 0, len(legs))
	for _, leg := range legs {
		sel := cloneSelection(leg)
		out = append(out, models.Booking{
			ID:         newID(),
			Leg:        sel.Leg,
			Schedule:   sel.Schedule,
			Seats:      sel.Seats,
			Passengers: sel.Passengers,
			Price:      Price(sel.Schedule.Fare, len(sel.Seats)),
			Date:       now,
			Paid:       false,
			PayerEmail: payerEmail,
		})
	}
	return out
}

func cloneSelection(sel models.LegSelection) models.LegSelection {
	seats := make([]int, len(sel.Seats))
	copy(seats, sel.Seats)
	passengers := make(map[int]models.PassengerInfo, len(sel.Passengers))
	for k, v := range sel.Passengers {
		passengers[k] = v
	}
	sel.Seats = seats
	sel.Passengers = passengers
	return sel
}
