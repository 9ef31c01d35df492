// Package booking holds the purchase flow state machine: search, trip
// choice per leg, seat and passenger entry, and the handoff to checkout.
// It performs no I/O; callers load a Session, apply one operation and
// persist the result.
package booking

import (
	"fmt"
	"time"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

type Stage string

const (
	StageSearchForm     Stage = "search_form"
	StageSelectingTrip  Stage = "selecting_trip"
	StageSelectingSeats Stage = "selecting_seats"
	StageCheckout       Stage = "checkout"
)

type Event string

const (
	EventSearch     Event = "search"
	EventLoadTrips  Event = "load_trips"
	EventSelectTrip Event = "select_trip"
	EventEditSeats  Event = "edit_seats"
	EventConfirm    Event = "confirm"
	EventBack       Event = "back"
)

// allowedEvents lists the events each stage accepts.
var allowedEvents = map[Stage][]Event{
	StageSearchForm:     {EventSearch},
	StageSelectingTrip:  {EventSearch, EventLoadTrips, EventSelectTrip, EventBack},
	StageSelectingSeats: {EventSearch, EventEditSeats, EventConfirm, EventBack},
	StageCheckout:       {EventSearch},
}

// CanApply reports whether ev is accepted in stage.
func CanApply(stage Stage, ev Event) bool {
	for _, allowed := range allowedEvents[stage] {
		if allowed == ev {
			return true
		}
	}
	return false
}

// ResumePayment is the resume target stored when checkout waits for login.
const ResumePayment = "payment"

// Session is the whole purchase flow of one browser tab.
type Session struct {
	ID    string     `json:"id"`
	Stage Stage      `json:"stage"`
	Leg   models.Leg `json:"leg,omitempty"`

	Outbound *models.SearchCriteria `json:"outbound,omitempty"`
	Return   *models.SearchCriteria `json:"return,omitempty"`

	Trips     []models.TripOption `json:"trips"`
	TripsLeg  models.Leg          `json:"trips_leg,omitempty"`
	LookupSeq int64               `json:"lookup_seq"`

	Selections map[models.Leg]*models.LegSelection `json:"selections"`
	SeatMaps   map[models.Leg]models.SeatMap       `json:"seat_maps"`

	// OutboundSnapshot and MaxSelectable are taken when the outbound leg is
	// confirmed and a return leg is still due. MaxSelectable 0 means unbounded.
	OutboundSnapshot []models.PassengerInfo `json:"outbound_snapshot,omitempty"`
	MaxSelectable    int                    `json:"max_selectable"`

	Pending      []models.LegSelection `json:"pending,omitempty"`
	ResumeTarget string                `json:"resume_target,omitempty"`

	Bookings []models.Booking `json:"bookings"`
	Identity *models.Identity `json:"identity,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession starts a flow at the search form.
func NewSession(id string) *Session {
	return &Session{
		ID:         id,
		Stage:      StageSearchForm,
		Trips:      []models.TripOption{},
		Selections: map[models.Leg]*models.LegSelection{},
		SeatMaps:   map[models.Leg]models.SeatMap{},
		Bookings:   []models.Booking{},
	}
}

// Normalize repairs nil collections after decoding.
func (s *Session) Normalize() {
	if s.Stage == "" {
		s.Stage = StageSearchForm
	}
	if s.Trips == nil {
		s.Trips = []models.TripOption{}
	}
	if s.Selections == nil {
		s.Selections = map[models.Leg]*models.LegSelection{}
	}
	if s.SeatMaps == nil {
		s.SeatMaps = map[models.Leg]models.SeatMap{}
	}
	if s.Bookings == nil {
		s.Bookings = []models.Booking{}
	}
	for _, sel := range s.Selections {
		if sel.Passengers == nil {
			sel.Passengers = map[int]models.PassengerInfo{}
		}
		if sel.Seats == nil {
			sel.Seats = []int{}
		}
	}
}

// Criteria returns the search criteria for leg, or nil when that leg is not part of the trip.
func (s *Session) Criteria(leg models.Leg) *models.SearchCriteria {
	if leg == models.LegReturn {
		return s.Return
	}
	return s.Outbound
}

// Selection returns the in-progress selection for leg.
func (s *Session) Selection(leg models.Leg) *models.LegSelection {
	return s.Selections[leg]
}

func (s *Session) guard(ev Event) error {
	if CanApply(s.Stage, ev) {
		return nil
	}
	return domain.ConflictError{
		Resource: "sessão",
		Msg:      fmt.Sprintf("%s não permitido na etapa %s", ev, s.Stage),
		Err:      domain.ErrInvalidTransition,
	}
}

func (s *Session) current() (*models.LegSelection, error) {
	sel := s.Selections[s.Leg]
	if sel == nil {
		return nil, domain.ConflictError{Resource: "sessão", Msg: "nenhuma viagem escolhida", Err: domain.ErrInvalidTransition}
	}
	return sel, nil
}

// Back steps one stage back. Only the current leg's in-progress selection
// is discarded; committed bookings are never touched.
func (s *Session) Back() error {
	if err := s.guard(EventBack); err != nil {
		return err
	}

	switch s.Stage {
	case StageSelectingSeats:
		delete(s.Selections, s.Leg)
		delete(s.SeatMaps, s.Leg)
		s.Stage = StageSelectingTrip
	case StageSelectingTrip:
		if s.Leg == models.LegReturn {
			delete(s.Selections, models.LegReturn)
			delete(s.SeatMaps, models.LegReturn)
			s.OutboundSnapshot = nil
			s.MaxSelectable = 0
			if out := s.Selections[models.LegOutbound]; out != nil {
				out.Confirmed = false
			}
			s.Leg = models.LegOutbound
			s.Stage = StageSelectingSeats
		} else {
			s.Stage = StageSearchForm
			s.Leg = ""
		}
		s.Trips = []models.TripOption{}
		s.TripsLeg = ""
		s.LookupSeq++
	}
	return nil
}
