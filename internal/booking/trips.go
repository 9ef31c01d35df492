package booking

import (
	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

// Lookup identifies one trip query issued for a leg. A result is only
// applied while its Seq is still the session's latest.
type Lookup struct {
	Leg      models.Leg
	Seq      int64
	Criteria models.SearchCriteria
}

// BeginLookup registers a new trip query for the current leg.
func (s *Session) BeginLookup() (Lookup, error) {
	if err := s.guard(EventLoadTrips); err != nil {
		return Lookup{}, err
	}
	crit := s.Criteria(s.Leg)
	if crit == nil {
		return Lookup{}, domain.ConflictError{Resource: "sessão", Msg: "nenhuma busca para este trecho", Err: domain.ErrInvalidTransition}
	}
	s.LookupSeq++
	return Lookup{Leg: s.Leg, Seq: s.LookupSeq, Criteria: *crit}, nil
}

// ApplyTrips stores the result of l if it is still current. Late results of
// superseded lookups are dropped and false is returned.
func (s *Session) ApplyTrips(l Lookup, trips []models.TripOption) bool {
	if s.Stage != StageSelectingTrip || s.Leg != l.Leg || s.LookupSeq != l.Seq {
		return false
	}
	if trips == nil {
		trips = []models.TripOption{}
	}
	s.Trips = trips
	s.TripsLeg = l.Leg
	return true
}

// FindTrip looks tripID up in the list currently shown for the active leg.
func (s *Session) FindTrip(tripID string) (models.TripOption, error) {
	if err := s.guard(EventSelectTrip); err != nil {
		return models.TripOption{}, err
	}
	if s.TripsLeg == s.Leg {
		for _, t := range s.Trips {
			if t.ID == tripID {
				return t, nil
			}
		}
	}
	return models.TripOption{}, domain.NotFoundError{Resource: "viagem"}
}

// SelectTrip opens seat selection for tripID, replacing any previous
// choice for the same leg.
func (s *Session) SelectTrip(tripID string, seats models.SeatMap) error {
	trip, err := s.FindTrip(tripID)
	if err != nil {
		return err
	}
	s.Selections[s.Leg] = &models.LegSelection{
		Leg:        s.Leg,
		Schedule:   trip,
		Seats:      []int{},
		Passengers: map[int]models.PassengerInfo{},
	}
	if seats.TripID == "" {
		seats.TripID = trip.ID
	}
	s.SeatMaps[s.Leg] = seats
	s.Stage = StageSelectingSeats
	return nil
}
