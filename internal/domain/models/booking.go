package models

import "time"

// PassengerInfo is the traveller data attached to one seat.
type PassengerInfo struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Phone    string `json:"phone"`
}

// LegSelection is the in-progress choice for one leg.
type LegSelection struct {
	Leg        Leg                   `json:"leg"`
	Schedule   TripOption            `json:"schedule"`
	Seats      []int                 `json:"seats"`
	Passengers map[int]PassengerInfo `json:"passengers"`
	Confirmed  bool                  `json:"confirmed"`
}

// OrderedPassengers lists passengers in seat selection order.
func (s LegSelection) OrderedPassengers() []PassengerInfo {
	out := make([]PassengerInfo, 0, len(s.Seats))
	for _, n := range s.Seats {
		out = append(out, s.Passengers[n])
	}
	return out
}

// Booking is a committed, priced selection for one leg.
type Booking struct {
	ID         string                `json:"id"`
	Leg        Leg                   `json:"leg"`
	Schedule   TripOption            `json:"schedule"`
	Seats      []int                 `json:"seats"`
	Passengers map[int]PassengerInfo `json:"passengers"`
	Price      float64               `json:"price"`
	Date       time.Time             `json:"date"`
	Paid       bool                  `json:"paid"`
	PayerEmail string                `json:"payer_email"`
}

// MarkPaid flips the booking to paid. There is no way back.
func (b *Booking) MarkPaid() {
	b.Paid = true
}

// Identity is a verified traveller account.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
