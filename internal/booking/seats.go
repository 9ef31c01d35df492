package booking

import (
	"fmt"
	"strings"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

// Passenger fields accepted by EditPassenger.
const (
	FieldName     = "name"
	FieldDocument = "document"
	FieldPhone    = "phone"
)

// ConfirmOutcome tells the caller where Confirm moved the flow.
type ConfirmOutcome string

const (
	NextReturnTrip ConfirmOutcome = "select_return"
	NextCheckout   ConfirmOutcome = "checkout"
)

// ToggleSeat selects or deselects seat n on the current leg. Occupied seats
// are ignored.
func (s *Session) ToggleSeat(n int) error {
	if err := s.guard(EventEditSeats); err != nil {
		return err
	}
	sel, err := s.current()
	if err != nil {
		return err
	}
	seatMap := s.SeatMaps[s.Leg]
	if n < 1 || (seatMap.Capacity > 0 && n > seatMap.Capacity) {
		return domain.ValidationError{Field: "seat", Msg: fmt.Sprintf("poltrona %d não existe", n)}
	}

	if i := indexOf(sel.Seats, n); i >= 0 {
		sel.Seats = append(sel.Seats[:i], sel.Seats[i+1:]...)
		delete(sel.Passengers, n)
		return nil
	}

	if seatMap.IsOccupied(n) {
		return nil
	}

	if s.Leg == models.LegReturn && s.MaxSelectable > 0 && len(sel.Seats) >= s.MaxSelectable {
		return domain.ValidationError{
			Field: "seat",
			Msg:   fmt.Sprintf("selecione no máximo %d poltronas na volta", s.MaxSelectable),
			Err:   domain.ErrSelectionLimitExceeded,
		}
	}

	// the i-th return seat inherits the i-th outbound passenger
	var p models.PassengerInfo
	if pos := len(sel.Seats); s.Leg == models.LegReturn && pos < len(s.OutboundSnapshot) {
		p = s.OutboundSnapshot[pos]
	}
	sel.Seats = append(sel.Seats, n)
	sel.Passengers[n] = p
	return nil
}

// FocusedSeat is the most recently selected seat of the current leg.
func (s *Session) FocusedSeat() (int, bool) {
	sel := s.Selections[s.Leg]
	if sel == nil || len(sel.Seats) == 0 {
		return 0, false
	}
	return sel.Seats[len(sel.Seats)-1], true
}

// EditPassenger sets one field of the focused seat's passenger. seat may be
// 0 to address the focused seat implicitly.
func (s *Session) EditPassenger(seat int, field, value string) error {
	if err := s.guard(EventEditSeats); err != nil {
		return err
	}
	sel, err := s.current()
	if err != nil {
		return err
	}
	focused, ok := s.FocusedSeat()
	if !ok {
		return domain.ValidationError{Field: "seat", Err: domain.ErrNoSeatsSelected}
	}
	if seat != 0 && seat != focused {
		return domain.ValidationError{Field: "seat", Msg: fmt.Sprintf("apenas a poltrona %d pode ser editada agora", focused)}
	}

	p := sel.Passengers[focused]
	switch strings.ToLower(strings.TrimSpace(field)) {
	case FieldName:
		p.Name = value
	case FieldDocument:
		p.Document = value
	case FieldPhone:
		p.Phone = value
	default:
		return domain.ValidationError{Field: "field", Msg: fmt.Sprintf("campo %q desconhecido", field)}
	}
	sel.Passengers[focused] = p
	return nil
}

// Confirm closes the current leg. An outbound leg with a return still due
// moves to the return trip list; otherwise the flow reaches checkout.
func (s *Session) Confirm() (ConfirmOutcome, error) {
	if err := s.guard(EventConfirm); err != nil {
		return "", err
	}
	sel, err := s.current()
	if err != nil {
		return "", err
	}

	if s.Leg == models.LegReturn && len(sel.Seats) != s.MaxSelectable {
		return "", domain.ValidationError{
			Field: "seats",
			Msg:   fmt.Sprintf("selecione exatamente %d poltronas na volta", s.MaxSelectable),
			Err:   domain.ErrSeatCountMismatch,
		}
	}
	if len(sel.Seats) == 0 {
		return "", domain.ValidationError{Field: "seats", Err: domain.ErrNoSeatsSelected}
	}
	for _, n := range sel.Seats {
		if strings.TrimSpace(sel.Passengers[n].Name) == "" {
			return "", domain.ValidationError{
				Field: fmt.Sprintf("passengers[%d].name", n),
				Err:   domain.ErrMissingPassengerName,
			}
		}
	}

	sel.Confirmed = true

	if s.Leg == models.LegOutbound && s.Return != nil {
		s.OutboundSnapshot = sel.OrderedPassengers()
		s.MaxSelectable = len(sel.Seats)
		delete(s.Selections, models.LegReturn)
		delete(s.SeatMaps, models.LegReturn)
		s.Leg = models.LegReturn
		s.Stage = StageSelectingTrip
		s.Trips = []models.TripOption{}
		s.TripsLeg = ""
		s.LookupSeq++
		return NextReturnTrip, nil
	}

	s.Stage = StageCheckout
	return NextCheckout, nil
}

func indexOf(seats []int, n int) int {
	for i, v := range seats {
		if v == n {
			return i
		}
	}
	return -1
}
