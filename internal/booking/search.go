package booking

import (
	"sort"
	"strings"
	"time"

	"passagens/internal/domain"
	"passagens/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Directory is the immutable set of localities known at startup.
type Directory struct {
	all    []models.Locality
	byName map[string]models.Locality
}

func NewDirectory(list []models.Locality) *Directory {
	d := &Directory{
		all:    make([]models.Locality, 0, len(list)),
		byName: make(map[string]models.Locality, len(list)),
	}
	for _, l := range list {
		key := localityKey(l.Name)
		if key == "" {
			continue
		}
		if _, dup := d.byName[key]; dup {
			continue
		}
		d.byName[key] = l
		d.all = append(d.all, l)
	}
	sort.Slice(d.all, func(i, j int) bool { return d.all[i].Name < d.all[j].Name })
	return d
}

// Resolve matches name case-insensitively, ignoring surrounding whitespace.
func (d *Directory) Resolve(name string) (models.Locality, bool) {
	if d == nil {
		return models.Locality{}, false
	}
	l, ok := d.byName[localityKey(name)]
	return l, ok
}

func (d *Directory) All() []models.Locality {
	if d == nil {
		return nil
	}
	out := make([]models.Locality, len(d.all))
	copy(out, d.all)
	return out
}

func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.all)
}

func localityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SearchInput is the raw search form.
type SearchInput struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
	Date        string `json:"date"`
	ReturnDate  string `json:"return_date"`
}

// Search validates the form against the directory and starts a new flow at
// the outbound trip list. On any error the session is left untouched.
func (s *Session) Search(dir *Directory, in SearchInput) error {
	if err := s.guard(EventSearch); err != nil {
		return err
	}

	origin, ok := dir.Resolve(in.Origin)
	if !ok {
		return domain.ValidationError{Field: "origin", Err: domain.ErrInvalidLocation}
	}
	destination, ok := dir.Resolve(in.Destination)
	if !ok {
		return domain.ValidationError{Field: "destination", Err: domain.ErrInvalidLocation}
	}
	if origin.ID == destination.ID {
		return domain.ValidationError{Field: "destination", Msg: "destino deve ser diferente da origem"}
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(in.Date))
	if err != nil {
		return domain.ValidationError{Field: "date", Msg: "data deve estar no formato AAAA-MM-DD", Err: err}
	}

	var ret *models.SearchCriteria
	if raw := strings.TrimSpace(in.ReturnDate); raw != "" {
		returnDate, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.ValidationError{Field: "return_date", Msg: "data deve estar no formato AAAA-MM-DD", Err: err}
		}
		if returnDate.Before(date) {
			return domain.ValidationError{Field: "return_date", Msg: "volta não pode ser antes da ida"}
		}
		ret = &models.SearchCriteria{
			OriginID:        destination.ID,
			OriginName:      destination.Name,
			DestinationID:   origin.ID,
			DestinationName: origin.Name,
			Date:            returnDate.Format(dateLayout),
		}
	}

	s.Outbound = &models.SearchCriteria{
		OriginID:        origin.ID,
		OriginName:      origin.Name,
		DestinationID:   destination.ID,
		DestinationName: destination.Name,
		Date:            date.Format(dateLayout),
	}
	s.Return = ret

	s.Selections = map[models.Leg]*models.LegSelection{}
	s.SeatMaps = map[models.Leg]models.SeatMap{}
	s.OutboundSnapshot = nil
	s.MaxSelectable = 0
	s.Pending = nil
	s.ResumeTarget = ""
	s.Trips = []models.TripOption{}
	s.TripsLeg = ""
	s.LookupSeq++

	s.Leg = models.LegOutbound
	s.Stage = StageSelectingTrip
	return nil
}
