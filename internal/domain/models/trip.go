package models

// Leg tags which direction of the journey a selection or booking belongs to.
type Leg string

const (
	LegOutbound Leg = "outbound"
	LegReturn   Leg = "return"
)

func (l Leg) Valid() bool {
	return l == LegOutbound || l == LegReturn
}

// Locality is a place a trip can start or end at.
type Locality struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// SearchCriteria is the resolved query for one leg.
type SearchCriteria struct {
	OriginID        int    `json:"origin_id"`
	OriginName      string `json:"origin_name"`
	DestinationID   int    `json:"destination_id"`
	DestinationName string `json:"destination_name"`
	Date            string `json:"date"`
}

// TripOption is one scheduled departure returned by the reservation system.
type TripOption struct {
	ID              string  `json:"id"`
	OriginName      string  `json:"origin_name"`
	DestinationName string  `json:"destination_name"`
	LineName        string  `json:"line_name"`
	Date            string  `json:"date"`
	DepartureTime   string  `json:"departure_time"`
	ArrivalTime     string  `json:"arrival_time"`
	Fare            float64 `json:"fare"`
	VehicleTypeID   int     `json:"vehicle_type_id"`
}

// SeatMap is the seat layout of a trip as seen at selection time.
type SeatMap struct {
	TripID   string `json:"trip_id"`
	Capacity int    `json:"capacity"`
	Occupied []int  `json:"occupied"`
}

func (m SeatMap) IsOccupied(seat int) bool {
	for _, n := range m.Occupied {
		if n == seat {
			return true
		}
	}
	return false
}
