package domain

import "time"

type Flight struct {
	ID             string    `json:"flight_id"`
	FromCityID     string    `json:"from_city"`
	ToCityID       string    `json:"to_city"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	PriceCents     int64     `json:"price_cents"`
	TotalSeats     int       `json:"seats_total"`
	AvailableSeats int       `json:"seats_available"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DepartureBucket is the departure time truncated to the start of its clock
// hour. Two flights from the same city whose buckets are equal conflict,
// regardless of minutes.
func (f *Flight) DepartureBucket() time.Time {
	return f.DepartureTime.UTC().Truncate(time.Hour)
}

func (f *Flight) ArrivalBucket() time.Time {
	return f.ArrivalTime.UTC().Truncate(time.Hour)
}

// FlightPatch carries the fields an update may change. Nil means keep the
// current value.
type FlightPatch struct {
	FromCityID    *string
	ToCityID      *string
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	PriceCents    *int64
	TotalSeats    *int
}
