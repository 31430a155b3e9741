package domain

import "time"

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "active"
	TicketStatusCancelled TicketStatus = "cancelled"
	TicketStatusCompleted TicketStatus = "completed"
)

type Passenger struct {
	Name    string `json:"passenger_name"`
	Surname string `json:"passenger_surname"`
	Email   string `json:"passenger_email"`
}

type Ticket struct {
	ID          string       `json:"ticket_id"`
	FlightID    string       `json:"flight_id"`
	HolderID    string       `json:"holder_id"`
	Passenger   Passenger    `json:"passenger"`
	SeatNumber  int          `json:"seat_number"`
	Status      TicketStatus `json:"status"`
	BookingDate time.Time    `json:"booking_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (t *Ticket) Active() bool {
	return t.Status == TicketStatusActive
}
