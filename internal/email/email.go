package email

import (
	"context"
	"log"

	"github.com/mkaraca/skyticket/internal/kafka"
)

// Sender delivers passenger notifications. The real delivery channel lives
// outside this service; this implementation just logs what would be sent.
type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.TicketEvent) error {
	log.Printf("send email to %s: %s for ticket %s (flight %s seat %d)", event.PassengerEmail, event.Type, event.TicketID, event.FlightID, event.SeatNumber)
	return nil
}
