// Package booking coordinates the book-seat and cancel-seat use cases across
// the schedule store and the seat ledger. It never writes ticket or flight
// state itself; every mutation goes through one of those two components.
package booking

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mkaraca/skyticket/internal/domain"
	"github.com/mkaraca/skyticket/internal/kafka"
	"github.com/mkaraca/skyticket/internal/repository"
)

type BookingUseCase interface {
	BookSeat(ctx context.Context, input BookSeatInput) (*domain.Ticket, error)
	CancelSeat(ctx context.Context, ticketID, requesterID string, requesterIsAdmin bool) error
	OccupiedSeats(ctx context.Context, flightID string) ([]int, error)
	TicketsByHolder(ctx context.Context, holderID string) ([]domain.Ticket, error)
	AllTickets(ctx context.Context) ([]domain.Ticket, error)
	CompleteArrivedTickets(ctx context.Context) ([]domain.Ticket, error)
}

// SeatLedger is the slice of the ledger the coordinator drives. Occupy and
// Release take the companion counter write as a commit callback and treat the
// pair as one atomic unit.
type SeatLedger interface {
	Occupy(ctx context.Context, ticket *domain.Ticket, commit func(context.Context) error) error
	Release(ctx context.Context, flightID, ticketID string, commit func(context.Context) error) error
	OccupiedSeats(ctx context.Context, flightID string) ([]int, error)
	CompleteArrived(ctx context.Context, deadline time.Time) ([]domain.Ticket, error)
}

type Schedule interface {
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	AdjustAvailability(ctx context.Context, id string, delta int) (int, error)
}

// Cache provides the cross-process advisory seat hold. It is optional and
// best-effort: the per-flight lock inside the ledger is what guarantees
// correctness, the redis hold just rejects obviously doomed requests early.
type Cache interface {
	AcquireSeatHold(ctx context.Context, flightID string, seatNumber int, ttl time.Duration) (bool, error)
	ReleaseSeatHold(ctx context.Context, flightID string, seatNumber int) error
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookSeatInput struct {
	FlightID   string           `json:"flight_id"`
	SeatNumber int              `json:"seat_number"`
	Passenger  domain.Passenger `json:"passenger"`
	HolderID   string           `json:"holder_id"`
}

type BookingService struct {
	ledger             SeatLedger
	schedule           Schedule
	tickets            repository.TicketRepository
	cache              Cache
	producer           Producer
	ticketTopic        string
	notificationsTopic string
	holdTTL            time.Duration
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	ledger SeatLedger,
	schedule Schedule,
	tickets repository.TicketRepository,
	cache Cache,
	producer Producer,
	ticketTopic string,
	holdTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		ledger:      ledger,
		schedule:    schedule,
		tickets:     tickets,
		cache:       cache,
		producer:    producer,
		ticketTopic: ticketTopic,
		holdTTL:     holdTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// BookSeat runs one booking attempt: load and validate, then claim the seat
// and decrement seats_available as a single unit. Every failure is a definite
// outcome; there are no internal retries.
func (s *BookingService) BookSeat(ctx context.Context, input BookSeatInput) (*domain.Ticket, error) {
	flight, err := s.schedule.GetFlight(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if input.SeatNumber < 1 || input.SeatNumber > flight.TotalSeats {
		return nil, domain.ErrInvalidSeat
	}
	if flight.AvailableSeats <= 0 {
		return nil, domain.ErrNoAvailability
	}

	held := false
	if s.cache != nil {
		ok, err := s.cache.AcquireSeatHold(ctx, input.FlightID, input.SeatNumber, s.holdTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrSeatTaken
		}
		held = true
	}

	ticket := &domain.Ticket{
		ID:          "TKT-" + uuid.NewString(),
		FlightID:    input.FlightID,
		HolderID:    input.HolderID,
		Passenger:   input.Passenger,
		SeatNumber:  input.SeatNumber,
		BookingDate: time.Now().UTC(),
	}

	err = s.ledger.Occupy(ctx, ticket, func(ctx context.Context) error {
		_, err := s.schedule.AdjustAvailability(ctx, input.FlightID, -1)
		return err
	})
	if held {
		_ = s.cache.ReleaseSeatHold(ctx, input.FlightID, input.SeatNumber)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateFlights(ctx)
	s.publish(ctx, "ticket_booked", ticket)
	return ticket, nil
}

// CancelSeat cancels the ticket and returns the seat to the pool. The
// requester must hold the ticket or be an admin.
func (s *BookingService) CancelSeat(ctx context.Context, ticketID, requesterID string, requesterIsAdmin bool) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.HolderID != requesterID && !requesterIsAdmin {
		return domain.ErrForbidden
	}
	if !ticket.Active() {
		return domain.ErrAlreadyCancelled
	}

	err = s.ledger.Release(ctx, ticket.FlightID, ticketID, func(ctx context.Context) error {
		_, err := s.schedule.AdjustAvailability(ctx, ticket.FlightID, +1)
		return err
	})
	if err != nil {
		return err
	}

	ticket.Status = domain.TicketStatusCancelled
	s.invalidateFlights(ctx)
	s.publish(ctx, "ticket_cancelled", ticket)
	return nil
}

// OccupiedSeats is the read-only projection for seat-map rendering.
func (s *BookingService) OccupiedSeats(ctx context.Context, flightID string) ([]int, error) {
	if _, err := s.schedule.GetFlight(ctx, flightID); err != nil {
		return nil, err
	}
	return s.ledger.OccupiedSeats(ctx, flightID)
}

func (s *BookingService) TicketsByHolder(ctx context.Context, holderID string) ([]domain.Ticket, error) {
	return s.tickets.ListByHolder(ctx, holderID)
}

func (s *BookingService) AllTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.ListAll(ctx)
}

// CompleteArrivedTickets runs the post-arrival sweep: active tickets on
// flights that have landed move to completed. Invoked periodically by the
// worker binary.
func (s *BookingService) CompleteArrivedTickets(ctx context.Context) ([]domain.Ticket, error) {
	completed, err := s.ledger.CompleteArrived(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	for i := range completed {
		s.publish(ctx, "ticket_completed", &completed[i])
	}
	return completed, nil
}

func (s *BookingService) invalidateFlights(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		log.Printf("invalidate flights cache: %v", err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, ticket *domain.Ticket) {
	if s.producer == nil || s.ticketTopic == "" {
		return
	}
	event := kafka.TicketEvent{
		Type:           eventType,
		TicketID:       ticket.ID,
		FlightID:       ticket.FlightID,
		SeatNumber:     ticket.SeatNumber,
		HolderID:       ticket.HolderID,
		PassengerEmail: ticket.Passenger.Email,
		Status:         string(ticket.Status),
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.ticketTopic, ticket.ID, event); err != nil {
		log.Printf("publish %s event for ticket %s: %v", eventType, ticket.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, ticket.ID, event); err != nil {
			log.Printf("publish %s notification for ticket %s: %v", eventType, ticket.ID, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
