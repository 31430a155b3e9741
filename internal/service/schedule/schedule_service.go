// Package schedule owns flight records: creation, edits and deletion, with
// the time-ordering and city-conflict invariants enforced before anything is
// persisted. Seat-count questions are always delegated to the seat ledger
// rather than answered from the flight row's cached counter.
package schedule

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/mkaraca/skyticket/internal/domain"
	"github.com/mkaraca/skyticket/internal/kafka"
	"github.com/mkaraca/skyticket/internal/locks"
	"github.com/mkaraca/skyticket/internal/repository"
)

type ScheduleUseCase interface {
	CreateFlight(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	UpdateFlight(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error)
	DeleteFlight(ctx context.Context, id string) (int, error)
	GetFlight(ctx context.Context, id string) (*domain.Flight, error)
	ListFlights(ctx context.Context) ([]domain.Flight, error)
	SearchFlights(ctx context.Context, fromCityID, toCityID string, date time.Time) ([]domain.Flight, error)
	AdjustAvailability(ctx context.Context, id string, delta int) (int, error)
}

// Ledger is the slice of the seat ledger the schedule store needs: the active
// ticket count for capacity checks and the cascading cancel for deletions.
type Ledger interface {
	ActiveCount(ctx context.Context, flightID string) (int, error)
	CancelAllActive(ctx context.Context, flightID string) ([]domain.Ticket, error)
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateFlightInput struct {
	FlightID      string    `json:"flight_id"`
	FromCityID    string    `json:"from_city"`
	ToCityID      string    `json:"to_city"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	PriceCents    int64     `json:"price_cents"`
	TotalSeats    int       `json:"seats_total"`
}

type ScheduleService struct {
	flights     repository.FlightRepository
	cities      repository.CityRepository
	ledger      Ledger
	cache       Cache
	producer    Producer
	ticketTopic string
	flightLocks *locks.KeyedMutex
	bucketLocks *locks.KeyedMutex
}

type ScheduleServiceOption func(*ScheduleService)

// WithProducer enables ticket_cancelled events for tickets cancelled by a
// flight deletion cascade.
func WithProducer(producer Producer, ticketTopic string) ScheduleServiceOption {
	return func(s *ScheduleService) {
		s.producer = producer
		s.ticketTopic = ticketTopic
	}
}

// NewScheduleService builds the store. flightLocks must be the same keyed
// mutex the seat ledger uses, so capacity edits and deletions serialize
// against bookings on the flight being changed.
func NewScheduleService(flights repository.FlightRepository, cities repository.CityRepository, ledger Ledger, cache Cache, flightLocks *locks.KeyedMutex, opts ...ScheduleServiceOption) *ScheduleService {
	service := &ScheduleService{
		flights:     flights,
		cities:      cities,
		ledger:      ledger,
		cache:       cache,
		flightLocks: flightLocks,
		bucketLocks: locks.NewKeyedMutex(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ScheduleService) CreateFlight(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	flight := &domain.Flight{
		ID:             input.FlightID,
		FromCityID:     input.FromCityID,
		ToCityID:       input.ToCityID,
		DepartureTime:  input.DepartureTime.UTC(),
		ArrivalTime:    input.ArrivalTime.UTC(),
		PriceCents:     input.PriceCents,
		TotalSeats:     input.TotalSeats,
		AvailableSeats: input.TotalSeats,
	}
	if flight.ID == "" {
		return nil, domain.ErrInvalidSchedule
	}
	if err := s.validate(ctx, flight); err != nil {
		return nil, err
	}

	// Holding both bucket locks closes the race where two creates for the
	// same hour window both pass the conflict query and both insert.
	keys := bucketKeys(flight)
	s.bucketLocks.LockAll(keys)
	defer s.bucketLocks.UnlockAll(keys)

	if err := s.checkConflicts(ctx, flight); err != nil {
		return nil, err
	}
	if err := s.flights.Insert(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return flight, nil
}

func (s *ScheduleService) UpdateFlight(ctx context.Context, id string, patch domain.FlightPatch) (*domain.Flight, error) {
	// The flight lock keeps the active-count read, the capacity decision and
	// the recomputed seats_available consistent against concurrent bookings.
	s.flightLocks.Lock(id)
	defer s.flightLocks.Unlock(id)

	flight, err := s.flights.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := *flight
	applyPatch(&merged, patch)
	if err := s.validate(ctx, &merged); err != nil {
		return nil, err
	}

	activeCount, err := s.ledger.ActiveCount(ctx, id)
	if err != nil {
		return nil, err
	}
	if merged.TotalSeats < activeCount {
		return nil, domain.ErrCapacityBelowDemand
	}
	// Recount from the ledger instead of carrying the old counter forward;
	// the cached value may have drifted and must not be trusted here.
	merged.AvailableSeats = merged.TotalSeats - activeCount

	keys := bucketKeys(&merged)
	s.bucketLocks.LockAll(keys)
	defer s.bucketLocks.UnlockAll(keys)

	if err := s.checkConflicts(ctx, &merged); err != nil {
		return nil, err
	}
	if err := s.flights.Update(ctx, &merged); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return &merged, nil
}

// DeleteFlight cancels every active ticket for the flight, removes the flight
// record and reports how many tickets the cascade cancelled.
func (s *ScheduleService) DeleteFlight(ctx context.Context, id string) (int, error) {
	s.flightLocks.Lock(id)
	defer s.flightLocks.Unlock(id)

	if _, err := s.flights.GetByID(ctx, id); err != nil {
		return 0, err
	}
	cancelled, err := s.ledger.CancelAllActive(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.flights.DeleteWithTickets(ctx, id); err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	for i := range cancelled {
		s.publishCancelled(ctx, &cancelled[i])
	}
	return len(cancelled), nil
}

func (s *ScheduleService) GetFlight(ctx context.Context, id string) (*domain.Flight, error) {
	return s.flights.GetByID(ctx, id)
}

func (s *ScheduleService) ListFlights(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}
	flights, err := s.flights.List(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetFlights(ctx, flights)
	}
	return flights, nil
}

func (s *ScheduleService) SearchFlights(ctx context.Context, fromCityID, toCityID string, date time.Time) ([]domain.Flight, error) {
	if fromCityID == "" && toCityID == "" && date.IsZero() {
		return s.ListFlights(ctx)
	}
	return s.flights.Search(ctx, fromCityID, toCityID, date)
}

// AdjustAvailability moves seats_available by delta inside the storage-side
// bounds check. The booking coordinator calls this as the companion write of
// a seat claim or release; it is not an independent admin operation.
func (s *ScheduleService) AdjustAvailability(ctx context.Context, id string, delta int) (int, error) {
	return s.flights.AdjustAvailableSeats(ctx, id, delta)
}

func (s *ScheduleService) validate(ctx context.Context, flight *domain.Flight) error {
	if flight.FromCityID == "" || flight.ToCityID == "" || flight.FromCityID == flight.ToCityID {
		return domain.ErrInvalidSchedule
	}
	if !flight.DepartureTime.Before(flight.ArrivalTime) {
		return domain.ErrInvalidSchedule
	}
	if flight.TotalSeats < 1 || flight.PriceCents < 0 {
		return domain.ErrInvalidSchedule
	}
	if _, err := s.cities.GetByID(ctx, flight.FromCityID); err != nil {
		return err
	}
	if _, err := s.cities.GetByID(ctx, flight.ToCityID); err != nil {
		return err
	}
	return nil
}

// checkConflicts runs the two hour-window queries, excluding the flight being
// saved. Callers hold the bucket locks.
func (s *ScheduleService) checkConflicts(ctx context.Context, flight *domain.Flight) error {
	dep := flight.DepartureBucket()
	taken, err := s.flights.ExistsInDepartureWindow(ctx, flight.FromCityID, dep, dep.Add(time.Hour), flight.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrScheduleConflict
	}
	arr := flight.ArrivalBucket()
	taken, err = s.flights.ExistsInArrivalWindow(ctx, flight.ToCityID, arr, arr.Add(time.Hour), flight.ID)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrScheduleConflict
	}
	return nil
}

func (s *ScheduleService) publishCancelled(ctx context.Context, ticket *domain.Ticket) {
	if s.producer == nil || s.ticketTopic == "" {
		return
	}
	event := kafka.TicketEvent{
		Type:           "ticket_cancelled",
		TicketID:       ticket.ID,
		FlightID:       ticket.FlightID,
		SeatNumber:     ticket.SeatNumber,
		HolderID:       ticket.HolderID,
		PassengerEmail: ticket.Passenger.Email,
		Status:         string(domain.TicketStatusCancelled),
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.producer.Publish(ctx, s.ticketTopic, ticket.ID, event); err != nil {
		log.Printf("publish cascade cancel for ticket %s: %v", ticket.ID, err)
	}
}

func (s *ScheduleService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		log.Printf("invalidate flights cache: %v", err)
	}
}

func applyPatch(flight *domain.Flight, patch domain.FlightPatch) {
	if patch.FromCityID != nil {
		flight.FromCityID = *patch.FromCityID
	}
	if patch.ToCityID != nil {
		flight.ToCityID = *patch.ToCityID
	}
	if patch.DepartureTime != nil {
		flight.DepartureTime = patch.DepartureTime.UTC()
	}
	if patch.ArrivalTime != nil {
		flight.ArrivalTime = patch.ArrivalTime.UTC()
	}
	if patch.PriceCents != nil {
		flight.PriceCents = *patch.PriceCents
	}
	if patch.TotalSeats != nil {
		flight.TotalSeats = *patch.TotalSeats
	}
}

// bucketKeys returns the lock keys for the flight's departure and arrival
// hour windows, sorted so LockAll acquires them in a global order.
func bucketKeys(flight *domain.Flight) []string {
	dep := "dep:" + flight.FromCityID + ":" + flight.DepartureBucket().Format("2006010215")
	arr := "arr:" + flight.ToCityID + ":" + flight.ArrivalBucket().Format("2006010215")
	keys := []string{dep, arr}
	sort.Strings(keys)
	return keys
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
