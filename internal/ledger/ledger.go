// Package ledger is the authoritative record of seat-to-ticket assignment.
// It is the only writer of ticket status: bookings, cancellations, cascading
// cancels and the post-arrival completion sweep all pass through here.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkaraca/skyticket/internal/domain"
	"github.com/mkaraca/skyticket/internal/locks"
	"github.com/mkaraca/skyticket/internal/repository"
)

// SeatLedger serializes every ticket mutation for a flight on a per-flight
// mutex, so a check-then-act pair like "is the seat free, then claim it"
// cannot interleave with a competing booking. Flights do not contend with
// each other.
type SeatLedger struct {
	tickets     repository.TicketRepository
	flightLocks *locks.KeyedMutex
}

// NewSeatLedger builds a ledger over the ticket store. flightLocks is shared
// with the schedule store so that capacity changes and deletions serialize
// against bookings on the same flight.
func NewSeatLedger(tickets repository.TicketRepository, flightLocks *locks.KeyedMutex) *SeatLedger {
	return &SeatLedger{tickets: tickets, flightLocks: flightLocks}
}

// IsSeatFree reports whether no active ticket occupies the seat. It is a
// point-in-time read; Occupy re-checks under the flight lock before claiming.
func (l *SeatLedger) IsSeatFree(ctx context.Context, flightID string, seatNumber int) (bool, error) {
	_, err := l.tickets.ActiveBySeat(ctx, flightID, seatNumber)
	if errors.Is(err, domain.ErrTicketNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (l *SeatLedger) OccupiedSeats(ctx context.Context, flightID string) ([]int, error) {
	return l.tickets.ActiveSeats(ctx, flightID)
}

func (l *SeatLedger) ActiveCount(ctx context.Context, flightID string) (int, error) {
	return l.tickets.ActiveCount(ctx, flightID)
}

// Occupy claims the seat for the given ticket and runs commit while the claim
// is held under the flight lock. commit carries the companion write (the
// seats_available decrement); if it fails, the claim is reverted and the
// commit error is returned, so the two writes succeed or fail together.
// Returns domain.ErrSeatTaken when an active ticket already holds the seat.
func (l *SeatLedger) Occupy(ctx context.Context, ticket *domain.Ticket, commit func(context.Context) error) error {
	l.flightLocks.Lock(ticket.FlightID)
	defer l.flightLocks.Unlock(ticket.FlightID)

	free, err := l.IsSeatFree(ctx, ticket.FlightID, ticket.SeatNumber)
	if err != nil {
		return err
	}
	if !free {
		return domain.ErrSeatTaken
	}

	ticket.Status = domain.TicketStatusActive
	if err := l.tickets.Insert(ctx, ticket); err != nil {
		return err
	}
	if commit != nil {
		if err := commit(ctx); err != nil {
			if derr := l.tickets.Delete(ctx, ticket.ID); derr != nil {
				return fmt.Errorf("revert seat claim for ticket %s: %v: %w", ticket.ID, derr, err)
			}
			return err
		}
	}
	return nil
}

// Release cancels the ticket and runs commit (the seats_available increment)
// under the flight lock. The active check happens inside the lock, so two
// concurrent cancellations of the same ticket resolve to exactly one winner;
// the loser gets domain.ErrAlreadyCancelled. A failed commit restores the
// ticket to active.
func (l *SeatLedger) Release(ctx context.Context, flightID, ticketID string, commit func(context.Context) error) error {
	l.flightLocks.Lock(flightID)
	defer l.flightLocks.Unlock(flightID)

	ticket, err := l.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	if !ticket.Active() {
		return domain.ErrAlreadyCancelled
	}

	if err := l.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusCancelled); err != nil {
		return err
	}
	if commit != nil {
		if err := commit(ctx); err != nil {
			if rerr := l.tickets.UpdateStatus(ctx, ticketID, domain.TicketStatusActive); rerr != nil {
				return fmt.Errorf("restore ticket %s after failed release: %v: %w", ticketID, rerr, err)
			}
			return err
		}
	}
	return nil
}

// CancelAllActive bulk-cancels every active ticket for the flight and returns
// them. The caller must hold the flight lock; the schedule store does so for
// the whole cancel-then-delete sequence of a flight deletion.
func (l *SeatLedger) CancelAllActive(ctx context.Context, flightID string) ([]domain.Ticket, error) {
	return l.tickets.CancelAllActive(ctx, flightID)
}

// CompleteArrived transitions active tickets on flights that landed before
// deadline to completed. Run periodically by the worker; completed tickets no
// longer hold seats but the flight rows they reference are past departure, so
// no counter adjustment is needed.
func (l *SeatLedger) CompleteArrived(ctx context.Context, deadline time.Time) ([]domain.Ticket, error) {
	return l.tickets.CompleteArrivedBefore(ctx, deadline)
}
