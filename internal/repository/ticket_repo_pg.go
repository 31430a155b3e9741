package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkaraca/skyticket/internal/domain"
)

type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ActiveBySeat(ctx context.Context, flightID string, seatNumber int) (*domain.Ticket, error)
	ActiveSeats(ctx context.Context, flightID string) ([]int, error)
	ActiveCount(ctx context.Context, flightID string) (int, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
	CancelAllActive(ctx context.Context, flightID string) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	ListByHolder(ctx context.Context, holderID string) ([]domain.Ticket, error)
	ListAll(ctx context.Context) ([]domain.Ticket, error)
	CompleteArrivedBefore(ctx context.Context, deadline time.Time) ([]domain.Ticket, error)
}

const ticketColumns = `ticket_id, flight_id, holder_id, passenger_name, passenger_surname, passenger_email, seat_number, status, booking_date, created_at, updated_at`

type PGTicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &PGTicketRepository{db: db}
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.FlightID, &t.HolderID, &t.Passenger.Name, &t.Passenger.Surname, &t.Passenger.Email, &t.SeatNumber, &t.Status, &t.BookingDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PGTicketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	return r.db.QueryRow(ctx, `INSERT INTO tickets (ticket_id, flight_id, holder_id, passenger_name, passenger_surname, passenger_email, seat_number, status, booking_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		ticket.ID, ticket.FlightID, ticket.HolderID, ticket.Passenger.Name, ticket.Passenger.Surname, ticket.Passenger.Email, ticket.SeatNumber, ticket.Status, ticket.BookingDate).
		Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *PGTicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	return t, err
}

// ActiveBySeat returns the active ticket holding the seat, or
// domain.ErrTicketNotFound when the seat is free.
func (r *PGTicketRepository) ActiveBySeat(ctx context.Context, flightID string, seatNumber int) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE flight_id=$1 AND seat_number=$2 AND status=$3`, flightID, seatNumber, domain.TicketStatusActive))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTicketNotFound
	}
	return t, err
}

func (r *PGTicketRepository) ActiveSeats(ctx context.Context, flightID string) ([]int, error) {
	rows, err := r.db.Query(ctx, `SELECT seat_number FROM tickets WHERE flight_id=$1 AND status=$2 ORDER BY seat_number`, flightID, domain.TicketStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]int, 0)
	for rows.Next() {
		var seat int
		if err := rows.Scan(&seat); err != nil {
			return nil, err
		}
		seats = append(seats, seat)
	}
	return seats, rows.Err()
}

func (r *PGTicketRepository) ActiveCount(ctx context.Context, flightID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM tickets WHERE flight_id=$1 AND status=$2`, flightID, domain.TicketStatusActive).Scan(&count)
	return count, err
}

func (r *PGTicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE tickets SET status=$1, updated_at=now() WHERE ticket_id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *PGTicketRepository) CancelAllActive(ctx context.Context, flightID string) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `UPDATE tickets SET status=$1, updated_at=now() WHERE flight_id=$2 AND status=$3 RETURNING `+ticketColumns, domain.TicketStatusCancelled, flightID, domain.TicketStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cancelled []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		cancelled = append(cancelled, *t)
	}
	return cancelled, rows.Err()
}

// Delete removes the ticket row entirely. Used only to revert an occupy whose
// companion counter write failed; cancelled tickets keep their rows.
func (r *PGTicketRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE ticket_id=$1`, id)
	return err
}

func (r *PGTicketRepository) ListByHolder(ctx context.Context, holderID string) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE holder_id=$1 ORDER BY created_at DESC`, holderID)
}

func (r *PGTicketRepository) ListAll(ctx context.Context) ([]domain.Ticket, error) {
	return r.list(ctx, `SELECT `+ticketColumns+` FROM tickets ORDER BY created_at DESC`)
}

func (r *PGTicketRepository) list(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// CompleteArrivedBefore transitions active tickets on flights that have
// already landed to completed and returns them.
func (r *PGTicketRepository) CompleteArrivedBefore(ctx context.Context, deadline time.Time) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `UPDATE tickets t SET status=$1, updated_at=now()
		FROM flights f
		WHERE t.flight_id = f.flight_id AND t.status=$2 AND f.arrival_time <= $3
		RETURNING t.ticket_id, t.flight_id, t.holder_id, t.passenger_name, t.passenger_surname, t.passenger_email, t.seat_number, t.status, t.booking_date, t.created_at, t.updated_at`,
		domain.TicketStatusCompleted, domain.TicketStatusActive, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var completed []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		completed = append(completed, *t)
	}
	return completed, rows.Err()
}

var _ TicketRepository = (*PGTicketRepository)(nil)
