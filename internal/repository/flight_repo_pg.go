package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkaraca/skyticket/internal/domain"
)

type FlightRepository interface {
	Insert(ctx context.Context, flight *domain.Flight) error
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	List(ctx context.Context) ([]domain.Flight, error)
	Search(ctx context.Context, fromCityID, toCityID string, date time.Time) ([]domain.Flight, error)
	Update(ctx context.Context, flight *domain.Flight) error
	DeleteWithTickets(ctx context.Context, id string) error
	AdjustAvailableSeats(ctx context.Context, id string, delta int) (int, error)
	ExistsInDepartureWindow(ctx context.Context, cityID string, from, to time.Time, excludeID string) (bool, error)
	ExistsInArrivalWindow(ctx context.Context, cityID string, from, to time.Time, excludeID string) (bool, error)
}

const flightColumns = `flight_id, from_city, to_city, departure_time, arrival_time, price_cents, seats_total, seats_available, created_at, updated_at`

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FromCityID, &f.ToCityID, &f.DepartureTime, &f.ArrivalTime, &f.PriceCents, &f.TotalSeats, &f.AvailableSeats, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) Insert(ctx context.Context, flight *domain.Flight) error {
	err := r.db.QueryRow(ctx, `INSERT INTO flights (flight_id, from_city, to_city, departure_time, arrival_time, price_cents, seats_total, seats_available)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`,
		flight.ID, flight.FromCityID, flight.ToCityID, flight.DepartureTime, flight.ArrivalTime, flight.PriceCents, flight.TotalSeats, flight.AvailableSeats).
		Scan(&flight.CreatedAt, &flight.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrDuplicateFlight
	}
	return err
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE flight_id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrFlightNotFound
	}
	return f, err
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	return r.list(ctx, `SELECT `+flightColumns+` FROM flights ORDER BY departure_time`)
}

// Search filters by origin, destination and departure day. An empty string or
// zero time skips the corresponding filter.
func (r *PGFlightRepository) Search(ctx context.Context, fromCityID, toCityID string, date time.Time) ([]domain.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE 1=1`
	args := make([]any, 0, 4)
	if fromCityID != "" {
		args = append(args, fromCityID)
		query += ` AND from_city=$` + strconv.Itoa(len(args))
	}
	if toCityID != "" {
		args = append(args, toCityID)
		query += ` AND to_city=$` + strconv.Itoa(len(args))
	}
	if !date.IsZero() {
		day := date.UTC().Truncate(24 * time.Hour)
		args = append(args, day)
		query += ` AND departure_time >= $` + strconv.Itoa(len(args))
		args = append(args, day.Add(24*time.Hour))
		query += ` AND departure_time < $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY departure_time`
	return r.list(ctx, query, args...)
}

func (r *PGFlightRepository) list(ctx context.Context, query string, args ...any) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

// Update persists every mutable field, seats_available included, in one
// statement. Callers compute seats_available from the ticket ledger first.
func (r *PGFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	cmd, err := r.db.Exec(ctx, `UPDATE flights SET from_city=$1, to_city=$2, departure_time=$3, arrival_time=$4, price_cents=$5, seats_total=$6, seats_available=$7, updated_at=now() WHERE flight_id=$8`,
		flight.FromCityID, flight.ToCityID, flight.DepartureTime, flight.ArrivalTime, flight.PriceCents, flight.TotalSeats, flight.AvailableSeats, flight.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

// DeleteWithTickets removes the flight row and every ticket row referencing
// it in one transaction. Active tickets must already be cancelled.
func (r *PGFlightRepository) DeleteWithTickets(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE flight_id=$1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM flights WHERE flight_id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return tx.Commit(ctx)
}

// AdjustAvailableSeats applies delta to seats_available, refusing to move the
// counter outside [0, seats_total]. Returns the new value.
func (r *PGFlightRepository) AdjustAvailableSeats(ctx context.Context, id string, delta int) (int, error) {
	var available int
	err := r.db.QueryRow(ctx, `UPDATE flights SET seats_available = seats_available + $1, updated_at=now()
		WHERE flight_id=$2 AND seats_available + $1 >= 0 AND seats_available + $1 <= seats_total
		RETURNING seats_available`, delta, id).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrNoAvailability
	}
	return available, err
}

func (r *PGFlightRepository) ExistsInDepartureWindow(ctx context.Context, cityID string, from, to time.Time, excludeID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM flights WHERE from_city=$1 AND departure_time >= $2 AND departure_time < $3 AND flight_id <> $4)`, cityID, from, to, excludeID)
}

func (r *PGFlightRepository) ExistsInArrivalWindow(ctx context.Context, cityID string, from, to time.Time, excludeID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM flights WHERE to_city=$1 AND arrival_time >= $2 AND arrival_time < $3 AND flight_id <> $4)`, cityID, from, to, excludeID)
}

func (r *PGFlightRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	err := r.db.QueryRow(ctx, query, args...).Scan(&found)
	return found, err
}

var _ FlightRepository = (*PGFlightRepository)(nil)
