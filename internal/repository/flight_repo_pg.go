package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avdeyev/skybook/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, flight *domain.Flight) error
	Update(ctx context.Context, flight *domain.Flight) error
	Delete(ctx context.Context, id int64) error

	// ReserveSeat and ReleaseSeat mutate capacity inside the caller's
	// transaction. ReserveSeat takes the exclusive row lock first, so
	// concurrent reservations on one flight serialize instead of racing
	// on a stale available_seats read.
	ReserveSeat(ctx context.Context, tx pgx.Tx, flightID int64) error
	ReleaseSeat(ctx context.Context, tx pgx.Tx, flightID int64) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) *PGFlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, origin, destination, departure_time, arrival_time, price_cents, total_seats, available_seats, created_at, updated_at`

func scanFlight(row pgx.Row, f *domain.Flight) error {
	return row.Scan(&f.ID, &f.FlightNumber, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.PriceCents, &f.TotalSeats, &f.AvailableSeats, &f.CreatedAt, &f.UpdatedAt)
}

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int64, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filter.Origin != "" {
		args = append(args, "%"+filter.Origin+"%")
		where += fmt.Sprintf(` AND origin ILIKE $%d`, len(args))
	}
	if filter.Destination != "" {
		args = append(args, "%"+filter.Destination+"%")
		where += fmt.Sprintf(` AND destination ILIKE $%d`, len(args))
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM flights`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + flightColumns + ` FROM flights` + where + ` ORDER BY departure_time`
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		var f domain.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, 0, err
		}
		flights = append(flights, f)
	}
	return flights, total, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	var f domain.Flight
	if err := scanFlight(row, &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFlightNotFound
		}
		return nil, err
	}
	return &f, nil
}

// Create inserts a flight with available_seats initialized to total_seats.
func (r *PGFlightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	err := r.db.QueryRow(ctx, `INSERT INTO flights (flight_number, origin, destination, departure_time, arrival_time, price_cents, total_seats, available_seats)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		RETURNING id, available_seats, created_at, updated_at`,
		flight.FlightNumber, flight.Origin, flight.Destination, flight.DepartureTime, flight.ArrivalTime, flight.PriceCents, flight.TotalSeats).
		Scan(&flight.ID, &flight.AvailableSeats, &flight.CreatedAt, &flight.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrFlightNumberTaken
		}
		return err
	}
	return nil
}

// Update changes flight attributes. A capacity change shifts available_seats
// by the same delta, so seats already booked stay booked; shrinking total
// below the booked count trips the seats_in_range check and is rejected.
func (r *PGFlightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	res, err := r.db.Exec(ctx, `UPDATE flights SET flight_number=$1, origin=$2, destination=$3, departure_time=$4, arrival_time=$5, price_cents=$6,
		available_seats = available_seats + ($7 - total_seats), total_seats=$7, updated_at=now() WHERE id=$8`,
		flight.FlightNumber, flight.Origin, flight.Destination, flight.DepartureTime, flight.ArrivalTime, flight.PriceCents, flight.TotalSeats, flight.ID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return domain.ErrFlightNumberTaken
		}
		if isCheckViolation(err) {
			return fmt.Errorf("%w: total seats cannot drop below booked seats", domain.ErrValidation)
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *PGFlightRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx, `DELETE FROM flights WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

func (r *PGFlightRepository) ReserveSeat(ctx context.Context, tx pgx.Tx, flightID int64) error {
	var available int
	err := tx.QueryRow(ctx, `SELECT available_seats FROM flights WHERE id=$1 FOR UPDATE`, flightID).Scan(&available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrFlightNotFound
		}
		return err
	}
	if available <= 0 {
		return domain.ErrSoldOut
	}
	_, err = tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats - 1, updated_at = now() WHERE id=$1`, flightID)
	return err
}

func (r *PGFlightRepository) ReleaseSeat(ctx context.Context, tx pgx.Tx, flightID int64) error {
	res, err := tx.Exec(ctx, `UPDATE flights SET available_seats = available_seats + 1, updated_at = now() WHERE id=$1`, flightID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.ErrFlightNotFound
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
