package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/avdeyev/skybook/internal/domain"
	"github.com/avdeyev/skybook/internal/locator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocatorAttempts bounds regeneration after locator collisions.
const LocatorAttempts = 5

// errLocatorTaken marks an insert that lost to an existing locator.
var errLocatorTaken = errors.New("locator taken")

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	Cancel(ctx context.Context, bookingID, userID int64) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListAll(ctx context.Context, search string, page, limit int) ([]domain.BookingView, int64, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type PGBookingRepository struct {
	db         *pgxpool.Pool
	flights    FlightRepository
	newLocator locator.Generator
	begin      func(ctx context.Context) (pgx.Tx, error)
}

func NewBookingRepository(db *pgxpool.Pool, flights FlightRepository, newLocator locator.Generator) *PGBookingRepository {
	r := &PGBookingRepository{db: db, flights: flights, newLocator: newLocator}
	r.begin = func(ctx context.Context) (pgx.Tx, error) {
		return db.BeginTx(ctx, pgx.TxOptions{})
	}
	return r
}

// Create reserves a seat and writes the confirmed booking row in one
// transaction. The flight row is locked before the capacity check, so two
// concurrent bookings of the last seat serialize: the second waits for the
// first to commit, re-reads the counter and fails with ErrSoldOut. Any
// failure rolls back both the seat decrement and the booking row.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.flights.ReserveSeat(ctx, tx, booking.FlightID); err != nil {
		if isRetryable(err) {
			return domain.ErrTxConflict
		}
		return err
	}

	booking.Status = domain.BookingStatusConfirmed
	if err := r.insertWithLocator(ctx, tx, booking); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return domain.ErrTxConflict
		}
		return fmt.Errorf("commit booking: %w", err)
	}
	return nil
}

// insertWithLocator inserts the booking under a freshly generated locator.
// ON CONFLICT DO NOTHING keeps the transaction alive on a collision, so the
// insert can be retried with a new code without a savepoint.
func (r *PGBookingRepository) insertWithLocator(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error {
	code, err := insertWithFreshLocator(r.newLocator, LocatorAttempts, func(code string) error {
		err := tx.QueryRow(ctx, `INSERT INTO bookings (locator, user_id, flight_id, seat_number, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT ON CONSTRAINT bookings_locator_key DO NOTHING
			RETURNING id, created_at`,
			code, booking.UserID, booking.FlightID, booking.SeatNumber, booking.Status).
			Scan(&booking.ID, &booking.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return errLocatorTaken
		}
		return err
	})
	if err != nil {
		return err
	}
	booking.Locator = code
	return nil
}

// insertWithFreshLocator runs insert with newly generated codes until one
// sticks. Collisions (errLocatorTaken) regenerate and retry; any other
// error aborts. After attempts collisions the caller gets
// ErrLocatorExhausted.
func insertWithFreshLocator(gen locator.Generator, attempts int, insert func(code string) error) (string, error) {
	for attempt := 0; attempt < attempts; attempt++ {
		code, err := gen()
		if err != nil {
			return "", fmt.Errorf("generate locator: %w", err)
		}
		switch err := insert(code); {
		case err == nil:
			return code, nil
		case errors.Is(err, errLocatorTaken):
			continue
		default:
			return "", err
		}
	}
	return "", domain.ErrLocatorExhausted
}

// Cancel flips a confirmed booking to cancelled and restores one seat, in one
// transaction. The single locked predicate (id, owner, status) is what makes
// a second cancel fail instead of releasing the seat twice.
func (r *PGBookingRepository) Cancel(ctx context.Context, bookingID, userID int64) (*domain.Booking, error) {
	tx, err := r.begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT id, locator, user_id, flight_id, seat_number, status, created_at
		FROM bookings WHERE id=$1 AND user_id=$2 AND status=$3 FOR UPDATE`,
		bookingID, userID, domain.BookingStatusConfirmed)
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Locator, &b.UserID, &b.FlightID, &b.SeatNumber, &b.Status, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotActive
		}
		if isRetryable(err) {
			return nil, domain.ErrTxConflict
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE bookings SET status=$1 WHERE id=$2`, domain.BookingStatusCancelled, b.ID); err != nil {
		return nil, err
	}
	if err := r.flights.ReleaseSeat(ctx, tx, b.FlightID); err != nil {
		if isRetryable(err) {
			return nil, domain.ErrTxConflict
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		if isRetryable(err) {
			return nil, domain.ErrTxConflict
		}
		return nil, fmt.Errorf("commit cancel: %w", err)
	}
	b.Status = domain.BookingStatusCancelled
	return &b, nil
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT id, locator, user_id, flight_id, seat_number, status, created_at
		FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.ID, &b.Locator, &b.UserID, &b.FlightID, &b.SeatNumber, &b.Status, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) ListAll(ctx context.Context, search string, page, limit int) ([]domain.BookingView, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + search + "%"

	var total int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*)
		FROM bookings b
		JOIN users u ON b.user_id = u.id
		JOIN flights f ON b.flight_id = f.id
		WHERE u.full_name ILIKE $1 OR f.flight_number ILIKE $1 OR b.locator ILIKE $1`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `SELECT b.id, b.locator, b.seat_number, b.status, b.created_at,
			u.full_name, f.flight_number, f.origin, f.destination
		FROM bookings b
		JOIN users u ON b.user_id = u.id
		JOIN flights f ON b.flight_id = f.id
		WHERE u.full_name ILIKE $1 OR f.flight_number ILIKE $1 OR b.locator ILIKE $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3`, pattern, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	views := make([]domain.BookingView, 0)
	for rows.Next() {
		var v domain.BookingView
		if err := rows.Scan(&v.ID, &v.Locator, &v.SeatNumber, &v.Status, &v.CreatedAt, &v.PassengerName, &v.FlightNumber, &v.Origin, &v.Destination); err != nil {
			return nil, 0, err
		}
		views = append(views, v)
	}
	return views, total, rows.Err()
}

func (r *PGBookingRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	stats := &domain.Stats{StatusBreakdown: make(map[domain.BookingStatus]int64)}

	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(f.price_cents), 0)
		FROM bookings b
		JOIN flights f ON b.flight_id = f.id
		WHERE b.status = $1`, domain.BookingStatusConfirmed).Scan(&stats.RevenueCents)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.BookingStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.StatusBreakdown[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	topRows, err := r.db.Query(ctx, `SELECT f.flight_number, f.origin, f.destination, COUNT(b.id) AS ticket_count
		FROM bookings b
		JOIN flights f ON b.flight_id = f.id
		WHERE b.status = $1
		GROUP BY f.id
		ORDER BY ticket_count DESC
		LIMIT 3`, domain.BookingStatusConfirmed)
	if err != nil {
		return nil, err
	}
	defer topRows.Close()
	for topRows.Next() {
		var p domain.FlightPopularity
		if err := topRows.Scan(&p.FlightNumber, &p.Origin, &p.Destination, &p.TicketCount); err != nil {
			return nil, err
		}
		stats.TopFlights = append(stats.TopFlights, p)
	}
	return stats, topRows.Err()
}

var _ BookingRepository = (*PGBookingRepository)(nil)
