package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avdeyev/skybook/internal/domain"
	"github.com/avdeyev/skybook/internal/locator"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool, NewFlightRepository(pool), locator.New)
	assert.NotNil(t, repo)
}

func TestInsertWithFreshLocator_StopsAfterBoundedCollisions(t *testing.T) {
	generated := 0
	gen := func() (string, error) {
		generated++
		return "AAAAAA", nil
	}

	code, err := insertWithFreshLocator(gen, LocatorAttempts, func(string) error {
		return errLocatorTaken
	})

	assert.ErrorIs(t, err, domain.ErrLocatorExhausted)
	assert.Empty(t, code)
	assert.Equal(t, LocatorAttempts, generated)
}

func TestInsertWithFreshLocator_RetriesCollisionThenSucceeds(t *testing.T) {
	codes := []string{"AAAAAA", "BBBBBB", "CCCCCC"}
	generated := 0
	gen := func() (string, error) {
		code := codes[generated]
		generated++
		return code, nil
	}
	taken := map[string]bool{"AAAAAA": true, "BBBBBB": true}

	code, err := insertWithFreshLocator(gen, LocatorAttempts, func(code string) error {
		if taken[code] {
			return errLocatorTaken
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "CCCCCC", code)
	assert.Equal(t, 3, generated)
}

func TestInsertWithFreshLocator_InsertErrorAborts(t *testing.T) {
	generated := 0
	gen := func() (string, error) {
		generated++
		return "AAAAAA", nil
	}
	dbErr := errors.New("connection reset")

	_, err := insertWithFreshLocator(gen, LocatorAttempts, func(string) error {
		return dbErr
	})

	assert.ErrorIs(t, err, dbErr)
	assert.Equal(t, 1, generated)
}

func TestInsertWithFreshLocator_GeneratorErrorAborts(t *testing.T) {
	gen := func() (string, error) {
		return "", errors.New("entropy source failed")
	}

	_, err := insertWithFreshLocator(gen, LocatorAttempts, func(string) error {
		t.Fatal("insert must not run without a locator")
		return nil
	})

	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLocatorExhausted)
}

// stubRow feeds Scan with either a canned error or canned values.
type stubRow struct {
	err  error
	fill func(dest ...any)
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.fill != nil {
		r.fill(dest...)
	}
	return nil
}

// stubTx records the transaction outcome so tests can assert that a failed
// booking never commits.
type stubTx struct {
	insertRow  stubRow
	inserts    int
	committed  bool
	rolledBack bool
}

func (t *stubTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }

func (t *stubTx) Commit(ctx context.Context) error {
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func (t *stubTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (t *stubTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }

func (t *stubTx) LargeObjects() pgx.LargeObjects { return pgx.LargeObjects{} }

func (t *stubTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (t *stubTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *stubTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (t *stubTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	t.inserts++
	return t.insertRow
}

func (t *stubTx) Conn() *pgx.Conn { return nil }

// stubFlights satisfies FlightRepository for booking transaction tests.
type stubFlights struct {
	reserveErr   error
	reserveCalls int
}

func (s *stubFlights) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int64, error) {
	return nil, 0, nil
}
func (s *stubFlights) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return nil, nil
}
func (s *stubFlights) Create(ctx context.Context, flight *domain.Flight) error { return nil }
func (s *stubFlights) Update(ctx context.Context, flight *domain.Flight) error { return nil }
func (s *stubFlights) Delete(ctx context.Context, id int64) error              { return nil }

func (s *stubFlights) ReserveSeat(ctx context.Context, tx pgx.Tx, flightID int64) error {
	s.reserveCalls++
	return s.reserveErr
}

func (s *stubFlights) ReleaseSeat(ctx context.Context, tx pgx.Tx, flightID int64) error {
	return nil
}

func newStubbedBookingRepo(tx *stubTx, flights *stubFlights) *PGBookingRepository {
	repo := NewBookingRepository(&pgxpool.Pool{}, flights, locator.New)
	repo.begin = func(ctx context.Context) (pgx.Tx, error) { return tx, nil }
	return repo
}

func TestBookingRepository_Create_CommitsSeatAndRowTogether(t *testing.T) {
	tx := &stubTx{insertRow: stubRow{fill: func(dest ...any) {
		*dest[0].(*int64) = 7
		*dest[1].(*time.Time) = time.Now()
	}}}
	flights := &stubFlights{}
	repo := newStubbedBookingRepo(tx, flights)

	booking := &domain.Booking{UserID: 1, FlightID: 4, SeatNumber: "12A"}
	err := repo.Create(context.Background(), booking)

	assert.NoError(t, err)
	assert.True(t, tx.committed)
	assert.False(t, tx.rolledBack)
	assert.Equal(t, 1, flights.reserveCalls)
	assert.Equal(t, int64(7), booking.ID)
	assert.Len(t, booking.Locator, locator.Length)
	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
}

func TestBookingRepository_Create_RollsBackWhenInsertFails(t *testing.T) {
	tx := &stubTx{insertRow: stubRow{err: errors.New("insert failed")}}
	flights := &stubFlights{}
	repo := newStubbedBookingRepo(tx, flights)

	err := repo.Create(context.Background(), &domain.Booking{UserID: 1, FlightID: 4, SeatNumber: "12A"})

	// The seat was reserved inside the transaction, so the rollback must
	// undo the decrement along with the missing booking row.
	assert.Error(t, err)
	assert.Equal(t, 1, flights.reserveCalls)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestBookingRepository_Create_RollsBackWhenSoldOut(t *testing.T) {
	tx := &stubTx{}
	flights := &stubFlights{reserveErr: domain.ErrSoldOut}
	repo := newStubbedBookingRepo(tx, flights)

	err := repo.Create(context.Background(), &domain.Booking{UserID: 1, FlightID: 4, SeatNumber: "12A"})

	assert.ErrorIs(t, err, domain.ErrSoldOut)
	assert.Zero(t, tx.inserts)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}

func TestBookingRepository_Create_ExhaustedLocatorsRollBack(t *testing.T) {
	tx := &stubTx{insertRow: stubRow{err: pgx.ErrNoRows}}
	flights := &stubFlights{}
	repo := newStubbedBookingRepo(tx, flights)

	err := repo.Create(context.Background(), &domain.Booking{UserID: 1, FlightID: 4, SeatNumber: "12A"})

	assert.ErrorIs(t, err, domain.ErrLocatorExhausted)
	assert.Equal(t, LocatorAttempts, tx.inserts)
	assert.True(t, tx.rolledBack)
	assert.False(t, tx.committed)
}
