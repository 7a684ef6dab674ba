package flights

import (
	"context"
	"fmt"
	"time"

	"github.com/avdeyev/skybook/internal/domain"
	"github.com/avdeyev/skybook/internal/repository"
	"go.uber.org/zap"
)

type FlightUseCase interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int64, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, input CreateFlightInput) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

type Cache interface {
	GetFlights(ctx context.Context) ([]domain.Flight, error)
	SetFlights(ctx context.Context, flights []domain.Flight) error
	InvalidateFlights(ctx context.Context) error
}

type CreateFlightInput struct {
	FlightNumber  string    `json:"flight_number"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	PriceCents    int64     `json:"price_cents"`
	TotalSeats    int       `json:"total_seats"`
}

type FlightService struct {
	repo  repository.FlightRepository
	cache Cache
	log   *zap.Logger
}

func NewFlightService(repo repository.FlightRepository, cache Cache, log *zap.Logger) *FlightService {
	return &FlightService{repo: repo, cache: cache, log: log}
}

// List serves unfiltered listings from the cached full table, paginating in
// memory; filtered listings always hit the database.
func (s *FlightService) List(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, int64, error) {
	if filter.Origin != "" || filter.Destination != "" {
		return s.repo.List(ctx, filter)
	}

	flights, err := s.unfiltered(ctx)
	if err != nil {
		return nil, 0, err
	}
	return paginate(flights, filter.Page, filter.Limit), int64(len(flights)), nil
}

func (s *FlightService) unfiltered(ctx context.Context) ([]domain.Flight, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetFlights(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, _, err := s.repo.List(ctx, domain.FlightFilter{})
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, flights); err != nil {
			s.log.Warn("cache flights", zap.Error(err))
		}
	}
	return flights, nil
}

func paginate(flights []domain.Flight, page, limit int) []domain.Flight {
	if limit <= 0 {
		return flights
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(flights) {
		return []domain.Flight{}
	}
	end := start + limit
	if end > len(flights) {
		end = len(flights)
	}
	return flights[start:end]
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) Create(ctx context.Context, input CreateFlightInput) (*domain.Flight, error) {
	if err := validateFlightInput(input); err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		FlightNumber:  input.FlightNumber,
		Origin:        input.Origin,
		Destination:   input.Destination,
		DepartureTime: input.DepartureTime,
		ArrivalTime:   input.ArrivalTime,
		PriceCents:    input.PriceCents,
		TotalSeats:    input.TotalSeats,
	}
	if err := s.repo.Create(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return flight, nil
}

func (s *FlightService) Update(ctx context.Context, id int64, input CreateFlightInput) (*domain.Flight, error) {
	if err := validateFlightInput(input); err != nil {
		return nil, err
	}

	flight := &domain.Flight{
		ID:            id,
		FlightNumber:  input.FlightNumber,
		Origin:        input.Origin,
		Destination:   input.Destination,
		DepartureTime: input.DepartureTime,
		ArrivalTime:   input.ArrivalTime,
		PriceCents:    input.PriceCents,
		TotalSeats:    input.TotalSeats,
	}
	if err := s.repo.Update(ctx, flight); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.repo.GetByID(ctx, id)
}

func (s *FlightService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *FlightService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.log.Warn("invalidate flights cache", zap.Error(err))
	}
}

func validateFlightInput(input CreateFlightInput) error {
	switch {
	case input.FlightNumber == "":
		return fmt.Errorf("%w: flight number is required", domain.ErrValidation)
	case input.Origin == "" || input.Destination == "":
		return fmt.Errorf("%w: origin and destination are required", domain.ErrValidation)
	case input.DepartureTime.IsZero() || input.ArrivalTime.IsZero():
		return fmt.Errorf("%w: departure and arrival times are required", domain.ErrValidation)
	case !input.ArrivalTime.After(input.DepartureTime):
		return fmt.Errorf("%w: arrival must be after departure", domain.ErrValidation)
	case input.PriceCents < 0:
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	case input.TotalSeats <= 0:
		return fmt.Errorf("%w: total seats must be positive", domain.ErrValidation)
	}
	return nil
}

var _ FlightUseCase = (*FlightService)(nil)
