package booking

import (
	"context"
	"time"

	"github.com/avdeyev/skybook/internal/domain"
	"github.com/avdeyev/skybook/internal/kafka"
	"github.com/avdeyev/skybook/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, userID int64) (*domain.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error)
	ListAllBookings(ctx context.Context, search string, page, limit int) ([]domain.BookingView, int64, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateBookingInput struct {
	UserID     int64  `json:"-"`
	FlightID   int64  `json:"flight_id"`
	SeatNumber string `json:"seat_number"`
}

type BookingService struct {
	bookings           repository.BookingRepository
	users              repository.UserRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	log                *zap.Logger
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	users repository.UserRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	log *zap.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		users:        users,
		cache:        cache,
		producer:     producer,
		bookingTopic: bookingTopic,
		log:          log,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking runs the reservation transaction and, on success, publishes
// the lifecycle event and drops the cached flight listing. The event and
// cache are best-effort; the committed booking is the source of truth.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	booking := &domain.Booking{
		UserID:     input.UserID,
		FlightID:   input.FlightID,
		SeatNumber: input.SeatNumber,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.invalidateFlights(ctx)
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID int64) (*domain.Booking, error) {
	cancelled, err := s.bookings.Cancel(ctx, bookingID, userID)
	if err != nil {
		return nil, err
	}

	s.invalidateFlights(ctx)
	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]domain.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *BookingService) ListAllBookings(ctx context.Context, search string, page, limit int) ([]domain.BookingView, int64, error) {
	return s.bookings.ListAll(ctx, search, page, limit)
}

func (s *BookingService) Stats(ctx context.Context) (*domain.Stats, error) {
	return s.bookings.Stats(ctx)
}

func (s *BookingService) invalidateFlights(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.log.Warn("invalidate flights cache", zap.Error(err))
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}

	event := kafka.BookingEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		BookingID:  booking.ID,
		Locator:    booking.Locator,
		UserID:     booking.UserID,
		FlightID:   booking.FlightID,
		SeatNumber: booking.SeatNumber,
		Status:     string(booking.Status),
		CreatedAt:  time.Now(),
	}
	if user, err := s.users.GetByID(ctx, booking.UserID); err == nil {
		event.Email = user.Email
	}

	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Locator, event); err != nil {
		s.log.Warn("publish booking event", zap.String("type", eventType), zap.String("locator", booking.Locator), zap.Error(err))
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Locator, event); err != nil {
			s.log.Warn("publish notification event", zap.String("type", eventType), zap.String("locator", booking.Locator), zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
