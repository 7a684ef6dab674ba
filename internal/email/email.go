package email

import (
	"context"

	"github.com/avdeyev/skybook/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers booking notifications. The current backend only logs; the
// worker is the single integration point for a real mail provider.
type Sender struct {
	log *zap.Logger
}

func NewSender(log *zap.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	s.log.Info("send booking notification",
		zap.String("email", event.Email),
		zap.String("type", event.Type),
		zap.String("locator", event.Locator),
		zap.Int64("flight_id", event.FlightID),
		zap.String("seat", event.SeatNumber),
	)
	return nil
}
