package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/avdeyev/skybook/api"
	"github.com/avdeyev/skybook/config"
	"github.com/avdeyev/skybook/internal/service/auth"
	"github.com/avdeyev/skybook/internal/service/booking"
	"github.com/avdeyev/skybook/internal/service/flights"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires all handlers onto a gin engine.
//
// Route map:
//
//	POST /api/auth/register, /api/auth/login        public
//	GET  /api/flights, /api/flights/:id              public
//	POST /api/bookings, GET /api/bookings,
//	DELETE /api/bookings/:id                         authenticated
//	POST/PUT/DELETE /api/admin/flights...            admin
//	GET  /api/admin/bookings, /api/admin/stats       admin
func NewRouter(authSvc auth.AuthUseCase, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	root := router.Group("/api")

	authHandler := api.NewAuthHandler(authSvc)
	authHandler.Register(root.Group("/auth"))

	flightHandler := api.NewFlightHandler(flightSvc)
	flightHandler.Register(root.Group("/flights"))

	bookingHandler := api.NewBookingHandler(bookingSvc)
	bookingHandler.Register(root.Group("/bookings", api.RequireAuth(authSvc)))

	admin := root.Group("/admin", api.RequireAuth(authSvc), api.RequireAdmin())
	flightHandler.RegisterAdmin(admin.Group("/flights"))
	bookingHandler.RegisterAdmin(admin)

	return router
}

// Run serves HTTP until the context is canceled or the server fails, then
// shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config, log *zap.Logger, handler http.Handler) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	log.Info("http server started", zap.String("address", cfg.HTTP.Address))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
