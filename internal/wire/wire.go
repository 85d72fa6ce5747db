// internal/wire/wire.go
package wire

import (
	"net/http"

	"tutor-booking/internal/adaptor"
	"tutor-booking/internal/data/repository"
	"tutor-booking/internal/scheduler"
	"tutor-booking/internal/usecase"
	"tutor-booking/pkg/gateway"
	"tutor-booking/pkg/middleware"
	"tutor-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App menyimpan semua dependencies
type App struct {
	Router    *chi.Mux
	Scheduler *scheduler.Scheduler
}

// Wiring menginisialisasi semua dependencies
func Wiring(repo *repository.Repository, gw gateway.PaymentGateway, config *utils.Config, logger *zap.Logger) *App {
	// Initialize services dan handlers
	service := usecase.NewService(repo, config, gw, logger)
	handler := adaptor.NewHandler(service, gw, logger)

	// Setup router
	router := setupRouter(handler, logger)

	// Expiry sweep runs next to the HTTP server in the same process
	sched := scheduler.New(service.Payment, config.Booking.SweepInterval(), logger)

	return &App{
		Router:    router,
		Scheduler: sched,
	}
}

// setupRouter konfigurasi Chi router
func setupRouter(
	handler *adaptor.Handler,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	// Apply routes
	wireReservation(r, handler.Reservation)
	wirePayment(r, handler.Payment, handler.Webhook)
	wireAvailability(r, handler.Availability)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
