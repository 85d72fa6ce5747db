package wire

import (
	"tutor-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireReservation(r chi.Router, reservationHandler *adaptor.ReservationHandler) {
	// POST /api/reservations - Lock a set of slots for a student
	r.Post("/api/reservations", reservationHandler.LockSlots)

	// DELETE /api/reservations - Release held slots (cancellation path)
	r.Delete("/api/reservations", reservationHandler.ReleaseSlots)
}
