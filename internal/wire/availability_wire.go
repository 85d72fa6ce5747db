package wire

import (
	"tutor-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAvailability(r chi.Router, availabilityHandler *adaptor.AvailabilityHandler) {
	// GET /api/tutors/{id}/slots - Browse a tutor's open slots
	r.Get("/api/tutors/{id}/slots", availabilityHandler.ListSlots)

	// POST /api/plans/slots - Materialize a recurring plan into slots
	r.Post("/api/plans/slots", availabilityHandler.GenerateSlots)
}
