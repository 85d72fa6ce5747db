package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"tutor-booking/internal/data/entity"
	"tutor-booking/internal/dto/request"
	"tutor-booking/internal/usecase"
	"tutor-booking/pkg/utils"

	"go.uber.org/zap"
)

type ReservationHandler struct {
	service usecase.ReservationService
	log     *zap.Logger
}

func NewReservationHandler(service usecase.ReservationService, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log.With(zap.String("handler", "reservation")),
	}
}

// LockSlots handles POST /api/reservations
func (h *ReservationHandler) LockSlots(w http.ResponseWriter, r *http.Request) {
	var req request.LockSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	// Validate request
	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	reservation, err := h.service.LockSlots(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "lock slots")
		return
	}

	utils.ResponseCreated(w, "success", reservation)
}

// ReleaseSlots handles DELETE /api/reservations
func (h *ReservationHandler) ReleaseSlots(w http.ResponseWriter, r *http.Request) {
	var req request.ReleaseSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.ReleaseSlots(r.Context(), &req); err != nil {
		h.handleServiceError(w, err, "release slots")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// handleServiceError maps reservation errors to HTTP responses
func (h *ReservationHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	errMsg := err.Error()

	switch {
	case errors.Is(err, entity.ErrSlotUnavailable):
		// User-facing and retryable: pick different slots.
		h.log.Info(operation+" failed - slot unavailable",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseJSON(w, http.StatusConflict, false, errMsg, nil, nil)

	case strings.Contains(errMsg, "not found"):
		h.log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, errMsg)

	case strings.Contains(errMsg, "validation failed"),
		strings.Contains(errMsg, "invalid"),
		strings.Contains(errMsg, "duplicate"),
		strings.Contains(errMsg, "does not belong"):
		h.log.Warn("Invalid input for "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, errMsg, nil)

	default:
		h.log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
