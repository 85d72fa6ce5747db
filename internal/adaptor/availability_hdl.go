package adaptor

import (
	"encoding/json"
	"net/http"
	"strings"

	"tutor-booking/internal/dto/request"
	"tutor-booking/internal/usecase"
	"tutor-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// ListSlots handles GET /api/tutors/{id}/slots
func (h *AvailabilityHandler) ListSlots(w http.ResponseWriter, r *http.Request) {
	tutorID := chi.URLParam(r, "id")
	if tutorID == "" {
		utils.ResponseBadRequest(w, "Tutor ID is required", nil)
		return
	}

	req := &request.PaginatedRequest{
		Page:    1,
		PerPage: 20,
	}

	query := r.URL.Query()
	req.Page = utils.ParseInt(query.Get("page"), 1)
	req.PerPage = utils.ParseInt(query.Get("per_page"), 20)

	slots, err := h.service.ListAvailable(r.Context(), tutorID, req)
	if err != nil {
		h.handleServiceError(w, err, "list available slots")
		return
	}

	utils.ResponseSuccess(w, "success", slots)
}

// GenerateSlots handles POST /api/plans/slots
func (h *AvailabilityHandler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	var req request.GenerateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	count, err := h.service.GenerateSlots(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err, "generate slots")
		return
	}

	utils.ResponseCreated(w, "success", map[string]int{"slots_created": count})
}

func (h *AvailabilityHandler) handleServiceError(w http.ResponseWriter, err error, operation string) {
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "not found"):
		h.log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, errMsg)

	case strings.Contains(errMsg, "validation failed"),
		strings.Contains(errMsg, "invalid"):
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
