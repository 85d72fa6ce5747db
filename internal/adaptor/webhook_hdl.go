package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"tutor-booking/internal/data/entity"
	"tutor-booking/internal/dto/request"
	"tutor-booking/internal/usecase"
	"tutor-booking/pkg/gateway"
	"tutor-booking/pkg/utils"

	"go.uber.org/zap"
)

// WebhookHandler is the ingress for provider payment notifications.
// Deliveries are at-least-once and possibly duplicated; the response is
// always 200 with a generic acknowledgement so the sender never mistakes an
// internal outcome for a redelivery hint.
type WebhookHandler struct {
	service  usecase.PaymentService
	verifier gateway.PaymentGateway
	log      *zap.Logger
}

func NewWebhookHandler(service usecase.PaymentService, verifier gateway.PaymentGateway, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		verifier: verifier,
		log:      log.With(zap.String("handler", "webhook")),
	}
}

// HandleEvent handles POST /payments/webhook
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Warn("Failed to read webhook body", zap.Error(err))
		utils.ResponseSuccess(w, "acknowledged", nil)
		return
	}

	// The signature gates trust: an event that fails verification is
	// discarded before anything is interpreted from it.
	signature := r.Header.Get("x-signature")
	if !h.verifier.VerifySignature(body, signature) {
		h.log.Warn("Webhook signature verification failed",
			zap.String("ip", r.RemoteAddr),
		)
		utils.ResponseSuccess(w, "acknowledged", nil)
		return
	}

	var event request.PaymentWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.log.Warn("Malformed webhook payload discarded", zap.Error(err))
		utils.ResponseSuccess(w, "acknowledged", nil)
		return
	}

	if event.OrderCode == "" || event.Status == "" {
		h.log.Warn("Webhook missing order code or status, discarded")
		utils.ResponseSuccess(w, "acknowledged", nil)
		return
	}

	if err := h.service.HandleWebhookEvent(r.Context(), event.OrderCode, event.Status, body); err != nil {
		// Nothing propagates to the sender. Discards are routine
		// (redeliveries, sweep races, unknown codes); anything else is an
		// internal failure the provider will retry into.
		if errors.Is(err, entity.ErrPaymentNotFound) || errors.Is(err, entity.ErrDuplicateEvent) {
			h.log.Info("Webhook event discarded",
				zap.Error(err),
				zap.String("order_code", event.OrderCode),
				zap.String("status", event.Status),
			)
		} else {
			h.log.Error("Failed to process webhook event",
				zap.Error(err),
				zap.String("order_code", event.OrderCode),
				zap.String("status", event.Status),
			)
		}
	}

	utils.ResponseSuccess(w, "acknowledged", nil)
}
