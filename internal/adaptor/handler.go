package adaptor

import (
	"tutor-booking/internal/usecase"
	"tutor-booking/pkg/gateway"

	"go.uber.org/zap"
)

type Handler struct {
	Reservation  *ReservationHandler
	Payment      *PaymentHandler
	Webhook      *WebhookHandler
	Availability *AvailabilityHandler
}

func NewHandler(service *usecase.Service, gw gateway.PaymentGateway, log *zap.Logger) *Handler {
	return &Handler{
		Reservation:  NewReservationHandler(service.Reservation, log),
		Payment:      NewPaymentHandler(service.Payment, log),
		Webhook:      NewWebhookHandler(service.Payment, gw, log),
		Availability: NewAvailabilityHandler(service.Availability, log),
	}
}
