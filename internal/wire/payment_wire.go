package wire

import (
	"tutor-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, webhookHandler *adaptor.WebhookHandler) {
	// POST /api/checkout - Open a payment order and get the checkout link
	r.Post("/api/checkout", paymentHandler.CreateCheckout)

	// GET /api/users/{id}/orders - Payment order history
	r.Get("/api/users/{id}/orders", paymentHandler.GetUserOrders)

	// POST /payments/webhook - Provider status notifications.
	// Must stay outside any auth group; the provider calls it directly.
	r.Post("/payments/webhook", webhookHandler.HandleEvent)
}
