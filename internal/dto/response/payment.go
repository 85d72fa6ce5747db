package response

import (
	"time"

	"tutor-booking/internal/data/entity"
)

type CheckoutResponse struct {
	OrderCode   string    `json:"order_code"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CheckoutURL string    `json:"checkout_url"`
	QRCode      string    `json:"qr_code,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
	SlotsBound  int64     `json:"slots_bound"`
}

type PaymentOrderResponse struct {
	ID         string                   `json:"id"`
	OrderCode  string                   `json:"order_code"`
	Amount     int64                    `json:"amount"`
	TargetType entity.PaymentTargetType `json:"target_type"`
	TargetID   string                   `json:"target_id"`
	Status     entity.PaymentStatus     `json:"status"`
	ExpiresAt  time.Time                `json:"expires_at"`
	PaidAt     *time.Time               `json:"paid_at,omitempty"`
	CreatedAt  time.Time                `json:"created_at"`
}

func PaymentOrderToResponse(order *entity.PaymentOrder) PaymentOrderResponse {
	return PaymentOrderResponse{
		ID:         order.ID.String(),
		OrderCode:  order.OrderCode,
		Amount:     order.Amount,
		TargetType: order.TargetType,
		TargetID:   order.TargetID.String(),
		Status:     order.Status,
		ExpiresAt:  order.ExpiresAt,
		PaidAt:     order.PaidAt,
		CreatedAt:  order.CreatedAt,
	}
}
