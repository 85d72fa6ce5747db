package request

type CreateCheckoutRequest struct {
	PayerID    string `json:"payer_id" validate:"required,uuid4"`
	TargetType string `json:"target_type" validate:"required,oneof=course booking_plan"`
	TargetID   string `json:"target_id" validate:"required,uuid4"`
}

// PaymentWebhookEvent is the provider's status notification. Only orderCode
// and status are interpreted; everything else is stored verbatim for audit.
type PaymentWebhookEvent struct {
	OrderCode string `json:"orderCode" validate:"required"`
	Status    string `json:"status" validate:"required"`
}
