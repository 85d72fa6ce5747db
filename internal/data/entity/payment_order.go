package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusRefund    PaymentStatus = "refund"
)

// IsTerminal reports whether the status permits no further transition.
// Everything except pending is terminal.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatusPending
}

type PaymentTargetType string

const (
	PaymentTargetCourse      PaymentTargetType = "course"
	PaymentTargetBookingPlan PaymentTargetType = "booking_plan"
)

// PaymentOrder is the ledger record of one external payment attempt.
// Amount is in minor currency units.
type PaymentOrder struct {
	Base
	OrderCode  string            `db:"order_code"`
	Amount     int64             `db:"amount"`
	TargetType PaymentTargetType `db:"target_type"`
	TargetID   uuid.UUID         `db:"target_id"`
	PayerID    uuid.UUID         `db:"payer_id"`
	Status     PaymentStatus     `db:"status"`
	ExpiresAt  time.Time         `db:"expires_at"`
	PaidAt     *time.Time        `db:"paid_at"`
	RawPayload []byte            `db:"raw_payload"`
}
