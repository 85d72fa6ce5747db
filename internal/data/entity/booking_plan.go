package entity

import "github.com/google/uuid"

type PlanStatus string

const (
	PlanStatusPending  PlanStatus = "pending"
	PlanStatusActive   PlanStatus = "active"
	PlanStatusArchived PlanStatus = "archived"
)

// BookingPlan is a tutor's recurring availability plan. Slots are generated
// from it once; the plan itself is activated when its payment completes.
type BookingPlan struct {
	Base
	TutorID      uuid.UUID  `db:"tutor_id"`
	Title        string     `db:"title"`
	PricePerSlot int64      `db:"price_per_slot"`
	Status       PlanStatus `db:"status"`
}
