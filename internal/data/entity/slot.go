package entity

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusLocked    SlotStatus = "locked"
	SlotStatusPaid      SlotStatus = "paid"
)

// Slot is one bookable time window offered by a tutor. The window itself
// never changes after creation; only the hold-related fields mutate.
type Slot struct {
	Base
	TutorID   uuid.UUID  `db:"tutor_id"`
	PlanID    uuid.UUID  `db:"plan_id"`
	StartTime time.Time  `db:"start_time"`
	EndTime   time.Time  `db:"end_time"`
	StudentID *uuid.UUID `db:"student_id"`
	Status    SlotStatus `db:"status"`
	LockedAt  *time.Time `db:"locked_at"`
	ExpiresAt *time.Time `db:"expires_at"`
	PaymentID *uuid.UUID `db:"payment_id"`
}

// IsHoldExpired reports whether a locked slot's hold window has elapsed.
func (s *Slot) IsHoldExpired(now time.Time) bool {
	return s.Status == SlotStatusLocked && s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
