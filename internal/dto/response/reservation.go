package response

import (
	"time"

	"tutor-booking/internal/data/entity"
)

type SlotResponse struct {
	ID        string            `json:"id"`
	TutorID   string            `json:"tutor_id"`
	PlanID    string            `json:"plan_id"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time"`
	Status    entity.SlotStatus `json:"status"`
	ExpiresAt *time.Time        `json:"expires_at,omitempty"`
}

type ReservationResponse struct {
	StudentID string         `json:"student_id"`
	TutorID   string         `json:"tutor_id"`
	Slots     []SlotResponse `json:"slots"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func SlotToResponse(slot *entity.Slot) SlotResponse {
	return SlotResponse{
		ID:        slot.ID.String(),
		TutorID:   slot.TutorID.String(),
		PlanID:    slot.PlanID.String(),
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Status:    slot.Status,
		ExpiresAt: slot.ExpiresAt,
	}
}
