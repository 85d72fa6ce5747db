package request

type LockSlotsRequest struct {
	StudentID string   `json:"student_id" validate:"required,uuid4"`
	TutorID   string   `json:"tutor_id" validate:"required,uuid4"`
	SlotIDs   []string `json:"slot_ids" validate:"required,min=1,dive,uuid4"`
}

type ReleaseSlotsRequest struct {
	SlotIDs []string `json:"slot_ids" validate:"required,min=1,dive,uuid4"`
}
