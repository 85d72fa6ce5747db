package request

type PlanSession struct {
	Weekday         int    `json:"weekday" validate:"min=0,max=6"`
	StartTime       string `json:"start_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=15,max=480"`
}

type GenerateSlotsRequest struct {
	PlanID    string        `json:"plan_id" validate:"required,uuid4"`
	StartDate string        `json:"start_date" validate:"required"`
	Weeks     int           `json:"weeks" validate:"required,min=1,max=52"`
	Sessions  []PlanSession `json:"sessions" validate:"required,min=1,dive"`
}
