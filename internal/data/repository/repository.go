package repository

import (
	"tutor-booking/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	// DB is exposed so services can scope multi-row transitions to one
	// transaction.
	DB database.PgxIface

	Slot         SlotRepository
	PaymentOrder PaymentOrderRepository
	Course       CourseRepository
	BookingPlan  BookingPlanRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		DB:           db,
		Slot:         NewSlotRepository(db, log),
		PaymentOrder: NewPaymentOrderRepository(db, log),
		Course:       NewCourseRepository(db, log),
		BookingPlan:  NewBookingPlanRepository(db, log),
	}
}
