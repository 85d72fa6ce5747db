package repository

import (
	"context"
	"fmt"

	"tutor-booking/internal/data/entity"
	"tutor-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingPlanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingPlan, error)

	// Activate transitions pending -> active. Returns false when the plan
	// was already activated, so activation can only happen once.
	Activate(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error)
}

type bookingPlanRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingPlanRepository(db database.PgxIface, log *zap.Logger) BookingPlanRepository {
	return &bookingPlanRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking_plan")),
	}
}

func (r *bookingPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingPlan, error) {
	query := `
		SELECT id, tutor_id, title, price_per_slot, status, created_at, updated_at
		FROM booking_plans
		WHERE id = $1
	`

	var plan entity.BookingPlan
	err := r.db.QueryRow(ctx, query, id).Scan(
		&plan.ID,
		&plan.TutorID,
		&plan.Title,
		&plan.PricePerSlot,
		&plan.Status,
		&plan.CreatedAt,
		&plan.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking plan by ID",
			zap.Error(err),
			zap.String("plan_id", id.String()),
		)
		return nil, fmt.Errorf("find booking plan by ID %s: %w", id.String(), err)
	}

	return &plan, nil
}

func (r *bookingPlanRepository) Activate(ctx context.Context, q database.Querier, id uuid.UUID) (bool, error) {
	query := `
		UPDATE booking_plans
		SET status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := q.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to activate booking plan",
			zap.Error(err),
			zap.String("plan_id", id.String()),
		)
		return false, fmt.Errorf("activate booking plan %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
