package repository

import (
	"context"
	"fmt"
	"time"

	"tutor-booking/internal/data/entity"
	"tutor-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// SlotRepository is the only writer of slot rows. Every status transition is
// a single guarded UPDATE; callers check the returned row count to learn
// whether they won the transition.
type SlotRepository interface {
	CreateBatch(ctx context.Context, slots []*entity.Slot) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Slot, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Slot, error)
	FindAvailableByTutorID(ctx context.Context, tutorID uuid.UUID, limit, offset int) ([]*entity.Slot, error)
	CountAvailableByTutorID(ctx context.Context, tutorID uuid.UUID) (int64, error)

	// State transitions. These accept a Querier so the caller can scope
	// several of them to one transaction.
	Lock(ctx context.Context, q database.Querier, slotID, studentID uuid.UUID, lockedAt, expiresAt time.Time) (bool, error)
	Release(ctx context.Context, q database.Querier, slotIDs []uuid.UUID) (int64, error)
	ReleaseUnbound(ctx context.Context, q database.Querier, slotIDs []uuid.UUID) (int64, error)
	BindPayment(ctx context.Context, q database.Querier, studentID, tutorID, paymentID uuid.UUID) (int64, error)
	MarkPaidByPaymentID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (int64, error)
	ReleaseByPaymentID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (int64, error)

	// Sweep and checkout queries
	FindLockedByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entity.Slot, error)
	FindLockedUnbound(ctx context.Context, studentID, tutorID uuid.UUID) ([]*entity.Slot, error)
	FindExpiredUnbound(ctx context.Context, now time.Time) ([]*entity.Slot, error)
}

type slotRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewSlotRepository(db database.PgxIface, log *zap.Logger) SlotRepository {
	return &slotRepository{
		db:  db,
		log: log.With(zap.String("repository", "slot")),
	}
}

const slotColumns = `id, tutor_id, plan_id, start_time, end_time, student_id, status, locked_at, expires_at, payment_id, created_at, updated_at`

func scanSlot(row pgx.Row) (*entity.Slot, error) {
	var slot entity.Slot
	err := row.Scan(
		&slot.ID,
		&slot.TutorID,
		&slot.PlanID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.StudentID,
		&slot.Status,
		&slot.LockedAt,
		&slot.ExpiresAt,
		&slot.PaymentID,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *slotRepository) CreateBatch(ctx context.Context, slots []*entity.Slot) error {
	query := `
		INSERT INTO slots (id, tutor_id, plan_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, slot := range slots {
		_, err := r.db.Exec(ctx, query,
			slot.ID,
			slot.TutorID,
			slot.PlanID,
			slot.StartTime,
			slot.EndTime,
			slot.Status,
			slot.CreatedAt,
			slot.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to create slot",
				zap.Error(err),
				zap.String("slot_id", slot.ID.String()),
				zap.String("tutor_id", slot.TutorID.String()),
			)
			return fmt.Errorf("create slot %s: %w", slot.ID.String(), err)
		}
	}

	return nil
}

func (r *slotRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find slot by ID",
			zap.Error(err),
			zap.String("slot_id", id.String()),
		)
		return nil, fmt.Errorf("find slot by ID %s: %w", id.String(), err)
	}

	return slot, nil
}

func (r *slotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*entity.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = ANY($1) ORDER BY start_time`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		r.log.Error("Failed to find slots by IDs", zap.Error(err), zap.Int("count", len(ids)))
		return nil, fmt.Errorf("find slots by IDs: %w", err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *slotRepository) FindAvailableByTutorID(ctx context.Context, tutorID uuid.UUID, limit, offset int) ([]*entity.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE tutor_id = $1 AND status = 'available' AND start_time > NOW()
		ORDER BY start_time
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, tutorID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find available slots",
			zap.Error(err),
			zap.String("tutor_id", tutorID.String()),
		)
		return nil, fmt.Errorf("find available slots for tutor %s: %w", tutorID.String(), err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

func (r *slotRepository) CountAvailableByTutorID(ctx context.Context, tutorID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM slots WHERE tutor_id = $1 AND status = 'available' AND start_time > NOW()`

	var count int64
	err := r.db.QueryRow(ctx, query, tutorID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count available slots",
			zap.Error(err),
			zap.String("tutor_id", tutorID.String()),
		)
		return 0, fmt.Errorf("count available slots for tutor %s: %w", tutorID.String(), err)
	}

	return count, nil
}

// Lock transitions one slot available -> locked. The status guard in the
// WHERE clause is the compare-and-set: when two callers race, the row is
// updated exactly once and the loser sees zero rows affected.
func (r *slotRepository) Lock(ctx context.Context, q database.Querier, slotID, studentID uuid.UUID, lockedAt, expiresAt time.Time) (bool, error) {
	query := `
		UPDATE slots
		SET status = 'locked', student_id = $2, locked_at = $3, expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'available'
	`

	result, err := q.Exec(ctx, query, slotID, studentID, lockedAt, expiresAt)
	if err != nil {
		r.log.Error("Failed to lock slot",
			zap.Error(err),
			zap.String("slot_id", slotID.String()),
			zap.String("student_id", studentID.String()),
		)
		return false, fmt.Errorf("lock slot %s: %w", slotID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

// Release transitions locked -> available, clearing all hold fields. Rows
// already available or paid are left untouched, which makes release safe to
// call from both the cancellation path and the expiry sweep.
func (r *slotRepository) Release(ctx context.Context, q database.Querier, slotIDs []uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'available', student_id = NULL, locked_at = NULL, expires_at = NULL, payment_id = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'locked'
	`

	result, err := q.Exec(ctx, query, slotIDs)
	if err != nil {
		r.log.Error("Failed to release slots", zap.Error(err), zap.Int("count", len(slotIDs)))
		return 0, fmt.Errorf("release slots: %w", err)
	}

	return result.RowsAffected(), nil
}

// ReleaseUnbound is the release for abandoned holds. The payment_id guard is
// re-checked in the UPDATE itself: a hold that a checkout bound between the
// sweep's read and this write is no longer unbound and stays locked.
func (r *slotRepository) ReleaseUnbound(ctx context.Context, q database.Querier, slotIDs []uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'available', student_id = NULL, locked_at = NULL, expires_at = NULL, updated_at = NOW()
		WHERE id = ANY($1) AND status = 'locked' AND payment_id IS NULL
	`

	result, err := q.Exec(ctx, query, slotIDs)
	if err != nil {
		r.log.Error("Failed to release unbound slots", zap.Error(err), zap.Int("count", len(slotIDs)))
		return 0, fmt.Errorf("release unbound slots: %w", err)
	}

	return result.RowsAffected(), nil
}

// BindPayment attaches a payment order to the caller's currently held,
// unbound slots only. Slots locked by another student are never picked up.
func (r *slotRepository) BindPayment(ctx context.Context, q database.Querier, studentID, tutorID, paymentID uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET payment_id = $3, updated_at = NOW()
		WHERE student_id = $1 AND tutor_id = $2 AND status = 'locked' AND payment_id IS NULL
	`

	result, err := q.Exec(ctx, query, studentID, tutorID, paymentID)
	if err != nil {
		r.log.Error("Failed to bind payment to slots",
			zap.Error(err),
			zap.String("student_id", studentID.String()),
			zap.String("payment_id", paymentID.String()),
		)
		return 0, fmt.Errorf("bind payment %s to slots: %w", paymentID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *slotRepository) MarkPaidByPaymentID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'paid', updated_at = NOW()
		WHERE payment_id = $1 AND status = 'locked'
	`

	result, err := q.Exec(ctx, query, paymentID)
	if err != nil {
		r.log.Error("Failed to mark slots paid",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
		)
		return 0, fmt.Errorf("mark slots paid for payment %s: %w", paymentID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *slotRepository) ReleaseByPaymentID(ctx context.Context, q database.Querier, paymentID uuid.UUID) (int64, error) {
	query := `
		UPDATE slots
		SET status = 'available', student_id = NULL, locked_at = NULL, expires_at = NULL, payment_id = NULL, updated_at = NOW()
		WHERE payment_id = $1 AND status = 'locked'
	`

	result, err := q.Exec(ctx, query, paymentID)
	if err != nil {
		r.log.Error("Failed to release slots by payment",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
		)
		return 0, fmt.Errorf("release slots for payment %s: %w", paymentID.String(), err)
	}

	return result.RowsAffected(), nil
}

func (r *slotRepository) FindLockedByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*entity.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE payment_id = $1 AND status = 'locked'`

	rows, err := r.db.Query(ctx, query, paymentID)
	if err != nil {
		r.log.Error("Failed to find locked slots by payment",
			zap.Error(err),
			zap.String("payment_id", paymentID.String()),
		)
		return nil, fmt.Errorf("find locked slots for payment %s: %w", paymentID.String(), err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

// FindLockedUnbound returns the caller's active holds that no payment order
// has claimed yet. Checkout uses it to size a plan-targeted order.
func (r *slotRepository) FindLockedUnbound(ctx context.Context, studentID, tutorID uuid.UUID) ([]*entity.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE student_id = $1 AND tutor_id = $2 AND status = 'locked' AND payment_id IS NULL
		ORDER BY start_time
	`

	rows, err := r.db.Query(ctx, query, studentID, tutorID)
	if err != nil {
		r.log.Error("Failed to find locked unbound slots",
			zap.Error(err),
			zap.String("student_id", studentID.String()),
			zap.String("tutor_id", tutorID.String()),
		)
		return nil, fmt.Errorf("find locked unbound slots for student %s: %w", studentID.String(), err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

// FindExpiredUnbound returns abandoned holds: locked past their hold window
// with no payment order ever attached (checkout never reached).
func (r *slotRepository) FindExpiredUnbound(ctx context.Context, now time.Time) ([]*entity.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE status = 'locked' AND payment_id IS NULL AND expires_at < $1
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to find expired unbound slots", zap.Error(err))
		return nil, fmt.Errorf("find expired unbound slots: %w", err)
	}
	defer rows.Close()

	return collectSlots(rows)
}

func collectSlots(rows pgx.Rows) ([]*entity.Slot, error) {
	var slots []*entity.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot row: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot rows: %w", err)
	}
	return slots, nil
}
