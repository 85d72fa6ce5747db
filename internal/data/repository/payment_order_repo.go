package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutor-booking/internal/data/entity"
	"tutor-booking/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// PaymentOrderRepository is the only writer of payment order rows. An order
// leaves pending exactly once; MarkTerminal's status guard enforces it.
type PaymentOrderRepository interface {
	Create(ctx context.Context, order *entity.PaymentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentOrder, error)
	FindByOrderCode(ctx context.Context, orderCode string) (*entity.PaymentOrder, error)
	FindByPayerID(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]*entity.PaymentOrder, error)
	CountByPayerID(ctx context.Context, payerID uuid.UUID) (int64, error)

	MarkTerminal(ctx context.Context, q database.Querier, id uuid.UUID, status entity.PaymentStatus, paidAt *time.Time, rawPayload []byte) (bool, error)

	FindExpiredPending(ctx context.Context, now time.Time) ([]*entity.PaymentOrder, error)
}

type paymentOrderRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentOrderRepository(db database.PgxIface, log *zap.Logger) PaymentOrderRepository {
	return &paymentOrderRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment_order")),
	}
}

const paymentOrderColumns = `id, order_code, amount, target_type, target_id, payer_id, status, expires_at, paid_at, raw_payload, created_at, updated_at`

func scanPaymentOrder(row pgx.Row) (*entity.PaymentOrder, error) {
	var order entity.PaymentOrder
	err := row.Scan(
		&order.ID,
		&order.OrderCode,
		&order.Amount,
		&order.TargetType,
		&order.TargetID,
		&order.PayerID,
		&order.Status,
		&order.ExpiresAt,
		&order.PaidAt,
		&order.RawPayload,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *paymentOrderRepository) Create(ctx context.Context, order *entity.PaymentOrder) error {
	query := `
		INSERT INTO payment_orders (id, order_code, amount, target_type, target_id, payer_id, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.OrderCode,
		order.Amount,
		order.TargetType,
		order.TargetID,
		order.PayerID,
		order.Status,
		order.ExpiresAt,
		order.CreatedAt,
		order.UpdatedAt,
	)

	if err != nil {
		// 23505 = unique_violation; the only unique column is order_code.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("create payment order %s: %w", order.OrderCode, entity.ErrDuplicateOrderCode)
		}
		r.log.Error("Failed to create payment order",
			zap.Error(err),
			zap.String("order_code", order.OrderCode),
			zap.String("payer_id", order.PayerID.String()),
		)
		return fmt.Errorf("create payment order %s: %w", order.OrderCode, err)
	}

	return nil
}

func (r *paymentOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentOrder, error) {
	query := `SELECT ` + paymentOrderColumns + ` FROM payment_orders WHERE id = $1`

	order, err := scanPaymentOrder(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment order by ID",
			zap.Error(err),
			zap.String("payment_id", id.String()),
		)
		return nil, fmt.Errorf("find payment order by ID %s: %w", id.String(), err)
	}

	return order, nil
}

func (r *paymentOrderRepository) FindByOrderCode(ctx context.Context, orderCode string) (*entity.PaymentOrder, error) {
	query := `SELECT ` + paymentOrderColumns + ` FROM payment_orders WHERE order_code = $1`

	order, err := scanPaymentOrder(r.db.QueryRow(ctx, query, orderCode))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment order by code",
			zap.Error(err),
			zap.String("order_code", orderCode),
		)
		return nil, fmt.Errorf("find payment order by code %s: %w", orderCode, err)
	}

	return order, nil
}

func (r *paymentOrderRepository) FindByPayerID(ctx context.Context, payerID uuid.UUID, limit, offset int) ([]*entity.PaymentOrder, error) {
	query := `
		SELECT ` + paymentOrderColumns + `
		FROM payment_orders
		WHERE payer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, payerID, limit, offset)
	if err != nil {
		r.log.Error("Failed to find payment orders by payer",
			zap.Error(err),
			zap.String("payer_id", payerID.String()),
		)
		return nil, fmt.Errorf("find payment orders by payer %s: %w", payerID.String(), err)
	}
	defer rows.Close()

	return collectPaymentOrders(rows)
}

func (r *paymentOrderRepository) CountByPayerID(ctx context.Context, payerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM payment_orders WHERE payer_id = $1`

	var count int64
	err := r.db.QueryRow(ctx, query, payerID).Scan(&count)
	if err != nil {
		r.log.Error("Failed to count payment orders by payer",
			zap.Error(err),
			zap.String("payer_id", payerID.String()),
		)
		return 0, fmt.Errorf("count payment orders by payer %s: %w", payerID.String(), err)
	}

	return count, nil
}

// MarkTerminal moves a pending order into a terminal status. Returns false
// when the order already left pending, so a replayed webhook and the expiry
// sweep cannot both win.
func (r *paymentOrderRepository) MarkTerminal(ctx context.Context, q database.Querier, id uuid.UUID, status entity.PaymentStatus, paidAt *time.Time, rawPayload []byte) (bool, error) {
	query := `
		UPDATE payment_orders
		SET status = $2, paid_at = $3, raw_payload = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	result, err := q.Exec(ctx, query, id, status, paidAt, rawPayload)
	if err != nil {
		r.log.Error("Failed to mark payment order terminal",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("mark payment order %s as %s: %w", id.String(), string(status), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentOrderRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]*entity.PaymentOrder, error) {
	query := `
		SELECT ` + paymentOrderColumns + `
		FROM payment_orders
		WHERE status = 'pending' AND expires_at < $1
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to find expired pending orders", zap.Error(err))
		return nil, fmt.Errorf("find expired pending orders: %w", err)
	}
	defer rows.Close()

	return collectPaymentOrders(rows)
}

func collectPaymentOrders(rows pgx.Rows) ([]*entity.PaymentOrder, error) {
	var orders []*entity.PaymentOrder
	for rows.Next() {
		order, err := scanPaymentOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment order rows: %w", err)
	}
	return orders, nil
}
