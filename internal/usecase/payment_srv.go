package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tutor-booking/internal/data/entity"
	"tutor-booking/internal/data/repository"
	"tutor-booking/internal/dto/request"
	"tutor-booking/internal/dto/response"
	"tutor-booking/pkg/gateway"
	"tutor-booking/pkg/utils"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService opens payment orders against the external gateway and
// reconciles their outcome, either event-driven (webhook) or time-driven
// (expiry sweep). It is the only writer of payment order state after
// creation.
type PaymentService interface {
	CreateCheckout(ctx context.Context, req *request.CreateCheckoutRequest) (*response.CheckoutResponse, error)
	GetUserOrders(ctx context.Context, payerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.PaymentOrderResponse], error)

	// HandleWebhookEvent applies one provider notification. Unknown orders
	// report entity.ErrPaymentNotFound, replays of terminal orders report
	// entity.ErrDuplicateEvent; both are discards, and the webhook ingress
	// acknowledges them like any other outcome.
	HandleWebhookEvent(ctx context.Context, orderCode, reportedStatus string, rawPayload []byte) error

	// Sweeps, driven by the scheduler with an explicit clock.
	SweepExpiredOrders(ctx context.Context, now time.Time) (int, error)
	SweepAbandonedSlots(ctx context.Context, now time.Time) (int, error)
}

type paymentService struct {
	repo        *repository.Repository
	reservation ReservationService
	gateway     gateway.PaymentGateway
	config      *utils.Config
	log         *zap.Logger
	now         func() time.Time
	orderCode   func() string
}

func NewPaymentService(
	repo *repository.Repository,
	reservation ReservationService,
	gw gateway.PaymentGateway,
	config *utils.Config,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		repo:        repo,
		reservation: reservation,
		gateway:     gw,
		config:      config,
		log:         log.With(zap.String("service", "payment")),
		now:         time.Now,
		orderCode:   utils.GenerateOrderCode,
	}
}

func (s *paymentService) CreateCheckout(ctx context.Context, req *request.CreateCheckoutRequest) (*response.CheckoutResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create checkout validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	payerID, err := uuid.Parse(req.PayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid payer ID format %s: %w", req.PayerID, err)
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return nil, fmt.Errorf("invalid target ID format %s: %w", req.TargetID, err)
	}

	// Resolve amount, description and owning tutor from the target
	targetType := entity.PaymentTargetType(req.TargetType)
	var amount int64
	var description string
	var tutorID uuid.UUID

	switch targetType {
	case entity.PaymentTargetCourse:
		course, err := s.repo.Course.FindByID(ctx, targetID)
		if err != nil || course == nil {
			return nil, fmt.Errorf("course %s not found", req.TargetID)
		}
		if !course.IsActive {
			return nil, fmt.Errorf("course %s is not active", course.Title)
		}
		amount = course.Price
		description = course.Title
		tutorID = course.TutorID

	case entity.PaymentTargetBookingPlan:
		plan, err := s.repo.BookingPlan.FindByID(ctx, targetID)
		if err != nil || plan == nil {
			return nil, fmt.Errorf("booking plan %s not found", req.TargetID)
		}
		heldSlots, err := s.repo.Slot.FindLockedUnbound(ctx, payerID, plan.TutorID)
		if err != nil {
			return nil, fmt.Errorf("load held slots: %w", err)
		}
		if len(heldSlots) == 0 {
			return nil, fmt.Errorf("no held slots to pay for plan %s", req.TargetID)
		}
		amount = plan.PricePerSlot * int64(len(heldSlots))
		description = fmt.Sprintf("%s x %d slots", plan.Title, len(heldSlots))
		tutorID = plan.TutorID

	default:
		return nil, fmt.Errorf("unsupported target type %s", req.TargetType)
	}

	orderCode, err := s.allocateOrderCode(ctx)
	if err != nil {
		return nil, err
	}

	// Call the gateway with bounded exponential backoff before touching the
	// ledger, so a failed checkout attempt leaves no pending order behind.
	link, err := s.createPaymentLink(ctx, gateway.CreateLinkRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		ReturnURL:   s.config.Gateway.ReturnURL,
		CancelURL:   s.config.Gateway.CancelURL,
	})
	if err != nil {
		s.log.Error("Failed to create payment link",
			zap.Error(err),
			zap.String("order_code", orderCode),
			zap.String("payer_id", req.PayerID),
		)
		return nil, fmt.Errorf("create payment link: %w", err)
	}

	now := s.now()
	order := &entity.PaymentOrder{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		OrderCode:  orderCode,
		Amount:     amount,
		TargetType: targetType,
		TargetID:   targetID,
		PayerID:    payerID,
		Status:     entity.PaymentStatusPending,
		ExpiresAt:  now.Add(time.Duration(s.config.Booking.PaymentTimeoutMinutes) * time.Minute),
	}

	if err := s.repo.PaymentOrder.Create(ctx, order); err != nil {
		s.log.Error("Failed to persist payment order",
			zap.Error(err),
			zap.String("order_code", orderCode),
		)
		return nil, fmt.Errorf("create payment order: %w", err)
	}

	bound, err := s.reservation.BindPayment(ctx, payerID, tutorID, order.ID)
	if err != nil {
		s.log.Error("Failed to bind payment to held slots",
			zap.Error(err),
			zap.String("order_code", orderCode),
		)
		return nil, fmt.Errorf("bind payment to slots: %w", err)
	}

	s.log.Info("Checkout created",
		zap.String("order_code", orderCode),
		zap.String("payer_id", req.PayerID),
		zap.String("target_type", req.TargetType),
		zap.Int64("amount", amount),
		zap.Int64("slots_bound", bound),
	)

	return &response.CheckoutResponse{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		CheckoutURL: link.CheckoutURL,
		QRCode:      link.QRCode,
		ExpiresAt:   order.ExpiresAt,
		SlotsBound:  bound,
	}, nil
}

// allocateOrderCode generates a code that is not yet in the ledger. The code
// is signed into the gateway link before the order row exists, so a collision
// has to be caught here, not at insert time; the unique column still backstops
// the remaining window.
func (s *paymentService) allocateOrderCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 3; attempt++ {
		code := s.orderCode()

		existing, err := s.repo.PaymentOrder.FindByOrderCode(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check order code %s: %w", code, err)
		}
		if existing == nil {
			return code, nil
		}

		s.log.Warn("Order code collision, regenerating", zap.String("order_code", code))
	}

	return "", fmt.Errorf("allocate order code: %w", entity.ErrDuplicateOrderCode)
}

func (s *paymentService) createPaymentLink(ctx context.Context, req gateway.CreateLinkRequest) (*gateway.PaymentLink, error) {
	var link *gateway.PaymentLink

	operation := func() error {
		var err error
		link, err = s.gateway.CreatePaymentLink(ctx, req)
		return err
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.config.Gateway.MaxRetries))
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	return link, nil
}

func (s *paymentService) GetUserOrders(ctx context.Context, payerID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.PaymentOrderResponse], error) {
	payerUUID, err := uuid.Parse(payerID)
	if err != nil {
		return nil, fmt.Errorf("invalid payer ID format %s: %w", payerID, err)
	}

	orders, err := s.repo.PaymentOrder.FindByPayerID(ctx, payerUUID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get user orders", zap.Error(err), zap.String("payer_id", payerID))
		return nil, fmt.Errorf("get user orders: %w", err)
	}

	total, err := s.repo.PaymentOrder.CountByPayerID(ctx, payerUUID)
	if err != nil {
		s.log.Error("Failed to count user orders", zap.Error(err))
		return nil, fmt.Errorf("count user orders: %w", err)
	}

	orderResponses := make([]response.PaymentOrderResponse, len(orders))
	for i, order := range orders {
		orderResponses[i] = response.PaymentOrderToResponse(order)
	}

	return response.NewPaginatedResponse(orderResponses, req.Page, req.PerPage, total), nil
}

// ==================== WEBHOOK RECONCILIATION ====================

func (s *paymentService) HandleWebhookEvent(ctx context.Context, orderCode, reportedStatus string, rawPayload []byte) error {
	order, err := s.repo.PaymentOrder.FindByOrderCode(ctx, orderCode)
	if err != nil {
		return fmt.Errorf("load order for webhook: %w", err)
	}

	if order == nil {
		// Unknown order. The ingress still acks, otherwise the sender
		// redelivers forever.
		return fmt.Errorf("order %s: %w", orderCode, entity.ErrPaymentNotFound)
	}

	if order.Status.IsTerminal() {
		// Replay of an already-applied event, or the expiry sweep got
		// there first. Either way the event has no further effect.
		return fmt.Errorf("order %s already %s: %w", orderCode, string(order.Status), entity.ErrDuplicateEvent)
	}

	switch strings.ToUpper(reportedStatus) {
	case "PAID", "SUCCESS":
		return s.applyPaid(ctx, order, rawPayload)
	case "FAILED":
		return s.applyReleased(ctx, order, entity.PaymentStatusFailed, rawPayload)
	case "CANCELLED":
		return s.applyReleased(ctx, order, entity.PaymentStatusCancelled, rawPayload)
	default:
		// Intermediate provider status; the order stays pending until a
		// terminal event or the payment timeout.
		s.log.Info("Webhook with intermediate status ignored",
			zap.String("order_code", orderCode),
			zap.String("status", reportedStatus),
		)
		return nil
	}
}

// applyPaid commits the paid transition as one unit: ledger pending -> paid,
// bound slots locked -> paid, and plan activation for plan targets. A reader
// can never observe a paid order with slots still locked.
func (s *paymentService) applyPaid(ctx context.Context, order *entity.PaymentOrder, rawPayload []byte) error {
	tx, err := s.repo.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin paid transition: %w", err)
	}
	defer tx.Rollback(ctx)

	paidAt := s.now()
	won, err := s.repo.PaymentOrder.MarkTerminal(ctx, tx, order.ID, entity.PaymentStatusPaid, &paidAt, rawPayload)
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !won {
		// Another writer (duplicate delivery or the expiry sweep) took the
		// order out of pending between our read and this update. Discard.
		return fmt.Errorf("order %s lost paid transition: %w", order.OrderCode, entity.ErrDuplicateEvent)
	}

	slotsPaid, err := s.repo.Slot.MarkPaidByPaymentID(ctx, tx, order.ID)
	if err != nil {
		return fmt.Errorf("mark slots paid: %w", err)
	}

	// Downstream activation happens inside the same transaction, so it can
	// fire at most once per plan.
	if order.TargetType == entity.PaymentTargetBookingPlan {
		activated, err := s.repo.BookingPlan.Activate(ctx, tx, order.TargetID)
		if err != nil {
			return fmt.Errorf("activate booking plan: %w", err)
		}
		if activated {
			s.log.Info("Booking plan activated",
				zap.String("plan_id", order.TargetID.String()),
				zap.String("order_code", order.OrderCode),
			)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit paid transition: %w", err)
	}

	s.log.Info("Payment order paid",
		zap.String("order_code", order.OrderCode),
		zap.Int64("amount", order.Amount),
		zap.Int64("slots_paid", slotsPaid),
	)

	return nil
}

// applyReleased commits a failed or cancelled transition: ledger pending ->
// terminal, bound slots back to available.
func (s *paymentService) applyReleased(ctx context.Context, order *entity.PaymentOrder, status entity.PaymentStatus, rawPayload []byte) error {
	tx, err := s.repo.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin %s transition: %w", string(status), err)
	}
	defer tx.Rollback(ctx)

	won, err := s.repo.PaymentOrder.MarkTerminal(ctx, tx, order.ID, status, nil, rawPayload)
	if err != nil {
		return fmt.Errorf("mark order %s: %w", string(status), err)
	}
	if !won {
		return fmt.Errorf("order %s lost %s transition: %w", order.OrderCode, string(status), entity.ErrDuplicateEvent)
	}

	released, err := s.repo.Slot.ReleaseByPaymentID(ctx, tx, order.ID)
	if err != nil {
		return fmt.Errorf("release slots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s transition: %w", string(status), err)
	}

	s.log.Info("Payment order closed",
		zap.String("order_code", order.OrderCode),
		zap.String("status", string(status)),
		zap.Int64("slots_released", released),
	)

	return nil
}

// ==================== EXPIRY SWEEPS ====================

// SweepExpiredOrders expires pending orders whose payment window elapsed
// without a terminal webhook and frees their slots. A failure on one order
// never aborts the sweep for the rest.
func (s *paymentService) SweepExpiredOrders(ctx context.Context, now time.Time) (int, error) {
	orders, err := s.repo.PaymentOrder.FindExpiredPending(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find expired pending orders: %w", err)
	}

	swept := 0
	for _, order := range orders {
		if err := s.expireOrder(ctx, order); err != nil {
			s.log.Error("Failed to expire order, skipping",
				zap.Error(err),
				zap.String("order_code", order.OrderCode),
			)
			continue
		}
		swept++
	}

	if swept > 0 {
		s.log.Info("Expired orders swept", zap.Int("count", swept))
	}

	return swept, nil
}

func (s *paymentService) expireOrder(ctx context.Context, order *entity.PaymentOrder) error {
	tx, err := s.repo.DB.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin expire transition: %w", err)
	}
	defer tx.Rollback(ctx)

	won, err := s.repo.PaymentOrder.MarkTerminal(ctx, tx, order.ID, entity.PaymentStatusExpired, nil, nil)
	if err != nil {
		return fmt.Errorf("mark order expired: %w", err)
	}
	if !won {
		// A webhook landed between the sweep query and this update. The
		// webhook's transition stands; nothing to do here.
		return nil
	}

	if _, err := s.repo.Slot.ReleaseByPaymentID(ctx, tx, order.ID); err != nil {
		return fmt.Errorf("release slots for expired order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit expire transition: %w", err)
	}

	s.log.Info("Payment order expired",
		zap.String("order_code", order.OrderCode),
		zap.Time("expired_at", order.ExpiresAt),
	)

	return nil
}

// SweepAbandonedSlots releases holds that outlived their window without any
// payment order attached (the student never reached checkout).
func (s *paymentService) SweepAbandonedSlots(ctx context.Context, now time.Time) (int, error) {
	slots, err := s.repo.Slot.FindExpiredUnbound(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find abandoned slots: %w", err)
	}

	if len(slots) == 0 {
		return 0, nil
	}

	slotIDs := make([]uuid.UUID, len(slots))
	for i, slot := range slots {
		slotIDs[i] = slot.ID
	}

	// The release re-checks the unbound predicate row by row. A hold that a
	// checkout bound between the query above and this update stays locked;
	// its payment order now decides its fate.
	released, err := s.repo.Slot.ReleaseUnbound(ctx, s.repo.DB, slotIDs)
	if err != nil {
		return 0, fmt.Errorf("release abandoned slots: %w", err)
	}

	if released > 0 {
		s.log.Info("Abandoned slots swept", zap.Int64("count", released))
	}

	return int(released), nil
}
