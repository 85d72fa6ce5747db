package usecase

import (
	"context"
	"fmt"
	"time"

	"tutor-booking/internal/data/entity"
	"tutor-booking/internal/data/repository"
	"tutor-booking/internal/dto/request"
	"tutor-booking/internal/dto/response"
	"tutor-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationService coordinates slot holds. It is the only component that
// moves slots available -> locked, and one of the release authorities for
// locked -> available.
type ReservationService interface {
	// Public endpoint
	LockSlots(ctx context.Context, req *request.LockSlotsRequest) (*response.ReservationResponse, error)
	ReleaseSlots(ctx context.Context, req *request.ReleaseSlotsRequest) error

	// Internal collaborators (payment service, expiry sweep)
	Release(ctx context.Context, slotIDs []uuid.UUID) error
	BindPayment(ctx context.Context, studentID, tutorID, paymentID uuid.UUID) (int64, error)
}

type reservationService struct {
	repo *repository.Repository
	hold time.Duration
	log  *zap.Logger
}

func NewReservationService(repo *repository.Repository, config *utils.Config, log *zap.Logger) ReservationService {
	return &reservationService{
		repo: repo,
		hold: time.Duration(config.Booking.HoldMinutes) * time.Minute,
		log:  log.With(zap.String("service", "reservation")),
	}
}

// LockSlots locks every requested slot or none of them. Each slot transition
// is a status-guarded UPDATE; the whole set runs in one transaction, so a
// single contested slot rolls back the entire request with ErrSlotUnavailable
// and the winner of the race keeps its holds untouched.
func (s *reservationService) LockSlots(ctx context.Context, req *request.LockSlotsRequest) (*response.ReservationResponse, error) {
	// Validate request
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Lock slots validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		return nil, fmt.Errorf("invalid student ID format %s: %w", req.StudentID, err)
	}

	tutorID, err := uuid.Parse(req.TutorID)
	if err != nil {
		return nil, fmt.Errorf("invalid tutor ID format %s: %w", req.TutorID, err)
	}

	slotIDs := make([]uuid.UUID, len(req.SlotIDs))
	seen := make(map[uuid.UUID]bool, len(req.SlotIDs))
	for i, slotIDStr := range req.SlotIDs {
		slotID, err := uuid.Parse(slotIDStr)
		if err != nil {
			return nil, fmt.Errorf("invalid slot ID format %s: %w", slotIDStr, err)
		}
		if seen[slotID] {
			return nil, fmt.Errorf("duplicate slot ID %s in request", slotIDStr)
		}
		seen[slotID] = true
		slotIDs[i] = slotID
	}

	// Verify the slots exist and belong to the requested tutor. Availability
	// is checked again by the guarded update below; this pass only produces
	// better errors for requests that can never succeed.
	slots, err := s.repo.Slot.FindByIDs(ctx, slotIDs)
	if err != nil {
		s.log.Error("Failed to load slots for locking", zap.Error(err))
		return nil, fmt.Errorf("load slots: %w", err)
	}
	if len(slots) != len(slotIDs) {
		return nil, fmt.Errorf("lock slots: %w", entity.ErrSlotUnavailable)
	}
	for _, slot := range slots {
		if slot.TutorID != tutorID {
			return nil, fmt.Errorf("slot %s does not belong to tutor %s", slot.ID.String(), req.TutorID)
		}
	}

	now := time.Now()
	expiresAt := now.Add(s.hold)

	tx, err := s.repo.DB.Begin(ctx)
	if err != nil {
		s.log.Error("Failed to begin lock transaction", zap.Error(err))
		return nil, fmt.Errorf("begin lock transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, slotID := range slotIDs {
		locked, err := s.repo.Slot.Lock(ctx, tx, slotID, studentID, now, expiresAt)
		if err != nil {
			return nil, fmt.Errorf("lock slot %s: %w", slotID.String(), err)
		}
		if !locked {
			// Lost the race on this slot. Roll back every lock taken so
			// far; the caller must re-query availability for a fresh intent.
			s.log.Info("Slot lock race lost",
				zap.String("slot_id", slotID.String()),
				zap.String("student_id", req.StudentID),
			)
			return nil, fmt.Errorf("lock slot %s: %w", slotID.String(), entity.ErrSlotUnavailable)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		s.log.Error("Failed to commit lock transaction", zap.Error(err))
		return nil, fmt.Errorf("commit lock transaction: %w", err)
	}

	s.log.Info("Slots locked",
		zap.String("student_id", req.StudentID),
		zap.String("tutor_id", req.TutorID),
		zap.Int("slot_count", len(slotIDs)),
		zap.Time("expires_at", expiresAt),
	)

	slotResponses := make([]response.SlotResponse, len(slots))
	for i, slot := range slots {
		resp := response.SlotToResponse(slot)
		resp.Status = entity.SlotStatusLocked
		resp.ExpiresAt = &expiresAt
		slotResponses[i] = resp
	}

	return &response.ReservationResponse{
		StudentID: req.StudentID,
		TutorID:   req.TutorID,
		Slots:     slotResponses,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *reservationService) ReleaseSlots(ctx context.Context, req *request.ReleaseSlotsRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Release slots validation failed", zap.Any("errors", errs))
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	slotIDs := make([]uuid.UUID, len(req.SlotIDs))
	for i, slotIDStr := range req.SlotIDs {
		slotID, err := uuid.Parse(slotIDStr)
		if err != nil {
			return fmt.Errorf("invalid slot ID format %s: %w", slotIDStr, err)
		}
		slotIDs[i] = slotID
	}

	return s.Release(ctx, slotIDs)
}

// Release returns locked slots to the pool. Slots already available or paid
// are skipped silently; both the cancellation path and the expiry sweep may
// call this for the same set.
func (s *reservationService) Release(ctx context.Context, slotIDs []uuid.UUID) error {
	if len(slotIDs) == 0 {
		return nil
	}

	released, err := s.repo.Slot.Release(ctx, s.repo.DB, slotIDs)
	if err != nil {
		s.log.Error("Failed to release slots", zap.Error(err), zap.Int("count", len(slotIDs)))
		return fmt.Errorf("release slots: %w", err)
	}

	s.log.Info("Slots released",
		zap.Int("requested", len(slotIDs)),
		zap.Int64("released", released),
	)

	return nil
}

// BindPayment attaches a payment order to the student's current unbound
// holds with that tutor. Holds belonging to other students are never touched.
func (s *reservationService) BindPayment(ctx context.Context, studentID, tutorID, paymentID uuid.UUID) (int64, error) {
	bound, err := s.repo.Slot.BindPayment(ctx, s.repo.DB, studentID, tutorID, paymentID)
	if err != nil {
		return 0, fmt.Errorf("bind payment: %w", err)
	}

	s.log.Info("Payment bound to slots",
		zap.String("student_id", studentID.String()),
		zap.String("tutor_id", tutorID.String()),
		zap.String("payment_id", paymentID.String()),
		zap.Int64("slots_bound", bound),
	)

	return bound, nil
}
