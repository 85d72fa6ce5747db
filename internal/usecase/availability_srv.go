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

// AvailabilityService materializes a tutor's recurring plan into concrete
// slots and serves availability queries. Slots are generated once; their
// time windows never change afterwards.
type AvailabilityService interface {
	GenerateSlots(ctx context.Context, req *request.GenerateSlotsRequest) (int, error)
	ListAvailable(ctx context.Context, tutorID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.SlotResponse], error)
}

type availabilityService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewAvailabilityService(repo *repository.Repository, log *zap.Logger) AvailabilityService {
	return &availabilityService{
		repo: repo,
		log:  log.With(zap.String("service", "availability")),
	}
}

func (s *availabilityService) GenerateSlots(ctx context.Context, req *request.GenerateSlotsRequest) (int, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Generate slots validation failed", zap.Any("errors", errs))
		return 0, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	planID, err := uuid.Parse(req.PlanID)
	if err != nil {
		return 0, fmt.Errorf("invalid plan ID format %s: %w", req.PlanID, err)
	}

	plan, err := s.repo.BookingPlan.FindByID(ctx, planID)
	if err != nil || plan == nil {
		return 0, fmt.Errorf("booking plan %s not found", req.PlanID)
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return 0, fmt.Errorf("invalid start date %s: %w", req.StartDate, err)
	}

	now := time.Now()
	var slots []*entity.Slot

	for week := 0; week < req.Weeks; week++ {
		for _, session := range req.Sessions {
			sessionStart, err := time.Parse("15:04", session.StartTime)
			if err != nil {
				return 0, fmt.Errorf("invalid session start time %s: %w", session.StartTime, err)
			}

			// Walk to the requested weekday within this week.
			day := startDate.AddDate(0, 0, week*7)
			offset := (session.Weekday - int(day.Weekday()) + 7) % 7
			day = day.AddDate(0, 0, offset)

			start := time.Date(day.Year(), day.Month(), day.Day(),
				sessionStart.Hour(), sessionStart.Minute(), 0, 0, time.UTC)
			end := start.Add(time.Duration(session.DurationMinutes) * time.Minute)

			slots = append(slots, &entity.Slot{
				Base: entity.Base{
					ID:        uuid.New(),
					CreatedAt: now,
					UpdatedAt: now,
				},
				TutorID:   plan.TutorID,
				PlanID:    plan.ID,
				StartTime: start,
				EndTime:   end,
				Status:    entity.SlotStatusAvailable,
			})
		}
	}

	if err := s.repo.Slot.CreateBatch(ctx, slots); err != nil {
		s.log.Error("Failed to generate slots",
			zap.Error(err),
			zap.String("plan_id", req.PlanID),
		)
		return 0, fmt.Errorf("generate slots: %w", err)
	}

	s.log.Info("Slots generated",
		zap.String("plan_id", req.PlanID),
		zap.String("tutor_id", plan.TutorID.String()),
		zap.Int("count", len(slots)),
	)

	return len(slots), nil
}

func (s *availabilityService) ListAvailable(ctx context.Context, tutorID string, req *request.PaginatedRequest) (*response.PaginatedResponse[response.SlotResponse], error) {
	tutorUUID, err := uuid.Parse(tutorID)
	if err != nil {
		return nil, fmt.Errorf("invalid tutor ID format %s: %w", tutorID, err)
	}

	slots, err := s.repo.Slot.FindAvailableByTutorID(ctx, tutorUUID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list available slots", zap.Error(err), zap.String("tutor_id", tutorID))
		return nil, fmt.Errorf("list available slots: %w", err)
	}

	total, err := s.repo.Slot.CountAvailableByTutorID(ctx, tutorUUID)
	if err != nil {
		s.log.Error("Failed to count available slots", zap.Error(err))
		return nil, fmt.Errorf("count available slots: %w", err)
	}

	slotResponses := make([]response.SlotResponse, len(slots))
	for i, slot := range slots {
		slotResponses[i] = response.SlotToResponse(slot)
	}

	return response.NewPaginatedResponse(slotResponses, req.Page, req.PerPage, total), nil
}
