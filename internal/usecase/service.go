package usecase

import (
	"tutor-booking/internal/data/repository"
	"tutor-booking/pkg/gateway"
	"tutor-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Reservation  ReservationService
	Payment      PaymentService
	Availability AvailabilityService
}

func NewService(repo *repository.Repository, config *utils.Config, gw gateway.PaymentGateway, log *zap.Logger) *Service {
	reservation := NewReservationService(repo, config, log)

	return &Service{
		Reservation:  reservation,
		Payment:      NewPaymentService(repo, reservation, gw, config, log),
		Availability: NewAvailabilityService(repo, log),
	}
}
