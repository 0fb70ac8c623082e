package booking

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fisiohome/booking-engine/internal/gateway"
	redisclient "github.com/fisiohome/booking-engine/internal/redis"
	"github.com/fisiohome/booking-engine/internal/retry"
)

// Gateway is the outbound booking service the creation orchestrator submits
// normalized payloads to.
type Gateway interface {
	CreateBooking(ctx context.Context, payload gateway.BookingPayload) (*gateway.BookingResponse, error)
}

// Service composes the identity reconciler, gateway client, resolver, and the
// update pipeline around one repository.
type Service struct {
	repo    Repository
	locker  redisclient.Locker
	gw      Gateway
	resolve retry.Strategy
	log     *zap.Logger
}

func NewService(repo Repository, locker redisclient.Locker, gw Gateway, resolve retry.Strategy, log *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		locker:  locker,
		gw:      gw,
		resolve: resolve,
		log:     log,
	}
}

// GetAppointment loads one visit with its status history.
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, []StatusHistory, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	history, err := s.repo.ListStatusHistory(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return appt, history, nil
}

// GetSeries loads every visit sharing a registration number, ordered by visit
// number.
func (s *Service) GetSeries(ctx context.Context, registrationNumber string) ([]Appointment, error) {
	return s.repo.ListSeries(ctx, registrationNumber)
}
