package parking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/upb/car-park/models"
	"github.com/upb/car-park/repositories"
	"github.com/upb/car-park/services"
	"go.uber.org/zap"
)

// Action is what a detection did to the plate's parking state
type Action string

const (
	ActionEntry Action = "entry"
	ActionExit  Action = "exit"
)

// DetectionResult describes the outcome of a camera detection
type DetectionResult struct {
	Action  Action                 `json:"action"`
	Session *models.ParkingSession `json:"session"`
	Message string                 `json:"message"`
}

// NotificationQueue accepts closed sessions for owner notification
type NotificationQueue interface {
	Enqueue(session *models.ParkingSession) error
}

// ParkingService records entries and exits of vehicles
type ParkingService struct {
	sessions   repositories.ParkingSessionRepository
	txManager  repositories.TransactionManager
	queue      NotificationQueue
	hourlyRate float64
	now        func() time.Time
	logger     *zap.Logger
}

// NewParkingService creates a new ParkingService instance
func NewParkingService(
	sessions repositories.ParkingSessionRepository,
	txManager repositories.TransactionManager,
	queue NotificationQueue,
	hourlyRate float64,
	logger *zap.Logger,
) *ParkingService {
	return &ParkingService{
		sessions:   sessions,
		txManager:  txManager,
		queue:      queue,
		hourlyRate: hourlyRate,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// RecordDetection toggles the parking state of a detected plate: it closes
// the plate's open session if there is one and opens a new session otherwise.
func (s *ParkingService) RecordDetection(ctx context.Context, regPlate, photoKey string) (*DetectionResult, error) {
	plate := models.NormalizePlate(regPlate)
	if plate == "" {
		return nil, services.ErrNoPlateDetected
	}

	result, err := services.WithTransactionResult(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) (*DetectionResult, error) {
		open, err := s.sessions.GetOpenByRegPlate(ctx, plate)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, services.WrapInternal("failed to look up open session", err)
		}

		if open != nil {
			open.Close(s.now(), s.hourlyRate)
			if err := s.sessions.Close(ctx, open); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return nil, services.ErrSessionAlreadyClosed
				}
				return nil, services.WrapInternal("failed to close session", err)
			}
			return &DetectionResult{
				Action:  ActionExit,
				Session: open,
				Message: fmt.Sprintf("Exit recorded for %s. Payment due: $%s", plate, formatAmount(*open.PaymentDue)),
			}, nil
		}

		session := models.NewParkingSession(plate, photoKey, s.now())
		if err := s.sessions.Create(ctx, session); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return nil, services.ErrSessionAlreadyOpen
			}
			return nil, services.WrapInternal("failed to open session", err)
		}
		return &DetectionResult{
			Action:  ActionEntry,
			Session: session,
			Message: fmt.Sprintf("Entry recorded for %s", plate),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if result.Action == ActionExit {
		s.logger.Info("exit recorded",
			zap.String("reg_plate", plate),
			zap.Int("duration_hours", *result.Session.DurationHours),
			zap.Float64("payment_due", *result.Session.PaymentDue))

		if err := s.queue.Enqueue(result.Session); err != nil {
			s.logger.Warn("payment notification not queued",
				zap.String("session_id", result.Session.ID.String()),
				zap.Error(err))
		}
	} else {
		s.logger.Info("entry recorded", zap.String("reg_plate", plate))
	}

	return result, nil
}

// LookupPlate returns the most recent session whose plate contains the fragment
func (s *ParkingService) LookupPlate(ctx context.Context, fragment string) (*models.ParkingSession, error) {
	fragment = models.NormalizePlate(fragment)
	if fragment == "" {
		return nil, services.ErrInvalidRegPlate.WithDetail("field", "regPlate")
	}

	session, err := s.sessions.GetLatestByRegPlateContaining(ctx, fragment)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrSessionNotFound
		}
		return nil, services.WrapInternal("failed to look up plate", err)
	}
	return session, nil
}

// formatAmount prints whole amounts without decimals
func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
