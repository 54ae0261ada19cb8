package notifications

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/upb/car-park/models"
	"github.com/upb/car-park/repositories"
	"go.uber.org/zap"
)

// OwnerLookup finds the profile that registered a plate
type OwnerLookup interface {
	GetByRegPlate(ctx context.Context, regPlate string) (*models.Profile, error)
}

// Dispatcher delivers payment-due notifications for closed sessions in the
// background so the camera request does not wait on Redis
type Dispatcher struct {
	owners      OwnerLookup
	notifier    Notifier
	logger      *zap.Logger
	sessions    chan *models.ParkingSession
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	mu          sync.Mutex
}

// DispatcherConfig holds configuration for the Dispatcher
type DispatcherConfig struct {
	BufferSize  int
	WorkerCount int
}

// DefaultDispatcherConfig returns the default configuration
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(owners OwnerLookup, notifier Notifier, logger *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		owners:      owners,
		notifier:    notifier,
		logger:      logger,
		sessions:    make(chan *models.ParkingSession, cfg.BufferSize),
		workerCount: cfg.WorkerCount,
		bufferSize:  cfg.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return fmt.Errorf("dispatcher already started")
	}

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	d.started = true
	d.logger.Info("started notification dispatcher",
		zap.Int("worker_count", d.workerCount),
		zap.Int("buffer_size", d.bufferSize))

	return nil
}

// Stop drains queued sessions and stops the workers
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher not started")
	}
	d.started = false
	close(d.sessions)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-time.After(timeout):
		d.cancel()
		return fmt.Errorf("dispatcher stop timeout after %v", timeout)
	}
}

// Enqueue schedules the payment notification of a closed session.
// It never blocks; a full buffer drops the notification.
func (d *Dispatcher) Enqueue(session *models.ParkingSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started {
		return fmt.Errorf("dispatcher not started")
	}

	select {
	case d.sessions <- session:
		return nil
	default:
		d.logger.Warn("notification buffer full, dropping notification",
			zap.String("session_id", session.ID.String()),
			zap.String("reg_plate", session.RegPlate))
		return fmt.Errorf("notification buffer full")
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for session := range d.sessions {
		if err := d.Deliver(d.ctx, session); err != nil {
			d.logger.Error("failed to deliver payment notification",
				zap.Int("worker_id", id),
				zap.String("session_id", session.ID.String()),
				zap.Error(err))
		}
	}
}

// Deliver notifies the owner of the session's plate. A plate nobody
// registered is logged and skipped.
func (d *Dispatcher) Deliver(ctx context.Context, session *models.ParkingSession) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	owner, err := d.owners.GetByRegPlate(ctx, session.RegPlate)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			d.logger.Info("no user found for car registration", zap.String("reg_plate", session.RegPlate))
			return nil
		}
		return fmt.Errorf("failed to find plate owner: %w", err)
	}

	if owner.Email == "" {
		d.logger.Info("plate owner has no email", zap.String("user_id", owner.UserID))
		return nil
	}

	if err := d.notifier.Publish(ctx, models.NewPaymentDueNotification(owner.Email, session)); err != nil {
		return err
	}

	d.logger.Info("notification sent", zap.String("reg_plate", session.RegPlate))
	return nil
}

// Pending returns the number of queued notifications
func (d *Dispatcher) Pending() int {
	return len(d.sessions)
}
