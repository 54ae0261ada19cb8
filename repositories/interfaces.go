package repositories

import (
	"context"

	"github.com/upb/car-park/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// ProfileRepository handles driver profile data operations
type ProfileRepository interface {
	// Upsert creates the profile or replaces its name, email and plates
	Upsert(ctx context.Context, profile *models.Profile) error

	// GetByUserID retrieves a profile by Cognito subject.
	// Returns ErrNotFound when absent.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)

	// Update applies a partial update and returns the stored profile
	Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)

	// GetByRegPlate retrieves the first profile that registered the plate
	GetByRegPlate(ctx context.Context, regPlate string) (*models.Profile, error)
}

// ParkingSessionRepository handles parking session data operations
type ParkingSessionRepository interface {
	// Create inserts a newly opened session
	Create(ctx context.Context, session *models.ParkingSession) error

	// GetOpenByRegPlate retrieves the open session for a plate, locking it
	// when called inside a transaction
	GetOpenByRegPlate(ctx context.Context, regPlate string) (*models.ParkingSession, error)

	// Close persists exit time, duration and payment of a session
	Close(ctx context.Context, session *models.ParkingSession) error

	// GetLatestByRegPlateContaining retrieves the most recent session whose
	// plate contains the fragment
	GetLatestByRegPlateContaining(ctx context.Context, fragment string) (*models.ParkingSession, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Profiles        ProfileRepository
	ParkingSessions ParkingSessionRepository
}
