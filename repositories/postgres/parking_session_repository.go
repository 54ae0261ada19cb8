package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/car-park/models"
	"github.com/upb/car-park/repositories"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// uniqueViolation is the Postgres SQLSTATE for a unique index conflict
const uniqueViolation pq.ErrorCode = "23505"

const sessionColumns = `id, reg_plate, entry_time, entry_photo, exit_time, duration_hours, payment_due`

// ParkingSessionRepository implements the repositories.ParkingSessionRepository interface
type ParkingSessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewParkingSessionRepository creates a new parking session repository
func NewParkingSessionRepository(db *DB, logger *zap.Logger) repositories.ParkingSessionRepository {
	return &ParkingSessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a newly opened session
func (r *ParkingSessionRepository) Create(ctx context.Context, session *models.ParkingSession) error {
	query := `
		INSERT INTO parking_sessions (id, reg_plate, entry_time, entry_photo)
		VALUES ($1, $2, $3, $4)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		session.ID,
		session.RegPlate,
		session.EntryTime,
		session.EntryPhoto,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("plate %s already has an open session: %w", session.RegPlate, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create parking session: %w", err)
	}

	r.logger.Debug("parking session opened",
		zap.String("id", session.ID.String()),
		zap.String("reg_plate", session.RegPlate))
	return nil
}

// GetOpenByRegPlate retrieves the open session for a plate
func (r *ParkingSessionRepository) GetOpenByRegPlate(ctx context.Context, regPlate string) (*models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
		WHERE reg_plate = $1 AND exit_time IS NULL
		ORDER BY entry_time DESC
		LIMIT 1
		FOR UPDATE`

	executor := GetExecutor(ctx, r.db)
	session, err := scanSession(executor.QueryRowContext(ctx, query, regPlate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("open session for %s: %w", regPlate, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get open session: %w", err)
	}

	return session, nil
}

// Close persists the exit of an open session
func (r *ParkingSessionRepository) Close(ctx context.Context, session *models.ParkingSession) error {
	if session.IsOpen() {
		return errors.New("session has no exit time")
	}

	query := `
		UPDATE parking_sessions
		SET exit_time = $2,
		    duration_hours = $3,
		    payment_due = $4
		WHERE id = $1 AND exit_time IS NULL
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		session.ID,
		*session.ExitTime,
		*session.DurationHours,
		*session.PaymentDue,
	)
	if err != nil {
		return fmt.Errorf("failed to close parking session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("open session %s: %w", session.ID, repositories.ErrNotFound)
	}

	r.logger.Debug("parking session closed", zap.String("id", session.ID.String()))
	return nil
}

// GetLatestByRegPlateContaining retrieves the most recent session whose plate
// contains the fragment
func (r *ParkingSessionRepository) GetLatestByRegPlateContaining(ctx context.Context, fragment string) (*models.ParkingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM parking_sessions
		WHERE strpos(reg_plate, $1) > 0
		ORDER BY entry_time DESC
		LIMIT 1`

	executor := GetExecutor(ctx, r.db)
	session, err := scanSession(executor.QueryRowContext(ctx, query, fragment))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session matching %s: %w", fragment, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}

	return session, nil
}

func scanSession(row *sql.Row) (*models.ParkingSession, error) {
	session := &models.ParkingSession{}
	var (
		exitTime sql.NullTime
		duration sql.NullInt64
		payment  sql.NullFloat64
	)

	err := row.Scan(
		&session.ID,
		&session.RegPlate,
		&session.EntryTime,
		&session.EntryPhoto,
		&exitTime,
		&duration,
		&payment,
	)
	if err != nil {
		return nil, err
	}

	if exitTime.Valid {
		t := exitTime.Time
		session.ExitTime = &t
	}
	if duration.Valid {
		d := int(duration.Int64)
		session.DurationHours = &d
	}
	if payment.Valid {
		p := payment.Float64
		session.PaymentDue = &p
	}
	return session, nil
}
