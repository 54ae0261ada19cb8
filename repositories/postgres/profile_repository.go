package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/repositories"
	"go.uber.org/zap"
)

const profileColumns = `user_id, email, name, reg_plates, created_at, updated_at`

// ProfileRepository implements the repositories.ProfileRepository interface
type ProfileRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *DB, logger *zap.Logger) repositories.ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert creates the profile or overwrites its email, name and plates
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, name, reg_plates, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE
		SET email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    reg_plates = EXCLUDED.reg_plates,
		    updated_at = EXCLUDED.updated_at
	`

	plates := profile.RegPlates
	if plates == nil {
		plates = []string{}
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		profile.UserID,
		profile.Email,
		profile.Name,
		pq.Array(plates),
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	r.logger.Debug("profile upserted", zap.String("user_id", profile.UserID))
	return nil
}

// GetByUserID retrieves a profile by Cognito subject
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	executor := GetExecutor(ctx, r.db)
	profile, err := scanProfile(executor.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// Update applies the provided fields and returns the stored profile
func (r *ProfileRepository) Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	sets := make([]string, 0, 3)
	args := []interface{}{userID}

	if update.Name != nil {
		args = append(args, *update.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if update.RegPlates != nil {
		args = append(args, pq.Array(*update.RegPlates))
		sets = append(sets, fmt.Sprintf("reg_plates = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	query := `UPDATE profiles SET ` + strings.Join(sets, ", ") +
		` WHERE user_id = $1 RETURNING ` + profileColumns

	executor := GetExecutor(ctx, r.db)
	profile, err := scanProfile(executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", userID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	r.logger.Debug("profile updated", zap.String("user_id", userID))
	return profile, nil
}

// GetByRegPlate retrieves the earliest profile that registered the plate
func (r *ProfileRepository) GetByRegPlate(ctx context.Context, regPlate string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles
		WHERE $1 = ANY(reg_plates)
		ORDER BY created_at ASC
		LIMIT 1`

	executor := GetExecutor(ctx, r.db)
	profile, err := scanProfile(executor.QueryRowContext(ctx, query, regPlate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile for plate %s: %w", regPlate, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile by plate: %w", err)
	}

	return profile, nil
}

func scanProfile(row *sql.Row) (*models.Profile, error) {
	profile := &models.Profile{}
	var plates pq.StringArray

	err := row.Scan(
		&profile.UserID,
		&profile.Email,
		&profile.Name,
		&plates,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	profile.RegPlates = []string(plates)
	if profile.RegPlates == nil {
		profile.RegPlates = []string{}
	}
	return profile, nil
}
