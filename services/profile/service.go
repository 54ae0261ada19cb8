package profile

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/notifications"
	"github.com/upb/car-park/repositories"
	"github.com/upb/car-park/services"
	"go.uber.org/zap"
)

// CreateInput holds the editable fields of a new profile
type CreateInput struct {
	Name      string
	RegPlates []string
}

// ProfileService manages driver profiles and their notification subscription
type ProfileService struct {
	repo      repositories.ProfileRepository
	notifier  notifications.Notifier
	sanitizer *bluemonday.Policy
	logger    *zap.Logger
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(repo repositories.ProfileRepository, notifier notifications.Notifier, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		repo:      repo,
		notifier:  notifier,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger,
	}
}

// Create stores the caller's profile, replacing any existing one, and
// subscribes the email to payment notifications.
func (s *ProfileService) Create(ctx context.Context, userID, email string, input CreateInput) (*models.Profile, error) {
	if userID == "" {
		return nil, services.ErrUnauthorized
	}

	profile := models.NewProfile(userID, email)
	profile.Name = s.sanitizeName(input.Name)
	profile.RegPlates = models.NormalizePlates(input.RegPlates)

	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, services.WrapInternal("failed to save profile", err)
	}

	s.subscribe(ctx, email)

	s.logger.Info("profile saved",
		zap.String("user_id", userID),
		zap.Int("reg_plates", len(profile.RegPlates)))

	return profile, nil
}

// Get returns the caller's profile
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProfileNotFound
		}
		return nil, services.WrapInternal("failed to load profile", err)
	}
	return profile, nil
}

// Update applies the provided fields only and returns the stored profile
func (s *ProfileService) Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error) {
	if update.IsEmpty() {
		return nil, services.ErrNoFieldsToUpdate
	}

	if update.Name != nil {
		name := s.sanitizeName(*update.Name)
		update.Name = &name
	}
	if update.RegPlates != nil {
		plates := models.NormalizePlates(*update.RegPlates)
		update.RegPlates = &plates
	}

	profile, err := s.repo.Update(ctx, userID, update)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProfileNotFound
		}
		return nil, services.WrapInternal("failed to update profile", err)
	}

	s.logger.Info("profile updated", zap.String("user_id", userID))
	return profile, nil
}

// HandleSignUpConfirmed creates an empty profile for a user who just
// confirmed their sign-up. An existing profile is left untouched so a
// replayed confirmation cannot wipe it.
func (s *ProfileService) HandleSignUpConfirmed(ctx context.Context, userID, email string) error {
	if userID == "" {
		return services.ErrInvalidInput.WithDetail("field", "sub")
	}

	_, err := s.repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		s.logger.Info("profile already exists", zap.String("user_id", userID))
	case errors.Is(err, repositories.ErrNotFound):
		if err := s.repo.Upsert(ctx, models.NewProfile(userID, email)); err != nil {
			return services.WrapInternal("failed to create profile", err)
		}
		s.logger.Info("profile created for confirmed user", zap.String("user_id", userID))
	default:
		return services.WrapInternal("failed to load profile", err)
	}

	s.subscribe(ctx, email)
	return nil
}

// subscribe failures never fail the profile operation
func (s *ProfileService) subscribe(ctx context.Context, email string) {
	if email == "" {
		return
	}
	if err := s.notifier.Subscribe(ctx, email); err != nil {
		s.logger.Warn("failed to subscribe email to notifications", zap.Error(err))
	}
}

func (s *ProfileService) sanitizeName(name string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(name)))
}
