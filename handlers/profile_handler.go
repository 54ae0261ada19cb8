package handlers

import (
	"context"
	"net/http"

	"github.com/upb/car-park/middleware"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/services/profile"
	"github.com/upb/car-park/utils"
	"go.uber.org/zap"
)

// CreateProfileRequest represents a request to create or replace the caller's profile
type CreateProfileRequest struct {
	Name      string   `json:"name" validate:"max=100"`
	RegPlates []string `json:"regPlates" validate:"max=10,dive,regplate"`
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	Name      *string   `json:"name,omitempty" validate:"omitempty,max=100"`
	RegPlates *[]string `json:"regPlates,omitempty" validate:"omitempty,max=10,dive,regplate"`
}

// ProfileService defines the profile operations the handler needs
type ProfileService interface {
	Create(ctx context.Context, userID, email string, input profile.CreateInput) (*models.Profile, error)
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)
}

// ProfileHandler serves the signed-in driver's own profile
type ProfileHandler struct {
	service ProfileService
	logger  *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger,
	}
}

// HandleGetProfile handles GET /api/v1/profile
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	p, err := h.service.Get(ctx, claims.Sub)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, p)
}

// HandleCreateProfile handles POST /api/v1/profile
func (h *ProfileHandler) HandleCreateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req CreateProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		h.logger.Warn("request validation failed",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	p, err := h.service.Create(ctx, claims.Sub, claims.Email, profile.CreateInput{
		Name:      req.Name,
		RegPlates: req.RegPlates,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, p)
}

// HandleUpdateProfile handles PUT /api/v1/profile
func (h *ProfileHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	claims := middleware.GetClaimsFromContext(ctx)
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "")
		return
	}

	var req UpdateProfileRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("failed to parse request body",
			zap.String("request_id", requestID),
			zap.Error(err))
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	p, err := h.service.Update(ctx, claims.Sub, models.ProfileUpdate{
		Name:      req.Name,
		RegPlates: req.RegPlates,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, p)
}
