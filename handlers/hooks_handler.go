package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/upb/car-park/utils"
	"go.uber.org/zap"
)

// TriggerConfirmSignUp is the post-confirmation trigger source for a new sign-up.
// Forgot-password confirmations use another source and are ignored.
const TriggerConfirmSignUp = "PostConfirmation_ConfirmSignUp"

// PostConfirmationEvent is the subset of the user pool trigger event we read
type PostConfirmationEvent struct {
	TriggerSource string `json:"triggerSource"`
	UserPoolID    string `json:"userPoolId"`
	UserName      string `json:"userName"`
	Request       struct {
		UserAttributes map[string]string `json:"userAttributes"`
	} `json:"request"`
}

// SignUpService reacts to confirmed sign-ups
type SignUpService interface {
	HandleSignUpConfirmed(ctx context.Context, userID, email string) error
}

// HooksHandler receives user pool lifecycle triggers
type HooksHandler struct {
	service SignUpService
	logger  *zap.Logger
}

// NewHooksHandler creates a new HooksHandler
func NewHooksHandler(service SignUpService, logger *zap.Logger) *HooksHandler {
	return &HooksHandler{
		service: service,
		logger:  logger,
	}
}

// HandlePostConfirmation handles POST /api/v1/hooks/post-confirmation.
// The trigger expects its event echoed back, so the response is the request
// body even when creating the profile fails.
func (h *HooksHandler) HandlePostConfirmation(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := utils.DecodeJSON(r, &raw); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	var event PostConfirmationEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid trigger event", nil)
		return
	}

	if event.TriggerSource != TriggerConfirmSignUp {
		h.logger.Debug("ignoring trigger", zap.String("trigger_source", event.TriggerSource))
		_ = utils.WriteJSON(w, http.StatusOK, raw)
		return
	}

	sub := event.Request.UserAttributes["sub"]
	email := event.Request.UserAttributes["email"]

	if err := h.service.HandleSignUpConfirmed(r.Context(), sub, email); err != nil {
		h.logger.Error("failed to set up profile for confirmed user",
			zap.String("user_name", event.UserName),
			zap.Error(err))
	}

	_ = utils.WriteJSON(w, http.StatusOK, raw)
}
