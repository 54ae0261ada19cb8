package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/car-park/middleware"
	"github.com/upb/car-park/models"
	"github.com/upb/car-park/services"
	"github.com/upb/car-park/services/parking"
	"github.com/upb/car-park/utils"
	"go.uber.org/zap"
)

// DetectionRequest is a plate read by an entry/exit camera
type DetectionRequest struct {
	RegPlate string `json:"regPlate" validate:"omitempty,regplate"`
	PhotoKey string `json:"photoKey" validate:"max=1024"`
}

// PlateLookupRequest carries a full plate or a fragment of one
type PlateLookupRequest struct {
	RegPlate string `json:"regPlate"`
}

// PlateLookupResponse is the raw lookup body. Times are unix seconds as
// strings and an open session reports an exit time of "0".
type PlateLookupResponse struct {
	RegPlate  string `json:"reg_plate"`
	EntryTime string `json:"entry_time"`
	ExitTime  string `json:"exit_time"`
}

// ParkingService defines the parking operations the handler needs
type ParkingService interface {
	RecordDetection(ctx context.Context, regPlate, photoKey string) (*parking.DetectionResult, error)
	LookupPlate(ctx context.Context, fragment string) (*models.ParkingSession, error)
}

// ParkingHandler serves the operator-facing camera and lookup endpoints
type ParkingHandler struct {
	service ParkingService
	logger  *zap.Logger
}

// NewParkingHandler creates a new ParkingHandler
func NewParkingHandler(service ParkingService, logger *zap.Logger) *ParkingHandler {
	return &ParkingHandler{
		service: service,
		logger:  logger,
	}
}

// HandleDetection handles POST /api/v1/detections
func (h *ParkingHandler) HandleDetection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req DetectionRequest
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

	result, err := h.service.RecordDetection(ctx, req.RegPlate, req.PhotoKey)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Debug("detection handled",
		zap.String("request_id", requestID),
		zap.String("action", string(result.Action)))

	if result.Action == parking.ActionEntry {
		_ = utils.WriteCreated(w, result)
		return
	}
	_ = utils.WriteOK(w, result)
}

// HandlePlateLookup handles POST /api/v1/plates/lookup. A miss answers 400
// with an empty object.
func (h *ParkingHandler) HandlePlateLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req PlateLookupRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	session, err := h.service.LookupPlate(ctx, req.RegPlate)
	if err != nil {
		if services.IsNotFoundError(err) || services.IsValidationError(err) {
			h.logger.Info("no session matched plate", zap.String("fragment", req.RegPlate))
			_ = utils.WriteJSON(w, http.StatusBadRequest, struct{}{})
			return
		}
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, toPlateLookupResponse(session))
}

func toPlateLookupResponse(s *models.ParkingSession) PlateLookupResponse {
	exit := int64(0)
	if s.ExitTime != nil {
		exit = s.ExitTime.Unix()
	}
	return PlateLookupResponse{
		RegPlate:  s.RegPlate,
		EntryTime: strconv.FormatInt(s.EntryTime.Unix(), 10),
		ExitTime:  strconv.FormatInt(exit, 10),
	}
}
