// Package http provides HTTP handlers for cached vehicle query results.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/msiav/vehicle-cache/internal/cache/http/dto"
	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
	"github.com/msiav/vehicle-cache/internal/httputil"
	customValidation "github.com/msiav/vehicle-cache/internal/validation"
)

// VehicleHandler handles HTTP requests for per-vehicle apprehension records.
type VehicleHandler struct {
	queryResultUseCase cacheUseCase.QueryResultUseCase
	logger             *slog.Logger
}

// NewVehicleHandler creates a new vehicle handler with required dependencies.
func NewVehicleHandler(
	queryResultUseCase cacheUseCase.QueryResultUseCase,
	logger *slog.Logger,
) *VehicleHandler {
	return &VehicleHandler{
		queryResultUseCase: queryResultUseCase,
		logger:             logger,
	}
}

// QueryResultHandler retrieves the apprehension record for a vehicle,
// creating one in the initial awaiting-scheduling status when missing.
// GET /v1/vehicles/:id/query-result
func (h *VehicleHandler) QueryResultHandler(c *gin.Context) {
	vehicleID, err := parseVehicleID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	record, err := h.queryResultUseCase.GetOrCreate(c.Request.Context(), vehicleID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapApprehensionRecordToResponse(record)
	c.JSON(http.StatusOK, response)
}

// ScheduleHandler sets the diligence appointment time on a vehicle's record.
// POST /v1/vehicles/:id/apprehension - Body: {"scheduled_at": "RFC3339"}.
func (h *VehicleHandler) ScheduleHandler(c *gin.Context) {
	vehicleID, err := parseVehicleID(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	var req dto.ScheduleApprehensionRequest

	// Parse and bind JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	scheduledAt, err := req.ScheduledTime()
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid scheduled_at: %w", err),
			h.logger,
		)
		return
	}

	record, err := h.queryResultUseCase.Schedule(c.Request.Context(), vehicleID, scheduledAt)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.MapApprehensionRecordToResponse(record)
	c.JSON(http.StatusOK, response)
}

// parseVehicleID extracts and validates the vehicle id URL parameter.
func parseVehicleID(c *gin.Context) (uuid.UUID, error) {
	vehicleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid vehicle id: must be a valid UUID")
	}
	return vehicleID, nil
}
