package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ambuflow/backend/internal/models"
	"github.com/ambuflow/backend/internal/service"
)

type Handler struct {
	Optimizer    *service.Optimizer
	Orchestrator *service.Orchestrator
	Validator    *validator.Validate
	Logger       zerolog.Logger
	AdminKey     string
}

// TripRequest is the wire shape of a trip. Legacy clients send the
// appointment time under several names; coalescing happens here, never
// inside the engine.
type TripRequest struct {
	models.Trip
	PickupTime string `json:"pickup_time,omitempty"`
	Time       string `json:"time,omitempty"`
	ExitTime   string `json:"exit_time,omitempty"`
}

func (r TripRequest) toTrip() models.Trip {
	t := r.Trip
	if t.AppointmentTime == "" {
		if r.PickupTime != "" {
			t.AppointmentTime = r.PickupTime
		} else if r.Time != "" {
			t.AppointmentTime = r.Time
		}
	}
	if t.ReturnTime == "" && r.ExitTime != "" {
		t.ReturnTime = r.ExitTime
	}
	if t.IsReturnTrip && t.MaxWaitMinutes <= 0 {
		t.MaxWaitMinutes = models.DefaultMaxWaitMinutes
	}
	return t
}

func toTrips(reqs []TripRequest) []models.Trip {
	out := make([]models.Trip, len(reqs))
	for i, r := range reqs {
		out[i] = r.toTrip()
	}
	return out
}

type SingleOptimizeRequest struct {
	Trip     TripRequest      `json:"trip" validate:"required"`
	Vehicles []models.Vehicle `json:"vehicles" validate:"required,min=1,dive"`
}

type BatchOptimizeRequest struct {
	Trips    []TripRequest    `json:"trips" validate:"required,min=1,dive"`
	Vehicles []models.Vehicle `json:"vehicles" validate:"required,min=1,dive"`
}

type SmartOptimizeRequest struct {
	Trips    []TripRequest    `json:"trips" validate:"required,min=1,dive"`
	Vehicles []models.Vehicle `json:"vehicles" validate:"required,min=1,dive"`
	Mode     string           `json:"mode" validate:"omitempty,oneof=auto vroom_solver router_greedy local_fallback"`
}

type ReturnsRequest struct {
	Trips []TripRequest `json:"trips" validate:"required,min=1,dive"`
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"providers": h.Orchestrator.Status(c.Request.Context()),
	})
}

// @Summary Assign one trip
// @Description Score every vehicle for the trip and recommend the best
// @Tags optimize
// @Accept json
// @Produce json
// @Param request body SingleOptimizeRequest true "trip and fleet"
// @Success 200 {object} models.AssignmentResult
// @Failure 400 {object} map[string]any
// @Router /api/optimize/single [post]
func (h *Handler) OptimizeSingle(c *gin.Context) {
	var req SingleOptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	result := h.Optimizer.FindBestVehicleAssignment(c.Request.Context(), req.Trip.toTrip(), req.Vehicles)
	c.JSON(http.StatusOK, result)
}

// @Summary Batch optimization
// @Description Two-pass assignment with conflict resolution over a full day of trips
// @Tags optimize
// @Accept json
// @Produce json
// @Param request body BatchOptimizeRequest true "trips and fleet"
// @Success 200 {object} models.BatchResult
// @Failure 400 {object} map[string]any
// @Router /api/optimize/batch [post]
func (h *Handler) OptimizeBatch(c *gin.Context) {
	var req BatchOptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	result := h.Optimizer.OptimizeBatch(c.Request.Context(), toTrips(req.Trips), req.Vehicles)
	c.JSON(http.StatusOK, result)
}

// @Summary Smart optimization
// @Description Tiered optimization through the external solver and router, degrading to the local engine
// @Tags optimize
// @Accept json
// @Produce json
// @Param request body SmartOptimizeRequest true "trips, fleet and optional mode"
// @Success 200 {object} models.NormalizedResult
// @Failure 400 {object} map[string]any
// @Router /api/optimize/smart [post]
func (h *Handler) OptimizeSmart(c *gin.Context) {
	var req SmartOptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	mode := strings.TrimSpace(req.Mode)
	result := h.Orchestrator.SmartOptimize(c.Request.Context(), toTrips(req.Trips), req.Vehicles, service.SmartOptions{Mode: mode})
	c.JSON(http.StatusOK, result)
}

// @Summary Generate return trips
// @Description Expand outbound trips with their generated return legs
// @Tags trips
// @Accept json
// @Produce json
// @Param request body ReturnsRequest true "outbound trips"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]any
// @Router /api/trips/returns [post]
func (h *Handler) GenerateReturns(c *gin.Context) {
	var req ReturnsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	trips := toTrips(req.Trips)
	returns := h.Optimizer.GenerateReturnTrips(trips)
	c.JSON(http.StatusOK, gin.H{
		"returns":  returns,
		"expanded": h.Optimizer.ExpandWithReturns(trips),
	})
}

// @Summary Provider status
// @Tags providers
// @Produce json
// @Success 200 {object} service.ProviderStatus
// @Router /api/providers/status [get]
func (h *Handler) ProvidersStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.Orchestrator.Status(c.Request.Context()))
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
