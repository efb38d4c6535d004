package handlers

import (
	"net/http"
	"strconv"

	"fleetrent/internal/common"
	"fleetrent/internal/services"

	"github.com/labstack/echo/v4"
)

// VehicleHandlers handles HTTP requests for fleet vehicles. Vehicle status is
// driven by the rental lifecycle; this surface is read-only.
type VehicleHandlers struct {
	vehicleService services.VehicleServiceInterface
}

// NewVehicleHandlers creates a new vehicle handlers instance
func NewVehicleHandlers(vehicleService services.VehicleServiceInterface) *VehicleHandlers {
	return &VehicleHandlers{vehicleService: vehicleService}
}

// GetVehicle handles GET /vehicles/:id
func (h *VehicleHandlers) GetVehicle(c echo.Context) error {
	ctx := c.Request().Context()

	vehicleID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	vehicle, err := h.vehicleService.GetVehicle(ctx, vehicleID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, vehicle)
}

// ListVehicles handles GET /vehicles
func (h *VehicleHandlers) ListVehicles(c echo.Context) error {
	ctx := c.Request().Context()

	limit := 50
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}

	var status *string
	if statusParam := c.QueryParam("status"); statusParam != "" {
		status = &statusParam
	}

	vehicles, err := h.vehicleService.ListVehicles(ctx, status, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"vehicles": vehicles,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetVehicleHistory handles GET /vehicles/:id/history
func (h *VehicleHandlers) GetVehicleHistory(c echo.Context) error {
	ctx := c.Request().Context()

	vehicleID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	limit := 50
	offset := 0
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil && o >= 0 {
			offset = o
		}
	}

	history, err := h.vehicleService.ListVehicleHistory(ctx, vehicleID, limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"vehicle_id": vehicleID,
		"history":    history,
	})
}
