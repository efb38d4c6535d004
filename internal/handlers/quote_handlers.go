package handlers

import (
	"net/http"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/services"

	"github.com/labstack/echo/v4"
)

// QuoteHandlers serves price previews without touching any order state.
type QuoteHandlers struct {
	pricingService services.PricingServiceInterface
	vehicleService services.VehicleServiceInterface
}

// NewQuoteHandlers creates a new quote handlers instance
func NewQuoteHandlers(pricingService services.PricingServiceInterface, vehicleService services.VehicleServiceInterface) *QuoteHandlers {
	return &QuoteHandlers{
		pricingService: pricingService,
		vehicleService: vehicleService,
	}
}

// CreateQuote handles POST /quotes
// Either daily_rate or vehicle_id must be given; vehicle_id resolves the
// vehicle's listed rate.
func (h *QuoteHandlers) CreateQuote(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		VehicleID     *string  `json:"vehicle_id"`
		DailyRate     *float64 `json:"daily_rate"`
		StartDate     string   `json:"start_date"`
		EndDate       string   `json:"end_date"`
		PromotionCode *string  `json:"promotion_code"`
	}

	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return common.SendValidationError(c, "start_date", "must be an RFC3339 timestamp")
	}
	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return common.SendValidationError(c, "end_date", "must be an RFC3339 timestamp")
	}

	dailyRate := common.SafeFloat64(req.DailyRate)
	if dailyRate == 0 && req.VehicleID != nil {
		vehicleID, err := common.ValidateUUID(*req.VehicleID, "vehicle_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		vehicle, err := h.vehicleService.GetVehicle(ctx, vehicleID)
		if err != nil {
			return common.SendDomainError(c, err)
		}
		dailyRate = vehicle.DailyRate
	}
	if dailyRate == 0 {
		return common.SendValidationError(c, "daily_rate", "either daily_rate or vehicle_id is required")
	}
	if err := common.ValidatePositiveFloat(dailyRate, "daily_rate", 100000000); err != nil {
		return common.SendValidationError(c, "daily_rate", err.Error())
	}

	quote, err := h.pricingService.Calculate(ctx, dailyRate, startDate, endDate, req.PromotionCode)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, quote)
}
