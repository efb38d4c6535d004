package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RentalOrderHandlers handles HTTP requests for rental orders and their
// lifecycle transitions.
type RentalOrderHandlers struct {
	rentalService   services.RentalServiceInterface
	documentSvc     services.DocumentService
	agreementBucket string
}

// NewRentalOrderHandlers creates a new rental order handlers instance
func NewRentalOrderHandlers(rentalService services.RentalServiceInterface, documentSvc services.DocumentService, agreementBucket string) *RentalOrderHandlers {
	return &RentalOrderHandlers{
		rentalService:   rentalService,
		documentSvc:     documentSvc,
		agreementBucket: agreementBucket,
	}
}

// CreateRentalOrder handles POST /rental-orders
func (h *RentalOrderHandlers) CreateRentalOrder(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var req struct {
		CustomerID     string   `json:"customer_id"`
		VehicleID      string   `json:"vehicle_id"`
		StartDate      string   `json:"start_date"`
		EndDate        string   `json:"end_date"`
		PickupLocation *string  `json:"pickup_location"`
		ReturnLocation *string  `json:"return_location"`
		DailyRate      *float64 `json:"daily_rate"`
		DepositAmount  *float64 `json:"deposit_amount"`
		PromotionCode  *string  `json:"promotion_code"`
		Notes          *string  `json:"notes"`
	}

	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	customerID, err := common.ValidateUUID(req.CustomerID, "customer_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}
	vehicleID, err := common.ValidateUUID(req.VehicleID, "vehicle_id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		return common.SendValidationError(c, "start_date", "must be an RFC3339 timestamp")
	}
	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		return common.SendValidationError(c, "end_date", "must be an RFC3339 timestamp")
	}

	input := &services.CreateRentalOrderInput{
		CustomerID:     customerID,
		VehicleID:      vehicleID,
		StartDate:      startDate,
		EndDate:        endDate,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		DailyRate:      common.SafeFloat64(req.DailyRate),
		DepositAmount:  common.SafeFloat64(req.DepositAmount),
		PromotionCode:  req.PromotionCode,
		Notes:          req.Notes,
		Actor:          actorID,
	}

	order, err := h.rentalService.CreateOrder(ctx, input)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// GetRentalOrder handles GET /rental-orders/:id
func (h *RentalOrderHandlers) GetRentalOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.rentalService.GetOrder(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ListRentalOrders handles GET /rental-orders
func (h *RentalOrderHandlers) ListRentalOrders(c echo.Context) error {
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

	orders, err := h.rentalService.ListOrders(ctx, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list rental orders: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"rental_orders": orders,
		"limit":         limit,
		"offset":        offset,
	})
}

// SearchRentalOrders handles GET /rental-orders/search
func (h *RentalOrderHandlers) SearchRentalOrders(c echo.Context) error {
	ctx := c.Request().Context()

	filter := &models.RentalOrderSearchFilter{
		Query:     c.QueryParam("q"),
		SortBy:    c.QueryParam("sort_by"),
		SortOrder: c.QueryParam("sort_order"),
	}

	if status := c.QueryParam("status"); status != "" {
		filter.Status = &status
	}
	if customerParam := c.QueryParam("customer_id"); customerParam != "" {
		customerID, err := common.ValidateUUID(customerParam, "customer_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.CustomerID = &customerID
	}
	if vehicleParam := c.QueryParam("vehicle_id"); vehicleParam != "" {
		vehicleID, err := common.ValidateUUID(vehicleParam, "vehicle_id")
		if err != nil {
			return common.SendClientError(c, err.Error())
		}
		filter.VehicleID = &vehicleID
	}
	if fromParam := c.QueryParam("start_date_from"); fromParam != "" {
		from, err := time.Parse("2006-01-02", fromParam)
		if err != nil {
			return common.SendValidationError(c, "start_date_from", "must be in YYYY-MM-DD format")
		}
		filter.StartDateFrom = &from
	}
	if toParam := c.QueryParam("start_date_to"); toParam != "" {
		to, err := time.Parse("2006-01-02", toParam)
		if err != nil {
			return common.SendValidationError(c, "start_date_to", "must be in YYYY-MM-DD format")
		}
		filter.StartDateTo = &to
	}
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil {
			filter.Limit = l
		}
	}
	if offsetParam := c.QueryParam("offset"); offsetParam != "" {
		if o, err := strconv.Atoi(offsetParam); err == nil {
			filter.Offset = o
		}
	}

	orders, err := h.rentalService.SearchOrders(ctx, filter)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"rental_orders": orders,
		"limit":         filter.Limit,
		"offset":        filter.Offset,
	})
}

// UpdateRentalOrder handles PUT /rental-orders/:id
func (h *RentalOrderHandlers) UpdateRentalOrder(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		StartDate      *string  `json:"start_date"`
		EndDate        *string  `json:"end_date"`
		PickupLocation *string  `json:"pickup_location"`
		ReturnLocation *string  `json:"return_location"`
		DailyRate      *float64 `json:"daily_rate"`
		DepositAmount  *float64 `json:"deposit_amount"`
		PromotionCode  *string  `json:"promotion_code"`
		ClearPromotion bool     `json:"clear_promotion"`
		Notes          *string  `json:"notes"`
	}

	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	input := &services.UpdateRentalOrderInput{
		OrderID:        orderID,
		PickupLocation: req.PickupLocation,
		ReturnLocation: req.ReturnLocation,
		DailyRate:      req.DailyRate,
		DepositAmount:  req.DepositAmount,
		PromotionCode:  req.PromotionCode,
		ClearPromotion: req.ClearPromotion,
		Notes:          req.Notes,
		Actor:          actorID,
	}
	if req.StartDate != nil {
		startDate, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			return common.SendValidationError(c, "start_date", "must be an RFC3339 timestamp")
		}
		input.StartDate = &startDate
	}
	if req.EndDate != nil {
		endDate, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			return common.SendValidationError(c, "end_date", "must be an RFC3339 timestamp")
		}
		input.EndDate = &endDate
	}

	order, err := h.rentalService.UpdateOrder(ctx, input)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// DeleteRentalOrder handles DELETE /rental-orders/:id
func (h *RentalOrderHandlers) DeleteRentalOrder(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.rentalService.DeleteOrder(ctx, orderID, actorID); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// transition runs one named lifecycle transition with an optional note.
func (h *RentalOrderHandlers) transition(c echo.Context, fn func(ctx echo.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error)) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Note *string `json:"note"`
	}
	// Transition endpoints accept an empty body.
	_ = c.Bind(&req)

	order, err := fn(c, orderID, actorID, req.Note)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// ConfirmRentalOrder handles POST /rental-orders/:id/confirm
func (h *RentalOrderHandlers) ConfirmRentalOrder(c echo.Context) error {
	return h.transition(c, func(ec echo.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
		return h.rentalService.ConfirmOrder(ec.Request().Context(), id, actor, note)
	})
}

// PickupRentalOrder handles POST /rental-orders/:id/pickup
func (h *RentalOrderHandlers) PickupRentalOrder(c echo.Context) error {
	return h.transition(c, func(ec echo.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
		return h.rentalService.StartRental(ec.Request().Context(), id, actor, note)
	})
}

// ReturnRentalOrder handles POST /rental-orders/:id/return
func (h *RentalOrderHandlers) ReturnRentalOrder(c echo.Context) error {
	return h.transition(c, func(ec echo.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
		return h.rentalService.CompleteRental(ec.Request().Context(), id, actor, note)
	})
}

// CancelRentalOrder handles POST /rental-orders/:id/cancel
func (h *RentalOrderHandlers) CancelRentalOrder(c echo.Context) error {
	return h.transition(c, func(ec echo.Context, id, actor uuid.UUID, note *string) (*models.RentalOrder, error) {
		return h.rentalService.CancelOrder(ec.Request().Context(), id, actor, note)
	})
}

// GetRentalOrderHistory handles GET /rental-orders/:id/history
func (h *RentalOrderHandlers) GetRentalOrderHistory(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	history, err := h.rentalService.GetOrderHistory(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"rental_order_id": orderID,
		"history":         history,
	})
}

// UploadAgreement handles POST /rental-orders/:id/agreement
// Stores the signed rental agreement in object storage and attaches the
// object name to the order.
func (h *RentalOrderHandlers) UploadAgreement(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.rentalService.GetOrder(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}

	fileHeader, err := c.FormFile("agreement")
	if err != nil {
		return common.SendClientError(c, "agreement file is required")
	}
	if fileHeader.Size > 10*1024*1024 {
		return common.SendValidationError(c, "agreement", "file cannot exceed 10MB")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return common.SendServerError(c, "Failed to read uploaded file")
	}
	defer file.Close()

	objectName := fmt.Sprintf("agreements/%s/%s", orderID, fileHeader.Filename)
	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.documentSvc.UploadAgreement(ctx, h.agreementBucket, objectName, file, fileHeader.Size, contentType); err != nil {
		return common.SendServerError(c, "Failed to store agreement: "+err.Error())
	}

	if err := h.rentalService.AttachAgreement(ctx, orderID, actorID, objectName); err != nil {
		return common.SendDomainError(c, err)
	}

	// Re-uploads replace the previous object.
	if old := order.AgreementObject; old != nil && *old != objectName {
		if err := h.documentSvc.DeleteDocument(ctx, h.agreementBucket, *old); err != nil {
			c.Logger().Warnf("failed to delete replaced agreement %s: %v", *old, err)
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"rental_order_id":  orderID.String(),
		"agreement_object": objectName,
	})
}

// GetAgreementURL handles GET /rental-orders/:id/agreement
// Returns a short-lived presigned download URL.
func (h *RentalOrderHandlers) GetAgreementURL(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	order, err := h.rentalService.GetOrder(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	if order.AgreementObject == nil {
		return common.SendNotFoundError(c, "agreement")
	}

	url, err := h.documentSvc.GetPresignedURL(ctx, h.agreementBucket, *order.AgreementObject, 15*time.Minute)
	if err != nil {
		return common.SendServerError(c, "Failed to generate download URL: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"url": url})
}
