package handlers

import (
	"net/http"
	"strconv"

	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CustomerHandlers handles HTTP requests for customers
type CustomerHandlers struct {
	customerRepo repositories.CustomerRepository
}

// NewCustomerHandlers creates a new customer handlers instance
func NewCustomerHandlers(customerRepo repositories.CustomerRepository) *CustomerHandlers {
	return &CustomerHandlers{customerRepo: customerRepo}
}

// CreateCustomer handles POST /customers
func (h *CustomerHandlers) CreateCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	var req struct {
		FullName      string  `json:"full_name"`
		Phone         string  `json:"phone"`
		Email         *string `json:"email"`
		LicenseNumber *string `json:"license_number"`
		Address       *string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	if err := common.ValidateRequiredString(req.FullName, "full_name"); err != nil {
		return common.SendValidationError(c, "full_name", err.Error())
	}
	if err := common.ValidateRequiredString(req.Phone, "phone"); err != nil {
		return common.SendValidationError(c, "phone", err.Error())
	}
	if err := common.ValidateOptionalString(req.LicenseNumber, "license_number", 50); err != nil {
		return common.SendValidationError(c, "license_number", err.Error())
	}
	if err := common.SanitizeHTMLField(req.Address, "address"); err != nil {
		return common.SendValidationError(c, "address", err.Error())
	}

	customer := &models.Customer{
		ID:            uuid.New(),
		FullName:      req.FullName,
		Phone:         req.Phone,
		Email:         req.Email,
		LicenseNumber: req.LicenseNumber,
		Address:       req.Address,
	}
	if err := h.customerRepo.Create(ctx, customer); err != nil {
		return common.SendServerError(c, "Failed to create customer: "+err.Error())
	}
	return c.JSON(http.StatusCreated, customer)
}

// GetCustomer handles GET /customers/:id
func (h *CustomerHandlers) GetCustomer(c echo.Context) error {
	ctx := c.Request().Context()

	customerID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	customer, err := h.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, customer)
}

// ListCustomers handles GET /customers
func (h *CustomerHandlers) ListCustomers(c echo.Context) error {
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

	customers, err := h.customerRepo.List(ctx, limit, offset)
	if err != nil {
		return common.SendServerError(c, "Failed to list customers: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"customers": customers,
		"limit":     limit,
		"offset":    offset,
	})
}
