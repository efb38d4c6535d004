package handlers

import (
	"net/http"
	"strconv"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/services"

	"github.com/labstack/echo/v4"
)

// InvoiceHandlers handles HTTP requests for invoices
type InvoiceHandlers struct {
	invoiceService services.InvoiceServiceInterface
}

// NewInvoiceHandlers creates a new invoice handlers instance
func NewInvoiceHandlers(invoiceService services.InvoiceServiceInterface) *InvoiceHandlers {
	return &InvoiceHandlers{invoiceService: invoiceService}
}

// GenerateInvoice handles POST /rental-orders/:id/invoice
func (h *InvoiceHandlers) GenerateInvoice(c echo.Context) error {
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
		InvoiceDate *string  `json:"invoice_date"`
		TaxRate     *float64 `json:"tax_rate"`
		TermDays    *int     `json:"term_days"`
		Notes       *string  `json:"notes"`
	}
	// Generation works with an empty body; defaults apply.
	_ = c.Bind(&req)

	input := &services.GenerateInvoiceInput{
		RentalOrderID: orderID,
		TaxRate:       common.SafeFloat64(req.TaxRate),
		Notes:         req.Notes,
		Actor:         actorID,
	}
	if req.TermDays != nil {
		input.TermDays = *req.TermDays
	}
	if req.InvoiceDate != nil {
		if err := common.ValidateDateFormat(*req.InvoiceDate, "invoice_date"); err != nil {
			return common.SendValidationError(c, "invoice_date", err.Error())
		}
		invoiceDate, err := time.Parse("2006-01-02", *req.InvoiceDate)
		if err != nil {
			return common.SendValidationError(c, "invoice_date", "must be in YYYY-MM-DD format")
		}
		input.InvoiceDate = invoiceDate
	}

	invoice, err := h.invoiceService.GenerateInvoice(ctx, input)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, invoice)
}

// GetInvoice handles GET /invoices/:id
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoice(ctx, invoiceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// GetInvoiceForOrder handles GET /rental-orders/:id/invoice
func (h *InvoiceHandlers) GetInvoiceForOrder(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	invoice, err := h.invoiceService.GetInvoiceByOrder(ctx, orderID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// ListInvoices handles GET /invoices
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
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

	invoices, err := h.invoiceService.ListInvoices(ctx, c.QueryParam("status"), limit, offset)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoices": invoices,
		"limit":    limit,
		"offset":   offset,
	})
}

// CancelInvoice handles POST /invoices/:id/cancel
// Voiding a billing document is restricted to elevated roles.
func (h *InvoiceHandlers) CancelInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if !common.ActorHasRole(ctx, common.RoleAdmin, common.RoleManager) {
		return common.SendForbiddenError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	if err := h.invoiceService.CancelInvoice(ctx, invoiceID, actorID); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AmendDueDate handles PUT /invoices/:id/due-date
func (h *InvoiceHandlers) AmendDueDate(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		DueDate string `json:"due_date"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}
	if err := common.ValidateDateFormat(req.DueDate, "due_date"); err != nil {
		return common.SendValidationError(c, "due_date", err.Error())
	}
	dueDate, err := time.Parse("2006-01-02", req.DueDate)
	if err != nil {
		return common.SendValidationError(c, "due_date", "must be in YYYY-MM-DD format")
	}

	invoice, err := h.invoiceService.AmendDueDate(ctx, invoiceID, dueDate, actorID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, invoice)
}

// RefreshOverdue handles POST /invoices/refresh-overdue
// Also run hourly by the scheduler; exposed for on-demand refresh.
func (h *InvoiceHandlers) RefreshOverdue(c echo.Context) error {
	ctx := c.Request().Context()

	flagged, err := h.invoiceService.RefreshOverdueStatuses(ctx, time.Now())
	if err != nil {
		return common.SendServerError(c, "Failed to refresh overdue statuses: "+err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"flagged": flagged})
}

// GetReceivablesSummary handles GET /reports/receivables
func (h *InvoiceHandlers) GetReceivablesSummary(c echo.Context) error {
	ctx := c.Request().Context()

	summary, err := h.invoiceService.GetReceivablesSummary(ctx)
	if err != nil {
		return common.SendServerError(c, "Failed to build receivables summary: "+err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}
