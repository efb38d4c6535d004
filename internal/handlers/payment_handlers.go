package handlers

import (
	"net/http"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/services"

	"github.com/labstack/echo/v4"
)

// PaymentHandlers handles HTTP requests for payments
type PaymentHandlers struct {
	paymentService services.PaymentServiceInterface
}

// NewPaymentHandlers creates a new payment handlers instance
func NewPaymentHandlers(paymentService services.PaymentServiceInterface) *PaymentHandlers {
	return &PaymentHandlers{paymentService: paymentService}
}

// CreatePayment handles POST /invoices/:id/payments
func (h *PaymentHandlers) CreatePayment(c echo.Context) error {
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
		Amount          float64 `json:"amount"`
		Method          string  `json:"method"`
		PaymentDate     *string `json:"payment_date"`
		BankAccount     *string `json:"bank_account"`
		TransactionCode *string `json:"transaction_code"`
		Notes           *string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendClientError(c, "Invalid request format")
	}

	input := &services.ApplyPaymentInput{
		InvoiceID:       invoiceID,
		Amount:          req.Amount,
		Method:          req.Method,
		BankAccount:     req.BankAccount,
		TransactionCode: req.TransactionCode,
		Notes:           req.Notes,
		Actor:           actorID,
	}
	if req.PaymentDate != nil {
		paymentDate, err := time.Parse(time.RFC3339, *req.PaymentDate)
		if err != nil {
			return common.SendValidationError(c, "payment_date", "must be an RFC3339 timestamp")
		}
		input.PaymentDate = paymentDate
	}

	payment, err := h.paymentService.ApplyPayment(ctx, input)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, payment)
}

// ListPayments handles GET /invoices/:id/payments
func (h *PaymentHandlers) ListPayments(c echo.Context) error {
	ctx := c.Request().Context()

	invoiceID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	payments, err := h.paymentService.ListPaymentsByInvoice(ctx, invoiceID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"invoice_id": invoiceID,
		"payments":   payments,
	})
}

// GetPayment handles GET /payments/:id
func (h *PaymentHandlers) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()

	paymentID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	payment, err := h.paymentService.GetPayment(ctx, paymentID)
	if err != nil {
		return common.SendDomainError(c, err)
	}
	return c.JSON(http.StatusOK, payment)
}

// VoidPayment handles POST /payments/:id/void
// Reversing recorded money is restricted to elevated roles.
func (h *PaymentHandlers) VoidPayment(c echo.Context) error {
	ctx := c.Request().Context()

	actorID, ok := common.GetActorIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}
	if !common.ActorHasRole(ctx, common.RoleAdmin, common.RoleManager) {
		return common.SendForbiddenError(c)
	}

	paymentID, err := common.ValidateUUID(c.Param("id"), "id")
	if err != nil {
		return common.SendClientError(c, err.Error())
	}

	var req struct {
		Reason *string `json:"reason"`
	}
	_ = c.Bind(&req)

	if err := h.paymentService.VoidPayment(ctx, paymentID, actorID, req.Reason); err != nil {
		return common.SendDomainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
