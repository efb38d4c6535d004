package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
)

// GenerateInvoiceInput configures invoice generation for a completed rental
// order. TermDays sets the due date relative to the invoice date; zero falls
// back to the service default. A zero InvoiceDate means now.
type GenerateInvoiceInput struct {
	RentalOrderID uuid.UUID
	InvoiceDate   time.Time
	TaxRate       float64
	TermDays      int
	Notes         *string
	Actor         uuid.UUID
}

// InvoiceWithLines bundles an invoice with its line items and payments for
// the detail view.
type InvoiceWithLines struct {
	Invoice  *models.Invoice         `json:"invoice"`
	Details  []*models.InvoiceDetail `json:"details"`
	Payments []*models.Payment       `json:"payments"`
}

type InvoiceServiceInterface interface {
	GenerateInvoice(ctx context.Context, input *GenerateInvoiceInput) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceWithLines, error)
	GetInvoiceByOrder(ctx context.Context, rentalOrderID uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, status string, limit, offset int) ([]*models.Invoice, error)
	CancelInvoice(ctx context.Context, id, actor uuid.UUID) error
	AmendDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time, actor uuid.UUID) (*models.Invoice, error)
	RefreshOverdueStatuses(ctx context.Context, asOf time.Time) (int, error)
	GetReceivablesSummary(ctx context.Context) (*models.ReceivablesSummary, error)
}

type invoiceService struct {
	db          repositories.TxBeginner
	invoiceRepo repositories.InvoiceRepository
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.RentalOrderRepository
	historyRepo repositories.RentalStatusHistoryRepository

	defaultTermDays          int
	revertOverdueOnDueChange bool
}

// NewInvoiceService creates a new invoice service. defaultTermDays is the
// payment term applied when a generation request does not name one. When
// revertOverdueOnDueChange is set, extending the due date of an overdue
// invoice past the amendment instant moves it back to unpaid or partial.
func NewInvoiceService(
	db repositories.TxBeginner,
	invoiceRepo repositories.InvoiceRepository,
	paymentRepo repositories.PaymentRepository,
	orderRepo repositories.RentalOrderRepository,
	historyRepo repositories.RentalStatusHistoryRepository,
	defaultTermDays int,
	revertOverdueOnDueChange bool,
) InvoiceServiceInterface {
	if defaultTermDays <= 0 {
		defaultTermDays = 14
	}
	return &invoiceService{
		db:                       db,
		invoiceRepo:              invoiceRepo,
		paymentRepo:              paymentRepo,
		orderRepo:                orderRepo,
		historyRepo:              historyRepo,
		defaultTermDays:          defaultTermDays,
		revertOverdueOnDueChange: revertOverdueOnDueChange,
	}
}

// GenerateInvoice creates the invoice for a completed rental order. The
// order transitions to invoiced in the same transaction, and the unique
// constraint on rental_order_id guarantees at most one invoice per order
// even under concurrent generation.
func (s *invoiceService) GenerateInvoice(ctx context.Context, input *GenerateInvoiceInput) (*models.Invoice, error) {
	if input.TaxRate < 0 || input.TaxRate > 100 {
		return nil, common.ValidationError("tax_rate", "tax rate must be between 0 and 100")
	}
	if err := common.SanitizeHTMLField(input.Notes, "invoice notes"); err != nil {
		return nil, common.ValidationError("notes", err.Error())
	}
	termDays := input.TermDays
	if termDays <= 0 {
		termDays = s.defaultTermDays
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	orders := s.orderRepo.WithTx(tx)
	order, err := orders.GetByIDForUpdate(ctx, input.RentalOrderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.RentalStatusInvoiced {
		return nil, fmt.Errorf("rental order %s: %w", order.ID, common.ErrAlreadyInvoiced)
	}
	if !CanTransition(order.Status, models.RentalStatusInvoiced) {
		return nil, common.TransitionError(order.Status, models.RentalStatusInvoiced)
	}

	invoiceDate := input.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = time.Now()
	}
	invoiceNumber, err := s.invoiceRepo.WithTx(tx).GenerateInvoiceNumber(ctx, invoiceDate)
	if err != nil {
		return nil, err
	}

	taxable := order.SubTotal - order.DiscountAmount
	taxAmount := taxable * input.TaxRate / 100
	invoice := &models.Invoice{
		ID:              uuid.New(),
		InvoiceNumber:   invoiceNumber,
		RentalOrderID:   order.ID,
		InvoiceDate:     invoiceDate,
		DueDate:         invoiceDate.AddDate(0, 0, termDays),
		SubTotal:        order.SubTotal,
		TaxRate:         input.TaxRate,
		TaxAmount:       taxAmount,
		DiscountAmount:  order.DiscountAmount,
		TotalAmount:     taxable + taxAmount,
		PaidAmount:      0,
		RemainingAmount: taxable + taxAmount,
		Status:          models.InvoiceStatusUnpaid,
		Notes:           input.Notes,
	}

	invoices := s.invoiceRepo.WithTx(tx)
	if err := invoices.Create(ctx, invoice); err != nil {
		return nil, err
	}
	for _, detail := range s.buildDetails(order, invoice) {
		if err := invoices.CreateDetail(ctx, detail); err != nil {
			return nil, fmt.Errorf("failed to create invoice detail: %w", err)
		}
	}

	oldStatus := order.Status
	order.Status = models.RentalStatusInvoiced
	order.UpdatedBy = input.Actor
	if err := orders.UpdateStatus(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	note := fmt.Sprintf("invoice %s generated", invoice.InvoiceNumber)
	if err := s.historyRepo.WithTx(tx).Append(ctx, &models.RentalStatusHistory{
		ID:            uuid.New(),
		RentalOrderID: order.ID,
		OldStatus:     &oldStatus,
		NewStatus:     order.Status,
		ChangedBy:     input.Actor,
		Note:          &note,
		ChangedAt:     time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("failed to append status history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit invoice: %w", err)
	}
	return invoice, nil
}

// buildDetails derives the invoice line items from the priced order: the
// rental charge, the promotion discount when one applied, and tax when a
// rate was set.
func (s *invoiceService) buildDetails(order *models.RentalOrder, invoice *models.Invoice) []*models.InvoiceDetail {
	details := []*models.InvoiceDetail{
		{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			Description: fmt.Sprintf("Vehicle rental, %d day(s) @ %.2f", order.TotalDays, order.DailyRate),
			Quantity:    float64(order.TotalDays),
			UnitPrice:   order.DailyRate,
			Amount:      order.SubTotal,
			SortOrder:   1,
		},
	}
	if order.DiscountAmount > 0 {
		description := "Discount"
		if order.PromotionCode != nil {
			description = fmt.Sprintf("Discount (promotion %s)", *order.PromotionCode)
		}
		details = append(details, &models.InvoiceDetail{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			Description: description,
			Quantity:    1,
			UnitPrice:   -order.DiscountAmount,
			Amount:      -order.DiscountAmount,
			SortOrder:   2,
		})
	}
	if invoice.TaxAmount > 0 {
		details = append(details, &models.InvoiceDetail{
			ID:          uuid.New(),
			InvoiceID:   invoice.ID,
			Description: fmt.Sprintf("Tax (%.2f%%)", invoice.TaxRate),
			Quantity:    1,
			UnitPrice:   invoice.TaxAmount,
			Amount:      invoice.TaxAmount,
			SortOrder:   3,
		})
	}
	return details
}

func (s *invoiceService) GetInvoice(ctx context.Context, id uuid.UUID) (*InvoiceWithLines, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := s.invoiceRepo.ListDetails(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice details: %w", err)
	}
	payments, err := s.paymentRepo.ListByInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return &InvoiceWithLines{Invoice: invoice, Details: details, Payments: payments}, nil
}

func (s *invoiceService) GetInvoiceByOrder(ctx context.Context, rentalOrderID uuid.UUID) (*models.Invoice, error) {
	return s.invoiceRepo.GetByRentalOrderID(ctx, rentalOrderID)
}

func (s *invoiceService) ListInvoices(ctx context.Context, status string, limit, offset int) ([]*models.Invoice, error) {
	if status == "" {
		return s.invoiceRepo.List(ctx, limit, offset)
	}
	switch status {
	case models.InvoiceStatusUnpaid, models.InvoiceStatusPartial, models.InvoiceStatusPaid,
		models.InvoiceStatusOverdue, models.InvoiceStatusCancelled:
	default:
		return nil, common.ValidationError("status", "unknown invoice status")
	}
	return s.invoiceRepo.ListByStatus(ctx, status, limit, offset)
}

// CancelInvoice voids an invoice that has received no money. Invoices with
// payments must have them voided first.
func (s *invoiceService) CancelInvoice(ctx context.Context, id, actor uuid.UUID) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	invoices := s.invoiceRepo.WithTx(tx)
	invoice, err := invoices.GetByIDForUpdate(ctx, id)
	if err != nil {
		return err
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return fmt.Errorf("invoice %s: %w", id, common.ErrInvoiceCancelled)
	}
	if invoice.PaidAmount > 0 {
		return common.ValidationError("paid_amount", "invoice has recorded payments, void them before cancelling")
	}
	if err := invoices.UpdateStatus(ctx, id, models.InvoiceStatusCancelled); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}
	log.Printf("Invoice %s cancelled by %s", invoice.InvoiceNumber, actor)
	return nil
}

// AmendDueDate moves the payment deadline. An overdue invoice whose new due
// date lies in the future goes back to unpaid/partial only when the revert
// policy is enabled; otherwise the overdue flag sticks until a payment or the
// next refresh clears it.
func (s *invoiceService) AmendDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time, actor uuid.UUID) (*models.Invoice, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	invoices := s.invoiceRepo.WithTx(tx)
	invoice, err := invoices.GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	switch invoice.Status {
	case models.InvoiceStatusPaid, models.InvoiceStatusCancelled:
		return nil, fmt.Errorf("invoice %s is %s, due date is frozen: %w", id, invoice.Status, common.ErrValidation)
	}

	if err := invoices.UpdateDueDate(ctx, id, dueDate); err != nil {
		return nil, err
	}
	invoice.DueDate = dueDate

	if s.revertOverdueOnDueChange && invoice.Status == models.InvoiceStatusOverdue && dueDate.After(time.Now()) {
		reverted := models.InvoiceStatusUnpaid
		if invoice.PaidAmount > 0 {
			reverted = models.InvoiceStatusPartial
		}
		if err := invoices.UpdateStatus(ctx, id, reverted); err != nil {
			return nil, err
		}
		invoice.Status = reverted
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit due date change: %w", err)
	}
	log.Printf("Invoice %s due date moved to %s by %s", invoice.InvoiceNumber, dueDate.Format("2006-01-02"), actor)
	return invoice, nil
}

// RefreshOverdueStatuses flags unpaid and partially paid invoices past their
// due date as overdue, returning how many were flagged. Run from the
// scheduler and available on demand. The repository does the whole sweep in
// one guarded UPDATE, so an invoice paid between scan and flag keeps its
// paid status.
func (s *invoiceService) RefreshOverdueStatuses(ctx context.Context, asOf time.Time) (int, error) {
	flagged, err := s.invoiceRepo.MarkOverdue(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to flag overdue invoices: %w", err)
	}
	return int(flagged), nil
}

func (s *invoiceService) GetReceivablesSummary(ctx context.Context) (*models.ReceivablesSummary, error) {
	return s.invoiceRepo.ReceivablesSummary(ctx)
}
