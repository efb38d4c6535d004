package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
)

// ApplyPaymentInput records one payment against an invoice.
type ApplyPaymentInput struct {
	InvoiceID       uuid.UUID
	Amount          float64
	Method          string
	PaymentDate     time.Time // zero means now
	BankAccount     *string
	TransactionCode *string
	Notes           *string
	Actor           uuid.UUID
}

type PaymentServiceInterface interface {
	ApplyPayment(ctx context.Context, input *ApplyPaymentInput) (*models.Payment, error)
	VoidPayment(ctx context.Context, paymentID, actor uuid.UUID, reason *string) error
	GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error)
}

type paymentService struct {
	db          repositories.TxBeginner
	paymentRepo repositories.PaymentRepository
	invoiceRepo repositories.InvoiceRepository
}

// NewPaymentService creates a new payment service
func NewPaymentService(db repositories.TxBeginner, paymentRepo repositories.PaymentRepository, invoiceRepo repositories.InvoiceRepository) PaymentServiceInterface {
	return &paymentService{
		db:          db,
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
	}
}

// ApplyPayment records a payment and moves the invoice balance under a row
// lock. Overpayment is rejected outright: the amount must fit within the
// remaining balance, and concurrent payments serialize on the lock so the
// check holds.
func (s *paymentService) ApplyPayment(ctx context.Context, input *ApplyPaymentInput) (*models.Payment, error) {
	if input.Amount <= 0 {
		return nil, common.ValidationError("amount", "payment amount must be positive")
	}
	method := strings.ToLower(strings.TrimSpace(input.Method))
	if !models.ValidPaymentMethod(method) {
		return nil, common.ValidationError("method", "method must be cash, bank_transfer or credit_card")
	}
	if err := common.SanitizeHTMLField(input.Notes, "payment notes"); err != nil {
		return nil, common.ValidationError("notes", err.Error())
	}
	paymentDate := input.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	invoices := s.invoiceRepo.WithTx(tx)
	invoice, err := invoices.GetByIDForUpdate(ctx, input.InvoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.Status == models.InvoiceStatusCancelled {
		return nil, fmt.Errorf("invoice %s: %w", invoice.ID, common.ErrInvoiceCancelled)
	}
	if input.Amount > invoice.RemainingAmount {
		return nil, fmt.Errorf("payment of %.2f exceeds remaining balance %.2f: %w",
			input.Amount, invoice.RemainingAmount, common.ErrOverpayment)
	}

	paymentNumber, err := s.paymentRepo.WithTx(tx).GeneratePaymentNumber(ctx, paymentDate)
	if err != nil {
		return nil, err
	}
	payment := &models.Payment{
		ID:              uuid.New(),
		PaymentNumber:   paymentNumber,
		InvoiceID:       invoice.ID,
		PaymentDate:     paymentDate,
		Amount:          input.Amount,
		Method:          method,
		BankAccount:     input.BankAccount,
		TransactionCode: input.TransactionCode,
		Notes:           input.Notes,
		RecordedBy:      input.Actor,
	}
	if err := s.paymentRepo.WithTx(tx).Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	invoice.PaidAmount += input.Amount
	invoice.RemainingAmount = invoice.TotalAmount - invoice.PaidAmount
	if invoice.RemainingAmount <= 0 {
		invoice.RemainingAmount = 0
		invoice.Status = models.InvoiceStatusPaid
		invoice.PaidDate = &paymentDate
	} else {
		invoice.Status = models.InvoiceStatusPartial
	}
	if err := invoices.UpdateBalance(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to update invoice balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit payment: %w", err)
	}
	return payment, nil
}

// VoidPayment reverses a recorded payment: the invoice balance is restored
// and its status recomputed, in the same transaction as the void flag. A
// fully paid invoice drops back to partial or unpaid.
func (s *paymentService) VoidPayment(ctx context.Context, paymentID, actor uuid.UUID, reason *string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(ctx, tx)

	payment, err := s.paymentRepo.WithTx(tx).GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.VoidedAt != nil {
		return fmt.Errorf("payment %s already voided: %w", paymentID, common.ErrConcurrencyConflict)
	}

	invoices := s.invoiceRepo.WithTx(tx)
	invoice, err := invoices.GetByIDForUpdate(ctx, payment.InvoiceID)
	if err != nil {
		return err
	}

	if err := s.paymentRepo.WithTx(tx).MarkVoided(ctx, paymentID, time.Now()); err != nil {
		return err
	}

	invoice.PaidAmount -= payment.Amount
	if invoice.PaidAmount < 0 {
		invoice.PaidAmount = 0
	}
	invoice.RemainingAmount = invoice.TotalAmount - invoice.PaidAmount
	if invoice.Status != models.InvoiceStatusCancelled {
		if invoice.PaidAmount == 0 {
			invoice.Status = models.InvoiceStatusUnpaid
		} else {
			invoice.Status = models.InvoiceStatusPartial
		}
		invoice.PaidDate = nil
	}
	if err := invoices.UpdateBalance(ctx, invoice); err != nil {
		return fmt.Errorf("failed to restore invoice balance: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit void: %w", err)
	}
	if reason != nil {
		log.Printf("Payment %s voided by %s: %s", payment.PaymentNumber, actor, *reason)
	} else {
		log.Printf("Payment %s voided by %s", payment.PaymentNumber, actor)
	}
	return nil
}

func (s *paymentService) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

func (s *paymentService) ListPaymentsByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	if _, err := s.invoiceRepo.GetByID(ctx, invoiceID); err != nil {
		return nil, err
	}
	return s.paymentRepo.ListByInvoice(ctx, invoiceID)
}
