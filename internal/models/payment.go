package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCreditCard   = "credit_card"
)

// Payment is a recorded payment event against one invoice. Payments are
// immutable once created; voiding creates a reversal on the invoice balance
// and flags the row instead of deleting it.
type Payment struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	PaymentNumber   string     `json:"payment_number" db:"payment_number"`
	InvoiceID       uuid.UUID  `json:"invoice_id" db:"invoice_id"`
	PaymentDate     time.Time  `json:"payment_date" db:"payment_date"`
	Amount          float64    `json:"amount" db:"amount"`
	Method          string     `json:"method" db:"method"`
	BankAccount     *string    `json:"bank_account" db:"bank_account"`
	TransactionCode *string    `json:"transaction_code" db:"transaction_code"`
	Notes           *string    `json:"notes" db:"notes"`
	RecordedBy      uuid.UUID  `json:"recorded_by" db:"recorded_by"`
	VoidedAt        *time.Time `json:"voided_at,omitempty" db:"voided_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// ValidPaymentMethod reports whether m is a supported payment method.
func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCreditCard:
		return true
	}
	return false
}
