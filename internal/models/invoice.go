package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoiceStatusUnpaid    = "unpaid"
	InvoiceStatusPartial   = "partial"
	InvoiceStatusPaid      = "paid"
	InvoiceStatusOverdue   = "overdue"
	InvoiceStatusCancelled = "cancelled"
)

// Invoice is the billing document derived from exactly one rental order.
// PaidAmount is only mutated through the guarded update in the payment flow;
// RemainingAmount is always total - paid.
type Invoice struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	InvoiceNumber   string     `json:"invoice_number" db:"invoice_number"`
	RentalOrderID   uuid.UUID  `json:"rental_order_id" db:"rental_order_id"`
	InvoiceDate     time.Time  `json:"invoice_date" db:"invoice_date"`
	DueDate         time.Time  `json:"due_date" db:"due_date"`
	SubTotal        float64    `json:"sub_total" db:"sub_total"`
	TaxRate         float64    `json:"tax_rate" db:"tax_rate"`
	TaxAmount       float64    `json:"tax_amount" db:"tax_amount"`
	DiscountAmount  float64    `json:"discount_amount" db:"discount_amount"`
	TotalAmount     float64    `json:"total_amount" db:"total_amount"`
	PaidAmount      float64    `json:"paid_amount" db:"paid_amount"`
	RemainingAmount float64    `json:"remaining_amount" db:"remaining_amount"`
	Status          string     `json:"status" db:"status"`
	Notes           *string    `json:"notes" db:"notes"`
	PaidDate        *time.Time `json:"paid_date" db:"paid_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// ReceivablesSummary aggregates outstanding balances across non-cancelled
// invoices, for the back-office receivables report.
type ReceivablesSummary struct {
	TotalInvoices      int     `json:"total_invoices"`
	TotalAmount        float64 `json:"total_amount"`
	TotalPaid          float64 `json:"total_paid"`
	TotalOutstanding   float64 `json:"total_outstanding"`
	UnpaidCount        int     `json:"unpaid_count"`
	PartialCount       int     `json:"partial_count"`
	PaidCount          int     `json:"paid_count"`
	OverdueCount       int     `json:"overdue_count"`
	OverdueOutstanding float64 `json:"overdue_outstanding"`
}

// InvoiceDetail is one line item of an invoice, created at generation time
// and never mutated afterward.
type InvoiceDetail struct {
	ID          uuid.UUID `json:"id" db:"id"`
	InvoiceID   uuid.UUID `json:"invoice_id" db:"invoice_id"`
	Description string    `json:"description" db:"description"`
	Quantity    float64   `json:"quantity" db:"quantity"`
	UnitPrice   float64   `json:"unit_price" db:"unit_price"`
	Amount      float64   `json:"amount" db:"amount"`
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
