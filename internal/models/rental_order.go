package models

import (
	"time"

	"github.com/google/uuid"
)

// Rental order statuses. The allowed transitions are enforced by the rental
// service; invoiced and cancelled are terminal.
const (
	RentalStatusDraft      = "draft"
	RentalStatusConfirmed  = "confirmed"
	RentalStatusInProgress = "in_progress"
	RentalStatusCompleted  = "completed"
	RentalStatusInvoiced   = "invoiced"
	RentalStatusCancelled  = "cancelled"
)

// RentalOrder is a contract for renting one vehicle to one customer over a
// date range. Orders are never hard-deleted; DeletedAt marks soft deletion so
// financial history stays intact.
type RentalOrder struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	OrderNumber     string     `json:"order_number" db:"order_number"`
	CustomerID      uuid.UUID  `json:"customer_id" db:"customer_id"`
	VehicleID       uuid.UUID  `json:"vehicle_id" db:"vehicle_id"`
	EmployeeID      uuid.UUID  `json:"employee_id" db:"employee_id"`
	StartDate       time.Time  `json:"start_date" db:"start_date"`
	EndDate         time.Time  `json:"end_date" db:"end_date"`
	ActualStartDate *time.Time `json:"actual_start_date" db:"actual_start_date"`
	ActualEndDate   *time.Time `json:"actual_end_date" db:"actual_end_date"`
	PickupLocation  *string    `json:"pickup_location" db:"pickup_location"`
	ReturnLocation  *string    `json:"return_location" db:"return_location"`
	DailyRate       float64    `json:"daily_rate" db:"daily_rate"`
	TotalDays       int        `json:"total_days" db:"total_days"`
	SubTotal        float64    `json:"sub_total" db:"sub_total"`
	DiscountAmount  float64    `json:"discount_amount" db:"discount_amount"`
	PromotionCode   *string    `json:"promotion_code" db:"promotion_code"`
	TotalAmount     float64    `json:"total_amount" db:"total_amount"`
	DepositAmount   float64    `json:"deposit_amount" db:"deposit_amount"`
	Status          string     `json:"status" db:"status"`
	Notes           *string    `json:"notes" db:"notes"`
	AgreementObject *string    `json:"agreement_object" db:"agreement_object"`
	CreatedBy       uuid.UUID  `json:"created_by" db:"created_by"`
	UpdatedBy       uuid.UUID  `json:"updated_by" db:"updated_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsTerminal reports whether the order can no longer change state.
func (o *RentalOrder) IsTerminal() bool {
	return o.Status == RentalStatusInvoiced || o.Status == RentalStatusCancelled
}

// AmountsMutable reports whether dates/rate/promotion may still be changed.
// Amounts are frozen once the vehicle has been handed over.
func (o *RentalOrder) AmountsMutable() bool {
	return o.Status == RentalStatusDraft || o.Status == RentalStatusConfirmed
}

// RentalOrderSearchFilter holds search and filter criteria for order queries
type RentalOrderSearchFilter struct {
	Query         string     `json:"query,omitempty"`           // Full-text search across order number and notes
	Status        *string    `json:"status,omitempty"`          // Status filter
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`     // Customer filter
	VehicleID     *uuid.UUID `json:"vehicle_id,omitempty"`      // Vehicle filter
	StartDateFrom *time.Time `json:"start_date_from,omitempty"` // Planned start date from
	StartDateTo   *time.Time `json:"start_date_to,omitempty"`   // Planned start date to
	SortBy        string     `json:"sort_by,omitempty"`         // Sort field: start_date, created_at, total_amount
	SortOrder     string     `json:"sort_order,omitempty"`      // Sort order: asc, desc
	Limit         int        `json:"limit,omitempty"`           // Page size (default: 50)
	Offset        int        `json:"offset,omitempty"`          // Page offset
}
