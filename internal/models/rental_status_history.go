package models

import (
	"time"

	"github.com/google/uuid"
)

// RentalStatusHistory is one immutable audit-trail entry for a rental order.
// OldStatus is nil for the creation entry. Rows are append-only.
type RentalStatusHistory struct {
	ID            uuid.UUID `json:"id" db:"id"`
	RentalOrderID uuid.UUID `json:"rental_order_id" db:"rental_order_id"`
	OldStatus     *string   `json:"old_status" db:"old_status"`
	NewStatus     string    `json:"new_status" db:"new_status"`
	ChangedBy     uuid.UUID `json:"changed_by" db:"changed_by"`
	Note          *string   `json:"note" db:"note"`
	ChangedAt     time.Time `json:"changed_at" db:"changed_at"`
}
