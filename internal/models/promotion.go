package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	PromotionTypePercentage  = "percentage"
	PromotionTypeFixedAmount = "fixed_amount"

	PromotionStatusActive   = "active"
	PromotionStatusInactive = "inactive"
)

// Promotion is a discount campaign. UsedCount only ever moves through the
// conditional increment/decrement in the promotion repository so the usage
// cap holds under concurrent confirmations.
type Promotion struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Description *string    `json:"description" db:"description"`
	Type        string     `json:"type" db:"type"`
	Value       float64    `json:"value" db:"value"`
	MinAmount   *float64   `json:"min_amount" db:"min_amount"`
	MaxDiscount *float64   `json:"max_discount" db:"max_discount"`
	StartDate   time.Time  `json:"start_date" db:"start_date"`
	EndDate     time.Time  `json:"end_date" db:"end_date"`
	UsageLimit  *int       `json:"usage_limit" db:"usage_limit"`
	UsedCount   int        `json:"used_count" db:"used_count"`
	Status      string     `json:"status" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// InWindow reports whether the evaluation instant falls inside the
// promotion's validity window (inclusive on both ends).
func (p *Promotion) InWindow(at time.Time) bool {
	return !at.Before(p.StartDate) && !at.After(p.EndDate)
}

// Exhausted reports whether the usage cap has been reached.
func (p *Promotion) Exhausted() bool {
	return p.UsageLimit != nil && p.UsedCount >= *p.UsageLimit
}
