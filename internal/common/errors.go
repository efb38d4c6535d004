package common

import (
	"errors"
	"fmt"
)

// Domain error kinds. Services wrap these with fmt.Errorf("...: %w", err)
// and handlers map them to HTTP status codes with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadyInvoiced     = errors.New("rental order already invoiced")
	ErrOverpayment         = errors.New("payment exceeds remaining balance")
	ErrInvoiceCancelled    = errors.New("invoice is cancelled")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
	ErrVehicleUnavailable  = errors.New("vehicle is not available")
)

// Promotion validation failures. Validate reports these as reasons without
// failing; Consume returns ErrPromotionUsageExhausted when the conditional
// increment loses the last usage slot.
var (
	ErrPromotionNotFound       = errors.New("promotion code not found")
	ErrPromotionInactive       = errors.New("promotion is not active")
	ErrPromotionOutOfWindow    = errors.New("promotion is outside its validity window")
	ErrPromotionUsageExhausted = errors.New("promotion usage limit reached")
	ErrPromotionBelowMinimum   = errors.New("order amount below promotion minimum")
)

// ValidationError reports a field-level invariant violation.
func ValidationError(field, msg string) error {
	return fmt.Errorf("%s: %s: %w", field, msg, ErrValidation)
}

// TransitionError reports an illegal rental-order status change.
func TransitionError(from, to string) error {
	return fmt.Errorf("cannot transition from %s to %s: %w", from, to, ErrInvalidTransition)
}
