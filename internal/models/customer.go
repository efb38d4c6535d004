package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is the renting party referenced by rental orders.
type Customer struct {
	ID            uuid.UUID `json:"id" db:"id"`
	FullName      string    `json:"full_name" db:"full_name"`
	Phone         string    `json:"phone" db:"phone"`
	Email         *string   `json:"email" db:"email"`
	LicenseNumber *string   `json:"license_number" db:"license_number"`
	Address       *string   `json:"address" db:"address"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
