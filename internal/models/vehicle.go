package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	VehicleStatusAvailable    = "available"
	VehicleStatusRented       = "rented"
	VehicleStatusMaintenance  = "maintenance"
	VehicleStatusRepair       = "repair"
	VehicleStatusOutOfService = "out_of_service"
	VehicleStatusInTransit    = "in_transit"
)

// Vehicle history actions written by the rental lifecycle.
const (
	VehicleActionRented   = "Rented"
	VehicleActionReturned = "Returned"
)

// Vehicle is a rentable fleet unit. A vehicle may be attached to at most one
// active (non-terminal) rental order at a time.
type Vehicle struct {
	ID           uuid.UUID `json:"id" db:"id"`
	LicensePlate string    `json:"license_plate" db:"license_plate"`
	Brand        string    `json:"brand" db:"brand"`
	Model        string    `json:"model" db:"model"`
	Color        *string   `json:"color" db:"color"`
	Year         int       `json:"year" db:"year"`
	DailyRate    float64   `json:"daily_rate" db:"daily_rate"`
	Status       string    `json:"status" db:"status"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// VehicleStatusHistory records one vehicle status transition, with the rental
// order (or maintenance record) that caused it as reference.
type VehicleStatusHistory struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	VehicleID   uuid.UUID  `json:"vehicle_id" db:"vehicle_id"`
	OldStatus   string     `json:"old_status" db:"old_status"`
	NewStatus   string     `json:"new_status" db:"new_status"`
	Action      string     `json:"action" db:"action"`
	ReferenceID *uuid.UUID `json:"reference_id" db:"reference_id"`
	ChangedBy   uuid.UUID  `json:"changed_by" db:"changed_by"`
	ChangedAt   time.Time  `json:"changed_at" db:"changed_at"`
}

// ValidVehicleStatus reports whether s is a known vehicle status.
func ValidVehicleStatus(s string) bool {
	switch s {
	case VehicleStatusAvailable, VehicleStatusRented, VehicleStatusMaintenance,
		VehicleStatusRepair, VehicleStatusOutOfService, VehicleStatusInTransit:
		return true
	}
	return false
}
