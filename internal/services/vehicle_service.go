package services

import (
	"context"
	"fmt"
	"time"

	"fleetrent/internal/caching"
	"fleetrent/internal/common"
	"fleetrent/internal/events"
	"fleetrent/internal/models"
	"fleetrent/internal/repositories"

	"github.com/google/uuid"
)

// VehicleStateTracker is the narrow capability the rental lifecycle needs:
// flip a vehicle's status as a rental side effect, inside the caller's
// transaction, with a history entry. Returning the event lets the caller
// publish it after the transaction commits.
type VehicleStateTracker interface {
	MarkRented(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID) (*events.VehicleStatusChanged, error)
	MarkReturned(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID) (*events.VehicleStatusChanged, error)
}

// VehicleServiceInterface exposes vehicle reads plus the state tracking the
// rental lifecycle consumes.
type VehicleServiceInterface interface {
	VehicleStateTracker
	GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, status *string, limit, offset int) ([]*models.Vehicle, error)
	ListVehicleHistory(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*models.VehicleStatusHistory, error)
}

type vehicleService struct {
	vehicleRepo repositories.VehicleRepository
	cacheSvc    caching.CacheService
}

// NewVehicleService creates a new vehicle service
func NewVehicleService(vehicleRepo repositories.VehicleRepository, cacheSvc caching.CacheService) VehicleServiceInterface {
	return &vehicleService{
		vehicleRepo: vehicleRepo,
		cacheSvc:    cacheSvc,
	}
}

func (s *vehicleService) GetVehicle(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	if s.cacheSvc != nil {
		if vehicle, err := s.cacheSvc.GetVehicle(ctx, id); err == nil && vehicle != nil {
			return vehicle, nil
		}
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.SetVehicle(ctx, vehicle, 5*time.Minute)
	}
	return vehicle, nil
}

func (s *vehicleService) ListVehicles(ctx context.Context, status *string, limit, offset int) ([]*models.Vehicle, error) {
	if status != nil && !models.ValidVehicleStatus(*status) {
		return nil, common.ValidationError("status", "unknown vehicle status")
	}
	return s.vehicleRepo.List(ctx, status, limit, offset)
}

func (s *vehicleService) ListVehicleHistory(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*models.VehicleStatusHistory, error) {
	return s.vehicleRepo.ListHistory(ctx, vehicleID, limit, offset)
}

// MarkRented locks the vehicle row, requires it to still be available, sets
// it to rented and appends the history entry. All inside the caller's
// transaction so a failed order transition never strands a vehicle state.
func (s *vehicleService) MarkRented(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID) (*events.VehicleStatusChanged, error) {
	return s.transition(ctx, q, vehicleID, rentalOrderID, actor, models.VehicleStatusRented, models.VehicleActionRented, func(v *models.Vehicle) error {
		if v.Status != models.VehicleStatusAvailable {
			return fmt.Errorf("vehicle %s is %s: %w", v.ID, v.Status, common.ErrVehicleUnavailable)
		}
		return nil
	})
}

// MarkReturned releases a rented vehicle back to available.
func (s *vehicleService) MarkReturned(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID) (*events.VehicleStatusChanged, error) {
	return s.transition(ctx, q, vehicleID, rentalOrderID, actor, models.VehicleStatusAvailable, models.VehicleActionReturned, func(v *models.Vehicle) error {
		if v.Status != models.VehicleStatusRented {
			return fmt.Errorf("vehicle %s is %s, not rented: %w", v.ID, v.Status, common.ErrVehicleUnavailable)
		}
		return nil
	})
}

func (s *vehicleService) transition(ctx context.Context, q repositories.Querier, vehicleID, rentalOrderID, actor uuid.UUID, newStatus, action string, check func(*models.Vehicle) error) (*events.VehicleStatusChanged, error) {
	repo := s.vehicleRepo.WithTx(q)

	vehicle, err := repo.GetByIDForUpdate(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if err := check(vehicle); err != nil {
		return nil, err
	}

	if err := repo.UpdateStatus(ctx, vehicleID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update vehicle status: %w", err)
	}

	now := time.Now()
	history := &models.VehicleStatusHistory{
		ID:          uuid.New(),
		VehicleID:   vehicleID,
		OldStatus:   vehicle.Status,
		NewStatus:   newStatus,
		Action:      action,
		ReferenceID: &rentalOrderID,
		ChangedBy:   actor,
		ChangedAt:   now,
	}
	if err := repo.AppendHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("failed to append vehicle history: %w", err)
	}

	if s.cacheSvc != nil {
		_ = s.cacheSvc.DeleteVehicle(ctx, vehicleID)
	}

	return &events.VehicleStatusChanged{
		VehicleID:     vehicleID,
		OldStatus:     vehicle.Status,
		NewStatus:     newStatus,
		Action:        action,
		RentalOrderID: rentalOrderID,
		OccurredAt:    now,
	}, nil
}
