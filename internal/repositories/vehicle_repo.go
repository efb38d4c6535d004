package repositories

import (
	"context"
	"errors"
	"fmt"

	"fleetrent/internal/common"
	"fleetrent/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type VehicleRepository interface {
	WithTx(q Querier) VehicleRepository
	GetByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Vehicle, error)
	List(ctx context.Context, status *string, limit, offset int) ([]*models.Vehicle, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	AppendHistory(ctx context.Context, entry *models.VehicleStatusHistory) error
	ListHistory(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*models.VehicleStatusHistory, error)
}

type vehicleRepo struct {
	db Querier
}

func NewVehicleRepo(db Querier) VehicleRepository {
	return &vehicleRepo{db: db}
}

func (r *vehicleRepo) WithTx(q Querier) VehicleRepository {
	return &vehicleRepo{db: q}
}

func (r *vehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{}
	query := `
		SELECT id, license_plate, brand, model, color, year, daily_rate, status, created_at, updated_at
		FROM vehicles
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&vehicle.ID, &vehicle.LicensePlate, &vehicle.Brand, &vehicle.Model, &vehicle.Color, &vehicle.Year, &vehicle.DailyRate, &vehicle.Status, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

// GetByIDForUpdate locks the vehicle row inside the caller's transaction,
// serializing concurrent lifecycle transitions touching the same vehicle.
func (r *vehicleRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{}
	query := `
		SELECT id, license_plate, brand, model, color, year, daily_rate, status, created_at, updated_at
		FROM vehicles
		WHERE id = $1
		FOR UPDATE
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&vehicle.ID, &vehicle.LicensePlate, &vehicle.Brand, &vehicle.Model, &vehicle.Color, &vehicle.Year, &vehicle.DailyRate, &vehicle.Status, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("vehicle %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return vehicle, nil
}

func (r *vehicleRepo) List(ctx context.Context, status *string, limit, offset int) ([]*models.Vehicle, error) {
	query := `
		SELECT id, license_plate, brand, model, color, year, daily_rate, status, created_at, updated_at
		FROM vehicles
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY license_plate ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*models.Vehicle
	for rows.Next() {
		vehicle := &models.Vehicle{}
		if err := rows.Scan(&vehicle.ID, &vehicle.LicensePlate, &vehicle.Brand, &vehicle.Model, &vehicle.Color, &vehicle.Year, &vehicle.DailyRate, &vehicle.Status, &vehicle.CreatedAt, &vehicle.UpdatedAt); err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE vehicles
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vehicle %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *vehicleRepo) AppendHistory(ctx context.Context, entry *models.VehicleStatusHistory) error {
	query := `
		INSERT INTO vehicle_status_history (id, vehicle_id, old_status, new_status, action, reference_id, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.VehicleID, entry.OldStatus, entry.NewStatus, entry.Action, entry.ReferenceID, entry.ChangedBy, entry.ChangedAt)
	return err
}

func (r *vehicleRepo) ListHistory(ctx context.Context, vehicleID uuid.UUID, limit, offset int) ([]*models.VehicleStatusHistory, error) {
	query := `
		SELECT id, vehicle_id, old_status, new_status, action, reference_id, changed_by, changed_at
		FROM vehicle_status_history
		WHERE vehicle_id = $1
		ORDER BY changed_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, vehicleID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.VehicleStatusHistory
	for rows.Next() {
		entry := &models.VehicleStatusHistory{}
		if err := rows.Scan(&entry.ID, &entry.VehicleID, &entry.OldStatus, &entry.NewStatus, &entry.Action, &entry.ReferenceID, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
