package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetrent/internal/common"
	"fleetrent/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type RentalOrderRepository interface {
	WithTx(q Querier) RentalOrderRepository
	Create(ctx context.Context, order *models.RentalOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error)
	Update(ctx context.Context, order *models.RentalOrder) error
	UpdateStatus(ctx context.Context, order *models.RentalOrder) error
	SoftDelete(ctx context.Context, id, actor uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*models.RentalOrder, error)
	AdvancedSearch(ctx context.Context, filter *models.RentalOrderSearchFilter) ([]*models.RentalOrder, error)
	VehicleHasActiveOrder(ctx context.Context, vehicleID uuid.UUID, excludeOrderID *uuid.UUID) (bool, error)
	GenerateOrderNumber(ctx context.Context, orderDate time.Time) (string, error)
}

const rentalOrderColumns = `id, order_number, customer_id, vehicle_id, employee_id, start_date, end_date, actual_start_date, actual_end_date, pickup_location, return_location, daily_rate, total_days, sub_total, discount_amount, promotion_code, total_amount, deposit_amount, status, notes, agreement_object, created_by, updated_by, created_at, updated_at, deleted_at`

type rentalOrderRepo struct {
	db Querier
}

func NewRentalOrderRepo(db Querier) RentalOrderRepository {
	return &rentalOrderRepo{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *rentalOrderRepo) WithTx(q Querier) RentalOrderRepository {
	return &rentalOrderRepo{db: q}
}

func scanRentalOrder(row pgx.Row) (*models.RentalOrder, error) {
	order := &models.RentalOrder{}
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CustomerID, &order.VehicleID, &order.EmployeeID,
		&order.StartDate, &order.EndDate, &order.ActualStartDate, &order.ActualEndDate,
		&order.PickupLocation, &order.ReturnLocation, &order.DailyRate, &order.TotalDays,
		&order.SubTotal, &order.DiscountAmount, &order.PromotionCode, &order.TotalAmount,
		&order.DepositAmount, &order.Status, &order.Notes, &order.AgreementObject,
		&order.CreatedBy, &order.UpdatedBy, &order.CreatedAt, &order.UpdatedAt, &order.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *rentalOrderRepo) Create(ctx context.Context, order *models.RentalOrder) error {
	query := `
		INSERT INTO rental_orders (` + rentalOrderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, NOW(), NOW(), NULL)
	`
	_, err := r.db.Exec(ctx, query,
		order.ID, order.OrderNumber, order.CustomerID, order.VehicleID, order.EmployeeID,
		order.StartDate, order.EndDate, order.ActualStartDate, order.ActualEndDate,
		order.PickupLocation, order.ReturnLocation, order.DailyRate, order.TotalDays,
		order.SubTotal, order.DiscountAmount, order.PromotionCode, order.TotalAmount,
		order.DepositAmount, order.Status, order.Notes, order.AgreementObject,
		order.CreatedBy, order.UpdatedBy,
	)
	return err
}

func (r *rentalOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error) {
	query := `
		SELECT ` + rentalOrderColumns + `
		FROM rental_orders
		WHERE id = $1 AND deleted_at IS NULL
	`
	order, err := scanRentalOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rental order %s: %w", id, common.ErrNotFound)
	}
	return order, err
}

// GetByIDForUpdate locks the order row for the duration of the enclosing
// transaction so concurrent transitions serialize instead of racing.
func (r *rentalOrderRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.RentalOrder, error) {
	query := `
		SELECT ` + rentalOrderColumns + `
		FROM rental_orders
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`
	order, err := scanRentalOrder(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("rental order %s: %w", id, common.ErrNotFound)
	}
	return order, err
}

func (r *rentalOrderRepo) Update(ctx context.Context, order *models.RentalOrder) error {
	query := `
		UPDATE rental_orders
		SET customer_id = $1, vehicle_id = $2, employee_id = $3, start_date = $4, end_date = $5,
			actual_start_date = $6, actual_end_date = $7, pickup_location = $8, return_location = $9,
			daily_rate = $10, total_days = $11, sub_total = $12, discount_amount = $13,
			promotion_code = $14, total_amount = $15, deposit_amount = $16, status = $17,
			notes = $18, agreement_object = $19, updated_by = $20, updated_at = NOW()
		WHERE id = $21 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		order.CustomerID, order.VehicleID, order.EmployeeID, order.StartDate, order.EndDate,
		order.ActualStartDate, order.ActualEndDate, order.PickupLocation, order.ReturnLocation,
		order.DailyRate, order.TotalDays, order.SubTotal, order.DiscountAmount,
		order.PromotionCode, order.TotalAmount, order.DepositAmount, order.Status,
		order.Notes, order.AgreementObject, order.UpdatedBy, order.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rental order %s: %w", order.ID, common.ErrNotFound)
	}
	return nil
}

// UpdateStatus persists the fields a transition is allowed to touch.
func (r *rentalOrderRepo) UpdateStatus(ctx context.Context, order *models.RentalOrder) error {
	query := `
		UPDATE rental_orders
		SET status = $1, actual_start_date = $2, actual_end_date = $3, sub_total = $4,
			discount_amount = $5, total_amount = $6, total_days = $7, updated_by = $8, updated_at = NOW()
		WHERE id = $9 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query,
		order.Status, order.ActualStartDate, order.ActualEndDate, order.SubTotal,
		order.DiscountAmount, order.TotalAmount, order.TotalDays, order.UpdatedBy, order.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rental order %s: %w", order.ID, common.ErrNotFound)
	}
	return nil
}

func (r *rentalOrderRepo) SoftDelete(ctx context.Context, id, actor uuid.UUID) error {
	query := `
		UPDATE rental_orders
		SET deleted_at = NOW(), updated_by = $1, updated_at = NOW()
		WHERE id = $2 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, actor, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rental order %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *rentalOrderRepo) List(ctx context.Context, limit, offset int) ([]*models.RentalOrder, error) {
	query := `
		SELECT ` + rentalOrderColumns + `
		FROM rental_orders
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.RentalOrder
	for rows.Next() {
		order, err := scanRentalOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// AdvancedSearch performs filtered search on rental orders
func (r *rentalOrderRepo) AdvancedSearch(ctx context.Context, filter *models.RentalOrderSearchFilter) ([]*models.RentalOrder, error) {
	// Set defaults
	if filter.Limit == 0 {
		filter.Limit = 50
	}
	if filter.SortBy == "" {
		filter.SortBy = "created_at"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	queryBase := `
		SELECT ` + rentalOrderColumns + `
		FROM rental_orders
		WHERE deleted_at IS NULL
	`
	args := []interface{}{}
	conditionCount := 0

	if filter.Query != "" {
		conditionCount++
		queryBase += fmt.Sprintf(` AND (order_number ILIKE $%d OR COALESCE(notes, '') ILIKE $%d)`, conditionCount, conditionCount)
		args = append(args, "%"+filter.Query+"%")
	}

	if filter.Status != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND status = $%d`, conditionCount)
		args = append(args, *filter.Status)
	}

	if filter.CustomerID != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND customer_id = $%d`, conditionCount)
		args = append(args, *filter.CustomerID)
	}

	if filter.VehicleID != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND vehicle_id = $%d`, conditionCount)
		args = append(args, *filter.VehicleID)
	}

	if filter.StartDateFrom != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND start_date >= $%d`, conditionCount)
		args = append(args, *filter.StartDateFrom)
	}
	if filter.StartDateTo != nil {
		conditionCount++
		queryBase += fmt.Sprintf(` AND start_date <= $%d`, conditionCount)
		args = append(args, *filter.StartDateTo)
	}

	validSortFields := map[string]bool{
		"start_date": true, "created_at": true, "total_amount": true,
	}
	sortField := "created_at"
	if validSortFields[filter.SortBy] {
		sortField = filter.SortBy
	}
	queryBase += fmt.Sprintf(` ORDER BY %s %s`, sortField, common.ValidateSortOrder(filter.SortOrder))

	conditionCount++
	queryBase += fmt.Sprintf(` LIMIT $%d`, conditionCount)
	args = append(args, filter.Limit)
	if filter.Offset > 0 {
		conditionCount++
		queryBase += fmt.Sprintf(` OFFSET $%d`, conditionCount)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Query(ctx, queryBase, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.RentalOrder
	for rows.Next() {
		order, err := scanRentalOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// VehicleHasActiveOrder reports whether the vehicle is attached to any
// non-terminal rental order, optionally excluding one order id.
func (r *rentalOrderRepo) VehicleHasActiveOrder(ctx context.Context, vehicleID uuid.UUID, excludeOrderID *uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM rental_orders
			WHERE vehicle_id = $1
			  AND deleted_at IS NULL
			  AND status NOT IN ($2, $3)
			  AND ($4::uuid IS NULL OR id <> $4)
		)
	`
	var exists bool
	err := r.db.QueryRow(ctx, query, vehicleID, models.RentalStatusInvoiced, models.RentalStatusCancelled, excludeOrderID).Scan(&exists)
	return exists, err
}

// GenerateOrderNumber returns the next order number for the month of
// orderDate. The sequence row is upserted atomically so numbers are unique
// even under concurrent creation.
func (r *rentalOrderRepo) GenerateOrderNumber(ctx context.Context, orderDate time.Time) (string, error) {
	yearMonth := orderDate.Format("2006-01")

	query := `
		WITH upsert AS (
			INSERT INTO order_sequences (year_month, last_number)
			VALUES ($1, 1)
			ON CONFLICT (year_month)
			DO UPDATE SET
				last_number = order_sequences.last_number + 1,
				updated_at = NOW()
			RETURNING last_number
		)
		SELECT last_number FROM upsert;
	`

	var sequenceNum int
	if err := r.db.QueryRow(ctx, query, yearMonth).Scan(&sequenceNum); err != nil {
		return "", fmt.Errorf("failed to generate order sequence: %w", err)
	}

	return fmt.Sprintf("RO-%s-%06d", yearMonth, sequenceNum), nil
}
