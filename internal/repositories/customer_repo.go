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

type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	List(ctx context.Context, limit, offset int) ([]*models.Customer, error)
}

type customerRepo struct {
	db Querier
}

func NewCustomerRepo(db Querier) CustomerRepository {
	return &customerRepo{db: db}
}

func (r *customerRepo) Create(ctx context.Context, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, full_name, phone, email, license_number, address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, customer.ID, customer.FullName, customer.Phone, customer.Email, customer.LicenseNumber, customer.Address)
	return err
}

func (r *customerRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer := &models.Customer{}
	query := `
		SELECT id, full_name, phone, email, license_number, address, created_at, updated_at
		FROM customers
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&customer.ID, &customer.FullName, &customer.Phone, &customer.Email, &customer.LicenseNumber, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *customerRepo) List(ctx context.Context, limit, offset int) ([]*models.Customer, error) {
	query := `
		SELECT id, full_name, phone, email, license_number, address, created_at, updated_at
		FROM customers
		ORDER BY full_name ASC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []*models.Customer
	for rows.Next() {
		customer := &models.Customer{}
		if err := rows.Scan(&customer.ID, &customer.FullName, &customer.Phone, &customer.Email, &customer.LicenseNumber, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
			return nil, err
		}
		customers = append(customers, customer)
	}
	return customers, rows.Err()
}
