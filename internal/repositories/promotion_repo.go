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

type PromotionRepository interface {
	WithTx(q Querier) PromotionRepository
	Create(ctx context.Context, promo *models.Promotion) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error)
	GetByCode(ctx context.Context, code string) (*models.Promotion, error)
	Update(ctx context.Context, promo *models.Promotion) error
	List(ctx context.Context, limit, offset int) ([]*models.Promotion, error)
	ConsumeUsage(ctx context.Context, id uuid.UUID) error
	ReleaseUsage(ctx context.Context, id uuid.UUID) error
}

type promotionRepo struct {
	db Querier
}

func NewPromotionRepo(db Querier) PromotionRepository {
	return &promotionRepo{db: db}
}

func (r *promotionRepo) WithTx(q Querier) PromotionRepository {
	return &promotionRepo{db: q}
}

func (r *promotionRepo) Create(ctx context.Context, promo *models.Promotion) error {
	query := `
		INSERT INTO promotions (id, code, description, type, value, min_amount, max_discount, start_date, end_date, usage_limit, used_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query, promo.ID, promo.Code, promo.Description, promo.Type, promo.Value, promo.MinAmount, promo.MaxDiscount, promo.StartDate, promo.EndDate, promo.UsageLimit, promo.UsedCount, promo.Status)
	return err
}

func (r *promotionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Promotion, error) {
	promo := &models.Promotion{}
	query := `
		SELECT id, code, description, type, value, min_amount, max_discount, start_date, end_date, usage_limit, used_count, status, created_at, updated_at
		FROM promotions
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&promo.ID, &promo.Code, &promo.Description, &promo.Type, &promo.Value, &promo.MinAmount, &promo.MaxDiscount, &promo.StartDate, &promo.EndDate, &promo.UsageLimit, &promo.UsedCount, &promo.Status, &promo.CreatedAt, &promo.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("promotion %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *promotionRepo) GetByCode(ctx context.Context, code string) (*models.Promotion, error) {
	promo := &models.Promotion{}
	query := `
		SELECT id, code, description, type, value, min_amount, max_discount, start_date, end_date, usage_limit, used_count, status, created_at, updated_at
		FROM promotions
		WHERE code = $1
	`
	err := r.db.QueryRow(ctx, query, code).Scan(&promo.ID, &promo.Code, &promo.Description, &promo.Type, &promo.Value, &promo.MinAmount, &promo.MaxDiscount, &promo.StartDate, &promo.EndDate, &promo.UsageLimit, &promo.UsedCount, &promo.Status, &promo.CreatedAt, &promo.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("promotion code %q: %w", code, common.ErrPromotionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return promo, nil
}

func (r *promotionRepo) Update(ctx context.Context, promo *models.Promotion) error {
	query := `
		UPDATE promotions
		SET code = $1, description = $2, type = $3, value = $4, min_amount = $5, max_discount = $6,
			start_date = $7, end_date = $8, usage_limit = $9, status = $10, updated_at = NOW()
		WHERE id = $11
	`
	tag, err := r.db.Exec(ctx, query, promo.Code, promo.Description, promo.Type, promo.Value, promo.MinAmount, promo.MaxDiscount, promo.StartDate, promo.EndDate, promo.UsageLimit, promo.Status, promo.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("promotion %s: %w", promo.ID, common.ErrNotFound)
	}
	return nil
}

func (r *promotionRepo) List(ctx context.Context, limit, offset int) ([]*models.Promotion, error) {
	query := `
		SELECT id, code, description, type, value, min_amount, max_discount, start_date, end_date, usage_limit, used_count, status, created_at, updated_at
		FROM promotions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var promos []*models.Promotion
	for rows.Next() {
		promo := &models.Promotion{}
		if err := rows.Scan(&promo.ID, &promo.Code, &promo.Description, &promo.Type, &promo.Value, &promo.MinAmount, &promo.MaxDiscount, &promo.StartDate, &promo.EndDate, &promo.UsageLimit, &promo.UsedCount, &promo.Status, &promo.CreatedAt, &promo.UpdatedAt); err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}
	return promos, rows.Err()
}

// ConsumeUsage increments used_count by one, re-checking the usage cap
// inside the same UPDATE. When two confirmations race for the last slot the
// loser's guard fails (zero rows affected) and it gets UsageExhausted.
func (r *promotionRepo) ConsumeUsage(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE promotions
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1
		  AND status = $2
		  AND (usage_limit IS NULL OR used_count < usage_limit)
	`
	tag, err := r.db.Exec(ctx, query, id, models.PromotionStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("promotion %s: %w", id, common.ErrPromotionUsageExhausted)
	}
	return nil
}

// ReleaseUsage returns a consumed usage slot, flooring at zero.
func (r *promotionRepo) ReleaseUsage(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE promotions
		SET used_count = GREATEST(used_count - 1, 0), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("promotion %s: %w", id, common.ErrNotFound)
	}
	return nil
}
