package repositories

import (
	"context"

	"fleetrent/internal/models"

	"github.com/google/uuid"
)

type RentalStatusHistoryRepository interface {
	WithTx(q Querier) RentalStatusHistoryRepository
	Append(ctx context.Context, entry *models.RentalStatusHistory) error
	ListByOrder(ctx context.Context, rentalOrderID uuid.UUID) ([]*models.RentalStatusHistory, error)
}

type rentalStatusHistoryRepo struct {
	db Querier
}

func NewRentalStatusHistoryRepo(db Querier) RentalStatusHistoryRepository {
	return &rentalStatusHistoryRepo{db: db}
}

func (r *rentalStatusHistoryRepo) WithTx(q Querier) RentalStatusHistoryRepository {
	return &rentalStatusHistoryRepo{db: q}
}

// Append inserts one audit-trail entry. There is no update or delete; the
// table is append-only.
func (r *rentalStatusHistoryRepo) Append(ctx context.Context, entry *models.RentalStatusHistory) error {
	query := `
		INSERT INTO rental_status_history (id, rental_order_id, old_status, new_status, changed_by, note, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query, entry.ID, entry.RentalOrderID, entry.OldStatus, entry.NewStatus, entry.ChangedBy, entry.Note, entry.ChangedAt)
	return err
}

func (r *rentalStatusHistoryRepo) ListByOrder(ctx context.Context, rentalOrderID uuid.UUID) ([]*models.RentalStatusHistory, error) {
	query := `
		SELECT id, rental_order_id, old_status, new_status, changed_by, note, changed_at
		FROM rental_status_history
		WHERE rental_order_id = $1
		ORDER BY changed_at ASC
	`
	rows, err := r.db.Query(ctx, query, rentalOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.RentalStatusHistory
	for rows.Next() {
		entry := &models.RentalStatusHistory{}
		if err := rows.Scan(&entry.ID, &entry.RentalOrderID, &entry.OldStatus, &entry.NewStatus, &entry.ChangedBy, &entry.Note, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
