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

type PaymentRepository interface {
	WithTx(q Querier) PaymentRepository
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	MarkVoided(ctx context.Context, id uuid.UUID, voidedAt time.Time) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error)
	GeneratePaymentNumber(ctx context.Context, paymentDate time.Time) (string, error)
}

const paymentColumns = `id, payment_number, invoice_id, payment_date, amount, method, bank_account, transaction_code, notes, recorded_by, voided_at, created_at`

type paymentRepo struct {
	db Querier
}

func NewPaymentRepo(db Querier) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) WithTx(q Querier) PaymentRepository {
	return &paymentRepo{db: q}
}

func (r *paymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULL, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		payment.ID, payment.PaymentNumber, payment.InvoiceID, payment.PaymentDate,
		payment.Amount, payment.Method, payment.BankAccount, payment.TransactionCode,
		payment.Notes, payment.RecordedBy,
	)
	return err
}

func (r *paymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&payment.ID, &payment.PaymentNumber, &payment.InvoiceID, &payment.PaymentDate,
		&payment.Amount, &payment.Method, &payment.BankAccount, &payment.TransactionCode,
		&payment.Notes, &payment.RecordedBy, &payment.VoidedAt, &payment.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// MarkVoided flags the payment as voided. The guard on voided_at makes the
// operation idempotence-safe: voiding twice affects zero rows the second time.
func (r *paymentRepo) MarkVoided(ctx context.Context, id uuid.UUID, voidedAt time.Time) error {
	query := `
		UPDATE payments
		SET voided_at = $1
		WHERE id = $2 AND voided_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, voidedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment %s already voided or missing: %w", id, common.ErrConcurrencyConflict)
	}
	return nil
}

func (r *paymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE invoice_id = $1
		ORDER BY payment_date ASC
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment := &models.Payment{}
		if err := rows.Scan(
			&payment.ID, &payment.PaymentNumber, &payment.InvoiceID, &payment.PaymentDate,
			&payment.Amount, &payment.Method, &payment.BankAccount, &payment.TransactionCode,
			&payment.Notes, &payment.RecordedBy, &payment.VoidedAt, &payment.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// GeneratePaymentNumber issues the next payment number for the month of
// paymentDate, same sequence mechanism as invoice numbers.
func (r *paymentRepo) GeneratePaymentNumber(ctx context.Context, paymentDate time.Time) (string, error) {
	yearMonth := paymentDate.Format("2006-01")

	query := `
		WITH upsert AS (
			INSERT INTO payment_sequences (year_month, last_number)
			VALUES ($1, 1)
			ON CONFLICT (year_month)
			DO UPDATE SET
				last_number = payment_sequences.last_number + 1,
				updated_at = NOW()
			RETURNING last_number
		)
		SELECT last_number FROM upsert;
	`

	var sequenceNum int
	if err := r.db.QueryRow(ctx, query, yearMonth).Scan(&sequenceNum); err != nil {
		return "", fmt.Errorf("failed to generate payment sequence: %w", err)
	}

	return fmt.Sprintf("PAY-%s-%06d", yearMonth, sequenceNum), nil
}
