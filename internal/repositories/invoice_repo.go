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
	"github.com/jackc/pgx/v5/pgconn"
)

type InvoiceRepository interface {
	WithTx(q Querier) InvoiceRepository
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	GetByRentalOrderID(ctx context.Context, rentalOrderID uuid.UUID) (*models.Invoice, error)
	UpdateBalance(ctx context.Context, invoice *models.Invoice) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time) error
	List(ctx context.Context, limit, offset int) ([]*models.Invoice, error)
	ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Invoice, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	CreateDetail(ctx context.Context, detail *models.InvoiceDetail) error
	ListDetails(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceDetail, error)
	GenerateInvoiceNumber(ctx context.Context, invoiceDate time.Time) (string, error)
	ReceivablesSummary(ctx context.Context) (*models.ReceivablesSummary, error)
}

const invoiceColumns = `id, invoice_number, rental_order_id, invoice_date, due_date, sub_total, tax_rate, tax_amount, discount_amount, total_amount, paid_amount, remaining_amount, status, notes, paid_date, created_at, updated_at`

type invoiceRepo struct {
	db Querier
}

func NewInvoiceRepo(db Querier) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) WithTx(q Querier) InvoiceRepository {
	return &invoiceRepo{db: q}
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := row.Scan(
		&invoice.ID, &invoice.InvoiceNumber, &invoice.RentalOrderID, &invoice.InvoiceDate,
		&invoice.DueDate, &invoice.SubTotal, &invoice.TaxRate, &invoice.TaxAmount,
		&invoice.DiscountAmount, &invoice.TotalAmount, &invoice.PaidAmount, &invoice.RemainingAmount,
		&invoice.Status, &invoice.Notes, &invoice.PaidDate, &invoice.CreatedAt, &invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// Create inserts the invoice. The unique constraint on rental_order_id is
// the idempotent-once guarantee: a second generation attempt surfaces as
// AlreadyInvoiced instead of a duplicate row.
func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	`
	_, err := r.db.Exec(ctx, query,
		invoice.ID, invoice.InvoiceNumber, invoice.RentalOrderID, invoice.InvoiceDate,
		invoice.DueDate, invoice.SubTotal, invoice.TaxRate, invoice.TaxAmount,
		invoice.DiscountAmount, invoice.TotalAmount, invoice.PaidAmount, invoice.RemainingAmount,
		invoice.Status, invoice.Notes, invoice.PaidDate,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "invoices_rental_order_id_key" {
		return fmt.Errorf("rental order %s: %w", invoice.RentalOrderID, common.ErrAlreadyInvoiced)
	}
	return err
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
	`
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return invoice, err
}

// GetByIDForUpdate locks the invoice row so concurrent payments serialize;
// two payments that individually fit but jointly overpay cannot both pass
// the remaining-balance check.
func (r *invoiceRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE id = $1
		FOR UPDATE
	`
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return invoice, err
}

func (r *invoiceRepo) GetByRentalOrderID(ctx context.Context, rentalOrderID uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE rental_order_id = $1
	`
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, rentalOrderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("invoice for rental order %s: %w", rentalOrderID, common.ErrNotFound)
	}
	return invoice, err
}

// UpdateBalance persists paid amount, remaining amount, status and paid date
// after a payment has been applied or voided.
func (r *invoiceRepo) UpdateBalance(ctx context.Context, invoice *models.Invoice) error {
	query := `
		UPDATE invoices
		SET paid_amount = $1, remaining_amount = $2, status = $3, paid_date = $4, updated_at = NOW()
		WHERE id = $5
	`
	tag, err := r.db.Exec(ctx, query, invoice.PaidAmount, invoice.RemainingAmount, invoice.Status, invoice.PaidDate, invoice.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", invoice.ID, common.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepo) UpdateDueDate(ctx context.Context, id uuid.UUID, dueDate time.Time) error {
	query := `
		UPDATE invoices
		SET due_date = $1, updated_at = NOW()
		WHERE id = $2
	`
	tag, err := r.db.Exec(ctx, query, dueDate, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		ORDER BY invoice_date DESC
		LIMIT $1 OFFSET $2
	`
	return r.queryInvoices(ctx, query, limit, offset)
}

func (r *invoiceRepo) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status = $1
		ORDER BY due_date ASC
		LIMIT $2 OFFSET $3
	`
	return r.queryInvoices(ctx, query, status, limit, offset)
}

// MarkOverdue flags every unpaid or partially paid invoice whose due date
// has passed as of the given instant. The status predicate lives inside the
// UPDATE so a payment committing concurrently cannot be stomped back to
// overdue.
func (r *invoiceRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE status IN ($2, $3) AND due_date < $4
	`
	tag, err := r.db.Exec(ctx, query, models.InvoiceStatusOverdue, models.InvoiceStatusUnpaid, models.InvoiceStatusPartial, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *invoiceRepo) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]*models.Invoice, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

func (r *invoiceRepo) CreateDetail(ctx context.Context, detail *models.InvoiceDetail) error {
	query := `
		INSERT INTO invoice_details (id, invoice_id, description, quantity, unit_price, amount, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err := r.db.Exec(ctx, query, detail.ID, detail.InvoiceID, detail.Description, detail.Quantity, detail.UnitPrice, detail.Amount, detail.SortOrder)
	return err
}

func (r *invoiceRepo) ListDetails(ctx context.Context, invoiceID uuid.UUID) ([]*models.InvoiceDetail, error) {
	query := `
		SELECT id, invoice_id, description, quantity, unit_price, amount, sort_order, created_at
		FROM invoice_details
		WHERE invoice_id = $1
		ORDER BY sort_order ASC
	`
	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var details []*models.InvoiceDetail
	for rows.Next() {
		detail := &models.InvoiceDetail{}
		if err := rows.Scan(&detail.ID, &detail.InvoiceID, &detail.Description, &detail.Quantity, &detail.UnitPrice, &detail.Amount, &detail.SortOrder, &detail.CreatedAt); err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, rows.Err()
}

// GenerateInvoiceNumber generates a unique, monotonically increasing invoice
// number for the month of invoiceDate via an atomic sequence upsert.
func (r *invoiceRepo) GenerateInvoiceNumber(ctx context.Context, invoiceDate time.Time) (string, error) {
	yearMonth := invoiceDate.Format("2006-01")

	query := `
		WITH upsert AS (
			INSERT INTO invoice_sequences (year_month, last_number)
			VALUES ($1, 1)
			ON CONFLICT (year_month)
			DO UPDATE SET
				last_number = invoice_sequences.last_number + 1,
				updated_at = NOW()
			RETURNING last_number
		)
		SELECT last_number FROM upsert;
	`

	var sequenceNum int
	if err := r.db.QueryRow(ctx, query, yearMonth).Scan(&sequenceNum); err != nil {
		return "", fmt.Errorf("failed to generate invoice sequence: %w", err)
	}

	return fmt.Sprintf("INV-%s-%06d", yearMonth, sequenceNum), nil
}

// ReceivablesSummary aggregates outstanding balances per invoice status.
func (r *invoiceRepo) ReceivablesSummary(ctx context.Context) (*models.ReceivablesSummary, error) {
	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(paid_amount), 0),
			COALESCE(SUM(remaining_amount), 0),
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COALESCE(SUM(remaining_amount) FILTER (WHERE status = $4), 0)
		FROM invoices
		WHERE status <> $5
	`
	summary := &models.ReceivablesSummary{}
	err := r.db.QueryRow(ctx, query,
		models.InvoiceStatusUnpaid, models.InvoiceStatusPartial, models.InvoiceStatusPaid,
		models.InvoiceStatusOverdue, models.InvoiceStatusCancelled,
	).Scan(
		&summary.TotalInvoices, &summary.TotalAmount, &summary.TotalPaid, &summary.TotalOutstanding,
		&summary.UnpaidCount, &summary.PartialCount, &summary.PaidCount,
		&summary.OverdueCount, &summary.OverdueOutstanding,
	)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
