package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	invoicing "parkbill/internal/invoicing/domain"
)

// InvoiceRepository persists invoices.
type InvoiceRepository struct {
	db *sql.DB
}

// NewInvoiceRepository constructs a repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

const invoiceColumns = `id, invoice_date, statement_date, account_id, COALESCE(lot_id, ''), tenant_name, rate_config_id, amount_due, details, delivered_on, inserted_at`

// GetByID fetches an invoice.
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE id = $1
LIMIT 1`, id)
	return scanInvoice(row)
}

// ListByStatementDate returns the invoices for a cycle, optionally filtered
// to one rate config.
func (r *InvoiceRepository) ListByStatementDate(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.Invoice, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invoice repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+invoiceColumns+`
FROM invoices
WHERE statement_date = $1
	AND ($2::uuid IS NULL OR rate_config_id = $2)
ORDER BY lot_id, account_id`, statementDate, nullableUUID(rateConfigID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		if invoice != nil {
			result = append(result, *invoice)
		}
	}
	return result, rows.Err()
}

// Upsert stores an invoice, updating the existing row for the same cycle,
// account, rate config, and invoice day.
func (r *InvoiceRepository) Upsert(ctx context.Context, invoice *invoicing.Invoice) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	if invoice == nil {
		return errors.New("invoice repo: nil invoice")
	}
	details, err := json.Marshal(invoice.Details)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO invoices (id, invoice_date, statement_date, account_id, lot_id, tenant_name, rate_config_id, amount_due, details, inserted_at)
VALUES ($1, $2::date, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
ON CONFLICT (invoice_date, statement_date, account_id, rate_config_id)
DO UPDATE SET
	lot_id = EXCLUDED.lot_id,
	tenant_name = EXCLUDED.tenant_name,
	amount_due = EXCLUDED.amount_due,
	details = EXCLUDED.details`,
		invoice.ID, invoice.InvoiceDate, invoice.StatementDate, invoice.AccountID,
		invoice.LotID, invoice.TenantName, invoice.RateConfigID, invoice.AmountDue,
		details, invoice.InsertedAt)
	return err
}

// MarkDelivered records the delivery timestamp.
func (r *InvoiceRepository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredOn time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("invoice repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE invoices SET delivered_on = $2 WHERE id = $1 AND delivered_on IS NULL`, id, deliveredOn)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return invoicing.ErrInvoiceNotFound
	}
	return nil
}

func scanInvoice(row rowScanner) (*invoicing.Invoice, error) {
	var invoice invoicing.Invoice
	var details []byte
	var deliveredOn sql.NullTime
	err := row.Scan(
		&invoice.ID,
		&invoice.InvoiceDate,
		&invoice.StatementDate,
		&invoice.AccountID,
		&invoice.LotID,
		&invoice.TenantName,
		&invoice.RateConfigID,
		&invoice.AmountDue,
		&details,
		&deliveredOn,
		&invoice.InsertedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &invoice.Details); err != nil {
			return nil, err
		}
	}
	if deliveredOn.Valid {
		invoice.DeliveredOn = deliveredOn.Time.UTC()
	}
	invoice.InvoiceDate = invoice.InvoiceDate.UTC()
	invoice.StatementDate = invoice.StatementDate.UTC()
	invoice.InsertedAt = invoice.InsertedAt.UTC()
	return &invoice, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}
