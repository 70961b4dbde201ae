package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

const (
	defaultReceivablesTable = "receivables"
	defaultPaymentsTable    = "payments"
)

// ReceivableRepository persists receivables.
type ReceivableRepository struct {
	db *sql.DB
}

// NewReceivableRepository constructs a repository.
func NewReceivableRepository(db *sql.DB) *ReceivableRepository {
	return &ReceivableRepository{db: db}
}

const receivableColumns = `id, account_id, amount_due, statement_date, kind, paid, details, inserted_at`

// GetByID fetches a receivable.
func (r *ReceivableRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Receivable, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("receivable repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+receivableColumns+`
FROM receivables
WHERE id = $1
LIMIT 1`, id)
	return scanReceivable(row)
}

// ListUnpaid returns the open receivables for an account, newest first.
func (r *ReceivableRepository) ListUnpaid(ctx context.Context, accountID uuid.UUID) ([]billing.Receivable, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("receivable repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+receivableColumns+`
FROM receivables
WHERE account_id = $1 AND paid = FALSE
ORDER BY inserted_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	return collectReceivables(rows)
}

// ListAllUnpaid returns every open receivable, newest first.
func (r *ReceivableRepository) ListAllUnpaid(ctx context.Context) ([]billing.Receivable, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("receivable repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+receivableColumns+`
FROM receivables
WHERE paid = FALSE
ORDER BY inserted_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectReceivables(rows)
}

// ListByStatementDate returns receivables charged for a billing cycle.
func (r *ReceivableRepository) ListByStatementDate(ctx context.Context, statementDate time.Time) ([]billing.Receivable, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("receivable repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+receivableColumns+`
FROM receivables
WHERE statement_date = $1
ORDER BY inserted_at DESC`, billing.StatementPeriod(statementDate))
	if err != nil {
		return nil, err
	}
	return collectReceivables(rows)
}

// ListOverdueWithoutLateFee returns open receivables from cycles before the
// statement date that have not yet spawned a late fee. Late fee records
// themselves never incur further fees.
func (r *ReceivableRepository) ListOverdueWithoutLateFee(ctx context.Context, accountID uuid.UUID, statementDate time.Time) ([]billing.Receivable, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("receivable repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+receivableColumns+`
FROM receivables
WHERE account_id = $1
	AND paid = FALSE
	AND kind <> $2
	AND statement_date < $3
	AND id NOT IN (
		SELECT (details->>'original_item_id')::uuid
		FROM receivables
		WHERE account_id = $1 AND kind = $2 AND details ? 'original_item_id'
	)
ORDER BY inserted_at DESC`, accountID, billing.ChargeLateFee, billing.StatementPeriod(statementDate))
	if err != nil {
		return nil, err
	}
	return collectReceivables(rows)
}

// ListUnpaidAccountIDs returns the accounts that currently owe anything.
func (r *ReceivableRepository) ListUnpaidAccountIDs(ctx context.Context) ([]uuid.UUID, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("receivable repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT DISTINCT account_id
FROM receivables
WHERE paid = FALSE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Insert stores a single receivable.
func (r *ReceivableRepository) Insert(ctx context.Context, rec *billing.Receivable) error {
	if r == nil || r.db == nil {
		return errors.New("receivable repo: nil db")
	}
	if rec == nil {
		return errors.New("receivable repo: nil receivable")
	}
	return insertReceivable(ctx, r.db, rec)
}

// InsertBatch stores a set of receivables in one transaction.
func (r *ReceivableRepository) InsertBatch(ctx context.Context, recs []billing.Receivable) error {
	if r == nil || r.db == nil {
		return errors.New("receivable repo: nil db")
	}
	if len(recs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range recs {
		if err := insertReceivable(ctx, tx, &recs[i]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SaveAllocation persists the outcome of a payment allocation in one
// transaction: residuals are inserted, settled receivables are marked paid,
// and the consumed payments get their applied amounts written back.
func (r *ReceivableRepository) SaveAllocation(ctx context.Context, result *billing.AllocationResult) error {
	if r == nil || r.db == nil {
		return errors.New("receivable repo: nil db")
	}
	if result == nil {
		return errors.New("receivable repo: nil allocation result")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range result.Residual {
		if err := insertReceivable(ctx, tx, &result.Residual[i]); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	settled := make([]billing.Receivable, 0, len(result.PartiallyPaid)+len(result.FullyPaid))
	settled = append(settled, result.PartiallyPaid...)
	settled = append(settled, result.FullyPaid...)
	for _, rec := range settled {
		if _, err := tx.ExecContext(ctx, `
UPDATE receivables SET paid = TRUE WHERE id = $1`, rec.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	for _, payment := range result.Payments {
		if _, err := tx.ExecContext(ctx, `
UPDATE payments SET amount_applied = $1, modified_at = NOW() WHERE id = $2`,
			payment.AmountApplied, payment.ID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertReceivable(ctx context.Context, db execer, rec *billing.Receivable) error {
	details, err := marshalDetails(rec.Details)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
INSERT INTO receivables (id, account_id, amount_due, statement_date, kind, paid, details, inserted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.AccountID, rec.AmountDue, rec.StatementDate, rec.Kind, rec.Paid, details, rec.InsertedAt)
	return err
}

func marshalDetails(details map[string]string) ([]byte, error) {
	if len(details) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(details)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceivable(row rowScanner) (*billing.Receivable, error) {
	var rec billing.Receivable
	var details []byte
	err := row.Scan(
		&rec.ID,
		&rec.AccountID,
		&rec.AmountDue,
		&rec.StatementDate,
		&rec.Kind,
		&rec.Paid,
		&details,
		&rec.InsertedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &rec.Details); err != nil {
			return nil, err
		}
	}
	rec.StatementDate = rec.StatementDate.UTC()
	rec.InsertedAt = rec.InsertedAt.UTC()
	return &rec, nil
}

func collectReceivables(rows *sql.Rows) ([]billing.Receivable, error) {
	defer rows.Close()
	var result []billing.Receivable
	for rows.Next() {
		rec, err := scanReceivable(rows)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			result = append(result, *rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
