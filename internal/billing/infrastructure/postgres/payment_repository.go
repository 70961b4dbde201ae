package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

// PaymentRepository persists payments.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository constructs a repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, beneficiary_account_id, amount, amount_applied, payment_dated, payment_received, COALESCE(payer, ''), inserted_at, modified_at`

// GetByID fetches a payment.
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE id = $1
LIMIT 1`, id)
	return scanPayment(row)
}

// ListAvailable returns the account's payments with unapplied funds received
// on or before the processing date, oldest received first.
func (r *PaymentRepository) ListAvailable(ctx context.Context, accountID uuid.UUID, processingDate time.Time) ([]billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE beneficiary_account_id = $1
	AND amount > amount_applied
	AND payment_received <= $2
ORDER BY payment_received ASC, inserted_at ASC`, accountID, processingDate)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// ListByAccount returns all payments for an account, newest received first.
func (r *PaymentRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+paymentColumns+`
FROM payments
WHERE beneficiary_account_id = $1
ORDER BY payment_received DESC, inserted_at DESC`, accountID)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// ListRecent returns the most recently recorded payments across all accounts.
func (r *PaymentRepository) ListRecent(ctx context.Context, limit int) ([]billing.Payment, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("payment repo: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+paymentColumns+`
FROM payments
ORDER BY inserted_at DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectPayments(rows)
}

// Insert stores a payment.
func (r *PaymentRepository) Insert(ctx context.Context, payment *billing.Payment) error {
	if r == nil || r.db == nil {
		return errors.New("payment repo: nil db")
	}
	if payment == nil {
		return errors.New("payment repo: nil payment")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO payments (id, beneficiary_account_id, amount, amount_applied, payment_dated, payment_received, payer, inserted_at, modified_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`,
		payment.ID, payment.AccountID, payment.Amount, payment.AmountApplied,
		payment.PaymentDated, payment.PaymentReceived, payment.Payer,
		payment.InsertedAt, payment.ModifiedAt)
	return err
}

// Delete removes a payment that has not been applied to anything.
func (r *PaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r == nil || r.db == nil {
		return errors.New("payment repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
DELETE FROM payments WHERE id = $1 AND amount_applied = 0`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("payment repo: payment %s not found or already applied: %w", id, billing.ErrPaymentNotFound)
	}
	return nil
}

func scanPayment(row rowScanner) (*billing.Payment, error) {
	var payment billing.Payment
	err := row.Scan(
		&payment.ID,
		&payment.AccountID,
		&payment.Amount,
		&payment.AmountApplied,
		&payment.PaymentDated,
		&payment.PaymentReceived,
		&payment.Payer,
		&payment.InsertedAt,
		&payment.ModifiedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	payment.PaymentDated = payment.PaymentDated.UTC()
	payment.PaymentReceived = payment.PaymentReceived.UTC()
	payment.InsertedAt = payment.InsertedAt.UTC()
	payment.ModifiedAt = payment.ModifiedAt.UTC()
	return &payment, nil
}

func collectPayments(rows *sql.Rows) ([]billing.Payment, error) {
	defer rows.Close()
	var result []billing.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			result = append(result, *payment)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
