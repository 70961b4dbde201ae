package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

// AccountRepository persists billing accounts.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, COALESCE(lot_id, ''), COALESCE(account_holder, '00000000-0000-0000-0000-000000000000'), bill_preference, COALESCE(rental_rate_override, 0), storage_count, inserted_at, updated_on, deleted_on`

// GetByID fetches an account, deleted or not.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*billing.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE id = $1
LIMIT 1`, id)
	return scanAccount(row)
}

// ListActive returns accounts participating in billing, oldest first.
func (r *AccountRepository) ListActive(ctx context.Context) ([]billing.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+accountColumns+`
FROM accounts
WHERE deleted_on IS NULL
ORDER BY inserted_at ASC`)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

// Insert stores a new account.
func (r *AccountRepository) Insert(ctx context.Context, account *billing.Account) error {
	if r == nil || r.db == nil {
		return errors.New("account repo: nil db")
	}
	if account == nil {
		return errors.New("account repo: nil account")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO accounts (id, lot_id, account_holder, bill_preference, rental_rate_override, storage_count, inserted_at, updated_on)
VALUES ($1, NULLIF($2, ''), NULLIF($3, '00000000-0000-0000-0000-000000000000'::uuid), $4, NULLIF($5, 0.0), $6, $7, $8)`,
		account.ID, account.LotID, account.TenantID, account.BillPreference,
		account.RentOverride, account.StorageCount, account.InsertedAt, account.UpdatedOn)
	return err
}

// Update writes the mutable account fields.
func (r *AccountRepository) Update(ctx context.Context, account *billing.Account) error {
	if r == nil || r.db == nil {
		return errors.New("account repo: nil db")
	}
	if account == nil {
		return errors.New("account repo: nil account")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET lot_id = NULLIF($2, ''),
	account_holder = NULLIF($3, '00000000-0000-0000-0000-000000000000'::uuid),
	bill_preference = $4,
	rental_rate_override = NULLIF($5, 0.0),
	storage_count = $6,
	updated_on = NOW()
WHERE id = $1 AND deleted_on IS NULL`,
		account.ID, account.LotID, account.TenantID, account.BillPreference,
		account.RentOverride, account.StorageCount)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrAccountNotFound
	}
	return nil
}

// SoftDelete marks the account deleted; its history stays queryable.
func (r *AccountRepository) SoftDelete(ctx context.Context, id uuid.UUID, deletedOn time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("account repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE accounts
SET deleted_on = $2, updated_on = NOW()
WHERE id = $1 AND deleted_on IS NULL`, id, deletedOn)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return billing.ErrAccountNotFound
	}
	return nil
}

func scanAccount(row rowScanner) (*billing.Account, error) {
	var account billing.Account
	var deletedOn sql.NullTime
	err := row.Scan(
		&account.ID,
		&account.LotID,
		&account.TenantID,
		&account.BillPreference,
		&account.RentOverride,
		&account.StorageCount,
		&account.InsertedAt,
		&account.UpdatedOn,
		&deletedOn,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if deletedOn.Valid {
		account.DeletedOn = deletedOn.Time.UTC()
	}
	account.InsertedAt = account.InsertedAt.UTC()
	account.UpdatedOn = account.UpdatedOn.UTC()
	return &account, nil
}

func collectAccounts(rows *sql.Rows) ([]billing.Account, error) {
	defer rows.Close()
	var result []billing.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		if account != nil {
			result = append(result, *account)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
