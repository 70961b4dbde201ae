package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	masterdata "parkbill/internal/masterdata/domain"
)

const defaultTenantsTable = "tenants"

// TenantRepository is a Postgres implementation for tenants.
type TenantRepository struct {
	db    DBTX
	table string
}

// NewTenantRepository constructs a repository.
func NewTenantRepository(db DBTX, opts ...TenantOption) *TenantRepository {
	repo := &TenantRepository{db: db, table: defaultTenantsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// TenantOption configures the repository.
type TenantOption func(*TenantRepository)

// WithTenantsTable overrides the default table name.
func WithTenantsTable(table string) TenantOption {
	return func(repo *TenantRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a tenant by id.
func (r *TenantRepository) Get(ctx context.Context, id uuid.UUID) (*masterdata.Tenant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tenant repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, first_name, last_name, COALESCE(account_id, '00000000-0000-0000-0000-000000000000'), inserted_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var tenant masterdata.Tenant
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.FirstName,
		&tenant.LastName,
		&tenant.AccountID,
		&tenant.InsertedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// ListByAccount returns the tenants attached to an account, oldest first.
func (r *TenantRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]masterdata.Tenant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tenant repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, first_name, last_name, COALESCE(account_id, '00000000-0000-0000-0000-000000000000'), inserted_at
FROM %s
WHERE account_id = $1
ORDER BY inserted_at`, r.table)

	return r.list(ctx, query, accountID)
}

// ListUnassigned returns tenants with no account, newest first.
func (r *TenantRepository) ListUnassigned(ctx context.Context) ([]masterdata.Tenant, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tenant repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT id, first_name, last_name, COALESCE(account_id, '00000000-0000-0000-0000-000000000000'), inserted_at
FROM %s
WHERE account_id IS NULL
ORDER BY inserted_at DESC`, r.table)

	return r.list(ctx, query)
}

func (r *TenantRepository) list(ctx context.Context, query string, args ...any) ([]masterdata.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []masterdata.Tenant
	for rows.Next() {
		var tenant masterdata.Tenant
		if err := rows.Scan(
			&tenant.ID,
			&tenant.FirstName,
			&tenant.LastName,
			&tenant.AccountID,
			&tenant.InsertedAt,
		); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}

// Save upserts a tenant.
func (r *TenantRepository) Save(ctx context.Context, tenant *masterdata.Tenant) error {
	if r == nil || r.db == nil {
		return errors.New("tenant repo: nil db")
	}
	if tenant == nil {
		return errors.New("tenant repo: nil tenant")
	}
	if err := tenant.Validate(); err != nil {
		return err
	}
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if tenant.InsertedAt.IsZero() {
		tenant.InsertedAt = time.Now().UTC()
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, first_name, last_name, account_id, inserted_at)
VALUES ($1, $2, $3, NULLIF($4, '00000000-0000-0000-0000-000000000000'::uuid), $5)
ON CONFLICT (id)
DO UPDATE SET
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	account_id = EXCLUDED.account_id`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		tenant.ID, tenant.FirstName, tenant.LastName, tenant.AccountID, tenant.InsertedAt)
	return err
}

// Assign attaches a tenant to an account.
func (r *TenantRepository) Assign(ctx context.Context, tenantID, accountID uuid.UUID) error {
	if r == nil || r.db == nil {
		return errors.New("tenant repo: nil db")
	}

	query := fmt.Sprintf(`UPDATE %s SET account_id = $2 WHERE id = $1`, r.table)
	result, err := r.db.ExecContext(ctx, query, tenantID, accountID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("tenant repo: tenant %s not found", tenantID)
	}
	return nil
}
