package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "parkbill/internal/masterdata/domain"
)

// DBTX is the subset of database/sql used by the repositories, satisfied by
// both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultLotsTable = "lots"

// LotRepository is a Postgres implementation for lots.
type LotRepository struct {
	db    DBTX
	table string
}

// NewLotRepository constructs a repository.
func NewLotRepository(db DBTX, opts ...LotOption) *LotRepository {
	repo := &LotRepository{db: db, table: defaultLotsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// LotOption configures the repository.
type LotOption func(*LotRepository)

// WithLotTable overrides the default table name.
func WithLotTable(table string) LotOption {
	return func(repo *LotRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a lot by id.
func (r *LotRepository) Get(ctx context.Context, id string) (*masterdata.Lot, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("lot repo: nil db")
	}
	if id == "" {
		return nil, errors.New("lot repo: empty id")
	}

	query := fmt.Sprintf(`
SELECT id, property_code, street_address, city_state_zip, COALESCE(watermeter_id, 0), inserted_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	var lot masterdata.Lot
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lot.ID,
		&lot.PropertyCode,
		&lot.StreetAddress,
		&lot.CityStateZip,
		&lot.MeterID,
		&lot.InsertedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &lot, nil
}

// ListAvailable returns metered lots with no active account assigned.
func (r *LotRepository) ListAvailable(ctx context.Context) ([]masterdata.Lot, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("lot repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT l.id, l.property_code, l.street_address, l.city_state_zip, COALESCE(l.watermeter_id, 0), l.inserted_at
FROM %s l
LEFT JOIN accounts a ON a.lot_id = l.id AND a.deleted_on IS NULL
WHERE a.id IS NULL AND l.watermeter_id IS NOT NULL
ORDER BY l.property_code, l.id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lots []masterdata.Lot
	for rows.Next() {
		var lot masterdata.Lot
		if err := rows.Scan(
			&lot.ID,
			&lot.PropertyCode,
			&lot.StreetAddress,
			&lot.CityStateZip,
			&lot.MeterID,
			&lot.InsertedAt,
		); err != nil {
			return nil, err
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

// Save upserts a lot.
func (r *LotRepository) Save(ctx context.Context, lot *masterdata.Lot) error {
	if r == nil || r.db == nil {
		return errors.New("lot repo: nil db")
	}
	if lot == nil {
		return errors.New("lot repo: nil lot")
	}
	if err := lot.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, property_code, street_address, city_state_zip, watermeter_id, inserted_at)
VALUES ($1, $2, $3, $4, NULLIF($5, 0), NOW())
ON CONFLICT (id)
DO UPDATE SET
	property_code = EXCLUDED.property_code,
	street_address = EXCLUDED.street_address,
	city_state_zip = EXCLUDED.city_state_zip,
	watermeter_id = EXCLUDED.watermeter_id`, r.table)

	_, err := r.db.ExecContext(ctx, query,
		lot.ID, lot.PropertyCode, lot.StreetAddress, lot.CityStateZip, lot.MeterID)
	return err
}
