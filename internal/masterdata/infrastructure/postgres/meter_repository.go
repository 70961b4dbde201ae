package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	masterdata "parkbill/internal/masterdata/domain"
)

const defaultMetersTable = "watermeters"

// MeterRepository is a Postgres implementation for water meters.
type MeterRepository struct {
	db    DBTX
	table string
}

// NewMeterRepository constructs a repository.
func NewMeterRepository(db DBTX, opts ...MeterOption) *MeterRepository {
	repo := &MeterRepository{db: db, table: defaultMetersTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// MeterOption configures the repository.
type MeterOption func(*MeterRepository)

// WithMetersTable overrides the default table name.
func WithMetersTable(table string) MeterOption {
	return func(repo *MeterRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// Get loads a meter by id.
func (r *MeterRepository) Get(ctx context.Context, id int64) (*masterdata.WaterMeter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("meter repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT m.id, COALESCE(l.id, ''), m.inserted_at
FROM %s m
LEFT JOIN lots l ON l.watermeter_id = m.id
WHERE m.id = $1
LIMIT 1`, r.table)

	var meter masterdata.WaterMeter
	if err := r.db.QueryRowContext(ctx, query, id).Scan(
		&meter.ID,
		&meter.LotID,
		&meter.InsertedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &meter, nil
}

// List returns all meters with their lot assignment.
func (r *MeterRepository) List(ctx context.Context) ([]masterdata.WaterMeter, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("meter repo: nil db")
	}

	query := fmt.Sprintf(`
SELECT m.id, COALESCE(l.id, ''), m.inserted_at
FROM %s m
LEFT JOIN lots l ON l.watermeter_id = m.id
ORDER BY m.id`, r.table)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meters []masterdata.WaterMeter
	for rows.Next() {
		var meter masterdata.WaterMeter
		if err := rows.Scan(&meter.ID, &meter.LotID, &meter.InsertedAt); err != nil {
			return nil, err
		}
		meters = append(meters, meter)
	}
	return meters, rows.Err()
}

// Save inserts a meter.
func (r *MeterRepository) Save(ctx context.Context, meter *masterdata.WaterMeter) error {
	if r == nil || r.db == nil {
		return errors.New("meter repo: nil db")
	}
	if meter == nil {
		return errors.New("meter repo: nil meter")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (id, inserted_at)
VALUES ($1, NOW())
ON CONFLICT (id) DO NOTHING`, r.table)

	_, err := r.db.ExecContext(ctx, query, meter.ID)
	return err
}
