package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	billing "parkbill/internal/billing/domain"
)

// RateConfigRepository persists billing rate configurations.
type RateConfigRepository struct {
	db *sql.DB
}

// NewRateConfigRepository constructs a repository.
func NewRateConfigRepository(db *sql.DB) *RateConfigRepository {
	return &RateConfigRepository{db: db}
}

const rateConfigColumns = `id, rent_monthly_rate, storage_monthly_rate, water_monthly_rate, water_service_fee, late_fee_rate, overdue_cutoff_days, effective_as_of, inserted_at`

// Effective returns the config in force for a statement date: the most recent
// record effective on or before it.
func (r *RateConfigRepository) Effective(ctx context.Context, statementDate time.Time) (*billing.RateConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rate config repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+rateConfigColumns+`
FROM rate_configs
WHERE effective_as_of <= $1
ORDER BY effective_as_of DESC, inserted_at DESC
LIMIT 1`, statementDate)
	return scanRateConfig(row)
}

// Latest returns the most recently effective config.
func (r *RateConfigRepository) Latest(ctx context.Context) (*billing.RateConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rate config repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+rateConfigColumns+`
FROM rate_configs
ORDER BY effective_as_of DESC, inserted_at DESC
LIMIT 1`)
	return scanRateConfig(row)
}

// List returns all configs, newest effective date first.
func (r *RateConfigRepository) List(ctx context.Context) ([]billing.RateConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("rate config repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+rateConfigColumns+`
FROM rate_configs
ORDER BY effective_as_of DESC, inserted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.RateConfig
	for rows.Next() {
		cfg, err := scanRateConfig(rows)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			result = append(result, *cfg)
		}
	}
	return result, rows.Err()
}

// Insert stores a new config record. Configs are immutable once written.
func (r *RateConfigRepository) Insert(ctx context.Context, cfg *billing.RateConfig) error {
	if r == nil || r.db == nil {
		return errors.New("rate config repo: nil db")
	}
	if cfg == nil {
		return errors.New("rate config repo: nil config")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO rate_configs (id, rent_monthly_rate, storage_monthly_rate, water_monthly_rate, water_service_fee, late_fee_rate, overdue_cutoff_days, effective_as_of, inserted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		cfg.ID, cfg.RentMonthlyRate, cfg.StorageMonthlyRate, cfg.WaterMonthlyRate,
		cfg.WaterServiceFee, cfg.LateFeeRate, cfg.OverdueCutoffDays,
		cfg.EffectiveAsOf, cfg.InsertedAt)
	return err
}

func scanRateConfig(row rowScanner) (*billing.RateConfig, error) {
	var cfg billing.RateConfig
	err := row.Scan(
		&cfg.ID,
		&cfg.RentMonthlyRate,
		&cfg.StorageMonthlyRate,
		&cfg.WaterMonthlyRate,
		&cfg.WaterServiceFee,
		&cfg.LateFeeRate,
		&cfg.OverdueCutoffDays,
		&cfg.EffectiveAsOf,
		&cfg.InsertedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	cfg.EffectiveAsOf = cfg.EffectiveAsOf.UTC()
	cfg.InsertedAt = cfg.InsertedAt.UTC()
	return &cfg, nil
}
