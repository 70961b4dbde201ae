package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	billing "parkbill/internal/billing/domain"
)

// WaterUsageRepository persists meter reading pairs.
type WaterUsageRepository struct {
	db *sql.DB
}

// NewWaterUsageRepository constructs a repository.
func NewWaterUsageRepository(db *sql.DB) *WaterUsageRepository {
	return &WaterUsageRepository{db: db}
}

const waterUsageColumns = `id, watermeter_id, previous_read_date, current_read_date, previous_reading, current_reading, statement_date, inserted_at`

// ListForPeriod returns each active account paired with its meter's reading
// for the billing cycle. Accounts whose lot has no meter are absent.
func (r *WaterUsageRepository) ListForPeriod(ctx context.Context, statementDate time.Time) ([]billing.AccountUsage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("water usage repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT a.id,
	u.id, u.watermeter_id, u.previous_read_date, u.current_read_date,
	u.previous_reading, u.current_reading, u.statement_date, u.inserted_at
FROM water_usages u
JOIN lots l ON l.watermeter_id = u.watermeter_id
JOIN accounts a ON a.lot_id = l.id AND a.deleted_on IS NULL
WHERE u.statement_date = $1
ORDER BY a.inserted_at ASC`, billing.StatementPeriod(statementDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.AccountUsage
	for rows.Next() {
		var pair billing.AccountUsage
		if err := rows.Scan(
			&pair.AccountID,
			&pair.Usage.ID,
			&pair.Usage.MeterID,
			&pair.Usage.PreviousDate,
			&pair.Usage.CurrentDate,
			&pair.Usage.PreviousReading,
			&pair.Usage.CurrentReading,
			&pair.Usage.StatementDate,
			&pair.Usage.InsertedAt,
		); err != nil {
			return nil, err
		}
		pair.Usage.StatementDate = pair.Usage.StatementDate.UTC()
		pair.Usage.InsertedAt = pair.Usage.InsertedAt.UTC()
		result = append(result, pair)
	}
	return result, rows.Err()
}

// LatestForMeter returns the meter's most recent reading pair, for seeding
// the previous reading of the next cycle.
func (r *WaterUsageRepository) LatestForMeter(ctx context.Context, meterID int64) (*billing.WaterUsage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("water usage repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+waterUsageColumns+`
FROM water_usages
WHERE watermeter_id = $1
ORDER BY statement_date DESC, inserted_at DESC
LIMIT 1`, meterID)
	return scanWaterUsage(row)
}

// ListByStatementDate returns every reading pair recorded for a cycle.
func (r *WaterUsageRepository) ListByStatementDate(ctx context.Context, statementDate time.Time) ([]billing.WaterUsage, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("water usage repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+waterUsageColumns+`
FROM water_usages
WHERE statement_date = $1
ORDER BY watermeter_id ASC`, billing.StatementPeriod(statementDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.WaterUsage
	for rows.Next() {
		usage, err := scanWaterUsage(rows)
		if err != nil {
			return nil, err
		}
		if usage != nil {
			result = append(result, *usage)
		}
	}
	return result, rows.Err()
}

// Insert stores a reading pair. One pair per meter per cycle.
func (r *WaterUsageRepository) Insert(ctx context.Context, usage *billing.WaterUsage) error {
	if r == nil || r.db == nil {
		return errors.New("water usage repo: nil db")
	}
	if usage == nil {
		return errors.New("water usage repo: nil usage")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO water_usages (id, watermeter_id, previous_read_date, current_read_date, previous_reading, current_reading, statement_date, inserted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		usage.ID, usage.MeterID, usage.PreviousDate, usage.CurrentDate,
		usage.PreviousReading, usage.CurrentReading, usage.StatementDate, usage.InsertedAt)
	return err
}

func scanWaterUsage(row rowScanner) (*billing.WaterUsage, error) {
	var usage billing.WaterUsage
	err := row.Scan(
		&usage.ID,
		&usage.MeterID,
		&usage.PreviousDate,
		&usage.CurrentDate,
		&usage.PreviousReading,
		&usage.CurrentReading,
		&usage.StatementDate,
		&usage.InsertedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	usage.StatementDate = usage.StatementDate.UTC()
	usage.InsertedAt = usage.InsertedAt.UTC()
	return &usage, nil
}
