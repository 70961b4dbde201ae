package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	invoicing "parkbill/internal/invoicing/domain"
)

// RowQuery assembles invoice rows straight from the ledger tables. Each row
// aggregates one active account's balances, current charges, and the cycle's
// meter reading, priced by the selected rate config.
type RowQuery struct {
	db *sql.DB
}

// NewRowQuery constructs the query.
func NewRowQuery(db *sql.DB) *RowQuery {
	return &RowQuery{db: db}
}

const invoiceRowSQL = `
WITH cfg AS (
	SELECT id, rent_monthly_rate, storage_monthly_rate, water_monthly_rate, water_service_fee
	FROM rate_configs
	WHERE ($2::uuid IS NULL OR id = $2)
	ORDER BY inserted_at DESC
	LIMIT 1
)
SELECT
	$1::timestamptz AS statement_date,
	a.id,
	COALESCE(a.lot_id, ''),
	COALESCE(l.property_code, ''),
	COALESCE(l.street_address, ''),
	COALESCE(l.city_state_zip, ''),
	CONCAT(t.first_name, ' ', t.last_name),
	COALESCE((
		SELECT SUM(ar.amount_due) FROM receivables ar
		WHERE ar.account_id = a.id AND ar.statement_date = $3
	), 0),
	COALESCE((
		SELECT SUM(ar.amount_due) FROM receivables ar
		WHERE ar.account_id = a.id AND ar.statement_date = $3
			AND ar.paid = FALSE AND ar.kind <> 'LATEFEE'
	), 0),
	COALESCE((
		SELECT SUM(ar.amount_due) FROM receivables ar
		WHERE ar.account_id = a.id AND ar.paid = FALSE
	), 0),
	COALESCE((
		SELECT SUM(p.amount) FROM payments p
		WHERE p.beneficiary_account_id = a.id
			AND p.payment_dated >= $3 AND p.payment_dated < $1
	), 0),
	COALESCE((
		SELECT SUM(ar.amount_due) FROM receivables ar
		WHERE ar.account_id = a.id AND ar.statement_date < $3 AND ar.paid = FALSE
	), 0),
	COALESCE((
		SELECT SUM(ar.amount_due) FROM receivables ar
		WHERE ar.account_id = a.id AND ar.kind = 'OTHER'
			AND ar.paid = FALSE AND ar.statement_date = $1
	), 0),
	CASE
		WHEN a.lot_id IS NULL THEN 0
		WHEN a.rental_rate_override IS NOT NULL THEN a.rental_rate_override
		ELSE cfg.rent_monthly_rate
	END,
	CASE
		WHEN a.storage_count = 0 THEN 0
		ELSE cfg.storage_monthly_rate * a.storage_count
	END,
	CASE
		WHEN u.id IS NOT NULL THEN
			(u.current_reading - u.previous_reading) * cfg.water_monthly_rate + cfg.water_service_fee
		ELSE 0
	END,
	u.previous_reading,
	u.current_reading,
	u.previous_read_date,
	u.current_read_date,
	COALESCE(l.watermeter_id, 0),
	COALESCE((
		SELECT SUM(ar.amount_due) FROM receivables ar
		WHERE ar.account_id = a.id AND ar.statement_date = $3
			AND ar.kind = 'LATEFEE' AND ar.paid = FALSE
	), 0),
	cfg.id,
	COALESCE((
		SELECT array_to_string(array_agg(ar.details->>'note'), '; ') FROM receivables ar
		WHERE ar.account_id = a.id AND ar.kind = 'OTHER'
			AND ar.paid = FALSE AND ar.statement_date = $1
	), '')
FROM accounts a
LEFT JOIN lots l ON a.lot_id = l.id
JOIN tenants t ON t.id = a.account_holder
LEFT JOIN water_usages u ON u.watermeter_id = l.watermeter_id AND u.statement_date = $1
CROSS JOIN cfg
WHERE a.deleted_on IS NULL
ORDER BY a.lot_id NULLS LAST, a.inserted_at`

// Rows runs the assembly query for a cycle. The previous cycle used in the
// balance columns is the first of the month four weeks back, matching the
// period helper used everywhere else.
func (q *RowQuery) Rows(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.InvoiceRow, error) {
	if q == nil || q.db == nil {
		return nil, errors.New("invoice row query: nil db")
	}
	previousCycle := firstOfMonth(statementDate.AddDate(0, 0, -28))

	rows, err := q.db.QueryContext(ctx, invoiceRowSQL,
		statementDate, nullableUUID(rateConfigID), previousCycle)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []invoicing.InvoiceRow
	for rows.Next() {
		row, err := scanInvoiceRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanInvoiceRow(rows *sql.Rows) (invoicing.InvoiceRow, error) {
	var row invoicing.InvoiceRow
	var previousReading, currentReading sql.NullInt64
	var previousReadDate, currentReadDate sql.NullTime
	err := rows.Scan(
		&row.StatementDate,
		&row.AccountID,
		&row.LotID,
		&row.PropertyCode,
		&row.StreetAddress,
		&row.CityStateZip,
		&row.TenantName,
		&row.PreviousBillAmount,
		&row.PreviousBillLessPaid,
		&row.TotalAmountDue,
		&row.PreviousMonthPayments,
		&row.OverdueAmount,
		&row.OtherCharges,
		&row.Rent,
		&row.Storage,
		&row.WaterBillAmount,
		&previousReading,
		&currentReading,
		&previousReadDate,
		&currentReadDate,
		&row.MeterID,
		&row.LateFee,
		&row.RateConfigID,
		&row.OtherRentNotes,
	)
	if err != nil {
		return invoicing.InvoiceRow{}, err
	}
	if previousReading.Valid {
		value := previousReading.Int64
		row.PreviousWaterReading = &value
	}
	if currentReading.Valid {
		value := currentReading.Int64
		row.CurrentWaterReading = &value
	}
	if previousReadDate.Valid {
		row.PreviousWaterDate = previousReadDate.Time.UTC()
	}
	if currentReadDate.Valid {
		row.CurrentWaterDate = currentReadDate.Time.UTC()
	}
	row.StatementDate = row.StatementDate.UTC()
	return row, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
