package apihttp

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// BalancesHandler serves per-account balance summaries.
type BalancesHandler struct {
	db *sql.DB
}

// NewBalancesHandler constructs a BalancesHandler.
func NewBalancesHandler(db *sql.DB) *BalancesHandler {
	return &BalancesHandler{db: db}
}

// ServeHTTP handles GET /api/v1/stats/balances.
func (h *BalancesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	rows, err := queryBalances(r.Context(), h.db)
	if err != nil {
		http.Error(w, "query balances error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(rows)
}

// ExportReceivablesCSVHandler serves receivable CSV exports.
type ExportReceivablesCSVHandler struct {
	db *sql.DB
}

// NewExportReceivablesCSVHandler constructs a ExportReceivablesCSVHandler.
func NewExportReceivablesCSVHandler(db *sql.DB) *ExportReceivablesCSVHandler {
	return &ExportReceivablesCSVHandler{db: db}
}

// ServeHTTP handles GET /api/v1/exports/receivables.csv.
func (h *ExportReceivablesCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.db == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	from, err := parseDateQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return
	}
	accountID := r.URL.Query().Get("account_id")

	rows, err := queryReceivables(r.Context(), h.db, accountID, from, to)
	if err != nil {
		http.Error(w, "query receivables error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"id",
		"account_id",
		"lot_id",
		"statement_date",
		"kind",
		"amount_due",
		"paid",
		"inserted_at",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.ID,
			row.AccountID,
			row.LotID,
			row.StatementDate.Format(dateLayout),
			row.Kind,
			formatFloat(row.AmountDue),
			strconv.FormatBool(row.Paid),
			formatTime(row.InsertedAt),
		})
	}
	writer.Flush()
}

type balanceRow struct {
	AccountID    string     `json:"account_id"`
	LotID        string     `json:"lot_id"`
	TenantName   string     `json:"tenant_name"`
	OpenItems    int        `json:"open_items"`
	BalanceDue   float64    `json:"balance_due"`
	OldestUnpaid *time.Time `json:"oldest_unpaid"`
}

type receivableRow struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	LotID         string    `json:"lot_id"`
	StatementDate time.Time `json:"statement_date"`
	Kind          string    `json:"kind"`
	AmountDue     float64   `json:"amount_due"`
	Paid          bool      `json:"paid"`
	InsertedAt    time.Time `json:"inserted_at"`
}

func queryBalances(ctx context.Context, db *sql.DB) ([]balanceRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	a.id,
	COALESCE(a.lot_id, ''),
	COALESCE(t.first_name || ' ' || t.last_name, ''),
	COUNT(r.id),
	COALESCE(SUM(r.amount_due), 0),
	MIN(r.statement_date)
FROM accounts a
LEFT JOIN tenants t ON t.id = a.account_holder
LEFT JOIN receivables r ON r.account_id = a.id AND r.paid = FALSE
WHERE a.deleted_on IS NULL
GROUP BY a.id, a.lot_id, t.first_name, t.last_name
ORDER BY a.lot_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []balanceRow
	for rows.Next() {
		var row balanceRow
		var oldest sql.NullTime
		if err := rows.Scan(
			&row.AccountID,
			&row.LotID,
			&row.TenantName,
			&row.OpenItems,
			&row.BalanceDue,
			&oldest,
		); err != nil {
			return nil, err
		}
		if oldest.Valid {
			t := oldest.Time.UTC()
			row.OldestUnpaid = &t
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryReceivables(ctx context.Context, db *sql.DB, accountID string, from, to time.Time) ([]receivableRow, error) {
	rows, err := db.QueryContext(ctx, `
SELECT
	r.id,
	r.account_id,
	COALESCE(a.lot_id, ''),
	r.statement_date,
	r.kind,
	r.amount_due,
	r.paid,
	r.inserted_at
FROM receivables r
JOIN accounts a ON a.id = r.account_id
WHERE r.statement_date >= $1
	AND r.statement_date < $2
	AND ($3 = '' OR r.account_id::text = $3)
ORDER BY r.statement_date ASC, r.inserted_at ASC`, from.UTC(), to.UTC(), accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []receivableRow
	for rows.Next() {
		var row receivableRow
		if err := rows.Scan(
			&row.ID,
			&row.AccountID,
			&row.LotID,
			&row.StatementDate,
			&row.Kind,
			&row.AmountDue,
			&row.Paid,
			&row.InsertedAt,
		); err != nil {
			return nil, err
		}
		row.StatementDate = row.StatementDate.UTC()
		row.InsertedAt = row.InsertedAt.UTC()
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be YYYY-MM-DD")
	}
	return parsed.UTC(), nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
