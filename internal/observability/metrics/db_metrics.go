package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "receivables_unpaid_count",
			Help: "Open receivables",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM receivables WHERE paid = FALSE")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "receivables_unpaid_amount",
			Help: "Total amount outstanding across open receivables",
		},
		func() float64 {
			return querySum(db, logger, "SELECT COALESCE(SUM(amount_due), 0) FROM receivables WHERE paid = FALSE")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "payments_available_count",
			Help: "Payments with unapplied funds",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM payments WHERE amount > amount_applied")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

func querySum(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var sum float64
	if err := db.QueryRow(query).Scan(&sum); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	return sum
}
