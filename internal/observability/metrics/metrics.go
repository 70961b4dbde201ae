package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "parkbill_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	allocationTotal   *prometheus.CounterVec
	allocationLatency *prometheus.HistogramVec

	chargeRunTotal   *prometheus.CounterVec
	chargeRunLatency *prometheus.HistogramVec
	chargesIssued    *prometheus.CounterVec

	lateFeesIssued prometheus.Counter

	paymentsRecorded prometheus.Counter

	invoiceGenerateTotal   *prometheus.CounterVec
	invoiceGenerateLatency *prometheus.HistogramVec
	invoiceExportTotal     *prometheus.CounterVec
	invoiceExportLatency   *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		allocationTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_allocation_total",
				Help: "Total payment allocation runs by result",
			},
			[]string{"result"},
		)
		allocationLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_allocation_latency_seconds",
				Help:    "Payment allocation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		chargeRunTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "charge_run_total",
				Help: "Total monthly charge runs by mode and result",
			},
			[]string{"mode", "result"},
		)
		chargeRunLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "charge_run_latency_seconds",
				Help:    "Monthly charge run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode", "result"},
		)
		chargesIssued = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "charges_issued_total",
				Help: "Total receivables issued by kind",
			},
			[]string{"kind"},
		)

		lateFeesIssued = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "late_fees_issued_total",
				Help: "Total late fee receivables issued",
			},
		)

		paymentsRecorded = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "payments_recorded_total",
				Help: "Total payments recorded",
			},
		)

		invoiceGenerateTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_generate_total",
				Help: "Total invoice generate operations by result",
			},
			[]string{"result"},
		)
		invoiceGenerateLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_generate_latency_seconds",
				Help:    "Invoice generate latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		invoiceExportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "invoice_export_total",
				Help: "Total invoice export operations by format and result",
			},
			[]string{"format", "result"},
		)
		invoiceExportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "invoice_export_latency_seconds",
				Help:    "Invoice export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			allocationTotal,
			allocationLatency,
			chargeRunTotal,
			chargeRunLatency,
			chargesIssued,
			lateFeesIssued,
			paymentsRecorded,
			invoiceGenerateTotal,
			invoiceGenerateLatency,
			invoiceExportTotal,
			invoiceExportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveAllocation records payment allocation latency and result.
func ObserveAllocation(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if allocationTotal != nil {
		allocationTotal.WithLabelValues(result).Inc()
	}
	if allocationLatency != nil {
		allocationLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveChargeRun records monthly charge run latency and result.
func ObserveChargeRun(mode, result string, duration time.Duration) {
	if mode == "" {
		mode = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if chargeRunTotal != nil {
		chargeRunTotal.WithLabelValues(mode, result).Inc()
	}
	if chargeRunLatency != nil {
		chargeRunLatency.WithLabelValues(mode, result).Observe(duration.Seconds())
	}
}

// AddChargesIssued increments the issued charge counter by kind.
func AddChargesIssued(kind string, count int) {
	if count <= 0 {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	if chargesIssued != nil {
		chargesIssued.WithLabelValues(kind).Add(float64(count))
	}
}

// AddLateFeesIssued increments the late fee counter by count.
func AddLateFeesIssued(count int) {
	if count <= 0 {
		return
	}
	if lateFeesIssued != nil {
		lateFeesIssued.Add(float64(count))
	}
}

// IncPaymentRecorded increments the recorded payment counter.
func IncPaymentRecorded() {
	if paymentsRecorded != nil {
		paymentsRecorded.Inc()
	}
}

// ObserveInvoiceGenerate records invoice generate latency and result.
func ObserveInvoiceGenerate(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if invoiceGenerateTotal != nil {
		invoiceGenerateTotal.WithLabelValues(result).Inc()
	}
	if invoiceGenerateLatency != nil {
		invoiceGenerateLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveInvoiceExport records export latency by format and result.
func ObserveInvoiceExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if invoiceExportTotal != nil {
		invoiceExportTotal.WithLabelValues(format, result).Inc()
	}
	if invoiceExportLatency != nil {
		invoiceExportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
