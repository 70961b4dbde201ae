package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "parkbill/internal/api/http"
	"parkbill/internal/audit"
	"parkbill/internal/auth"
	billingapp "parkbill/internal/billing/application"
	billingrepo "parkbill/internal/billing/infrastructure/postgres"
	billinghttp "parkbill/internal/billing/interfaces/http"
	invoiceapp "parkbill/internal/invoicing/application"
	invoicerepo "parkbill/internal/invoicing/infrastructure/postgres"
	invoiceinterfaces "parkbill/internal/invoicing/interfaces"
	masterdatarepo "parkbill/internal/masterdata/infrastructure/postgres"
	masterdatahttp "parkbill/internal/masterdata/interfaces/http"
	"parkbill/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	receivableRepo := billingrepo.NewReceivableRepository(db)
	paymentRepo := billingrepo.NewPaymentRepository(db)
	accountRepo := billingrepo.NewAccountRepository(db)
	rateConfigRepo := billingrepo.NewRateConfigRepository(db)
	waterUsageRepo := billingrepo.NewWaterUsageRepository(db)
	lotRepo := masterdatarepo.NewLotRepository(db)
	tenantRepo := masterdatarepo.NewTenantRepository(db)
	meterRepo := masterdatarepo.NewMeterRepository(db)

	clock := billingapp.SystemClock{}
	accountService, err := billingapp.NewAccountService(accountRepo, receivableRepo, paymentRepo, clock, logger)
	if err != nil {
		logger.Fatalf("account service error: %v", err)
	}
	paymentService, err := billingapp.NewPaymentService(receivableRepo, paymentRepo, clock, logger)
	if err != nil {
		logger.Fatalf("payment service error: %v", err)
	}
	chargeService, err := billingapp.NewChargeService(receivableRepo, paymentRepo, accountRepo, rateConfigRepo, waterUsageRepo, clock, logger)
	if err != nil {
		logger.Fatalf("charge service error: %v", err)
	}

	businessCfg, err := invoiceapp.LoadBusinessConfig()
	if err != nil {
		logger.Fatalf("business config error: %v", err)
	}
	invoiceRepo := invoicerepo.NewInvoiceRepository(db)
	rowQuery := invoicerepo.NewRowQuery(db)
	invoiceService, err := invoiceapp.NewInvoiceService(invoiceRepo, rowQuery, businessCfg, clock, logger)
	if err != nil {
		logger.Fatalf("invoice service error: %v", err)
	}

	billingHandler, err := billinghttp.NewHandler(accountService, paymentService, chargeService, auditRepo)
	if err != nil {
		logger.Fatalf("billing handler error: %v", err)
	}
	invoiceHandler, err := invoiceinterfaces.NewHandler(invoiceService)
	if err != nil {
		logger.Fatalf("invoice handler error: %v", err)
	}
	masterdataHandler, err := masterdatahttp.NewHandler(lotRepo, tenantRepo, meterRepo)
	if err != nil {
		logger.Fatalf("masterdata handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/accounts", billingHandler)
	mux.Handle("/api/v1/accounts/", billingHandler)
	mux.Handle("/api/v1/payments", billingHandler)
	mux.Handle("/api/v1/payments/", billingHandler)
	mux.Handle("/api/v1/processing/payments", billingHandler)
	mux.Handle("/api/v1/monthly-charges", billingHandler)
	mux.Handle("/api/v1/receivables", billingHandler)
	mux.Handle("/api/v1/receivables/", billingHandler)
	mux.Handle("/api/v1/readings", billingHandler)
	mux.Handle("/api/v1/settings", billingHandler)
	mux.Handle("/api/v1/invoices", invoiceHandler)
	mux.Handle("/api/v1/invoices/", invoiceHandler)
	mux.Handle("/api/v1/lots", masterdataHandler)
	mux.Handle("/api/v1/lots/", masterdataHandler)
	mux.Handle("/api/v1/tenants", masterdataHandler)
	mux.Handle("/api/v1/tenants/", masterdataHandler)
	mux.Handle("/api/v1/meters", masterdataHandler)
	mux.Handle("/api/v1/stats/balances", apihttp.NewBalancesHandler(db))
	mux.Handle("/api/v1/exports/receivables.csv", apihttp.NewExportReceivablesCSVHandler(db))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           loggingMiddleware(authMiddleware.Wrap(mux), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
