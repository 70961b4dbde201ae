package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"parkbill/internal/audit"
	"parkbill/internal/auth"
	billingapp "parkbill/internal/billing/application"
	billing "parkbill/internal/billing/domain"
)

const dateLayout = "2006-01-02"

// Handler provides billing HTTP endpoints.
type Handler struct {
	accounts    *billingapp.AccountService
	payments    *billingapp.PaymentService
	charges     *billingapp.ChargeService
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(accounts *billingapp.AccountService, payments *billingapp.PaymentService, charges *billingapp.ChargeService, auditLogger audit.Logger) (*Handler, error) {
	if accounts == nil {
		return nil, errors.New("billing handler: nil account service")
	}
	if payments == nil {
		return nil, errors.New("billing handler: nil payment service")
	}
	if charges == nil {
		return nil, errors.New("billing handler: nil charge service")
	}
	return &Handler{accounts: accounts, payments: payments, charges: charges, auditLogger: auditLogger}, nil
}

// ServeHTTP routes billing API requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/accounts":
		switch r.Method {
		case http.MethodGet:
			h.handleListAccounts(w, r)
		case http.MethodPost:
			h.handleCreateAccount(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/accounts/"):
		h.handleAccountItem(w, r)
	case r.URL.Path == "/api/v1/payments":
		switch r.Method {
		case http.MethodGet:
			h.handleListPayments(w, r)
		case http.MethodPost:
			h.handleRecordPayment(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/payments/"):
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleDeletePayment(w, r)
	case r.URL.Path == "/api/v1/processing/payments":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleProcessPayments(w, r)
	case r.URL.Path == "/api/v1/monthly-charges":
		switch r.Method {
		case http.MethodGet:
			h.handleMonthlyCharges(w, r, false)
		case http.MethodPost:
			h.handleMonthlyCharges(w, r, true)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.URL.Path == "/api/v1/receivables":
		switch r.Method {
		case http.MethodGet:
			h.handleListReceivables(w, r)
		case http.MethodPost:
			h.handleIssueCharge(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/receivables/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGetReceivable(w, r)
	case r.URL.Path == "/api/v1/readings":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRecordReading(w, r)
	case r.URL.Path == "/api/v1/settings":
		switch r.Method {
		case http.MethodGet:
			h.handleCurrentRates(w, r)
		case http.MethodPost:
			h.handleSaveRates(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type accountRequest struct {
	LotID          string  `json:"lot_id"`
	AccountHolder  string  `json:"account_holder"`
	BillPreference string  `json:"bill_preference"`
	RentOverride   float64 `json:"rental_rate_override"`
	StorageCount   float64 `json:"storage_count"`
}

func (h *Handler) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, accounts)
}

func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID, err := uuid.Parse(req.AccountHolder)
	if err != nil {
		http.Error(w, "account_holder must be a uuid", http.StatusBadRequest)
		return
	}
	account, err := h.accounts.CreateAccount(r.Context(), billing.Account{
		LotID:          req.LotID,
		TenantID:       tenantID,
		BillPreference: billing.BillPreference(req.BillPreference),
		RentOverride:   req.RentOverride,
		StorageCount:   req.StorageCount,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, account)
	h.logAudit(r, "account.create", "account", account.ID.String(), account.ID.String(), nil)
}

func (h *Handler) handleAccountItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/accounts/")
	parts := strings.Split(path, "/")

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		account, err := h.accounts.GetAccount(r.Context(), id)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, account)
	case len(parts) == 1 && r.Method == http.MethodPut:
		h.handleUpdateAccount(w, r, id)
	case len(parts) == 1 && r.Method == http.MethodDelete:
		if err := h.accounts.CloseAccount(r.Context(), id); err != nil {
			respondBillingError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		h.logAudit(r, "account.close", "account", id.String(), id.String(), nil)
	case len(parts) == 2 && parts[1] == "statement" && r.Method == http.MethodGet:
		statement, err := h.accounts.Statement(r.Context(), id)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, statement)
	case len(parts) == 2 && parts[1] == "payments" && r.Method == http.MethodGet:
		payments, err := h.payments.ListPayments(r.Context(), id)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, payments)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleUpdateAccount(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenantID, err := uuid.Parse(req.AccountHolder)
	if err != nil {
		http.Error(w, "account_holder must be a uuid", http.StatusBadRequest)
		return
	}
	account, err := h.accounts.UpdateAccount(r.Context(), billing.Account{
		ID:             id,
		LotID:          req.LotID,
		TenantID:       tenantID,
		BillPreference: billing.BillPreference(req.BillPreference),
		RentOverride:   req.RentOverride,
		StorageCount:   req.StorageCount,
	})
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, account)
	h.logAudit(r, "account.update", "account", id.String(), id.String(), nil)
}

type paymentRequest struct {
	AccountID       string  `json:"account_id"`
	Amount          float64 `json:"amount"`
	PaymentDated    string  `json:"payment_dated"`
	PaymentReceived string  `json:"payment_received"`
	Payer           string  `json:"payer"`
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	raw := query.Get("account_id")
	if raw == "" {
		limit := 0
		if rawLimit := query.Get("limit"); rawLimit != "" {
			parsed, err := strconv.Atoi(rawLimit)
			if err != nil || parsed < 0 {
				http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		payments, err := h.payments.ListRecentPayments(r.Context(), limit)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, payments)
		return
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
		return
	}
	if query.Get("available") == "true" {
		var processingDate time.Time
		if rawDate := query.Get("processing_date"); rawDate != "" {
			processingDate, err = parseDate(rawDate)
			if err != nil {
				http.Error(w, "processing_date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}
		payments, err := h.payments.ListAvailablePayments(r.Context(), id, processingDate)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, payments)
		return
	}
	payments, err := h.payments.ListPayments(r.Context(), id)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, payments)
}

func (h *Handler) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
		return
	}
	dated, err := parseDate(req.PaymentDated)
	if err != nil {
		http.Error(w, "payment_dated must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	received := dated
	if req.PaymentReceived != "" {
		received, err = parseDate(req.PaymentReceived)
		if err != nil {
			http.Error(w, "payment_received must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	payment, err := h.payments.RecordPayment(r.Context(), accountID, req.Amount, dated, received, req.Payer)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, payment)

	meta, _ := json.Marshal(map[string]any{"amount": payment.Amount})
	h.logAudit(r, "payment.record", "payment", payment.ID.String(), accountID.String(), meta)
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/payments/")
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid payment id", http.StatusBadRequest)
		return
	}
	if err := h.payments.DeletePayment(r.Context(), id); err != nil {
		respondBillingError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
	h.logAudit(r, "payment.delete", "payment", id.String(), "", nil)
}

type processRequest struct {
	AccountID      string `json:"account_id"`
	ProcessingDate string `json:"processing_date"`
	Write          bool   `json:"write"`
}

func (h *Handler) handleProcessPayments(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var processingDate time.Time
	if req.ProcessingDate != "" {
		parsed, err := parseDate(req.ProcessingDate)
		if err != nil {
			http.Error(w, "processing_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		processingDate = parsed
	}

	if req.AccountID != "" {
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
			return
		}
		allocation, err := h.payments.ApplyForAccount(r.Context(), accountID, processingDate, req.Write)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, []billingapp.AccountAllocation{*allocation})
		if req.Write {
			h.logAudit(r, "payments.apply", "allocation", accountID.String(), accountID.String(), nil)
		}
		return
	}

	allocations, err := h.payments.ApplyForAll(r.Context(), processingDate, req.Write)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, allocations)
	if req.Write {
		h.logAudit(r, "payments.apply", "allocation", "all", "", nil)
	}
}

type chargeRunRequest struct {
	StatementDate string `json:"statement_date"`
}

// handleMonthlyCharges previews a charge run on GET and persists it on POST.
func (h *Handler) handleMonthlyCharges(w http.ResponseWriter, r *http.Request, persist bool) {
	var raw string
	if persist {
		var req chargeRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		raw = req.StatementDate
	} else {
		raw = r.URL.Query().Get("statement_date")
	}
	statementDate, err := parseDate(raw)
	if err != nil {
		http.Error(w, "statement_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var run *billingapp.ChargeRun
	if persist {
		run, err = h.charges.PostMonthlyCharges(r.Context(), statementDate)
	} else {
		run, err = h.charges.PreviewMonthlyCharges(r.Context(), statementDate)
	}
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, run)
	if persist {
		meta, _ := json.Marshal(map[string]any{
			"charges":   len(run.Charges),
			"late_fees": len(run.LateFees),
		})
		h.logAudit(r, "charges.post", "charge_run", statementDate.Format(dateLayout), "", meta)
	}
}

func (h *Handler) handleListReceivables(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	var kind billing.ChargeKind
	if raw := query.Get("kind"); raw != "" {
		normalized, ok := billing.NormalizeChargeKind(raw)
		if !ok {
			http.Error(w, "unknown charge kind", http.StatusBadRequest)
			return
		}
		kind = normalized
	}

	if raw := query.Get("statement_date"); raw != "" {
		statementDate, err := parseDate(raw)
		if err != nil {
			http.Error(w, "statement_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		recs, err := h.charges.ReceivablesForPeriod(r.Context(), statementDate, kind)
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, recs)
		return
	}

	if query.Get("unpaid") != "true" {
		http.Error(w, "statement_date or unpaid=true is required", http.StatusBadRequest)
		return
	}
	accountID := uuid.Nil
	if raw := query.Get("account_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
			return
		}
		accountID = parsed
	}
	recs, err := h.charges.UnpaidReceivables(r.Context(), accountID)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	if kind != "" {
		var filtered []billing.Receivable
		for _, rec := range recs {
			if rec.Kind == kind {
				filtered = append(filtered, rec)
			}
		}
		recs = filtered
	}
	writeJSON(w, recs)
}

func (h *Handler) handleGetReceivable(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/v1/receivables/")
	id, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "invalid receivable id", http.StatusBadRequest)
		return
	}
	rec, err := h.charges.GetReceivable(r.Context(), id)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, rec)
}

type oneOffChargeRequest struct {
	AccountID     string  `json:"account_id"`
	Amount        float64 `json:"amount"`
	StatementDate string  `json:"statement_date"`
	Kind          string  `json:"kind"`
	Note          string  `json:"note"`
}

func (h *Handler) handleIssueCharge(w http.ResponseWriter, r *http.Request) {
	var req oneOffChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
		return
	}
	statementDate, err := parseDate(req.StatementDate)
	if err != nil {
		http.Error(w, "statement_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	kind, ok := billing.NormalizeChargeKind(req.Kind)
	if !ok {
		http.Error(w, "unknown charge kind", http.StatusBadRequest)
		return
	}
	rec, err := h.charges.IssueCharge(r.Context(), accountID, req.Amount, statementDate, kind, req.Note)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, rec)

	meta, _ := json.Marshal(map[string]any{"kind": string(kind), "amount": rec.AmountDue})
	h.logAudit(r, "charge.issue", "receivable", rec.ID.String(), accountID.String(), meta)
}

type readingRequest struct {
	WatermeterID     int64  `json:"watermeter_id"`
	PreviousReading  int64  `json:"previous_reading"`
	CurrentReading   int64  `json:"current_reading"`
	PreviousReadDate string `json:"previous_read_date"`
	CurrentReadDate  string `json:"current_read_date"`
	StatementDate    string `json:"statement_date"`
}

func (h *Handler) handleRecordReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	previousDate, err := parseDate(req.PreviousReadDate)
	if err != nil {
		http.Error(w, "previous_read_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	currentDate, err := parseDate(req.CurrentReadDate)
	if err != nil {
		http.Error(w, "current_read_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	statementDate, err := parseDate(req.StatementDate)
	if err != nil {
		http.Error(w, "statement_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	usage, err := h.charges.RecordWaterUsage(r.Context(), req.WatermeterID, req.PreviousReading, req.CurrentReading, previousDate, currentDate, statementDate)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, usage)
}

type rateConfigRequest struct {
	Percentage         float64 `json:"percentage"`
	RentMonthlyRate    float64 `json:"rent_monthly_rate"`
	StorageMonthlyRate float64 `json:"storage_monthly_rate"`
	WaterMonthlyRate   float64 `json:"water_monthly_rate"`
	WaterServiceFee    float64 `json:"water_service_fee"`
	LateFeeRate        float64 `json:"late_fee_rate"`
	OverdueCutoffDays  int     `json:"overdue_cutoff_days"`
	EffectiveAsOf      string  `json:"effective_as_of"`
}

func (h *Handler) handleCurrentRates(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "true" {
		configs, err := h.charges.ListRates(r.Context())
		if err != nil {
			respondBillingError(w, err)
			return
		}
		writeJSON(w, configs)
		return
	}
	cfg, err := h.charges.CurrentRates(r.Context())
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, cfg)
}

// handleSaveRates stores a new rate config. A percentage derives it from the
// current rates, explicit rates store it as given.
func (h *Handler) handleSaveRates(w http.ResponseWriter, r *http.Request) {
	var req rateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	effectiveAsOf, err := parseDate(req.EffectiveAsOf)
	if err != nil {
		http.Error(w, "effective_as_of must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	var cfg *billing.RateConfig
	var action string
	if req.Percentage != 0 {
		cfg, err = h.charges.RaiseRates(r.Context(), req.Percentage, effectiveAsOf)
		action = "rates.raise"
	} else {
		cfg, err = h.charges.CreateRateConfig(r.Context(), billing.RateConfig{
			RentMonthlyRate:    req.RentMonthlyRate,
			StorageMonthlyRate: req.StorageMonthlyRate,
			WaterMonthlyRate:   req.WaterMonthlyRate,
			WaterServiceFee:    req.WaterServiceFee,
			LateFeeRate:        req.LateFeeRate,
			OverdueCutoffDays:  req.OverdueCutoffDays,
			EffectiveAsOf:      effectiveAsOf,
		})
		action = "rates.create"
	}
	if err != nil {
		respondBillingError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, cfg)

	meta, _ := json.Marshal(map[string]any{"percentage": req.Percentage})
	h.logAudit(r, action, "rate_config", cfg.ID.String(), "", meta)
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID, accountID string, meta json.RawMessage) {
	if h.auditLogger == nil {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		AccountID:    accountID,
		Metadata:     meta,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("date required")
	}
	return time.Parse(dateLayout, raw)
}

func respondBillingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, billing.ErrAccountNotFound),
		errors.Is(err, billing.ErrPaymentNotFound),
		errors.Is(err, billing.ErrReceivableNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, billing.ErrEmptyAccountID),
		errors.Is(err, billing.ErrInvalidStatementDate),
		errors.Is(err, billing.ErrNonPositivePayment),
		errors.Is(err, billing.ErrNegativeAmount),
		errors.Is(err, billing.ErrInvalidChargeKind),
		errors.Is(err, billing.ErrMeterRegression),
		errors.Is(err, billing.ErrIncompleteChargeData):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
