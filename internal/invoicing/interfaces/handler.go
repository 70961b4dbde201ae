package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	invoiceapp "parkbill/internal/invoicing/application"
	invoicing "parkbill/internal/invoicing/domain"
	"parkbill/internal/observability/metrics"
)

const dateLayout = "2006-01-02"

// Handler provides invoice HTTP endpoints.
type Handler struct {
	service *invoiceapp.InvoiceService
}

// NewHandler constructs a handler.
func NewHandler(service *invoiceapp.InvoiceService) (*Handler, error) {
	if service == nil {
		return nil, errors.New("invoice handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/invoices and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/invoices":
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleGenerate(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.URL.Path == "/api/v1/invoices/inputs":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleInputs(w, r)
	case r.URL.Path == "/api/v1/invoices/export.pdf":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, "pdf")
	case r.URL.Path == "/api/v1/invoices/export.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, "xlsx")
	case strings.HasPrefix(r.URL.Path, "/api/v1/invoices/"):
		h.handleItem(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	statementDate, rateConfigID, err := cycleParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	invoices, err := h.service.List(r.Context(), statementDate, rateConfigID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, invoices)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	statementDate, rateConfigID, err := cycleParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	invoices, err := h.service.Generate(r.Context(), statementDate, rateConfigID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, invoices)
}

func (h *Handler) handleInputs(w http.ResponseWriter, r *http.Request) {
	statementDate, rateConfigID, err := cycleParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := h.service.Rows(r.Context(), statementDate, rateConfigID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, rows)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	start := time.Now()
	statementDate, rateConfigID, err := cycleParams(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	invoices, err := h.service.List(r.Context(), statementDate, rateConfigID)
	if err != nil {
		metrics.ObserveInvoiceExport(format, metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}

	var payload []byte
	var contentType string
	switch format {
	case "pdf":
		payload, err = BuildInvoiceBatchPDF(invoices, h.service.Business())
		contentType = "application/pdf"
	case "xlsx":
		payload, err = BuildInvoiceXLSX(invoices, h.service.Business())
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		http.Error(w, "unknown format", http.StatusBadRequest)
		return
	}
	if err != nil {
		metrics.ObserveInvoiceExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveInvoiceExport(format, metrics.ResultSuccess, time.Since(start))

	filename := "invoices-" + statementDate.Format(dateLayout) + "." + format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)
}

func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/invoices/")
	parts := strings.Split(path, "/")

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		invoice, err := h.service.Get(r.Context(), id)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, invoice)
	case len(parts) == 2 && parts[1] == "deliver" && r.Method == http.MethodPost:
		if err := h.service.MarkDelivered(r.Context(), id); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	case len(parts) == 2 && parts[1] == "export.pdf" && r.Method == http.MethodGet:
		h.handleItemPDF(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleItemPDF(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	start := time.Now()
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		metrics.ObserveInvoiceExport("pdf", metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}
	payload, err := BuildInvoicePDF(invoice, h.service.Business())
	if err != nil {
		metrics.ObserveInvoiceExport("pdf", metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveInvoiceExport("pdf", metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+id.String()+`.pdf"`)
	_, _ = w.Write(payload)
}

func cycleParams(r *http.Request) (time.Time, uuid.UUID, error) {
	raw := r.URL.Query().Get("statement_date")
	if raw == "" {
		return time.Time{}, uuid.Nil, errors.New("statement_date is required")
	}
	statementDate, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, uuid.Nil, errors.New("statement_date must be YYYY-MM-DD")
	}

	rateConfigID := uuid.Nil
	if raw := r.URL.Query().Get("rate_config_id"); raw != "" {
		rateConfigID, err = uuid.Parse(raw)
		if err != nil {
			return time.Time{}, uuid.Nil, errors.New("rate_config_id must be a uuid")
		}
	}
	return statementDate, rateConfigID, nil
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, invoicing.ErrInvoiceNotFound):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, invoicing.ErrAlreadyDelivered),
		errors.Is(err, invoicing.ErrInvalidStatementDate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
