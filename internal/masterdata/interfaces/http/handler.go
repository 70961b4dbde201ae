package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	masterdata "parkbill/internal/masterdata/domain"
)

// LotStore is the lot persistence port.
type LotStore interface {
	Get(ctx context.Context, id string) (*masterdata.Lot, error)
	ListAvailable(ctx context.Context) ([]masterdata.Lot, error)
	Save(ctx context.Context, lot *masterdata.Lot) error
}

// TenantStore is the tenant persistence port.
type TenantStore interface {
	Get(ctx context.Context, id uuid.UUID) (*masterdata.Tenant, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]masterdata.Tenant, error)
	ListUnassigned(ctx context.Context) ([]masterdata.Tenant, error)
	Save(ctx context.Context, tenant *masterdata.Tenant) error
	Assign(ctx context.Context, tenantID, accountID uuid.UUID) error
}

// MeterStore is the water meter persistence port.
type MeterStore interface {
	Get(ctx context.Context, id int64) (*masterdata.WaterMeter, error)
	List(ctx context.Context) ([]masterdata.WaterMeter, error)
	Save(ctx context.Context, meter *masterdata.WaterMeter) error
}

// Handler provides lot, tenant and meter HTTP endpoints.
type Handler struct {
	lots    LotStore
	tenants TenantStore
	meters  MeterStore
}

// NewHandler constructs a handler.
func NewHandler(lots LotStore, tenants TenantStore, meters MeterStore) (*Handler, error) {
	if lots == nil {
		return nil, errors.New("masterdata handler: nil lot store")
	}
	if tenants == nil {
		return nil, errors.New("masterdata handler: nil tenant store")
	}
	if meters == nil {
		return nil, errors.New("masterdata handler: nil meter store")
	}
	return &Handler{lots: lots, tenants: tenants, meters: meters}, nil
}

// ServeHTTP routes lot, tenant and meter requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/lots":
		switch r.Method {
		case http.MethodGet:
			h.handleListLots(w, r)
		case http.MethodPost:
			h.handleSaveLot(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/lots/"):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGetLot(w, r)
	case r.URL.Path == "/api/v1/tenants":
		switch r.Method {
		case http.MethodGet:
			h.handleListTenants(w, r)
		case http.MethodPost:
			h.handleSaveTenant(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case strings.HasPrefix(r.URL.Path, "/api/v1/tenants/"):
		h.handleTenantItem(w, r)
	case r.URL.Path == "/api/v1/meters":
		switch r.Method {
		case http.MethodGet:
			h.handleListMeters(w, r)
		case http.MethodPost:
			h.handleSaveMeter(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type lotPayload struct {
	ID            string `json:"id"`
	PropertyCode  string `json:"property_code"`
	StreetAddress string `json:"street_address"`
	CityStateZip  string `json:"city_state_zip"`
	MeterID       int64  `json:"watermeter_id,omitempty"`
}

func lotToPayload(lot masterdata.Lot) lotPayload {
	return lotPayload{
		ID:            lot.ID,
		PropertyCode:  lot.PropertyCode,
		StreetAddress: lot.StreetAddress,
		CityStateZip:  lot.CityStateZip,
		MeterID:       lot.MeterID,
	}
}

func (h *Handler) handleListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.lots.ListAvailable(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := make([]lotPayload, 0, len(lots))
	for _, lot := range lots {
		payload = append(payload, lotToPayload(lot))
	}
	writeJSON(w, payload)
}

func (h *Handler) handleGetLot(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/lots/")
	lot, err := h.lots.Get(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if lot == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, lotToPayload(*lot))
}

func (h *Handler) handleSaveLot(w http.ResponseWriter, r *http.Request) {
	var req lotPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	lot := masterdata.Lot{
		ID:            req.ID,
		PropertyCode:  req.PropertyCode,
		StreetAddress: req.StreetAddress,
		CityStateZip:  req.CityStateZip,
		MeterID:       req.MeterID,
	}
	if err := lot.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.lots.Save(r.Context(), &lot); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, lotToPayload(lot))
}

type tenantPayload struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	AccountID string `json:"account_id,omitempty"`
}

func tenantToPayload(tenant masterdata.Tenant) tenantPayload {
	payload := tenantPayload{
		ID:        tenant.ID.String(),
		FirstName: tenant.FirstName,
		LastName:  tenant.LastName,
	}
	if tenant.Assigned() {
		payload.AccountID = tenant.AccountID.String()
	}
	return payload
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	var tenants []masterdata.Tenant
	var err error
	switch {
	case r.URL.Query().Get("unassigned") == "true":
		tenants, err = h.tenants.ListUnassigned(r.Context())
	case r.URL.Query().Get("account_id") != "":
		var accountID uuid.UUID
		accountID, err = uuid.Parse(r.URL.Query().Get("account_id"))
		if err != nil {
			http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
			return
		}
		tenants, err = h.tenants.ListByAccount(r.Context(), accountID)
	default:
		http.Error(w, "unassigned=true or account_id is required", http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := make([]tenantPayload, 0, len(tenants))
	for _, tenant := range tenants {
		payload = append(payload, tenantToPayload(tenant))
	}
	writeJSON(w, payload)
}

func (h *Handler) handleSaveTenant(w http.ResponseWriter, r *http.Request) {
	var req tenantPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	tenant := masterdata.Tenant{
		ID:        uuid.New(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			http.Error(w, "id must be a uuid", http.StatusBadRequest)
			return
		}
		tenant.ID = id
	}
	if err := tenant.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.tenants.Save(r.Context(), &tenant); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, tenantToPayload(tenant))
}

func (h *Handler) handleTenantItem(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/tenants/")
	parts := strings.Split(path, "/")

	id, err := uuid.Parse(parts[0])
	if err != nil {
		http.Error(w, "invalid tenant id", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		tenant, err := h.tenants.Get(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if tenant == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, tenantToPayload(*tenant))
	case len(parts) == 2 && parts[1] == "assign" && r.Method == http.MethodPost:
		var req struct {
			AccountID string `json:"account_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		accountID, err := uuid.Parse(req.AccountID)
		if err != nil {
			http.Error(w, "account_id must be a uuid", http.StatusBadRequest)
			return
		}
		if err := h.tenants.Assign(r.Context(), id, accountID); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type meterPayload struct {
	ID         int64     `json:"id"`
	LotID      string    `json:"lot_id,omitempty"`
	InsertedAt time.Time `json:"inserted_at"`
}

func (h *Handler) handleListMeters(w http.ResponseWriter, r *http.Request) {
	meters, err := h.meters.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	payload := make([]meterPayload, 0, len(meters))
	for _, meter := range meters {
		payload = append(payload, meterPayload{ID: meter.ID, LotID: meter.LotID, InsertedAt: meter.InsertedAt})
	}
	writeJSON(w, payload)
}

func (h *Handler) handleSaveMeter(w http.ResponseWriter, r *http.Request) {
	var req meterPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		http.Error(w, "id must be a positive meter number", http.StatusBadRequest)
		return
	}
	meter := masterdata.WaterMeter{ID: req.ID, LotID: req.LotID}
	if err := h.meters.Save(r.Context(), &meter); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, meterPayload{ID: meter.ID, LotID: meter.LotID, InsertedAt: meter.InsertedAt})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
