package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	masterdata "parkbill/internal/masterdata/domain"
)

type stubLotStore struct {
	lots []masterdata.Lot
}

func (s *stubLotStore) Get(_ context.Context, id string) (*masterdata.Lot, error) {
	for i := range s.lots {
		if s.lots[i].ID == id {
			lot := s.lots[i]
			return &lot, nil
		}
	}
	return nil, nil
}

func (s *stubLotStore) ListAvailable(_ context.Context) ([]masterdata.Lot, error) {
	return s.lots, nil
}

func (s *stubLotStore) Save(_ context.Context, lot *masterdata.Lot) error {
	s.lots = append(s.lots, *lot)
	return nil
}

type stubTenantStore struct {
	tenants  []masterdata.Tenant
	assigned map[uuid.UUID]uuid.UUID
}

func (s *stubTenantStore) Get(_ context.Context, id uuid.UUID) (*masterdata.Tenant, error) {
	for i := range s.tenants {
		if s.tenants[i].ID == id {
			tenant := s.tenants[i]
			return &tenant, nil
		}
	}
	return nil, nil
}

func (s *stubTenantStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]masterdata.Tenant, error) {
	var result []masterdata.Tenant
	for _, tenant := range s.tenants {
		if tenant.AccountID == accountID {
			result = append(result, tenant)
		}
	}
	return result, nil
}

func (s *stubTenantStore) ListUnassigned(_ context.Context) ([]masterdata.Tenant, error) {
	var result []masterdata.Tenant
	for _, tenant := range s.tenants {
		if !tenant.Assigned() {
			result = append(result, tenant)
		}
	}
	return result, nil
}

func (s *stubTenantStore) Save(_ context.Context, tenant *masterdata.Tenant) error {
	s.tenants = append(s.tenants, *tenant)
	return nil
}

func (s *stubTenantStore) Assign(_ context.Context, tenantID, accountID uuid.UUID) error {
	if s.assigned == nil {
		s.assigned = make(map[uuid.UUID]uuid.UUID)
	}
	s.assigned[tenantID] = accountID
	return nil
}

type stubMeterStore struct {
	meters []masterdata.WaterMeter
}

func (s *stubMeterStore) Get(_ context.Context, id int64) (*masterdata.WaterMeter, error) {
	for i := range s.meters {
		if s.meters[i].ID == id {
			meter := s.meters[i]
			return &meter, nil
		}
	}
	return nil, nil
}

func (s *stubMeterStore) List(_ context.Context) ([]masterdata.WaterMeter, error) {
	return s.meters, nil
}

func (s *stubMeterStore) Save(_ context.Context, meter *masterdata.WaterMeter) error {
	s.meters = append(s.meters, *meter)
	return nil
}

func newTestHandler(t *testing.T, lots *stubLotStore, tenants *stubTenantStore, meters *stubMeterStore) *Handler {
	t.Helper()
	handler, err := NewHandler(lots, tenants, meters)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler
}

func TestHandler_ListAvailableLots(t *testing.T) {
	lots := &stubLotStore{lots: []masterdata.Lot{
		{ID: "AP12", PropertyCode: "AP", StreetAddress: "Maple Grove Rd", CityStateZip: "Springfield, MO 65800"},
	}}
	handler := newTestHandler(t, lots, &stubTenantStore{}, &stubMeterStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/lots", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var payload []lotPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload) != 1 || payload[0].ID != "AP12" {
		t.Fatalf("unexpected lots: %+v", payload)
	}
}

func TestHandler_SaveLotRejectsBadID(t *testing.T) {
	handler := newTestHandler(t, &stubLotStore{}, &stubTenantStore{}, &stubMeterStore{})

	body := `{"id":"12AP","property_code":"AP","street_address":"Maple Grove Rd"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/lots", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandler_CreateAndAssignTenant(t *testing.T) {
	tenants := &stubTenantStore{}
	handler := newTestHandler(t, &stubLotStore{}, tenants, &stubMeterStore{})

	body := `{"first_name":"Jo","last_name":"Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tenants", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var created tenantPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	accountID := uuid.New()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/tenants/"+created.ID+"/assign", strings.NewReader(`{"account_id":"`+accountID.String()+`"}`))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	tenantID := uuid.MustParse(created.ID)
	if tenants.assigned[tenantID] != accountID {
		t.Fatalf("tenant not assigned to account")
	}
}

func TestHandler_ListTenantsRequiresFilter(t *testing.T) {
	handler := newTestHandler(t, &stubLotStore{}, &stubTenantStore{}, &stubMeterStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenants", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHandler_SaveMeterRejectsNonPositiveID(t *testing.T) {
	handler := newTestHandler(t, &stubLotStore{}, &stubTenantStore{}, &stubMeterStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/meters", strings.NewReader(`{"id":0}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
