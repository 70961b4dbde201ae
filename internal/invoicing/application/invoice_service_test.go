package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	invoicing "parkbill/internal/invoicing/domain"
)

type stubInvoiceStore struct {
	invoices  []invoicing.Invoice
	upserts   int
	delivered []uuid.UUID
}

func (s *stubInvoiceStore) GetByID(_ context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			invoice := s.invoices[i]
			return &invoice, nil
		}
	}
	return nil, nil
}

func (s *stubInvoiceStore) ListByStatementDate(_ context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.Invoice, error) {
	var result []invoicing.Invoice
	for _, invoice := range s.invoices {
		if !invoice.StatementDate.Equal(statementDate) {
			continue
		}
		if rateConfigID != uuid.Nil && invoice.RateConfigID != rateConfigID {
			continue
		}
		result = append(result, invoice)
	}
	return result, nil
}

func (s *stubInvoiceStore) Upsert(_ context.Context, invoice *invoicing.Invoice) error {
	s.upserts++
	for i := range s.invoices {
		existing := s.invoices[i]
		if existing.StatementDate.Equal(invoice.StatementDate) &&
			existing.AccountID == invoice.AccountID &&
			existing.RateConfigID == invoice.RateConfigID {
			s.invoices[i] = *invoice
			return nil
		}
	}
	s.invoices = append(s.invoices, *invoice)
	return nil
}

func (s *stubInvoiceStore) MarkDelivered(_ context.Context, id uuid.UUID, deliveredOn time.Time) error {
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			s.invoices[i].DeliveredOn = deliveredOn
			s.delivered = append(s.delivered, id)
			return nil
		}
	}
	return invoicing.ErrInvoiceNotFound
}

type stubRowSource struct {
	rows  []invoicing.InvoiceRow
	calls int
}

func (s *stubRowSource) Rows(_ context.Context, _ time.Time, _ uuid.UUID) ([]invoicing.InvoiceRow, error) {
	s.calls++
	return s.rows, nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func testRow(cycle time.Time, total float64) invoicing.InvoiceRow {
	return invoicing.InvoiceRow{
		StatementDate:  cycle,
		AccountID:      uuid.New(),
		LotID:          "AP3",
		PropertyCode:   "AP",
		TenantName:     "Lee Marsh",
		TotalAmountDue: total,
		Rent:           475,
		RateConfigID:   uuid.New(),
	}
}

func newServiceFixture(t *testing.T, store *stubInvoiceStore, source *stubRowSource, now time.Time) *InvoiceService {
	t.Helper()
	svc, err := NewInvoiceService(store, source, BusinessConfig{Name: "Maple Grove MHP"}, fixedClock{now: now}, nil)
	if err != nil {
		t.Fatalf("new invoice service: %v", err)
	}
	return svc
}

func TestGenerateSkipsZeroTotals(t *testing.T) {
	cycle := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	store := &stubInvoiceStore{}
	source := &stubRowSource{rows: []invoicing.InvoiceRow{
		testRow(cycle, 475),
		testRow(cycle, 0),
	}}
	svc := newServiceFixture(t, store, source, cycle.AddDate(0, 0, -5))

	invoices, err := svc.Generate(context.Background(), cycle, uuid.Nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(invoices) != 1 {
		t.Fatalf("generated = %d, want 1", len(invoices))
	}
	if store.upserts != 1 {
		t.Fatalf("upserts = %d, want 1", store.upserts)
	}
}

func TestGenerateIsRepeatable(t *testing.T) {
	cycle := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	row := testRow(cycle, 475)
	store := &stubInvoiceStore{}
	source := &stubRowSource{rows: []invoicing.InvoiceRow{row}}
	svc := newServiceFixture(t, store, source, cycle.AddDate(0, 0, -5))

	if _, err := svc.Generate(context.Background(), cycle, uuid.Nil); err != nil {
		t.Fatalf("first generate: %v", err)
	}
	if _, err := svc.Generate(context.Background(), cycle, uuid.Nil); err != nil {
		t.Fatalf("second generate: %v", err)
	}
	if len(store.invoices) != 1 {
		t.Fatalf("stored invoices = %d, want 1", len(store.invoices))
	}
}

func TestRowsPreferStoredInvoices(t *testing.T) {
	cycle := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	row := testRow(cycle, 475)
	store := &stubInvoiceStore{}
	source := &stubRowSource{rows: []invoicing.InvoiceRow{row}}
	svc := newServiceFixture(t, store, source, cycle.AddDate(0, 0, -5))

	if _, err := svc.Generate(context.Background(), cycle, uuid.Nil); err != nil {
		t.Fatalf("generate: %v", err)
	}
	callsAfterGenerate := source.calls

	rows, err := svc.Rows(context.Background(), cycle, uuid.Nil)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if source.calls != callsAfterGenerate {
		t.Fatal("rows query hit the ledger despite stored invoices")
	}
}

func TestRowsFallBackToLedger(t *testing.T) {
	cycle := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	source := &stubRowSource{rows: []invoicing.InvoiceRow{testRow(cycle, 475)}}
	svc := newServiceFixture(t, &stubInvoiceStore{}, source, cycle)

	rows, err := svc.Rows(context.Background(), cycle, uuid.Nil)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 1 || source.calls != 1 {
		t.Fatalf("rows = %d calls = %d, want 1 and 1", len(rows), source.calls)
	}
}

func TestMarkDelivered(t *testing.T) {
	cycle := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	store := &stubInvoiceStore{}
	source := &stubRowSource{rows: []invoicing.InvoiceRow{testRow(cycle, 475)}}
	svc := newServiceFixture(t, store, source, cycle)

	invoices, err := svc.Generate(context.Background(), cycle, uuid.Nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	id := invoices[0].ID

	if err := svc.MarkDelivered(context.Background(), id); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if err := svc.MarkDelivered(context.Background(), id); !errors.Is(err, invoicing.ErrAlreadyDelivered) {
		t.Fatalf("err = %v, want ErrAlreadyDelivered", err)
	}
}

func TestMarkDeliveredMissingInvoice(t *testing.T) {
	svc := newServiceFixture(t, &stubInvoiceStore{}, &stubRowSource{}, time.Now())

	err := svc.MarkDelivered(context.Background(), uuid.New())
	if !errors.Is(err, invoicing.ErrInvoiceNotFound) {
		t.Fatalf("err = %v, want ErrInvoiceNotFound", err)
	}
}
