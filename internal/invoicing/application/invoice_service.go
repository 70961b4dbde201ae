package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	invoicing "parkbill/internal/invoicing/domain"
	"parkbill/internal/observability/metrics"
)

// InvoiceStore is the persistence port for invoices.
type InvoiceStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error)
	ListByStatementDate(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.Invoice, error)
	Upsert(ctx context.Context, invoice *invoicing.Invoice) error
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredOn time.Time) error
}

// RowSource assembles invoice rows for a billing cycle from the ledger.
type RowSource interface {
	Rows(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.InvoiceRow, error)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// InvoiceService builds, persists, and tracks invoices.
type InvoiceService struct {
	invoices InvoiceStore
	rows     RowSource
	business BusinessConfig
	clock    Clock
	logger   *log.Logger
}

// NewInvoiceService constructs the service.
func NewInvoiceService(invoices InvoiceStore, rows RowSource, business BusinessConfig, clock Clock, logger *log.Logger) (*InvoiceService, error) {
	if invoices == nil {
		return nil, errors.New("invoice service: nil invoice store")
	}
	if rows == nil {
		return nil, errors.New("invoice service: nil row source")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &InvoiceService{
		invoices: invoices,
		rows:     rows,
		business: business,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Business returns the configured billing entity.
func (s *InvoiceService) Business() BusinessConfig {
	return s.business
}

// Rows returns the assembled rows for a cycle. When invoices were already
// generated for the cycle their stored rows win so the printed bill never
// drifts from the persisted one.
func (s *InvoiceService) Rows(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.InvoiceRow, error) {
	if statementDate.IsZero() {
		return nil, invoicing.ErrInvalidStatementDate
	}
	existing, err := s.invoices.ListByStatementDate(ctx, statementDate, rateConfigID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		rows := make([]invoicing.InvoiceRow, 0, len(existing))
		for _, invoice := range existing {
			rows = append(rows, invoice.Details)
		}
		return rows, nil
	}
	return s.rows.Rows(ctx, statementDate, rateConfigID)
}

// Generate assembles rows for a cycle, skips accounts with nothing due, and
// persists one invoice per remaining row. Regenerating a cycle updates the
// same invoices through the unique key.
func (s *InvoiceService) Generate(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.Invoice, error) {
	start := s.clock.Now()
	invoices, err := s.generate(ctx, statementDate, rateConfigID)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveInvoiceGenerate(result, s.clock.Now().Sub(start))
	return invoices, err
}

func (s *InvoiceService) generate(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.Invoice, error) {
	if statementDate.IsZero() {
		return nil, invoicing.ErrInvalidStatementDate
	}
	rows, err := s.rows.Rows(ctx, statementDate, rateConfigID)
	if err != nil {
		return nil, err
	}

	invoiceDate := s.clock.Now().UTC()
	var generated []invoicing.Invoice
	for _, row := range rows {
		invoice, err := invoicing.NewInvoice(row, invoiceDate)
		if errors.Is(err, invoicing.ErrNothingToInvoice) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := s.invoices.Upsert(ctx, &invoice); err != nil {
			return nil, err
		}
		generated = append(generated, invoice)
	}
	if s.logger != nil {
		s.logger.Printf("invoices generated cycle=%s count=%d",
			statementDate.Format("2006-01-02"), len(generated))
	}
	return generated, nil
}

// List returns the stored invoices for a cycle.
func (s *InvoiceService) List(ctx context.Context, statementDate time.Time, rateConfigID uuid.UUID) ([]invoicing.Invoice, error) {
	if statementDate.IsZero() {
		return nil, invoicing.ErrInvalidStatementDate
	}
	return s.invoices.ListByStatementDate(ctx, statementDate, rateConfigID)
}

// Get returns one invoice.
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, error) {
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicing.ErrInvoiceNotFound
	}
	return invoice, nil
}

// MarkDelivered records when an invoice went out.
func (s *InvoiceService) MarkDelivered(ctx context.Context, id uuid.UUID) error {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !invoice.DeliveredOn.IsZero() {
		return invoicing.ErrAlreadyDelivered
	}
	return s.invoices.MarkDelivered(ctx, id, s.clock.Now().UTC())
}
