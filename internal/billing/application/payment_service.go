package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
	"parkbill/internal/observability/metrics"
)

// AccountAllocation is the outcome of applying an account's payments.
type AccountAllocation struct {
	AccountID uuid.UUID                 `json:"account_id"`
	Result    *billing.AllocationResult `json:"result"`
	Persisted bool                      `json:"persisted"`
}

// PaymentService records payments and runs the allocation engine.
type PaymentService struct {
	receivables ReceivableStore
	payments    PaymentStore
	clock       Clock
	logger      *log.Logger
}

// NewPaymentService constructs the service.
func NewPaymentService(receivables ReceivableStore, payments PaymentStore, clock Clock, logger *log.Logger) (*PaymentService, error) {
	if receivables == nil {
		return nil, errors.New("payment service: nil receivable store")
	}
	if payments == nil {
		return nil, errors.New("payment service: nil payment store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &PaymentService{
		receivables: receivables,
		payments:    payments,
		clock:       clock,
		logger:      logger,
	}, nil
}

// RecordPayment stores a new payment with nothing applied yet.
func (s *PaymentService) RecordPayment(ctx context.Context, accountID uuid.UUID, amount float64, dated, received time.Time, payer string) (*billing.Payment, error) {
	payment, err := billing.NewPayment(accountID, amount, dated, received, payer)
	if err != nil {
		return nil, err
	}
	if err := s.payments.Insert(ctx, &payment); err != nil {
		return nil, err
	}
	metrics.IncPaymentRecorded()
	if s.logger != nil {
		s.logger.Printf("payment recorded account=%s amount=%.2f", accountID, amount)
	}
	return &payment, nil
}

// DeletePayment removes a payment that has not been applied yet.
func (s *PaymentService) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return s.payments.Delete(ctx, id)
}

// ListPayments returns an account's payment history.
func (s *PaymentService) ListPayments(ctx context.Context, accountID uuid.UUID) ([]billing.Payment, error) {
	return s.payments.ListByAccount(ctx, accountID)
}

// ListAvailablePayments returns an account's payments with unapplied balance
// received on or before the processing date.
func (s *PaymentService) ListAvailablePayments(ctx context.Context, accountID uuid.UUID, processingDate time.Time) ([]billing.Payment, error) {
	if processingDate.IsZero() {
		processingDate = s.clock.Now().UTC()
	}
	return s.payments.ListAvailable(ctx, accountID, processingDate)
}

// ListRecentPayments returns the most recently recorded payments.
func (s *PaymentService) ListRecentPayments(ctx context.Context, limit int) ([]billing.Payment, error) {
	return s.payments.ListRecent(ctx, limit)
}

// ApplyForAccount allocates an account's available payments against its open
// receivables. With write false the allocation is computed but nothing is
// stored.
func (s *PaymentService) ApplyForAccount(ctx context.Context, accountID uuid.UUID, processingDate time.Time, write bool) (*AccountAllocation, error) {
	start := s.clock.Now()
	outcome, err := s.applyForAccount(ctx, accountID, processingDate, write)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveAllocation(result, s.clock.Now().Sub(start))
	return outcome, err
}

func (s *PaymentService) applyForAccount(ctx context.Context, accountID uuid.UUID, processingDate time.Time, write bool) (*AccountAllocation, error) {
	if accountID == uuid.Nil {
		return nil, billing.ErrEmptyAccountID
	}
	if processingDate.IsZero() {
		processingDate = s.clock.Now().UTC()
	}

	open, err := s.receivables.ListUnpaid(ctx, accountID)
	if err != nil {
		return nil, err
	}
	available, err := s.payments.ListAvailable(ctx, accountID, processingDate)
	if err != nil {
		return nil, err
	}

	outcome := billing.Allocate(open, available)
	allocation := &AccountAllocation{AccountID: accountID, Result: &outcome}

	if !write {
		return allocation, nil
	}
	if err := s.receivables.SaveAllocation(ctx, &outcome); err != nil {
		return nil, err
	}
	allocation.Persisted = true
	if s.logger != nil {
		s.logger.Printf("allocation persisted account=%s settled=%d partial=%d residuals=%d",
			accountID, len(outcome.FullyPaid), len(outcome.PartiallyPaid), len(outcome.Residual))
	}
	return allocation, nil
}

// ApplyForAll runs the allocation for every account that owes anything.
// Accounts are processed independently; the first failure stops the run and
// already persisted allocations stay persisted.
func (s *PaymentService) ApplyForAll(ctx context.Context, processingDate time.Time, write bool) ([]AccountAllocation, error) {
	accountIDs, err := s.receivables.ListUnpaidAccountIDs(ctx)
	if err != nil {
		return nil, err
	}

	var allocations []AccountAllocation
	for _, accountID := range accountIDs {
		allocation, err := s.ApplyForAccount(ctx, accountID, processingDate, write)
		if err != nil {
			return allocations, err
		}
		allocations = append(allocations, *allocation)
	}
	return allocations, nil
}
