package application

import (
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

var testLogger = log.New(testWriter{}, "", 0)

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func newPaymentFixture(t *testing.T, receivables *stubReceivableStore, payments *stubPaymentStore, now time.Time) *PaymentService {
	t.Helper()
	svc, err := NewPaymentService(receivables, payments, fixedClock{now: now}, testLogger)
	if err != nil {
		t.Fatalf("new payment service: %v", err)
	}
	return svc
}

func openReceivable(accountID uuid.UUID, amount float64, statementDate, insertedAt time.Time) billing.Receivable {
	return billing.Receivable{
		ID:            uuid.New(),
		AccountID:     accountID,
		AmountDue:     amount,
		StatementDate: statementDate,
		Kind:          billing.ChargeRent,
		InsertedAt:    insertedAt,
	}
}

func TestRecordPayment(t *testing.T) {
	store := &stubPaymentStore{}
	svc := newPaymentFixture(t, &stubReceivableStore{}, store, time.Now())
	accountID := uuid.New()

	payment, err := svc.RecordPayment(context.Background(), accountID, 250, time.Time{}, time.Time{}, "check 1041")
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if payment.AccountID != accountID {
		t.Fatalf("account id = %s, want %s", payment.AccountID, accountID)
	}
	if payment.AmountApplied != 0 {
		t.Fatalf("new payment applied = %f, want 0", payment.AmountApplied)
	}
	if len(store.payments) != 1 {
		t.Fatalf("stored %d payments, want 1", len(store.payments))
	}
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	svc := newPaymentFixture(t, &stubReceivableStore{}, &stubPaymentStore{}, time.Now())

	_, err := svc.RecordPayment(context.Background(), uuid.New(), 0, time.Time{}, time.Time{}, "")
	if !errors.Is(err, billing.ErrNonPositivePayment) {
		t.Fatalf("err = %v, want ErrNonPositivePayment", err)
	}
}

func TestApplyForAccountDryRun(t *testing.T) {
	accountID := uuid.New()
	cycle := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	receivables := &stubReceivableStore{receivables: []billing.Receivable{
		openReceivable(accountID, 100, cycle, cycle),
	}}
	payment, err := billing.NewPayment(accountID, 60, cycle, cycle, "")
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	payments := &stubPaymentStore{payments: []billing.Payment{payment}}
	svc := newPaymentFixture(t, receivables, payments, cycle.AddDate(0, 0, 5))

	allocation, err := svc.ApplyForAccount(context.Background(), accountID, time.Time{}, false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if allocation.Persisted {
		t.Fatal("dry run must not persist")
	}
	if len(receivables.saved) != 0 {
		t.Fatalf("dry run saved %d allocations", len(receivables.saved))
	}
	if len(allocation.Result.Residual) != 1 {
		t.Fatalf("residuals = %d, want 1", len(allocation.Result.Residual))
	}
	if got := allocation.Result.Residual[0].AmountDue; got != 40 {
		t.Fatalf("residual amount = %f, want 40", got)
	}
}

func TestApplyForAccountPersists(t *testing.T) {
	accountID := uuid.New()
	cycle := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	receivables := &stubReceivableStore{receivables: []billing.Receivable{
		openReceivable(accountID, 100, cycle, cycle),
	}}
	payment, err := billing.NewPayment(accountID, 100, cycle, cycle, "")
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	payments := &stubPaymentStore{payments: []billing.Payment{payment}}
	svc := newPaymentFixture(t, receivables, payments, cycle.AddDate(0, 0, 5))

	allocation, err := svc.ApplyForAccount(context.Background(), accountID, time.Time{}, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !allocation.Persisted {
		t.Fatal("write run must persist")
	}
	if len(receivables.saved) != 1 {
		t.Fatalf("saved %d allocations, want 1", len(receivables.saved))
	}
	saved := receivables.saved[0]
	if len(saved.FullyPaid) != 1 {
		t.Fatalf("fully paid = %d, want 1", len(saved.FullyPaid))
	}
	if got := saved.Payments[0].AmountApplied; got != 100 {
		t.Fatalf("amount applied = %f, want 100", got)
	}
}

func TestApplyForAccountIgnoresPaymentsAfterProcessingDate(t *testing.T) {
	accountID := uuid.New()
	cycle := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	receivables := &stubReceivableStore{receivables: []billing.Receivable{
		openReceivable(accountID, 100, cycle, cycle),
	}}
	late, err := billing.NewPayment(accountID, 100, cycle, cycle.AddDate(0, 0, 20), "")
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	payments := &stubPaymentStore{payments: []billing.Payment{late}}
	svc := newPaymentFixture(t, receivables, payments, cycle)

	allocation, err := svc.ApplyForAccount(context.Background(), accountID, cycle.AddDate(0, 0, 10), false)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if len(allocation.Result.NotPaid) != 1 {
		t.Fatalf("not paid = %d, want 1", len(allocation.Result.NotPaid))
	}
}

func TestApplyForAccountRejectsEmptyAccount(t *testing.T) {
	svc := newPaymentFixture(t, &stubReceivableStore{}, &stubPaymentStore{}, time.Now())

	_, err := svc.ApplyForAccount(context.Background(), uuid.Nil, time.Time{}, false)
	if !errors.Is(err, billing.ErrEmptyAccountID) {
		t.Fatalf("err = %v, want ErrEmptyAccountID", err)
	}
}

func TestApplyForAllCoversEveryOwingAccount(t *testing.T) {
	first := uuid.New()
	second := uuid.New()
	cycle := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	receivables := &stubReceivableStore{receivables: []billing.Receivable{
		openReceivable(first, 100, cycle, cycle),
		openReceivable(second, 50, cycle, cycle),
	}}
	payment, err := billing.NewPayment(second, 50, cycle, cycle, "")
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	payments := &stubPaymentStore{payments: []billing.Payment{payment}}
	svc := newPaymentFixture(t, receivables, payments, cycle.AddDate(0, 0, 5))

	allocations, err := svc.ApplyForAll(context.Background(), time.Time{}, true)
	if err != nil {
		t.Fatalf("apply for all: %v", err)
	}
	if len(allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(allocations))
	}
	if len(receivables.saved) != 2 {
		t.Fatalf("saved allocations = %d, want 2", len(receivables.saved))
	}
}

func TestDeletePayment(t *testing.T) {
	accountID := uuid.New()
	payment, err := billing.NewPayment(accountID, 75, time.Time{}, time.Time{}, "")
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	payments := &stubPaymentStore{payments: []billing.Payment{payment}}
	svc := newPaymentFixture(t, &stubReceivableStore{}, payments, time.Now())

	if err := svc.DeletePayment(context.Background(), payment.ID); err != nil {
		t.Fatalf("delete payment: %v", err)
	}
	if err := svc.DeletePayment(context.Background(), payment.ID); !errors.Is(err, billing.ErrPaymentNotFound) {
		t.Fatalf("err = %v, want ErrPaymentNotFound", err)
	}
}
