package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

var testPeriod = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

func testReceivable(t *testing.T, amount float64, insertedAt time.Time) Receivable {
	t.Helper()
	r, err := NewReceivable(uuid.New(), amount, testPeriod, ChargeRent)
	if err != nil {
		t.Fatalf("new receivable: %v", err)
	}
	r.InsertedAt = insertedAt
	return r
}

func testPayment(t *testing.T, amount float64) Payment {
	t.Helper()
	p, err := NewPayment(uuid.New(), amount, testPeriod, testPeriod, "test payer")
	if err != nil {
		t.Fatalf("new payment: %v", err)
	}
	return p
}

func TestAllocateNoPayments(t *testing.T) {
	now := time.Now().UTC()
	receivables := []Receivable{
		testReceivable(t, 100, now),
		testReceivable(t, 50, now.Add(-time.Hour)),
	}

	result := Allocate(receivables, nil)

	if len(result.NotPaid) != 2 {
		t.Fatalf("expected 2 not paid, got %d", len(result.NotPaid))
	}
	if len(result.Residual) != 0 || len(result.PartiallyPaid) != 0 || len(result.FullyPaid) != 0 {
		t.Fatalf("expected empty residual/partial/full buckets")
	}
	for _, r := range result.NotPaid {
		if r.Paid || r.AmountDue == 0 {
			t.Fatalf("not paid receivable was modified: %+v", r)
		}
	}
}

func TestAllocatePartialPaymentMintsResidual(t *testing.T) {
	receivable := testReceivable(t, 100, time.Now().UTC())
	payment := testPayment(t, 60)

	result := Allocate([]Receivable{receivable}, []Payment{payment})

	if len(result.Residual) != 1 {
		t.Fatalf("expected 1 residual, got %d", len(result.Residual))
	}
	residual := result.Residual[0]
	if residual.AmountDue != 40 {
		t.Fatalf("expected residual amount 40, got %v", residual.AmountDue)
	}
	if residual.Paid {
		t.Fatalf("residual must start unpaid")
	}
	if residual.ID == receivable.ID {
		t.Fatalf("residual must be a new receivable")
	}
	if got := residual.Details[DetailResidualOrigin]; got != receivable.ID.String() {
		t.Fatalf("residual provenance = %q, want original id", got)
	}
	if !residual.InsertedAt.Equal(receivable.InsertedAt) {
		t.Fatalf("residual must carry the original creation timestamp")
	}

	if len(result.PartiallyPaid) != 1 {
		t.Fatalf("expected 1 partially paid, got %d", len(result.PartiallyPaid))
	}
	original := result.PartiallyPaid[0]
	if original.AmountDue != 100 {
		t.Fatalf("original amount must be restored, got %v", original.AmountDue)
	}
	if !original.Paid {
		t.Fatalf("partially paid original must be marked paid")
	}
	if len(result.NotPaid) != 0 || len(result.FullyPaid) != 0 {
		t.Fatalf("unexpected not paid/fully paid entries")
	}
	if result.Payments[0].AmountApplied != 60 {
		t.Fatalf("payment must be exhausted, applied=%v", result.Payments[0].AmountApplied)
	}
}

func TestAllocateOverpaymentLeavesRemainder(t *testing.T) {
	receivable := testReceivable(t, 50, time.Now().UTC())
	payment := testPayment(t, 80)

	result := Allocate([]Receivable{receivable}, []Payment{payment})

	if len(result.FullyPaid) != 1 {
		t.Fatalf("expected 1 fully paid, got %d", len(result.FullyPaid))
	}
	full := result.FullyPaid[0]
	if full.AmountDue != 50 || !full.Paid {
		t.Fatalf("fully paid receivable must be restored and marked paid, got %+v", full)
	}
	if result.Payments[0].AmountApplied != 50 {
		t.Fatalf("expected 30 left available, applied=%v", result.Payments[0].AmountApplied)
	}
	if len(result.Residual) != 0 || len(result.NotPaid) != 0 || len(result.PartiallyPaid) != 0 {
		t.Fatalf("unexpected extra buckets")
	}
}

func TestAllocateNewestReceivableFirst(t *testing.T) {
	now := time.Now().UTC()
	older := testReceivable(t, 30, now.Add(-time.Hour))
	newer := testReceivable(t, 30, now)
	payment := testPayment(t, 30)

	// Input order is oldest first; the engine must still pay the newer one.
	result := Allocate([]Receivable{older, newer}, []Payment{payment})

	if len(result.FullyPaid) != 1 || result.FullyPaid[0].ID != newer.ID {
		t.Fatalf("expected the most recently created receivable paid first")
	}
	if len(result.NotPaid) != 1 || result.NotPaid[0].ID != older.ID {
		t.Fatalf("expected the older receivable left unpaid")
	}
}

func TestAllocatePaymentPointerNeverRewinds(t *testing.T) {
	now := time.Now().UTC()
	first := testReceivable(t, 70, now)
	second := testReceivable(t, 40, now.Add(-time.Minute))
	payments := []Payment{testPayment(t, 50), testPayment(t, 100)}

	result := Allocate([]Receivable{first, second}, payments)

	if len(result.FullyPaid) != 2 {
		t.Fatalf("expected both receivables fully paid, got %d", len(result.FullyPaid))
	}
	if result.Payments[0].AmountApplied != 50 {
		t.Fatalf("first payment not exhausted: %v", result.Payments[0].AmountApplied)
	}
	if result.Payments[1].AmountApplied != 60 {
		t.Fatalf("second payment applied = %v, want 60", result.Payments[1].AmountApplied)
	}
}

func TestAllocateConservation(t *testing.T) {
	now := time.Now().UTC()
	receivables := []Receivable{
		testReceivable(t, 120.35, now),
		testReceivable(t, 75.10, now.Add(-time.Hour)),
		testReceivable(t, 33.33, now.Add(-2*time.Hour)),
	}
	payments := []Payment{testPayment(t, 90), testPayment(t, 60.25)}

	result := Allocate(receivables, payments)

	var consumed float64
	for _, p := range result.Payments {
		if p.AmountApplied > p.Amount {
			t.Fatalf("amount applied %v exceeds amount %v", p.AmountApplied, p.Amount)
		}
		consumed += p.AmountApplied
	}
	var reduction float64
	for _, r := range result.FullyPaid {
		reduction += r.AmountDue
	}
	for i, r := range result.PartiallyPaid {
		reduction += r.AmountDue - result.Residual[i].AmountDue
	}
	if diff := consumed - reduction; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("money not conserved: consumed %v, reduced %v", consumed, reduction)
	}
}

func TestAllocateDoesNotMutateInputs(t *testing.T) {
	receivable := testReceivable(t, 100, time.Now().UTC())
	payment := testPayment(t, 100)
	receivables := []Receivable{receivable}
	payments := []Payment{payment}

	Allocate(receivables, payments)

	if receivables[0].AmountDue != 100 || receivables[0].Paid {
		t.Fatalf("caller receivable was mutated: %+v", receivables[0])
	}
	if payments[0].AmountApplied != 0 {
		t.Fatalf("caller payment was mutated: %+v", payments[0])
	}
}

func TestAllocateAlreadyPaidReceivable(t *testing.T) {
	receivable := testReceivable(t, 0, time.Now().UTC())
	receivable.Paid = true

	result := Allocate([]Receivable{receivable}, []Payment{testPayment(t, 10)})

	if len(result.FullyPaid) != 1 {
		t.Fatalf("expected already-paid receivable in fully paid, got %+v", result)
	}
	if result.Payments[0].AmountApplied != 0 {
		t.Fatalf("no payment should be consumed for an already-paid receivable")
	}
}

func TestAllocateExhaustedPaymentsLeaveRest(t *testing.T) {
	now := time.Now().UTC()
	first := testReceivable(t, 40, now)
	second := testReceivable(t, 40, now.Add(-time.Minute))
	third := testReceivable(t, 40, now.Add(-2*time.Minute))
	payment := testPayment(t, 40)

	result := Allocate([]Receivable{first, second, third}, []Payment{payment})

	if len(result.FullyPaid) != 1 || result.FullyPaid[0].ID != first.ID {
		t.Fatalf("expected only the newest receivable paid")
	}
	if len(result.NotPaid) != 2 {
		t.Fatalf("expected two untouched receivables, got %d", len(result.NotPaid))
	}
	if len(result.Residual) != 0 {
		t.Fatalf("no residual expected when no payment was attempted")
	}
}
