package billing

import (
	"sort"

	"github.com/google/uuid"
)

// AllocationResult buckets the outcome of one allocation run. All records are
// detached copies; the caller's input slices are never mutated. Payments holds
// the post-application payment copies so callers can persist AmountApplied.
type AllocationResult struct {
	Residual      []Receivable
	NotPaid       []Receivable
	PartiallyPaid []Receivable
	FullyPaid     []Receivable
	Payments      []Payment
}

// Allocate applies payments to receivables in a deterministic order.
//
// Receivables are processed most-recently-created first. Payments are consumed
// strictly in the order given, with a single pointer that advances only when a
// payment is exhausted; callers supply payments in their preferred consumption
// order (typically oldest received first) and must not rely on re-sorting.
//
// A receivable that a payment only partially covers is recorded as paid at its
// original amount, and the leftover is minted as a new residual receivable
// carrying a provenance detail and the original's creation timestamp. A
// receivable reached after all payments are exhausted is returned unchanged in
// NotPaid.
func Allocate(receivables []Receivable, payments []Payment) AllocationResult {
	items := make([]Receivable, 0, len(receivables))
	for _, r := range receivables {
		items = append(items, r.clone())
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].InsertedAt.After(items[j].InsertedAt)
	})

	var result AllocationResult
	originalAmounts := make(map[uuid.UUID]float64, len(items))
	for _, r := range items {
		originalAmounts[r.ID] = r.AmountDue
	}

	if len(payments) == 0 {
		result.NotPaid = items
		return result
	}

	applied := make([]Payment, len(payments))
	copy(applied, payments)
	result.Payments = applied

	paymentIndex := 0
	for i := range items {
		receivable := &items[i]
		triedProcessing := false

		for paymentIndex < len(applied) && receivable.AmountDue > 0 {
			payment := &applied[paymentIndex]
			available := payment.Amount - payment.AmountApplied

			if available > 0 {
				triedProcessing = true
				if available >= receivable.AmountDue {
					payment.AmountApplied += receivable.AmountDue
					receivable.Paid = true
					receivable.AmountDue = 0
				} else {
					receivable.AmountDue -= available
					payment.AmountApplied += available
				}
			}

			if payment.AmountApplied >= payment.Amount {
				paymentIndex++
			}
		}

		switch {
		case receivable.AmountDue > 0 && triedProcessing:
			// Partially covered: split the leftover into a residual and record
			// the original as consumed at its full amount.
			result.Residual = append(result.Residual, Receivable{
				ID:            uuid.New(),
				AccountID:     receivable.AccountID,
				AmountDue:     Round2(receivable.AmountDue),
				StatementDate: receivable.StatementDate,
				Kind:          receivable.Kind,
				Details:       map[string]string{DetailResidualOrigin: receivable.ID.String()},
				InsertedAt:    receivable.InsertedAt,
			})
			receivable.AmountDue = originalAmounts[receivable.ID]
			receivable.Paid = true
			result.PartiallyPaid = append(result.PartiallyPaid, *receivable)
		case receivable.AmountDue > 0:
			result.NotPaid = append(result.NotPaid, *receivable)
		case receivable.AmountDue == 0 && receivable.Paid:
			receivable.AmountDue = originalAmounts[receivable.ID]
			result.FullyPaid = append(result.FullyPaid, *receivable)
		}
	}

	return result
}

// StillOverdue combines the buckets that remain owing after an allocation run.
func (r AllocationResult) StillOverdue() []Receivable {
	combined := make([]Receivable, 0, len(r.NotPaid)+len(r.Residual))
	combined = append(combined, r.NotPaid...)
	combined = append(combined, r.Residual...)
	return combined
}
