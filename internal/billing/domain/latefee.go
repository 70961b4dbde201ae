package billing

import (
	"time"

	"github.com/google/uuid"
)

// IncurLateFees mints LATEFEE charges for overdue receivables that remain
// owing after the given payments are allocated against them. An item is fee
// eligible when its statement date plus the configured grace period falls on
// or before the processing date; a zero processing date waives the grace
// check. Fees are dated to the given statement period and reference the
// overdue item they were computed from.
func IncurLateFees(overdueItems []Receivable, cfg RateConfig, statementDate time.Time, processingDate time.Time, payments []Payment) []Receivable {
	result := Allocate(overdueItems, payments)

	var fees []Receivable
	for _, overdue := range result.StillOverdue() {
		if !processingDate.IsZero() {
			cutoff := overdue.StatementDate.AddDate(0, 0, cfg.OverdueCutoffDays)
			if cutoff.After(processingDate) {
				continue
			}
		}
		fees = append(fees, Receivable{
			ID:            uuid.New(),
			AccountID:     overdue.AccountID,
			AmountDue:     Round2(overdue.AmountDue * cfg.LateFeeRate),
			StatementDate: StatementPeriod(statementDate),
			Kind:          ChargeLateFee,
			Details:       map[string]string{DetailOriginalItem: overdue.ID.String()},
			InsertedAt:    time.Now().UTC(),
		})
	}
	return fees
}
