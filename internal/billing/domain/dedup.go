package billing

// FilterNew drops candidates that duplicate an outstanding charge on
// (account, kind, statement date). OTHER charges are one-offs and are never
// deduplicated. This guards a monthly charge job against re-issuing charges
// already persisted for the same period; the input slices are not modified.
func FilterNew(candidates, outstanding []Receivable) []Receivable {
	if len(candidates) == 0 || len(outstanding) == 0 {
		return candidates
	}
	kept := make([]Receivable, 0, len(candidates))
	for _, candidate := range candidates {
		if !isDuplicate(candidate, outstanding) {
			kept = append(kept, candidate)
		}
	}
	return kept
}

func isDuplicate(candidate Receivable, outstanding []Receivable) bool {
	if candidate.Kind == ChargeOther {
		return false
	}
	for _, existing := range outstanding {
		if candidate.AccountID == existing.AccountID &&
			candidate.Kind == existing.Kind &&
			candidate.StatementDate.Equal(existing.StatementDate) {
			return true
		}
	}
	return false
}
