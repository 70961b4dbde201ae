package billing

import (
	"time"

	"github.com/google/uuid"
)

// IssueRent computes rent charges for a statement period. Accounts without a
// lot produce no charge; a non-zero rent override beats the configured rate.
// Returns nil when there is nothing to bill.
func IssueRent(accounts []Account, cfg RateConfig, statementDate time.Time) []Receivable {
	if len(accounts) == 0 {
		return nil
	}
	var charges []Receivable
	for _, account := range accounts {
		amount := rentAmount(account, cfg)
		if amount == 0 {
			continue
		}
		charges = append(charges, newCharge(account.ID, amount, statementDate, ChargeRent))
	}
	return charges
}

// IssueStorage computes storage charges for a statement period. Accounts with
// a zero storage count produce no charge.
func IssueStorage(accounts []Account, cfg RateConfig, statementDate time.Time) []Receivable {
	if len(accounts) == 0 {
		return nil
	}
	var charges []Receivable
	for _, account := range accounts {
		amount := account.StorageCount * cfg.StorageMonthlyRate
		if amount == 0 {
			continue
		}
		charges = append(charges, newCharge(account.ID, amount, statementDate, ChargeStorage))
	}
	return charges
}

// IssueWater computes water charges from reading pairs for a statement period.
// A nil usage list yields nil, which callers treat as incomplete charge data
// rather than an empty billing cycle.
func IssueWater(usages []AccountUsage, cfg RateConfig, statementDate time.Time) []Receivable {
	if len(usages) == 0 {
		return nil
	}
	var charges []Receivable
	for _, pair := range usages {
		amount := pair.Usage.BillAmount(cfg.WaterMonthlyRate, cfg.WaterServiceFee)
		if amount == 0 {
			continue
		}
		charges = append(charges, newCharge(pair.AccountID, amount, statementDate, ChargeWater))
	}
	return charges
}

func rentAmount(account Account, cfg RateConfig) float64 {
	if account.LotID == "" {
		return 0
	}
	if account.RentOverride != 0 {
		return account.RentOverride
	}
	return cfg.RentMonthlyRate
}

// newCharge mints an issued receivable. Issued amounts are computed
// non-negative so constructor validation is not repeated here.
func newCharge(accountID uuid.UUID, amount float64, statementDate time.Time, kind ChargeKind) Receivable {
	return Receivable{
		ID:            uuid.New(),
		AccountID:     accountID,
		AmountDue:     amount,
		StatementDate: StatementPeriod(statementDate),
		Kind:          kind,
		InsertedAt:    time.Now().UTC(),
	}
}
