package billing

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testRateConfig() RateConfig {
	return RateConfig{
		ID:                 uuid.New(),
		RentMonthlyRate:    475,
		StorageMonthlyRate: 84,
		WaterMonthlyRate:   0.011784,
		WaterServiceFee:    1.5,
		LateFeeRate:        0.05,
		OverdueCutoffDays:  10,
		EffectiveAsOf:      testPeriod,
	}
}

func TestIssueRentUsesConfiguredRate(t *testing.T) {
	accounts := []Account{{ID: uuid.New(), LotID: "AP12"}}

	charges := IssueRent(accounts, testRateConfig(), testPeriod)

	if len(charges) != 1 {
		t.Fatalf("expected 1 rent charge, got %d", len(charges))
	}
	charge := charges[0]
	if charge.AmountDue != 475 || charge.Kind != ChargeRent {
		t.Fatalf("unexpected charge: %+v", charge)
	}
	if charge.Paid {
		t.Fatalf("issued charge must start unpaid")
	}
	if !charge.StatementDate.Equal(testPeriod) {
		t.Fatalf("statement date = %v, want %v", charge.StatementDate, testPeriod)
	}
}

func TestIssueRentHonorsOverride(t *testing.T) {
	accounts := []Account{{ID: uuid.New(), LotID: "AP7", RentOverride: 390}}

	charges := IssueRent(accounts, testRateConfig(), testPeriod)

	if len(charges) != 1 || charges[0].AmountDue != 390 {
		t.Fatalf("expected override amount 390, got %+v", charges)
	}
}

func TestIssueRentSkipsUnassignedAccounts(t *testing.T) {
	accounts := []Account{
		{ID: uuid.New()},
		{ID: uuid.New(), RentOverride: 500},
	}

	if charges := IssueRent(accounts, testRateConfig(), testPeriod); len(charges) != 0 {
		t.Fatalf("accounts without lots must not be charged rent, got %+v", charges)
	}
}

func TestIssueStorage(t *testing.T) {
	accounts := []Account{
		{ID: uuid.New(), LotID: "AP1", StorageCount: 2},
		{ID: uuid.New(), LotID: "AP2"},
	}

	charges := IssueStorage(accounts, testRateConfig(), testPeriod)

	if len(charges) != 1 {
		t.Fatalf("zero storage count must produce no charge, got %d", len(charges))
	}
	if charges[0].AmountDue != 168 || charges[0].Kind != ChargeStorage {
		t.Fatalf("unexpected storage charge: %+v", charges[0])
	}
}

func TestIssueWater(t *testing.T) {
	usage, err := NewWaterUsage(31, 1000, 2000, testPeriod.AddDate(0, -1, 0), testPeriod, testPeriod)
	if err != nil {
		t.Fatalf("new water usage: %v", err)
	}
	accountID := uuid.New()

	charges := IssueWater([]AccountUsage{{AccountID: accountID, Usage: usage}}, testRateConfig(), testPeriod)

	if len(charges) != 1 {
		t.Fatalf("expected 1 water charge, got %d", len(charges))
	}
	charge := charges[0]
	// 1000 units * 0.011784 + 1.50 service fee, rounded to cents.
	if charge.AmountDue != 13.28 {
		t.Fatalf("water amount = %v, want 13.28", charge.AmountDue)
	}
	if charge.AccountID != accountID || charge.Kind != ChargeWater {
		t.Fatalf("unexpected water charge: %+v", charge)
	}
}

func TestIssueWaterNilUsages(t *testing.T) {
	if charges := IssueWater(nil, testRateConfig(), testPeriod); charges != nil {
		t.Fatalf("nil usages must yield nil, got %+v", charges)
	}
}

func TestNewWaterUsageRejectsRegression(t *testing.T) {
	if _, err := NewWaterUsage(31, 2000, 1500, testPeriod, testPeriod, testPeriod); err != ErrMeterRegression {
		t.Fatalf("expected ErrMeterRegression, got %v", err)
	}
}

func TestNewReceivableValidation(t *testing.T) {
	if _, err := NewReceivable(uuid.New(), -10, testPeriod, ChargeRent); err != ErrNegativeAmount {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if _, err := NewReceivable(uuid.New(), -10, testPeriod, ChargeOther); err != nil {
		t.Fatalf("OTHER charges may be negative, got %v", err)
	}
	if _, err := NewReceivable(uuid.Nil, 10, testPeriod, ChargeRent); err != ErrEmptyAccountID {
		t.Fatalf("expected ErrEmptyAccountID, got %v", err)
	}
}

func TestNewReceivableNormalizesPeriod(t *testing.T) {
	midMonth := time.Date(2026, time.March, 17, 10, 30, 0, 0, time.UTC)
	r, err := NewReceivable(uuid.New(), 5, midMonth, ChargeOther)
	if err != nil {
		t.Fatalf("new receivable: %v", err)
	}
	if !r.StatementDate.Equal(testPeriod) {
		t.Fatalf("statement date = %v, want first of month", r.StatementDate)
	}
}
