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

const (
	chargeRunPreview = "preview"
	chargeRunPost    = "post"
)

// ChargeRun is the outcome of a monthly charge run.
type ChargeRun struct {
	StatementDate time.Time            `json:"statement_date"`
	Charges       []billing.Receivable `json:"charges"`
	LateFees      []billing.Receivable `json:"late_fees"`
	Persisted     bool                 `json:"persisted"`
}

// ChargeService issues the recurring monthly charges and late fees.
type ChargeService struct {
	receivables ReceivableStore
	payments    PaymentStore
	accounts    AccountStore
	rates       RateConfigStore
	usages      WaterUsageStore
	clock       Clock
	logger      *log.Logger
}

// NewChargeService constructs the service.
func NewChargeService(
	receivables ReceivableStore,
	payments PaymentStore,
	accounts AccountStore,
	rates RateConfigStore,
	usages WaterUsageStore,
	clock Clock,
	logger *log.Logger,
) (*ChargeService, error) {
	if receivables == nil {
		return nil, errors.New("charge service: nil receivable store")
	}
	if payments == nil {
		return nil, errors.New("charge service: nil payment store")
	}
	if accounts == nil {
		return nil, errors.New("charge service: nil account store")
	}
	if rates == nil {
		return nil, errors.New("charge service: nil rate config store")
	}
	if usages == nil {
		return nil, errors.New("charge service: nil water usage store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &ChargeService{
		receivables: receivables,
		payments:    payments,
		accounts:    accounts,
		rates:       rates,
		usages:      usages,
		clock:       clock,
		logger:      logger,
	}, nil
}

// PreviewMonthlyCharges computes the charge run for a cycle without storing
// anything.
func (s *ChargeService) PreviewMonthlyCharges(ctx context.Context, statementDate time.Time) (*ChargeRun, error) {
	return s.runMonthlyCharges(ctx, statementDate, false)
}

// PostMonthlyCharges computes and persists the charge run for a cycle. All
// new receivables are stored in one transaction; a rerun for the same cycle
// only issues charges the first run missed.
func (s *ChargeService) PostMonthlyCharges(ctx context.Context, statementDate time.Time) (*ChargeRun, error) {
	return s.runMonthlyCharges(ctx, statementDate, true)
}

func (s *ChargeService) runMonthlyCharges(ctx context.Context, statementDate time.Time, write bool) (*ChargeRun, error) {
	mode := chargeRunPreview
	if write {
		mode = chargeRunPost
	}
	start := s.clock.Now()
	run, err := s.chargeRun(ctx, statementDate, write)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveChargeRun(mode, result, s.clock.Now().Sub(start))
	return run, err
}

func (s *ChargeService) chargeRun(ctx context.Context, statementDate time.Time, write bool) (*ChargeRun, error) {
	if statementDate.IsZero() {
		return nil, billing.ErrInvalidStatementDate
	}
	period := billing.StatementPeriod(statementDate)
	processingDate := s.clock.Now().UTC()

	cfg, err := s.effectiveConfig(ctx, period, write)
	if err != nil {
		return nil, err
	}

	accounts, err := s.accounts.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	charges := billing.IssueRent(accounts, *cfg, period)
	charges = append(charges, billing.IssueStorage(accounts, *cfg, period)...)

	if len(accounts) > 0 {
		usages, err := s.usages.ListForPeriod(ctx, period)
		if err != nil {
			return nil, err
		}
		water := billing.IssueWater(usages, *cfg, period)
		if water == nil && anyMetered(accounts) {
			return nil, billing.ErrIncompleteChargeData
		}
		charges = append(charges, water...)
	}

	fees, err := s.incurLateFees(ctx, accounts, *cfg, period, processingDate)
	if err != nil {
		return nil, err
	}

	existing, err := s.receivables.ListByStatementDate(ctx, period)
	if err != nil {
		return nil, err
	}
	charges = billing.FilterNew(charges, existing)
	fees = billing.FilterNew(fees, existing)

	run := &ChargeRun{StatementDate: period, Charges: charges, LateFees: fees}
	if !write {
		return run, nil
	}

	batch := append(append([]billing.Receivable{}, charges...), fees...)
	if err := s.receivables.InsertBatch(ctx, batch); err != nil {
		return nil, err
	}
	run.Persisted = true
	for _, kind := range []billing.ChargeKind{billing.ChargeRent, billing.ChargeStorage, billing.ChargeWater} {
		metrics.AddChargesIssued(string(kind), countKind(charges, kind))
	}
	metrics.AddLateFeesIssued(len(fees))
	if s.logger != nil {
		s.logger.Printf("monthly charges posted cycle=%s charges=%d late_fees=%d",
			period.Format("2006-01-02"), len(charges), len(fees))
	}
	return run, nil
}

// incurLateFees computes fees per account over the items still owing from
// earlier cycles. Payments received inside the current grace period count
// toward settling the overdue amount before a fee is assessed.
func (s *ChargeService) incurLateFees(ctx context.Context, accounts []billing.Account, cfg billing.RateConfig, period, processingDate time.Time) ([]billing.Receivable, error) {
	graceEnd := period.AddDate(0, 0, cfg.OverdueCutoffDays-1)

	var fees []billing.Receivable
	for _, account := range accounts {
		overdue, err := s.receivables.ListOverdueWithoutLateFee(ctx, account.ID, period)
		if err != nil {
			return nil, err
		}
		if len(overdue) == 0 {
			continue
		}
		payments, err := s.payments.ListAvailable(ctx, account.ID, graceEnd)
		if err != nil {
			return nil, err
		}
		fees = append(fees, billing.IncurLateFees(overdue, cfg, period, processingDate, payments)...)
	}
	return fees, nil
}

// IssueCharge stores a one-off receivable, typically an OTHER adjustment.
func (s *ChargeService) IssueCharge(ctx context.Context, accountID uuid.UUID, amount float64, statementDate time.Time, kind billing.ChargeKind, note string) (*billing.Receivable, error) {
	rec, err := billing.NewReceivable(accountID, amount, statementDate, kind)
	if err != nil {
		return nil, err
	}
	if note != "" {
		rec.Details = map[string]string{billing.DetailNote: note}
	}
	if err := s.receivables.Insert(ctx, &rec); err != nil {
		return nil, err
	}
	metrics.AddChargesIssued(string(kind), 1)
	return &rec, nil
}

// GetReceivable returns a single receivable.
func (s *ChargeService) GetReceivable(ctx context.Context, id uuid.UUID) (*billing.Receivable, error) {
	rec, err := s.receivables.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, billing.ErrReceivableNotFound
	}
	return rec, nil
}

// ReceivablesForPeriod returns the receivables of a statement cycle, optionally
// filtered by kind.
func (s *ChargeService) ReceivablesForPeriod(ctx context.Context, statementDate time.Time, kind billing.ChargeKind) ([]billing.Receivable, error) {
	period := billing.StatementPeriod(statementDate)
	recs, err := s.receivables.ListByStatementDate(ctx, period)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return recs, nil
	}
	var filtered []billing.Receivable
	for _, rec := range recs {
		if rec.Kind == kind {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

// UnpaidReceivables returns open receivables, for one account or for all.
func (s *ChargeService) UnpaidReceivables(ctx context.Context, accountID uuid.UUID) ([]billing.Receivable, error) {
	if accountID == uuid.Nil {
		return s.receivables.ListAllUnpaid(ctx)
	}
	return s.receivables.ListUnpaid(ctx, accountID)
}

// RecordWaterUsage stores a meter reading pair for a cycle.
func (s *ChargeService) RecordWaterUsage(ctx context.Context, meterID int64, previousReading, currentReading int64, previousDate, currentDate, statementDate time.Time) (*billing.WaterUsage, error) {
	usage, err := billing.NewWaterUsage(meterID, previousReading, currentReading, previousDate, currentDate, statementDate)
	if err != nil {
		return nil, err
	}
	if err := s.usages.Insert(ctx, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// CurrentRates returns the latest rate configuration, falling back to the
// defaults when none has been stored yet.
func (s *ChargeService) CurrentRates(ctx context.Context) (*billing.RateConfig, error) {
	cfg, err := s.rates.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		fallback := billing.DefaultRateConfig()
		return &fallback, nil
	}
	return cfg, nil
}

// ListRates returns all stored rate configurations, newest first.
func (s *ChargeService) ListRates(ctx context.Context) ([]billing.RateConfig, error) {
	return s.rates.List(ctx)
}

// CreateRateConfig stores an explicit rate configuration.
func (s *ChargeService) CreateRateConfig(ctx context.Context, cfg billing.RateConfig) (*billing.RateConfig, error) {
	if cfg.EffectiveAsOf.IsZero() {
		return nil, billing.ErrInvalidStatementDate
	}
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	cfg.InsertedAt = s.clock.Now().UTC()
	if cfg.OverdueCutoffDays <= 0 {
		cfg.OverdueCutoffDays = billing.DefaultRateConfig().OverdueCutoffDays
	}
	if err := s.rates.Insert(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// RaiseRates derives and stores a new configuration with rent and storage
// raised by a percentage, effective from the given date.
func (s *ChargeService) RaiseRates(ctx context.Context, percentage float64, effectiveAsOf time.Time) (*billing.RateConfig, error) {
	current, err := s.CurrentRates(ctx)
	if err != nil {
		return nil, err
	}
	if effectiveAsOf.IsZero() {
		effectiveAsOf = s.clock.Now().UTC()
	}
	derived := current.IncreaseRates(percentage, effectiveAsOf)
	if err := s.rates.Insert(ctx, &derived); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Printf("rates raised by %.2f%% effective %s", percentage, effectiveAsOf.Format("2006-01-02"))
	}
	return &derived, nil
}

// effectiveConfig loads the config for a cycle, seeding the defaults on
// first use so a fresh database can run a charge cycle.
func (s *ChargeService) effectiveConfig(ctx context.Context, period time.Time, write bool) (*billing.RateConfig, error) {
	cfg, err := s.rates.Effective(ctx, period)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}
	fallback := billing.DefaultRateConfig()
	fallback.EffectiveAsOf = period
	if write {
		if err := s.rates.Insert(ctx, &fallback); err != nil {
			return nil, err
		}
	}
	return &fallback, nil
}

func anyMetered(accounts []billing.Account) bool {
	for _, account := range accounts {
		if account.LotID != "" {
			return true
		}
	}
	return false
}

func countKind(recs []billing.Receivable, kind billing.ChargeKind) int {
	count := 0
	for _, rec := range recs {
		if rec.Kind == kind {
			count++
		}
	}
	return count
}
