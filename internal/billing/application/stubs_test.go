package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

type stubReceivableStore struct {
	receivables []billing.Receivable
	saved       []billing.AllocationResult
	inserted    []billing.Receivable
}

func (s *stubReceivableStore) GetByID(_ context.Context, id uuid.UUID) (*billing.Receivable, error) {
	for i := range s.receivables {
		if s.receivables[i].ID == id {
			rec := s.receivables[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *stubReceivableStore) ListUnpaid(_ context.Context, accountID uuid.UUID) ([]billing.Receivable, error) {
	var open []billing.Receivable
	for _, rec := range s.receivables {
		if rec.AccountID == accountID && !rec.Paid {
			open = append(open, rec)
		}
	}
	return open, nil
}

func (s *stubReceivableStore) ListAllUnpaid(_ context.Context) ([]billing.Receivable, error) {
	var open []billing.Receivable
	for _, rec := range s.receivables {
		if !rec.Paid {
			open = append(open, rec)
		}
	}
	return open, nil
}

func (s *stubReceivableStore) ListByStatementDate(_ context.Context, statementDate time.Time) ([]billing.Receivable, error) {
	var cycle []billing.Receivable
	for _, rec := range s.receivables {
		if rec.StatementDate.Equal(statementDate) {
			cycle = append(cycle, rec)
		}
	}
	return cycle, nil
}

func (s *stubReceivableStore) ListOverdueWithoutLateFee(_ context.Context, accountID uuid.UUID, statementDate time.Time) ([]billing.Receivable, error) {
	feeFor := make(map[string]bool)
	for _, rec := range s.receivables {
		if rec.Kind == billing.ChargeLateFee {
			feeFor[rec.Details[billing.DetailOriginalItem]] = true
		}
	}
	var overdue []billing.Receivable
	for _, rec := range s.receivables {
		if rec.AccountID != accountID || rec.Paid || rec.Kind == billing.ChargeLateFee {
			continue
		}
		if !rec.StatementDate.Before(statementDate) {
			continue
		}
		if feeFor[rec.ID.String()] {
			continue
		}
		overdue = append(overdue, rec)
	}
	return overdue, nil
}

func (s *stubReceivableStore) ListUnpaidAccountIDs(_ context.Context) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, rec := range s.receivables {
		if !rec.Paid && !seen[rec.AccountID] {
			seen[rec.AccountID] = true
			ids = append(ids, rec.AccountID)
		}
	}
	return ids, nil
}

func (s *stubReceivableStore) Insert(_ context.Context, rec *billing.Receivable) error {
	s.receivables = append(s.receivables, *rec)
	s.inserted = append(s.inserted, *rec)
	return nil
}

func (s *stubReceivableStore) InsertBatch(_ context.Context, recs []billing.Receivable) error {
	s.receivables = append(s.receivables, recs...)
	s.inserted = append(s.inserted, recs...)
	return nil
}

func (s *stubReceivableStore) SaveAllocation(_ context.Context, result *billing.AllocationResult) error {
	s.saved = append(s.saved, *result)
	return nil
}

type stubPaymentStore struct {
	payments []billing.Payment
	deleted  []uuid.UUID
}

func (s *stubPaymentStore) GetByID(_ context.Context, id uuid.UUID) (*billing.Payment, error) {
	for i := range s.payments {
		if s.payments[i].ID == id {
			payment := s.payments[i]
			return &payment, nil
		}
	}
	return nil, nil
}

func (s *stubPaymentStore) ListAvailable(_ context.Context, accountID uuid.UUID, processingDate time.Time) ([]billing.Payment, error) {
	var available []billing.Payment
	for _, payment := range s.payments {
		if payment.AccountID != accountID || payment.Available() <= 0 {
			continue
		}
		if payment.PaymentReceived.After(processingDate) {
			continue
		}
		available = append(available, payment)
	}
	return available, nil
}

func (s *stubPaymentStore) ListByAccount(_ context.Context, accountID uuid.UUID) ([]billing.Payment, error) {
	var result []billing.Payment
	for _, payment := range s.payments {
		if payment.AccountID == accountID {
			result = append(result, payment)
		}
	}
	return result, nil
}

func (s *stubPaymentStore) ListRecent(_ context.Context, limit int) ([]billing.Payment, error) {
	if limit <= 0 || limit > len(s.payments) {
		limit = len(s.payments)
	}
	recent := make([]billing.Payment, limit)
	copy(recent, s.payments[len(s.payments)-limit:])
	return recent, nil
}

func (s *stubPaymentStore) Insert(_ context.Context, payment *billing.Payment) error {
	s.payments = append(s.payments, *payment)
	return nil
}

func (s *stubPaymentStore) Delete(_ context.Context, id uuid.UUID) error {
	for i := range s.payments {
		if s.payments[i].ID == id {
			s.payments = append(s.payments[:i], s.payments[i+1:]...)
			s.deleted = append(s.deleted, id)
			return nil
		}
	}
	return billing.ErrPaymentNotFound
}

type stubAccountStore struct {
	accounts []billing.Account
}

func (s *stubAccountStore) GetByID(_ context.Context, id uuid.UUID) (*billing.Account, error) {
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			account := s.accounts[i]
			return &account, nil
		}
	}
	return nil, nil
}

func (s *stubAccountStore) ListActive(_ context.Context) ([]billing.Account, error) {
	var active []billing.Account
	for _, account := range s.accounts {
		if account.Active() {
			active = append(active, account)
		}
	}
	return active, nil
}

func (s *stubAccountStore) Insert(_ context.Context, account *billing.Account) error {
	s.accounts = append(s.accounts, *account)
	return nil
}

func (s *stubAccountStore) Update(_ context.Context, account *billing.Account) error {
	for i := range s.accounts {
		if s.accounts[i].ID == account.ID {
			s.accounts[i] = *account
			return nil
		}
	}
	return billing.ErrAccountNotFound
}

func (s *stubAccountStore) SoftDelete(_ context.Context, id uuid.UUID, deletedOn time.Time) error {
	for i := range s.accounts {
		if s.accounts[i].ID == id && s.accounts[i].DeletedOn.IsZero() {
			s.accounts[i].DeletedOn = deletedOn
			return nil
		}
	}
	return billing.ErrAccountNotFound
}

type stubRateConfigStore struct {
	configs []billing.RateConfig
}

func (s *stubRateConfigStore) Effective(_ context.Context, statementDate time.Time) (*billing.RateConfig, error) {
	var best *billing.RateConfig
	for i := range s.configs {
		cfg := s.configs[i]
		if cfg.EffectiveAsOf.After(statementDate) {
			continue
		}
		if best == nil || cfg.EffectiveAsOf.After(best.EffectiveAsOf) {
			best = &s.configs[i]
		}
	}
	if best == nil {
		return nil, nil
	}
	cfg := *best
	return &cfg, nil
}

func (s *stubRateConfigStore) Latest(_ context.Context) (*billing.RateConfig, error) {
	if len(s.configs) == 0 {
		return nil, nil
	}
	cfg := s.configs[len(s.configs)-1]
	return &cfg, nil
}

func (s *stubRateConfigStore) List(_ context.Context) ([]billing.RateConfig, error) {
	configs := make([]billing.RateConfig, len(s.configs))
	copy(configs, s.configs)
	return configs, nil
}

func (s *stubRateConfigStore) Insert(_ context.Context, cfg *billing.RateConfig) error {
	s.configs = append(s.configs, *cfg)
	return nil
}

type stubWaterUsageStore struct {
	usages []billing.AccountUsage
}

func (s *stubWaterUsageStore) ListForPeriod(_ context.Context, statementDate time.Time) ([]billing.AccountUsage, error) {
	var cycle []billing.AccountUsage
	for _, pair := range s.usages {
		if pair.Usage.StatementDate.Equal(statementDate) {
			cycle = append(cycle, pair)
		}
	}
	return cycle, nil
}

func (s *stubWaterUsageStore) Insert(_ context.Context, usage *billing.WaterUsage) error {
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
