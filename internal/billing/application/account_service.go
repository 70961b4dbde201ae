package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

// AccountStatement summarizes an account's open position.
type AccountStatement struct {
	Account     billing.Account      `json:"account"`
	Receivables []billing.Receivable `json:"receivables"`
	Payments    []billing.Payment    `json:"payments"`
	BalanceDue  float64              `json:"balance_due"`
	Available   float64              `json:"available"`
}

// AccountService manages billing accounts.
type AccountService struct {
	accounts    AccountStore
	receivables ReceivableStore
	payments    PaymentStore
	clock       Clock
	logger      *log.Logger
}

// NewAccountService constructs an account service.
func NewAccountService(accounts AccountStore, receivables ReceivableStore, payments PaymentStore, clock Clock, logger *log.Logger) (*AccountService, error) {
	if accounts == nil {
		return nil, errors.New("account service: nil account store")
	}
	if receivables == nil {
		return nil, errors.New("account service: nil receivable store")
	}
	if payments == nil {
		return nil, errors.New("account service: nil payment store")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AccountService{accounts: accounts, receivables: receivables, payments: payments, clock: clock, logger: logger}, nil
}

// CreateAccount opens a new billing account.
func (s *AccountService) CreateAccount(ctx context.Context, account billing.Account) (*billing.Account, error) {
	if account.TenantID == uuid.Nil {
		return nil, errors.New("account service: account holder required")
	}
	if account.BillPreference == "" {
		account.BillPreference = billing.BillPreferenceNone
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := s.clock.Now().UTC()
	account.InsertedAt = now
	account.UpdatedOn = now
	account.DeletedOn = time.Time{}
	if err := s.accounts.Insert(ctx, &account); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.logger.Printf("account created id=%s lot=%s", account.ID, account.LotID)
	return &account, nil
}

// UpdateAccount updates the mutable fields of an account.
func (s *AccountService) UpdateAccount(ctx context.Context, account billing.Account) (*billing.Account, error) {
	if account.ID == uuid.Nil {
		return nil, billing.ErrEmptyAccountID
	}
	existing, err := s.accounts.GetByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, billing.ErrAccountNotFound
	}
	if account.BillPreference == "" {
		account.BillPreference = existing.BillPreference
	}
	account.InsertedAt = existing.InsertedAt
	account.UpdatedOn = s.clock.Now().UTC()
	if err := s.accounts.Update(ctx, &account); err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return &account, nil
}

// CloseAccount soft-deletes an account out of future billing runs.
func (s *AccountService) CloseAccount(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return billing.ErrEmptyAccountID
	}
	return s.accounts.SoftDelete(ctx, id, s.clock.Now().UTC())
}

// GetAccount returns one account.
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*billing.Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, billing.ErrAccountNotFound
	}
	return account, nil
}

// ListAccounts returns all active accounts.
func (s *AccountService) ListAccounts(ctx context.Context) ([]billing.Account, error) {
	return s.accounts.ListActive(ctx)
}

// Statement returns the account's unpaid receivables, its payments, and the
// resulting balance.
func (s *AccountService) Statement(ctx context.Context, id uuid.UUID) (*AccountStatement, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	unpaid, err := s.receivables.ListUnpaid(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.ListByAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	statement := &AccountStatement{Account: *account, Receivables: unpaid, Payments: payments}
	for _, rec := range unpaid {
		statement.BalanceDue += rec.AmountDue
	}
	for _, payment := range payments {
		statement.Available += payment.Available()
	}
	statement.BalanceDue = billing.Round2(statement.BalanceDue)
	statement.Available = billing.Round2(statement.Available)
	return statement, nil
}
