package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	billing "parkbill/internal/billing/domain"
)

// ReceivableStore is the persistence port for receivables.
type ReceivableStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*billing.Receivable, error)
	ListUnpaid(ctx context.Context, accountID uuid.UUID) ([]billing.Receivable, error)
	ListAllUnpaid(ctx context.Context) ([]billing.Receivable, error)
	ListByStatementDate(ctx context.Context, statementDate time.Time) ([]billing.Receivable, error)
	ListOverdueWithoutLateFee(ctx context.Context, accountID uuid.UUID, statementDate time.Time) ([]billing.Receivable, error)
	ListUnpaidAccountIDs(ctx context.Context) ([]uuid.UUID, error)
	Insert(ctx context.Context, rec *billing.Receivable) error
	InsertBatch(ctx context.Context, recs []billing.Receivable) error
	SaveAllocation(ctx context.Context, result *billing.AllocationResult) error
}

// PaymentStore is the persistence port for payments.
type PaymentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error)
	ListAvailable(ctx context.Context, accountID uuid.UUID, processingDate time.Time) ([]billing.Payment, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]billing.Payment, error)
	ListRecent(ctx context.Context, limit int) ([]billing.Payment, error)
	Insert(ctx context.Context, payment *billing.Payment) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AccountStore is the persistence port for billing accounts.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*billing.Account, error)
	ListActive(ctx context.Context) ([]billing.Account, error)
	Insert(ctx context.Context, account *billing.Account) error
	Update(ctx context.Context, account *billing.Account) error
	SoftDelete(ctx context.Context, id uuid.UUID, deletedOn time.Time) error
}

// RateConfigStore is the persistence port for rate configurations.
type RateConfigStore interface {
	Effective(ctx context.Context, statementDate time.Time) (*billing.RateConfig, error)
	Latest(ctx context.Context) (*billing.RateConfig, error)
	List(ctx context.Context) ([]billing.RateConfig, error)
	Insert(ctx context.Context, cfg *billing.RateConfig) error
}

// WaterUsageStore is the persistence port for meter readings.
type WaterUsageStore interface {
	ListForPeriod(ctx context.Context, statementDate time.Time) ([]billing.AccountUsage, error)
	Insert(ctx context.Context, usage *billing.WaterUsage) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
