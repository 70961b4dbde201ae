package billing

import (
	"time"

	"github.com/google/uuid"
)

// ChargeKind classifies a receivable.
type ChargeKind string

const (
	ChargeRent    ChargeKind = "RENT"
	ChargeStorage ChargeKind = "STORAGE"
	ChargeWater   ChargeKind = "WATER"
	ChargeLateFee ChargeKind = "LATEFEE"
	ChargeOther   ChargeKind = "OTHER"
)

// NormalizeChargeKind validates a charge kind string.
func NormalizeChargeKind(value string) (ChargeKind, bool) {
	switch ChargeKind(value) {
	case ChargeRent, ChargeStorage, ChargeWater, ChargeLateFee, ChargeOther:
		return ChargeKind(value), true
	default:
		return "", false
	}
}

// Detail keys recorded in a receivable's provenance bag.
const (
	DetailResidualOrigin = "residual carried over from"
	DetailOriginalItem   = "original_item_id"
	DetailNote           = "note"
)

// Receivable is a single charge owed by an account.
type Receivable struct {
	ID            uuid.UUID         `json:"id"`
	AccountID     uuid.UUID         `json:"account_id"`
	AmountDue     float64           `json:"amount_due"`
	StatementDate time.Time         `json:"statement_date"`
	Kind          ChargeKind        `json:"charge_type"`
	Paid          bool              `json:"paid"`
	Details       map[string]string `json:"details,omitempty"`
	InsertedAt    time.Time         `json:"inserted_at"`
}

// NewReceivable constructs a receivable and enforces the amount invariant:
// only OTHER charges may carry a negative amount (credits/adjustments).
func NewReceivable(accountID uuid.UUID, amountDue float64, statementDate time.Time, kind ChargeKind) (Receivable, error) {
	if accountID == uuid.Nil {
		return Receivable{}, ErrEmptyAccountID
	}
	if _, ok := NormalizeChargeKind(string(kind)); !ok {
		return Receivable{}, ErrInvalidChargeKind
	}
	if amountDue < 0 && kind != ChargeOther {
		return Receivable{}, ErrNegativeAmount
	}
	if statementDate.IsZero() {
		return Receivable{}, ErrInvalidStatementDate
	}
	return Receivable{
		ID:            uuid.New(),
		AccountID:     accountID,
		AmountDue:     amountDue,
		StatementDate: StatementPeriod(statementDate),
		Kind:          kind,
		InsertedAt:    time.Now().UTC(),
	}, nil
}

// clone returns a detached copy with its own details map.
func (r Receivable) clone() Receivable {
	copied := r
	if r.Details != nil {
		copied.Details = make(map[string]string, len(r.Details))
		for k, v := range r.Details {
			copied.Details[k] = v
		}
	}
	return copied
}
