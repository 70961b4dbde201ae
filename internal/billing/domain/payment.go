package billing

import (
	"time"

	"github.com/google/uuid"
)

// Payment is money received for an account. Amount is fixed at creation;
// AmountApplied grows as the allocation engine consumes the payment.
// A payment is available while Amount > AmountApplied.
type Payment struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"beneficiary_account_id"`
	Amount          float64   `json:"amount"`
	AmountApplied   float64   `json:"amount_applied"`
	PaymentDated    time.Time `json:"payment_dated"`
	PaymentReceived time.Time `json:"payment_received"`
	Payer           string    `json:"payer,omitempty"`
	InsertedAt      time.Time `json:"inserted_at"`
	ModifiedAt      time.Time `json:"modified_at"`
}

// NewPayment constructs a payment with nothing applied yet.
func NewPayment(accountID uuid.UUID, amount float64, dated, received time.Time, payer string) (Payment, error) {
	if accountID == uuid.Nil {
		return Payment{}, ErrEmptyAccountID
	}
	if amount <= 0 {
		return Payment{}, ErrNonPositivePayment
	}
	now := time.Now().UTC()
	if dated.IsZero() {
		dated = now
	}
	if received.IsZero() {
		received = now
	}
	return Payment{
		ID:              uuid.New(),
		AccountID:       accountID,
		Amount:          amount,
		PaymentDated:    dated,
		PaymentReceived: received,
		Payer:           payer,
		InsertedAt:      now,
		ModifiedAt:      now,
	}, nil
}

// Available reports the unapplied remainder of the payment.
func (p Payment) Available() float64 {
	return p.Amount - p.AmountApplied
}
