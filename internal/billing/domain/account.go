package billing

import (
	"time"

	"github.com/google/uuid"
)

// BillPreference controls invoice delivery for an account.
type BillPreference string

const (
	BillPreferenceNone    BillPreference = "NO_PREFERENCE"
	BillPreferenceNoPaper BillPreference = "NO_PAPER"
	BillPreferenceNoEmail BillPreference = "NO_EMAIL"
)

// Account is a billing account, usually tied to a lot. An account without a
// lot is charged no rent. A zero RentOverride means the configured rate
// applies. DeletedOn soft-deletes the account out of billing runs.
type Account struct {
	ID             uuid.UUID      `json:"id"`
	LotID          string         `json:"lot_id,omitempty"`
	TenantID       uuid.UUID      `json:"account_holder,omitempty"`
	BillPreference BillPreference `json:"bill_preference"`
	RentOverride   float64        `json:"rental_rate_override,omitempty"`
	StorageCount   float64        `json:"storage_count"`
	InsertedAt     time.Time      `json:"inserted_at"`
	UpdatedOn      time.Time      `json:"updated_on"`
	DeletedOn      time.Time      `json:"deleted_on,omitempty"`
}

// Active reports whether the account participates in billing.
func (a Account) Active() bool {
	return a.DeletedOn.IsZero()
}
