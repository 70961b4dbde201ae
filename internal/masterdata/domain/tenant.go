package masterdata

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Tenant is a person who can hold a billing account.
type Tenant struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	AccountID  uuid.UUID
	InsertedAt time.Time
}

// Validate checks tenant invariants.
func (t Tenant) Validate() error {
	if t.FirstName == "" {
		return errors.New("tenant: empty first name")
	}
	if t.LastName == "" {
		return errors.New("tenant: empty last name")
	}
	return nil
}

// FullName returns the tenant's display name.
func (t Tenant) FullName() string {
	return t.FirstName + " " + t.LastName
}

// Assigned reports whether the tenant holds an account.
func (t Tenant) Assigned() bool {
	return t.AccountID != uuid.Nil
}
