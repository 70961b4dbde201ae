package masterdata

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Lot represents a rentable lot on the property. The lot id is the property
// code followed by the lot number, e.g. "AP12".
type Lot struct {
	ID            string
	PropertyCode  string
	StreetAddress string
	CityStateZip  string
	MeterID       int64
	InsertedAt    time.Time
}

// Validate checks lot invariants.
func (l Lot) Validate() error {
	if l.ID == "" {
		return errors.New("lot: empty id")
	}
	if l.PropertyCode == "" {
		return errors.New("lot: empty property code")
	}
	number := strings.TrimPrefix(l.ID, l.PropertyCode)
	if _, err := strconv.Atoi(number); err != nil {
		return errors.New("lot: id must be property code followed by a number")
	}
	return nil
}

// StreetLine returns the lot number joined with the street address.
func (l Lot) StreetLine() string {
	return l.ID + " " + l.StreetAddress
}

// FullAddress returns the complete mailing address for the lot.
func (l Lot) FullAddress() string {
	return l.StreetLine() + ", " + l.CityStateZip
}

// LotRepository manages lot persistence.
type LotRepository interface {
	Get(ctx context.Context, id string) (*Lot, error)
	ListAvailable(ctx context.Context) ([]Lot, error)
	Save(ctx context.Context, lot *Lot) error
}
