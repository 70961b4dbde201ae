package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Invoice is the rendered bill for one account and billing cycle. An invoice
// is unique per (invoice date, statement date, account, rate config).
type Invoice struct {
	ID            uuid.UUID  `json:"id"`
	InvoiceDate   time.Time  `json:"invoice_date"`
	StatementDate time.Time  `json:"statement_date"`
	AccountID     uuid.UUID  `json:"account_id"`
	LotID         string     `json:"lot_id,omitempty"`
	TenantName    string     `json:"tenant_name"`
	RateConfigID  uuid.UUID  `json:"rate_config_id"`
	AmountDue     float64    `json:"amount_due"`
	Details       InvoiceRow `json:"details"`
	DeliveredOn   time.Time  `json:"delivered_on,omitempty"`
	InsertedAt    time.Time  `json:"inserted_at"`
}

// InvoiceRow carries everything needed to render one account's invoice for a
// cycle. Nullable readings use pointers so a missing reading is distinct from
// a zero one.
type InvoiceRow struct {
	StatementDate time.Time `json:"statement_date"`
	AccountID     uuid.UUID `json:"account_id"`
	LotID         string    `json:"lot_id,omitempty"`
	PropertyCode  string    `json:"property_code,omitempty"`
	StreetAddress string    `json:"street_address,omitempty"`
	CityStateZip  string    `json:"city_state_zip,omitempty"`
	TenantName    string    `json:"tenant_name"`

	PreviousBillAmount    float64 `json:"previous_bill_amount"`
	PreviousBillLessPaid  float64 `json:"previous_bill_less_paid"`
	TotalAmountDue        float64 `json:"total_amount_due"`
	PreviousMonthPayments float64 `json:"previous_month_payments"`
	OverdueAmount         float64 `json:"overdue_amount"`
	OtherCharges          float64 `json:"other_charges"`

	Rent            float64 `json:"rent"`
	Storage         float64 `json:"storage"`
	WaterBillAmount float64 `json:"water_bill_amount"`

	PreviousWaterReading *int64    `json:"previous_water_reading,omitempty"`
	CurrentWaterReading  *int64    `json:"current_water_reading,omitempty"`
	PreviousWaterDate    time.Time `json:"previous_water_date,omitempty"`
	CurrentWaterDate     time.Time `json:"current_water_date,omitempty"`
	MeterID              int64     `json:"water_meter_id,omitempty"`

	LateFee        float64   `json:"late_fee"`
	RateConfigID   uuid.UUID `json:"rate_config_id"`
	OtherRentNotes string    `json:"other_rent_notes,omitempty"`
}

// InvoiceLine is one dated entry on the rendered invoice.
type InvoiceLine struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
}

// CustomerID is the printed customer reference, the lot id.
func (r InvoiceRow) CustomerID() string {
	return r.LotID
}

// AddressLines returns the tenant mailing address, empty strings when the
// account has no lot.
func (r InvoiceRow) AddressLines() (string, string) {
	if r.LotID == "" {
		return "", r.CityStateZip
	}
	number := strings.TrimPrefix(r.LotID, r.PropertyCode)
	return strings.TrimSpace(number + " " + r.StreetAddress), r.CityStateZip
}

// WaterUsage returns units consumed when both readings are present.
func (r InvoiceRow) WaterUsage() (int64, bool) {
	if r.PreviousWaterReading == nil || r.CurrentWaterReading == nil {
		return 0, false
	}
	return *r.CurrentWaterReading - *r.PreviousWaterReading, true
}

// Lines assembles the printable invoice entries, skipping zero items. The
// wording follows the statements the park has always mailed.
func (r InvoiceRow) Lines(today time.Time) []InvoiceLine {
	previousCycle := r.StatementDate.AddDate(0, 0, -28)

	var lines []InvoiceLine
	if r.PreviousBillAmount != 0 {
		lines = append(lines, InvoiceLine{
			Date:        today,
			Description: fmt.Sprintf("%s bill, less paid", previousCycle.Format("January")),
			Amount:      r.PreviousBillLessPaid,
		})
	}
	if r.PreviousMonthPayments != 0 {
		lines = append(lines, InvoiceLine{
			Date:        today,
			Description: fmt.Sprintf("Bill paid for %s", previousCycle.Format("January 2006")),
			Amount:      -r.PreviousMonthPayments,
		})
	}
	if r.OverdueAmount != 0 {
		lines = append(lines, InvoiceLine{
			Date:        today,
			Description: "Previous overdue",
			Amount:      r.OverdueAmount,
		})
	}
	if r.Rent != 0 {
		lines = append(lines, InvoiceLine{
			Date:        r.StatementDate,
			Description: fmt.Sprintf("Lot rent for %s", r.StatementDate.Format("January 2006")),
			Amount:      r.Rent,
		})
	}
	if r.Storage != 0 {
		lines = append(lines, InvoiceLine{
			Date:        r.StatementDate,
			Description: fmt.Sprintf("Storage rent for %s", r.StatementDate.Format("January 2006")),
			Amount:      r.Storage,
		})
	}
	if _, ok := r.WaterUsage(); ok {
		lines = append(lines, InvoiceLine{
			Date:        r.StatementDate,
			Description: fmt.Sprintf("Water bill for %s", r.PreviousWaterDate.Format("January 2006")),
			Amount:      r.WaterBillAmount,
		})
	}
	if r.LateFee != 0 {
		lines = append(lines, InvoiceLine{
			Date:        r.StatementDate,
			Description: "Late fee",
			Amount:      r.LateFee,
		})
	}
	if r.OtherCharges != 0 {
		lines = append(lines, InvoiceLine{
			Date:        r.StatementDate,
			Description: "Other rent(s)*",
			Amount:      r.OtherCharges,
		})
	}
	return lines
}

// OtherRentFootnote returns the footnote expanding the other-rent entry, or
// empty when there is none.
func (r InvoiceRow) OtherRentFootnote() string {
	if r.OtherCharges == 0 || r.OtherRentNotes == "" {
		return ""
	}
	return "* Other rents include: " + r.OtherRentNotes
}

// NewInvoice mints an invoice from an assembled row.
func NewInvoice(row InvoiceRow, invoiceDate time.Time) (Invoice, error) {
	if row.AccountID == uuid.Nil {
		return Invoice{}, ErrEmptyAccountID
	}
	if row.StatementDate.IsZero() {
		return Invoice{}, ErrInvalidStatementDate
	}
	if row.TotalAmountDue == 0 {
		return Invoice{}, ErrNothingToInvoice
	}
	return Invoice{
		ID:            uuid.New(),
		InvoiceDate:   invoiceDate,
		StatementDate: row.StatementDate,
		AccountID:     row.AccountID,
		LotID:         row.LotID,
		TenantName:    row.TenantName,
		RateConfigID:  row.RateConfigID,
		AmountDue:     row.TotalAmountDue,
		Details:       row,
		InsertedAt:    time.Now().UTC(),
	}, nil
}
