package billing

import (
	"time"

	"github.com/google/uuid"
)

// WaterUsage is a meter reading pair for one billing cycle. One reading pair
// exists per meter per statement date.
type WaterUsage struct {
	ID              uuid.UUID `json:"id"`
	MeterID         int64     `json:"watermeter_id"`
	PreviousDate    time.Time `json:"previous_date"`
	CurrentDate     time.Time `json:"current_date"`
	PreviousReading int64     `json:"previous_reading"`
	CurrentReading  int64     `json:"current_reading"`
	StatementDate   time.Time `json:"statement_date"`
	InsertedAt      time.Time `json:"inserted_at"`
}

// NewWaterUsage constructs a reading pair and rejects meter regressions.
func NewWaterUsage(meterID int64, previousReading, currentReading int64, previousDate, currentDate, statementDate time.Time) (WaterUsage, error) {
	if currentReading < previousReading {
		return WaterUsage{}, ErrMeterRegression
	}
	if statementDate.IsZero() {
		return WaterUsage{}, ErrInvalidStatementDate
	}
	return WaterUsage{
		ID:              uuid.New(),
		MeterID:         meterID,
		PreviousDate:    previousDate,
		CurrentDate:     currentDate,
		PreviousReading: previousReading,
		CurrentReading:  currentReading,
		StatementDate:   StatementPeriod(statementDate),
		InsertedAt:      time.Now().UTC(),
	}, nil
}

// Usage returns units consumed over the reading period.
func (u WaterUsage) Usage() int64 {
	return u.CurrentReading - u.PreviousReading
}

// BillAmount computes the water charge for the period.
func (u WaterUsage) BillAmount(waterRate, serviceFee float64) float64 {
	return Round2(float64(u.Usage())*waterRate + serviceFee)
}

// AccountUsage pairs an account with its water usage for a billing cycle.
type AccountUsage struct {
	AccountID uuid.UUID
	Usage     WaterUsage
}
