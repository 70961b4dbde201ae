package billing

import (
	"time"

	"github.com/google/uuid"
)

// RateConfig holds the billing rates in force from its effective date.
// Records are immutable; a rate change is a new record and the applicable
// config for a statement date is the most recent one effective on or before it.
type RateConfig struct {
	ID                 uuid.UUID `json:"id"`
	RentMonthlyRate    float64   `json:"rent_monthly_rate"`
	StorageMonthlyRate float64   `json:"storage_monthly_rate"`
	WaterMonthlyRate   float64   `json:"water_monthly_rate"`
	WaterServiceFee    float64   `json:"water_service_fee"`
	LateFeeRate        float64   `json:"late_fee_rate"`
	OverdueCutoffDays  int       `json:"overdue_cutoff_days"`
	EffectiveAsOf      time.Time `json:"effective_as_of"`
	InsertedAt         time.Time `json:"inserted_at"`
}

// DefaultRateConfig returns a config with the historical default rates.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		ID:                 uuid.New(),
		RentMonthlyRate:    475,
		StorageMonthlyRate: 84,
		WaterMonthlyRate:   0.011784,
		WaterServiceFee:    1.5,
		LateFeeRate:        0.05,
		OverdueCutoffDays:  10,
		EffectiveAsOf:      time.Now().UTC(),
		InsertedAt:         time.Now().UTC(),
	}
}

// IncreaseRates derives a new config with rent and storage rates raised by a
// percentage, rounded to whole dollars, effective from the given date.
func (c RateConfig) IncreaseRates(percentage float64, effectiveAsOf time.Time) RateConfig {
	factor := 1 + percentage/100
	derived := c
	derived.ID = uuid.New()
	derived.RentMonthlyRate = roundWhole(c.RentMonthlyRate * factor)
	derived.StorageMonthlyRate = roundWhole(c.StorageMonthlyRate * factor)
	derived.EffectiveAsOf = effectiveAsOf
	derived.InsertedAt = time.Now().UTC()
	return derived
}
