package masterdata

import "time"

// WaterMeter is a physical meter, optionally attached to a lot.
type WaterMeter struct {
	ID         int64
	LotID      string
	InsertedAt time.Time
}
