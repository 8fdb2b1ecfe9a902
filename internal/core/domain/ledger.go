package domain

import "time"

type AccrualReason string

const (
	ReasonHalfHourEnergy AccrualReason = "half_hour_energy"
	ReasonStandingCharge AccrualReason = "standing_charge"
	ReasonMonthlyFee     AccrualReason = "monthly_fee"
	ReasonCatchUp        AccrualReason = "catch_up"
)

// LedgerEntry is one applied cost delta. Negative deltas are credits.
type LedgerEntry struct {
	At     time.Time     `json:"at"`
	Delta  float64       `json:"delta"`
	Reason AccrualReason `json:"reason"`
}

// LedgerSnapshot is the durable state of the accrual engine. LastWindow
// and LastDay are watermarks: windows at or before them are already
// applied and must never be applied again.
type LedgerSnapshot struct {
	Total          float64   `json:"total"`
	LastWindow     time.Time `json:"last_window"`
	LastWindowCost float64   `json:"last_window_cost"`
	LastDay        time.Time `json:"last_day"`
}
