package domain

// TariffDirection distinguishes the two price feeds.
type TariffDirection string

const (
	TariffImport TariffDirection = "import"
	TariffExport TariffDirection = "export"
)

// Matches reports whether this direction is the one a mode's price exit
// condition watches: export for sell mode, import for buy mode.
func (d TariffDirection) Matches(mode OperatingMode) bool {
	switch mode {
	case ModeSell:
		return d == TariffExport
	case ModeBuy:
		return d == TariffImport
	}
	return false
}

// RateBand is the qualitative classification published alongside a price.
type RateBand string

const (
	BandNegative     RateBand = "negative"
	BandExtremelyLow RateBand = "extremely low"
	BandVeryLow      RateBand = "very low"
	BandLow          RateBand = "low"
	BandNeutral      RateBand = "neutral"
	BandHigh         RateBand = "high"
	BandSpike        RateBand = "spike"
	BandUnknown      RateBand = "unknown"
)

// RateSignal is a resolved tariff value for one direction.
// Known is false until the first valid price arrives on that feed.
type RateSignal struct {
	Direction TariffDirection
	Rate      float64
	Band      RateBand
	Known     bool
}
