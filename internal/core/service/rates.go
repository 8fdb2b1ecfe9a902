package service

import (
	"math"
	"strings"

	"sunledger2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

var bandByLabel = map[string]domain.RateBand{
	"negative":      domain.BandNegative,
	"extremely low": domain.BandExtremelyLow,
	"very low":      domain.BandVeryLow,
	"low":           domain.BandLow,
	"neutral":       domain.BandNeutral,
	"high":          domain.BandHigh,
	"spike":         domain.BandSpike,
}

// RateResolver turns raw price feed payloads into rate signals for one
// direction. When a payload is null or unparseable, the last known good
// signal is returned unchanged.
type RateResolver struct {
	Direction domain.TariffDirection
	Logger    *zap.Logger

	last domain.RateSignal
}

func NewRateResolver(direction domain.TariffDirection, logger *zap.Logger) *RateResolver {
	return &RateResolver{
		Direction: direction,
		Logger:    logger,
		last: domain.RateSignal{
			Direction: direction,
			Band:      domain.BandUnknown,
		},
	}
}

// Resolve applies a price update. price is nil when the feed published a
// null state; label is nil when no band label accompanies the price.
func (r *RateResolver) Resolve(price *float64, label *string) domain.RateSignal {
	if price == nil || math.IsNaN(*price) || math.IsInf(*price, 0) {
		r.Logger.Debug("rates: null price, holding last known good",
			zap.String("direction", string(r.Direction)))
		return r.last
	}
	signal := domain.RateSignal{
		Direction: r.Direction,
		Rate:      *price,
		Known:     true,
	}
	if label != nil {
		band, ok := bandByLabel[NormalizeBandLabel(*label)]
		if ok {
			signal.Band = band
		} else {
			r.Logger.Warn("rates: unmapped band label",
				zap.String("direction", string(r.Direction)), zap.String("label", *label))
			signal.Band = domain.BandUnknown
		}
	} else {
		signal.Band = domain.BandUnknown
	}
	r.last = signal
	return signal
}

// Last returns the current held signal without consuming an update.
func (r *RateResolver) Last() domain.RateSignal {
	return r.last
}

// NormalizeBandLabel lower-cases the label and folds underscore and hyphen
// separators to single spaces.
func NormalizeBandLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.ReplaceAll(s, "_", " ")
	s = strings.ReplaceAll(s, "-", " ")
	return strings.Join(strings.Fields(s), " ")
}

// IsNullPricePayload reports whether a raw string payload represents a null
// price state rather than a number.
func IsNullPricePayload(payload string) bool {
	switch strings.ToLower(strings.TrimSpace(payload)) {
	case "", "unavailable", "unknown", "none", "null", "nan":
		return true
	}
	return false
}
