package service

import (
	"math"
	"testing"

	"sunledger2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func TestResolveMapsBandLabels(t *testing.T) {
	r := NewRateResolver(domain.TariffImport, testLogger)

	cases := map[string]domain.RateBand{
		"Negative":       domain.BandNegative,
		"EXTREMELY_LOW":  domain.BandExtremelyLow,
		"very-low":       domain.BandVeryLow,
		"low":            domain.BandLow,
		"Neutral":        domain.BandNeutral,
		"  high  ":       domain.BandHigh,
		"spike":          domain.BandSpike,
		"something else": domain.BandUnknown,
	}
	for label, band := range cases {
		signal := r.Resolve(fp(0.12), sp(label))
		assert.Equal(t, band, signal.Band, "label %q", label)
		assert.Equal(t, 0.12, signal.Rate)
		assert.True(t, signal.Known)
	}
}

func TestResolveWithoutLabel(t *testing.T) {
	r := NewRateResolver(domain.TariffExport, testLogger)

	signal := r.Resolve(fp(0.05), nil)
	assert.Equal(t, domain.BandUnknown, signal.Band)
	assert.Equal(t, 0.05, signal.Rate)
	assert.True(t, signal.Known)
}

func TestResolveHoldsLastKnownGood(t *testing.T) {
	r := NewRateResolver(domain.TariffImport, testLogger)

	first := r.Resolve(fp(0.30), sp("spike"))
	require.True(t, first.Known)

	// null price, NaN price and a fresh label all hold the last signal
	held := r.Resolve(nil, sp("low"))
	assert.Equal(t, first, held)
	held = r.Resolve(fp(math.NaN()), nil)
	assert.Equal(t, first, held)
	assert.Equal(t, first, r.Last())
}

func TestResolveBeforeFirstValue(t *testing.T) {
	r := NewRateResolver(domain.TariffImport, testLogger)

	signal := r.Resolve(nil, nil)
	assert.False(t, signal.Known)
	assert.Equal(t, domain.BandUnknown, signal.Band)
}

func TestIsNullPricePayload(t *testing.T) {
	for _, payload := range []string{"", "unavailable", "Unknown", "NONE", "nan"} {
		assert.True(t, IsNullPricePayload(payload), "payload %q", payload)
	}
	assert.False(t, IsNullPricePayload("0.25"))
}
