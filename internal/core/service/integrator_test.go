package service

import (
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testLogger = zap.Must(zap.NewDevelopment())

func at(min, sec int) time.Time {
	return time.Date(2026, time.March, 10, 12, min, sec, 0, time.Local)
}

func sample(t time.Time, watt float64) domain.PowerSample {
	return domain.PowerSample{Channel: domain.CHANNEL_GRID_IMPORT_POWER, PowerWatt: watt, At: t}
}

func TestFirstSampleOpensEmptyBucket(t *testing.T) {
	ig := NewIntegrator(domain.CHANNEL_GRID_IMPORT_POWER, domain.SpanHalfHour, time.Minute)

	closed := ig.Integrate(sample(at(5, 0), 1000))
	require.Empty(t, closed)

	open := ig.Open()
	require.NotNil(t, open)
	assert.Equal(t, at(0, 0), open.Start)
	assert.Zero(t, open.EnergyKWh)
}

func TestLeftRuleAccumulation(t *testing.T) {
	ig := NewIntegrator(domain.CHANNEL_GRID_IMPORT_POWER, domain.SpanHalfHour, time.Minute)

	// 1000 W held for 36 s then 2000 W held for 36 s
	ig.Integrate(sample(at(0, 0), 500))
	ig.Integrate(sample(at(0, 36), 1000))
	ig.Integrate(sample(at(1, 12), 2000))

	// 1000*36/3600/1000 + 2000*36/3600/1000 = 0.01 + 0.02
	open := ig.Open()
	require.NotNil(t, open)
	assert.InDelta(t, 0.03, open.EnergyKWh, 1e-9)
}

func TestResamplingInvariance(t *testing.T) {
	// constant power sampled at different cadences yields the same energy
	coarse := NewIntegrator("a", domain.SpanHalfHour, 2*time.Minute)
	fine := NewIntegrator("a", domain.SpanHalfHour, 2*time.Minute)

	coarse.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1500, At: at(0, 0)})
	fine.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1500, At: at(0, 0)})

	for s := 60; s <= 600; s += 60 {
		coarse.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1500, At: at(0, 0).Add(time.Duration(s) * time.Second)})
	}
	for s := 10; s <= 600; s += 10 {
		fine.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1500, At: at(0, 0).Add(time.Duration(s) * time.Second)})
	}

	require.NotNil(t, coarse.Open())
	require.NotNil(t, fine.Open())
	assert.InDelta(t, coarse.Open().EnergyKWh, fine.Open().EnergyKWh, 1e-9)
	assert.InDelta(t, 0.25, fine.Open().EnergyKWh, 1e-9)
}

func TestGapContributesZero(t *testing.T) {
	ig := NewIntegrator("a", domain.SpanHalfHour, time.Minute)

	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(0, 0)})
	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(1, 0)})
	// five-minute outage, way past the 60 s gap limit
	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(6, 0)})
	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(7, 0)})

	// only the two in-gap minutes count
	open := ig.Open()
	require.NotNil(t, open)
	assert.InDelta(t, 1000.0*2.0/60.0/1000.0, open.EnergyKWh, 1e-9)
}

func TestBoundaryClosesAndSplits(t *testing.T) {
	ig := NewIntegrator("a", domain.SpanHalfHour, time.Minute)

	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1200, At: at(29, 30)})
	closed := ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1200, At: at(30, 30)})

	require.Len(t, closed, 1)
	assert.Equal(t, at(0, 0), closed[0].Start)
	// 30 s of the straddling minute belongs to the closed bucket
	assert.InDelta(t, 1200.0*30.0/3600.0/1000.0, closed[0].EnergyKWh, 1e-9)

	open := ig.Open()
	require.NotNil(t, open)
	assert.Equal(t, at(30, 0), open.Start)
	assert.InDelta(t, 1200.0*30.0/3600.0/1000.0, open.EnergyKWh, 1e-9)
}

func TestSplitsAcrossSeveralBoundaries(t *testing.T) {
	// a gap limit above the span length lets one interval cross more than
	// one boundary; every crossed bucket must get its share
	ig := NewIntegrator("a", domain.SpanHalfHour, 2*time.Hour)

	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(0, 0)})
	closed := ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(0, 0).Add(75 * time.Minute)})

	require.Len(t, closed, 2)
	assert.Equal(t, at(0, 0), closed[0].Start)
	assert.InDelta(t, 0.5, closed[0].EnergyKWh, 1e-9)
	assert.Equal(t, at(30, 0), closed[1].Start)
	assert.InDelta(t, 0.5, closed[1].EnergyKWh, 1e-9)

	open := ig.Open()
	require.NotNil(t, open)
	assert.Equal(t, at(0, 0).Add(time.Hour), open.Start)
	assert.InDelta(t, 0.25, open.EnergyKWh, 1e-9)

	// the whole interval is accounted for
	total := closed[0].EnergyKWh + closed[1].EnergyKWh + open.EnergyKWh
	assert.InDelta(t, 1.25, total, 1e-9)
}

func TestRejectsMalformedSamples(t *testing.T) {
	ig := NewIntegrator("a", domain.SpanHalfHour, time.Minute)

	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(0, 0)})
	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: -50, At: at(0, 30)})
	// out-of-order timestamp
	ig.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: at(0, 0).Add(-time.Second)})

	open := ig.Open()
	require.NotNil(t, open)
	assert.Zero(t, open.EnergyKWh)
}

func TestIntegratorSetClosesAllSpans(t *testing.T) {
	set := NewIntegratorSet([]string{"a"}, time.Minute, testLogger)

	midnightish := time.Date(2026, time.March, 10, 23, 59, 30, 0, time.Local)
	set.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: midnightish})
	closed := set.Integrate(domain.PowerSample{Channel: "a", PowerWatt: 1000, At: midnightish.Add(time.Minute)})

	// crossing midnight closes the half-hour and day buckets
	spans := map[domain.BucketSpan]bool{}
	for _, b := range closed {
		spans[b.Span] = true
	}
	assert.True(t, spans[domain.SpanHalfHour])
	assert.True(t, spans[domain.SpanDay])
	assert.False(t, spans[domain.SpanMonth])

	// unknown channels are dropped
	assert.Empty(t, set.Integrate(domain.PowerSample{Channel: "b", PowerWatt: 10, At: midnightish}))
}
