package service

import (
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownRate(dir domain.TariffDirection, rate float64) domain.RateSignal {
	return domain.RateSignal{Direction: dir, Rate: rate, Known: true}
}

func newEngine(cfg AccrualConfig) *AccrualEngine {
	return NewAccrualEngine(cfg, domain.LedgerSnapshot{}, testLogger)
}

func TestHalfHourImportCost(t *testing.T) {
	e := newEngine(AccrualConfig{})

	entry := e.HalfHour(at(0, 0), 2.0, 0.5,
		knownRate(domain.TariffImport, 0.09), knownRate(domain.TariffExport, 0.03))

	require.NotNil(t, entry)
	assert.InDelta(t, 0.135, entry.Delta, 1e-9)
	assert.Equal(t, domain.ReasonHalfHourEnergy, entry.Reason)
	assert.InDelta(t, 0.135, e.Snapshot().Total, 1e-9)
}

func TestHalfHourExportCredit(t *testing.T) {
	e := newEngine(AccrualConfig{})

	entry := e.HalfHour(at(0, 0), 0.5, 2.0,
		knownRate(domain.TariffImport, 0.09), knownRate(domain.TariffExport, 0.03))

	require.NotNil(t, entry)
	assert.InDelta(t, -0.045, entry.Delta, 1e-9)
	assert.InDelta(t, -0.045, e.Snapshot().Total, 1e-9)
}

func TestHalfHourIdempotence(t *testing.T) {
	e := newEngine(AccrualConfig{})
	imp := knownRate(domain.TariffImport, 0.10)
	exp := knownRate(domain.TariffExport, 0.05)

	first := e.HalfHour(at(0, 0), 1.0, 0.0, imp, exp)
	require.NotNil(t, first)
	total := e.Snapshot().Total

	// duplicate firing for the same window must not change the ledger
	second := e.HalfHour(at(0, 0), 1.0, 0.0, imp, exp)
	assert.Nil(t, second)
	assert.Equal(t, total, e.Snapshot().Total)

	// nor may an older window be replayed
	old := e.HalfHour(at(0, 0).Add(-30*time.Minute), 1.0, 0.0, imp, exp)
	assert.Nil(t, old)
	assert.Equal(t, total, e.Snapshot().Total)
}

func TestHalfHourUnknownRateAppliesZero(t *testing.T) {
	e := newEngine(AccrualConfig{})

	entry := e.HalfHour(at(0, 0), 1.0, 0.0,
		domain.RateSignal{Direction: domain.TariffImport}, domain.RateSignal{Direction: domain.TariffExport})

	require.NotNil(t, entry)
	assert.Zero(t, entry.Delta)
	// watermark still advances so the window is settled
	assert.Equal(t, domain.SpanHalfHour.Align(at(0, 0)), e.Snapshot().LastWindow)
}

func TestDailyFixedProration(t *testing.T) {
	e := newEngine(AccrualConfig{DailyStandingCharge: 0.50, MonthlyFee: 12.50})

	// 30-day month
	june := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.Local)
	entries := e.DailyFixed(june)
	require.Len(t, entries, 2)
	assert.InDelta(t, 0.50, entries[0].Delta, 1e-9)
	assert.InDelta(t, 0.41667, entries[1].Delta, 1e-5)

	// February in a non-leap year
	feb := time.Date(2026, time.February, 3, 0, 0, 0, 0, time.Local)
	e2 := newEngine(AccrualConfig{DailyStandingCharge: 0.50, MonthlyFee: 12.50})
	entries = e2.DailyFixed(feb)
	require.Len(t, entries, 2)
	assert.InDelta(t, 0.44643, entries[1].Delta, 1e-5)

	// leap year February
	leap := time.Date(2028, time.February, 3, 0, 0, 0, 0, time.Local)
	e3 := newEngine(AccrualConfig{MonthlyFee: 12.50})
	entries = e3.DailyFixed(leap)
	require.Len(t, entries, 2)
	assert.InDelta(t, 12.50/29.0, entries[1].Delta, 1e-9)
}

func TestDailyFixedIdempotence(t *testing.T) {
	e := newEngine(AccrualConfig{DailyStandingCharge: 1.0, MonthlyFee: 30.0})
	day := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.Local)

	require.NotEmpty(t, e.DailyFixed(day))
	total := e.Snapshot().Total
	assert.Empty(t, e.DailyFixed(day))
	assert.Empty(t, e.DailyFixed(day.Add(3*time.Hour)))
	assert.Equal(t, total, e.Snapshot().Total)
}

func TestCatchUpAfterDowntime(t *testing.T) {
	down := time.Date(2026, time.June, 15, 10, 0, 0, 0, time.Local)
	snapshot := domain.LedgerSnapshot{
		Total:          10.0,
		LastWindow:     domain.SpanHalfHour.Align(down),
		LastWindowCost: 0.02,
		LastDay:        domain.SpanDay.Align(down),
	}
	e := NewAccrualEngine(AccrualConfig{DailyStandingCharge: 0.50, MonthlyFee: 15.0}, snapshot, testLogger)

	// restart two days and three hours later
	now := down.Add(51 * time.Hour)
	entries := e.CatchUp(now)
	require.NotEmpty(t, entries)

	// two missed days, each standing charge + prorated fee
	var fixed, catchUp int
	for _, entry := range entries {
		switch entry.Reason {
		case domain.ReasonStandingCharge, domain.ReasonMonthlyFee:
			fixed++
		case domain.ReasonCatchUp:
			catchUp++
		}
	}
	assert.Equal(t, 4, fixed)
	assert.Equal(t, 1, catchUp)

	// watermarks land on the last completed periods before now
	assert.Equal(t, domain.SpanDay.Align(now), e.Snapshot().LastDay)
	assert.Equal(t, domain.SpanHalfHour.Align(now).Add(-30*time.Minute), e.Snapshot().LastWindow)

	// rerunning catch-up is a no-op
	total := e.Snapshot().Total
	assert.Empty(t, e.CatchUp(now))
	assert.Equal(t, total, e.Snapshot().Total)
}
