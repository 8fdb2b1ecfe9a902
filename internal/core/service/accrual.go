package service

import (
	"time"

	"sunledger2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

type AccrualConfig struct {
	// DailyStandingCharge is applied once per day regardless of usage.
	DailyStandingCharge float64
	// MonthlyFee is prorated over the days of the wall-clock month.
	MonthlyFee float64
}

// AccrualEngine applies cost deltas to a running ledger. Watermarks in the
// snapshot make every application at-most-once: a window or day at or before
// its watermark is silently skipped, so replays and restarts never double
// charge.
type AccrualEngine struct {
	cfg      AccrualConfig
	snapshot domain.LedgerSnapshot
	logger   *zap.Logger
}

func NewAccrualEngine(cfg AccrualConfig, snapshot domain.LedgerSnapshot, logger *zap.Logger) *AccrualEngine {
	return &AccrualEngine{
		cfg:      cfg,
		snapshot: snapshot,
		logger:   logger,
	}
}

func (e *AccrualEngine) Snapshot() domain.LedgerSnapshot {
	return e.snapshot
}

// HalfHour applies the energy cost of one closed half-hour window.
// window is the window start. Returns nil when the window is at or before
// the watermark. Positive net energy is charged at the import rate, negative
// at the export rate, producing a credit.
func (e *AccrualEngine) HalfHour(window time.Time, consumedKWh, producedKWh float64,
	importRate, exportRate domain.RateSignal) *domain.LedgerEntry {

	window = domain.SpanHalfHour.Align(window)
	if !window.After(e.snapshot.LastWindow) {
		e.logger.Debug("accrual: half-hour window already applied",
			zap.Time("window", window), zap.Time("watermark", e.snapshot.LastWindow))
		return nil
	}

	net := consumedKWh - producedKWh
	var rate domain.RateSignal
	if net > 0 {
		rate = importRate
	} else {
		rate = exportRate
	}
	if !rate.Known {
		e.logger.Warn("accrual: no known rate for window, applying zero cost",
			zap.Time("window", window), zap.Float64("net_kwh", net))
	}

	delta := net * rate.Rate
	entry := domain.LedgerEntry{
		At:     window,
		Delta:  delta,
		Reason: domain.ReasonHalfHourEnergy,
	}
	e.snapshot.Total += delta
	e.snapshot.LastWindow = window
	e.snapshot.LastWindowCost = delta
	return &entry
}

// DailyFixed applies the standing charge and the prorated monthly fee for
// one day. day is any instant within the day. Returns nil when the day is at
// or before the watermark.
func (e *AccrualEngine) DailyFixed(day time.Time) []domain.LedgerEntry {
	day = domain.SpanDay.Align(day)
	if !day.After(e.snapshot.LastDay) {
		e.logger.Debug("accrual: day already applied",
			zap.Time("day", day), zap.Time("watermark", e.snapshot.LastDay))
		return nil
	}

	entries := []domain.LedgerEntry{
		{At: day, Delta: e.cfg.DailyStandingCharge, Reason: domain.ReasonStandingCharge},
		{At: day, Delta: e.cfg.MonthlyFee / float64(daysInMonth(day)), Reason: domain.ReasonMonthlyFee},
	}
	for _, entry := range entries {
		e.snapshot.Total += entry.Delta
	}
	e.snapshot.LastDay = day
	return entries
}

// CatchUp covers downtime after a restart. Missed days get their exact fixed
// charges. Missed half-hour windows have no recorded energy, so they are
// settled as a single aggregate entry estimated from the last applied window
// cost. Both watermarks advance to the last completed period before now.
func (e *AccrualEngine) CatchUp(now time.Time) []domain.LedgerEntry {
	now = now.Local()
	var entries []domain.LedgerEntry

	// fixed daily charges are deterministic, replay them one day at a time
	if !e.snapshot.LastDay.IsZero() {
		lastFullDay := domain.SpanDay.Align(now)
		for day := domain.SpanDay.Next(e.snapshot.LastDay); !day.After(lastFullDay); day = domain.SpanDay.Next(day) {
			entries = append(entries, e.DailyFixed(day)...)
		}
	}

	if !e.snapshot.LastWindow.IsZero() {
		lastClosed := domain.SpanHalfHour.Align(now).Add(-30 * time.Minute)
		missed := 0
		for w := domain.SpanHalfHour.Next(e.snapshot.LastWindow); !w.After(lastClosed); w = domain.SpanHalfHour.Next(w) {
			missed++
		}
		if missed > 0 {
			delta := float64(missed) * e.snapshot.LastWindowCost
			entry := domain.LedgerEntry{
				At:     lastClosed,
				Delta:  delta,
				Reason: domain.ReasonCatchUp,
			}
			e.logger.Info("accrual: catching up missed windows",
				zap.Int("missed", missed), zap.Float64("delta", delta))
			e.snapshot.Total += delta
			e.snapshot.LastWindow = lastClosed
			entries = append(entries, entry)
		}
	}
	return entries
}

func daysInMonth(day time.Time) int {
	first := domain.SpanMonth.Align(day)
	return domain.SpanMonth.Next(first).AddDate(0, 0, -1).Day()
}
