package service

import (
	"time"

	"sunledger2mqtt/internal/core/domain"
)

type ModeControlConfig struct {
	// SellExitSoC reverts sell mode when the state of charge drops below it.
	SellExitSoC float64
	// BuyExitSoC reverts buy mode when the state of charge rises above it.
	BuyExitSoC float64
	// SellExitExportRate reverts sell mode when the export rate stays below
	// it for the debounce duration.
	SellExitExportRate float64
	// BuyExitImportRate reverts buy mode when the import rate stays above it
	// for the debounce duration.
	BuyExitImportRate float64
	Debounce          time.Duration
}

// SoCTriggersRevert reports whether the state of charge alone demands an
// immediate revert to regular mode. SoC checks carry no debounce.
func (c ModeControlConfig) SoCTriggersRevert(mode domain.OperatingMode, socPercent float64) bool {
	switch mode {
	case domain.ModeSell:
		return socPercent < c.SellExitSoC
	case domain.ModeBuy:
		return socPercent > c.BuyExitSoC
	}
	return false
}

// PriceTriggersRevert reports whether the rate signal puts the current mode
// into its revert condition. The caller owns the debounce timer; this only
// answers whether the condition holds right now.
func (c ModeControlConfig) PriceTriggersRevert(mode domain.OperatingMode, signal domain.RateSignal) bool {
	if !signal.Known {
		return false
	}
	switch {
	case mode == domain.ModeSell && signal.Direction == domain.TariffExport:
		return signal.Rate < c.SellExitExportRate
	case mode == domain.ModeBuy && signal.Direction == domain.TariffImport:
		return signal.Rate > c.BuyExitImportRate
	}
	return false
}

// ValidSoC rejects malformed state-of-charge readings.
func ValidSoC(percent float64) bool {
	return percent >= 0 && percent <= 100
}
