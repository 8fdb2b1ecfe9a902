package service

import (
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

var mcCfg = ModeControlConfig{
	SellExitSoC:        51,
	BuyExitSoC:         75,
	SellExitExportRate: 0.20,
	BuyExitImportRate:  0.09,
	Debounce:           10 * time.Second,
}

func TestSoCTriggersRevert(t *testing.T) {
	assert.True(t, mcCfg.SoCTriggersRevert(domain.ModeSell, 50))
	assert.False(t, mcCfg.SoCTriggersRevert(domain.ModeSell, 51))
	assert.False(t, mcCfg.SoCTriggersRevert(domain.ModeSell, 90))

	assert.True(t, mcCfg.SoCTriggersRevert(domain.ModeBuy, 76))
	assert.False(t, mcCfg.SoCTriggersRevert(domain.ModeBuy, 75))
	assert.False(t, mcCfg.SoCTriggersRevert(domain.ModeBuy, 20))

	// regular mode never reverts, whatever the reading
	assert.False(t, mcCfg.SoCTriggersRevert(domain.ModeRegular, 0))
	assert.False(t, mcCfg.SoCTriggersRevert(domain.ModeRegular, 100))
}

func TestPriceTriggersRevert(t *testing.T) {
	assert.True(t, mcCfg.PriceTriggersRevert(domain.ModeSell, knownRate(domain.TariffExport, 0.15)))
	assert.False(t, mcCfg.PriceTriggersRevert(domain.ModeSell, knownRate(domain.TariffExport, 0.25)))
	// the opposite direction's rate never applies
	assert.False(t, mcCfg.PriceTriggersRevert(domain.ModeSell, knownRate(domain.TariffImport, 0.01)))

	assert.True(t, mcCfg.PriceTriggersRevert(domain.ModeBuy, knownRate(domain.TariffImport, 0.10)))
	assert.False(t, mcCfg.PriceTriggersRevert(domain.ModeBuy, knownRate(domain.TariffImport, 0.05)))
	assert.False(t, mcCfg.PriceTriggersRevert(domain.ModeBuy, knownRate(domain.TariffExport, 0.50)))

	assert.False(t, mcCfg.PriceTriggersRevert(domain.ModeRegular, knownRate(domain.TariffImport, 1.0)))

	// unresolved signals never trigger
	assert.False(t, mcCfg.PriceTriggersRevert(domain.ModeSell, domain.RateSignal{Direction: domain.TariffExport}))
}

func TestValidSoC(t *testing.T) {
	assert.True(t, ValidSoC(0))
	assert.True(t, ValidSoC(100))
	assert.False(t, ValidSoC(-1))
	assert.False(t, ValidSoC(101))
}
