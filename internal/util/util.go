package util

import (
	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "sunledger",
		},
		Sunhome: config.SunhomeConfig{
			Host:     "-.-.-.-",
			Port:     1883,
			DeviceId: "testdevice",
			UserId:   "100001",
		},
		TelemetryConfig: config.TelemetryConfig{
			PowerTopics: map[string]string{
				domain.CHANNEL_SOLAR_POWER:       "tele/solar/power",
				domain.CHANNEL_HOUSE_POWER:       "tele/house/power",
				domain.CHANNEL_GRID_IMPORT_POWER: "tele/grid/import",
				domain.CHANNEL_GRID_EXPORT_POWER: "tele/grid/export",
			},
			SocTopic:            "tele/battery/soc",
			ModeTopic:           "tele/battery/mode",
			MaxSampleGapSeconds: 60,
		},
		TariffConfig: config.TariffConfig{
			ImportPriceTopic: "tariff/import/price",
			ExportPriceTopic: "tariff/export/price",
			ImportBandTopic:  "tariff/import/band",
			ExportBandTopic:  "tariff/export/band",
			Currency:         "EUR",
		},
		AccrualConfig: config.AccrualConfig{
			DailyStandingCharge: 0.50,
			MonthlyFee:          12.50,
			LedgerPath:          "/tmp/sunledger_test_ledger.json",
		},
		ModeControlConfig: config.ModeControlConfig{
			SellExitSoc:        51,
			BuyExitSoc:         75,
			SellExitExportRate: 0.20,
			BuyExitImportRate:  0.09,
			DebounceSeconds:    1,
		},
		Port: 8080,
	}
}
