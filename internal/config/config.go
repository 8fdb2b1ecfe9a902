package config

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig    `mapstructure:"mqtt"`
	Sunhome  SunhomeConfig `mapstructure:"sunhome"`

	TelemetryConfig   TelemetryConfig   `mapstructure:"telemetry"`
	TariffConfig      TariffConfig      `mapstructure:"tariff"`
	AccrualConfig     AccrualConfig     `mapstructure:"accrual"`
	ModeControlConfig ModeControlConfig `mapstructure:"mode_control"`
	Port              uint              `mapstructure:"port"`
	HttpLog           bool              `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	NotifyTopic       string `mapstructure:"notify_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

// SunhomeConfig is the vendor-cloud session. DeviceId and UserId come from
// the vendor app pairing, no authentication flow happens here.
type SunhomeConfig struct {
	Host     string
	Port     uint
	Username string
	Password string
	DeviceId string `mapstructure:"device_id"`
	UserId   string `mapstructure:"user_id"`
}

type TelemetryConfig struct {
	// PowerTopics maps channel ids to the MQTT topics carrying their
	// instantaneous power in watts.
	PowerTopics map[string]string `mapstructure:"power_topics"`
	SocTopic    string            `mapstructure:"soc_topic"`
	// ModeTopic mirrors the operating mode set outside this process.
	ModeTopic           string `mapstructure:"mode_topic"`
	MaxSampleGapSeconds uint32 `mapstructure:"max_sample_gap_seconds"`
}

type TariffConfig struct {
	ImportPriceTopic string `mapstructure:"import_price_topic"`
	ExportPriceTopic string `mapstructure:"export_price_topic"`
	ImportBandTopic  string `mapstructure:"import_band_topic"`
	ExportBandTopic  string `mapstructure:"export_band_topic"`
	Currency         string `mapstructure:"currency"`
}

type AccrualConfig struct {
	DailyStandingCharge float64 `mapstructure:"daily_standing_charge"`
	MonthlyFee          float64 `mapstructure:"monthly_fee"`
	LedgerPath          string  `mapstructure:"ledger_path"`
}

type ModeControlConfig struct {
	SellExitSoc        float64 `mapstructure:"sell_exit_soc"`
	BuyExitSoc         float64 `mapstructure:"buy_exit_soc"`
	SellExitExportRate float64 `mapstructure:"sell_exit_export_rate"`
	BuyExitImportRate  float64 `mapstructure:"buy_exit_import_rate"`
	DebounceSeconds    uint32  `mapstructure:"debounce_seconds"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
