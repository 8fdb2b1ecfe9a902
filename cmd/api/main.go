package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "sunledger2mqtt/internal/adapter/actor"
	"sunledger2mqtt/internal/adapter/storage"
	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/actor"
	"sunledger2mqtt/internal/server"
	"sunledger2mqtt/internal/util/actorutil"
	"sunledger2mqtt/pkg/sunhome"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	store := storage.NewFileLedgerStore(cfg.AccrualConfig.LedgerPath)

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, store, batteryActorProvider(cfg, logger), mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		return
	}

	server := server.NewServer(*cfg, ctx, pid)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => SUNLEDGER_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SUNLEDGER_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("sunledger")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if len(cfg.TelemetryConfig.PowerTopics) == 0 {
		return nil, errors.New("config param telemetry.power_topics must define at least one channel")
	}
	if cfg.TelemetryConfig.MaxSampleGapSeconds == 0 {
		return nil, errors.New("config param telemetry.max_sample_gap_seconds should be > 0")
	}
	if cfg.AccrualConfig.LedgerPath == "" {
		return nil, errors.New("config param accrual.ledger_path must be set")
	}
	if cfg.ModeControlConfig.SellExitSoc < 0 || cfg.ModeControlConfig.SellExitSoc > 100 {
		return nil, errors.New("config param mode_control.sell_exit_soc must be in [0, 100]")
	}
	if cfg.ModeControlConfig.BuyExitSoc < 0 || cfg.ModeControlConfig.BuyExitSoc > 100 {
		return nil, errors.New("config param mode_control.buy_exit_soc must be in [0, 100]")
	}
	if cfg.ModeControlConfig.DebounceSeconds == 0 {
		return nil, errors.New("config param mode_control.debounce_seconds should be > 0")
	}

	return &cfg, nil
}

func batteryActorProvider(cfg *config.Config, logger *zap.Logger) actor.BatteryActorProvider {
	return func() *adactor.BatteryActor {
		commander := sunhome.NewCloudCommander(sunhome.CloudCommanderConfig{
			Host:     cfg.Sunhome.Host,
			Port:     cfg.Sunhome.Port,
			Username: cfg.Sunhome.Username,
			Password: cfg.Sunhome.Password,
			DeviceId: cfg.Sunhome.DeviceId,
			UserId:   cfg.Sunhome.UserId,
		}, logger)
		return adactor.NewBatteryActor(commander, logger)
	}
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "sunledger")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("sunhome.port", 1883)
	viper.SetDefault("telemetry.max_sample_gap_seconds", 60)
	viper.SetDefault("tariff.currency", "EUR")
	viper.SetDefault("accrual.daily_standing_charge", 0)
	viper.SetDefault("accrual.monthly_fee", 0)
	viper.SetDefault("accrual.ledger_path", "sunledger_ledger.json")
	viper.SetDefault("mode_control.sell_exit_soc", 51)
	viper.SetDefault("mode_control.buy_exit_soc", 75)
	viper.SetDefault("mode_control.sell_exit_export_rate", 0.20)
	viper.SetDefault("mode_control.buy_exit_import_rate", 0.09)
	viper.SetDefault("mode_control.debounce_seconds", 10)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Sunhome.Username = "*redacted*"
	cfg.Sunhome.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
