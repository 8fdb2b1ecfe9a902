package sunhome

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const cloudOpTimeout = 10 * time.Second

type CloudCommanderConfig struct {
	Host     string
	Port     uint
	Username string
	Password string
	DeviceId string
	UserId   string
}

// CloudCommander writes register commands through the vendor's cloud broker.
// The session must already be paired: DeviceId and UserId come ready from the
// vendor app.
type CloudCommander struct {
	cfg     CloudCommanderConfig
	client  mqtt.Client
	builder *CommandBuilder
	logger  *zap.Logger
}

func NewCloudCommander(cfg CloudCommanderConfig, logger *zap.Logger) *CloudCommander {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(fmt.Sprintf("sunledger_cloud_%d", rand.IntN(1000)))
	if cfg.Username != "" && cfg.Password != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)

	return &CloudCommander{
		cfg:     cfg,
		client:  mqtt.NewClient(opts),
		builder: NewCommandBuilder(cfg.UserId),
		logger:  logger,
	}
}

func (c *CloudCommander) Connect(ctx context.Context) error {
	token := c.client.Connect()
	if err := waitToken(ctx, token, "connect"); err != nil {
		return err
	}
	c.logger.Debug("sunhome: cloud session connected", zap.String("device", c.cfg.DeviceId))
	return nil
}

func (c *CloudCommander) SetRunMode(ctx context.Context, code uint16) error {
	if !c.client.IsConnected() {
		return errors.New("sunhome: cloud session not connected")
	}
	frame := c.builder.BuildWriteCommand(REGISTER_SYSTEM_RUN_MODE, code)
	c.logger.Debug("sunhome: write run mode",
		zap.String("device", c.cfg.DeviceId), zap.String("mode", RunModeString(code)))
	token := c.client.Publish(DownTopic(c.cfg.DeviceId), 1, false, frame)
	return waitToken(ctx, token, "write run mode")
}

func (c *CloudCommander) Close() {
	c.client.Disconnect(uint(cloudOpTimeout.Milliseconds()))
}

func waitToken(ctx context.Context, token mqtt.Token, op string) error {
	timeout := cloudOpTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("sunhome: %s timed out", op)
	}
	return token.Error()
}

// ensure interface compliance
var _ Commander = (*CloudCommander)(nil)
