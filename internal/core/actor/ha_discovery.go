package actor

import (
	"errors"
	"fmt"
	"time"

	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/events"
	"sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

type HADiscoveryActor struct {
	config              *config.Config
	behavior            actor.Behavior
	stash               *actorutil.Stash
	batteryActor        *actor.PID
	mqttActor           *actor.PID
	batteryActorHealthy bool
	mqttActorHealthy    bool
	healthyRecv         int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, batteryActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:       config,
		batteryActor: batteryActor,
		mqttActor:    mqttActor,
		behavior:     actor.NewBehavior(),
		stash:        &actorutil.Stash{},
		logger:       actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check Battery and MQTT actor healthy
		state.healthyRecv = 0
		state.batteryActorHealthy = false
		state.mqttActorHealthy = false
		// Battery Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.batteryActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_BATTERY,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_BATTERY:
				state.batteryActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {
			if state.batteryActorHealthy && state.mqttActorHealthy {
				state.publishDiscovery(ctx)
				state.behavior.Become(state.Done)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Battery Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	var sensors []domain.GenericSensor
	var selects []domain.GenericSelect

	bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors = append(sensors, events.BridgeSensors(bridgeDevice)...)

	channels := make([]string, 0, len(state.config.TelemetryConfig.PowerTopics))
	for channel := range state.config.TelemetryConfig.PowerTopics {
		channels = append(channels, channel)
	}
	energySensors := events.EnergyBucketSensors(events.IdDevice(bridgeDevice), channels)
	sensors = append(sensors, energySensors...)
	sensors = append(sensors, events.TariffSensors(events.IdDevice(bridgeDevice), state.config.TariffConfig.Currency)...)
	sensors = append(sensors, events.LedgerSensors(events.IdDevice(bridgeDevice), state.config.TariffConfig.Currency)...)

	batteryDevice := events.BatteryDevice(state.config.Sunhome.DeviceId)
	batteryDevice.ViaDevice = bridgeDevice.Id
	batterySensors := events.BatterySensors(batteryDevice)
	for i := range batterySensors {
		if i > 0 {
			batterySensors[i].Device = events.IdDevice(batteryDevice)
		}
		sensors = append(sensors, batterySensors[i])
	}
	selects = append(selects, events.OperatingModeSelect(events.IdDevice(batteryDevice)))

	state.logger.Debug("hadiscovery: publishing",
		zap.Int("sensors", len(sensors)), zap.Int("selects", len(selects)))
	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors: sensors,
		Selects: selects,
	})
}
