package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "sunledger2mqtt/internal/adapter/actor"
	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/port"
	. "sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type BatteryActorProvider func() *adactor.BatteryActor

// MasterOfPuppetsActor spawns and supervises every other actor and routes the
// inbound telemetry, tariff and command messages to their owners.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	ledgerStore        port.LedgerStore

	mqttActor        *actor.PID
	batteryActor     *actor.PID
	telemetryActor   *actor.PID
	tariffActor      *actor.PID
	accrualActor     *actor.PID
	modeControlActor *actor.PID

	batteryActorProvider BatteryActorProvider
	mqttActorProvider    MQTTActorProvider
	logger               *zap.Logger
}

type healthCheckResult struct {
	healthy        map[string]bool
	checksReceived int
	respondTo      *actor.PID
}

var healthCheckedActors = []string{
	domain.ACTOR_ID_MQTT,
	domain.ACTOR_ID_BATTERY,
	domain.ACTOR_ID_TELEMETRY,
	domain.ACTOR_ID_TARIFF,
	domain.ACTOR_ID_ACCRUAL,
	domain.ACTOR_ID_MODE_CONTROL,
}

func NewMasterOfPuppetsActor(config config.Config, ledgerStore port.LedgerStore, batteryActorProvider BatteryActorProvider, mqttActorProvider MQTTActorProvider, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:               config,
		behavior:             actor.NewBehavior(),
		stash:                &Stash{},
		logger:               ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:          &eventstream.EventStream{},
		ledgerStore:          ledgerStore,
		batteryActorProvider: batteryActorProvider,
		mqttActorProvider:    mqttActorProvider,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		// transports first, they panic-restart on connection loss
		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		batteryActorPID, err := state.startBatteryActor(ctx)
		if err != nil {
			panic(err)
		}
		state.batteryActor = batteryActorPID

		// logic actors, in dependency order
		accrualActorPID, err := state.startAccrualActor(ctx)
		if err != nil {
			panic(err)
		}
		state.accrualActor = accrualActorPID

		modeControlActorPID, err := state.startModeControlActor(ctx)
		if err != nil {
			panic(err)
		}
		state.modeControlActor = modeControlActorPID

		telemetryActorPID, err := state.startTelemetryActor(ctx)
		if err != nil {
			panic(err)
		}
		state.telemetryActor = telemetryActorPID

		tariffActorPID, err := state.startTariffActor(ctx)
		if err != nil {
			panic(err)
		}
		state.tariffActor = tariffActorPID

		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		for _, target := range []*actor.PID{
			state.mqttActor, state.batteryActor, state.telemetryActor,
			state.tariffActor, state.accrualActor, state.modeControlActor,
		} {
			PipeToSelfWithRecover(ctx, ctx.RequestFuture(target, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
				return domain.ActorHealthResponse{
					Healthy: false,
				}
			})
		}
		ctx.SetReceiveTimeout(1 * time.Second)
		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// user command from an MQTT set topic
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.SetOperatingModeRequest:
					ctx.Send(state.modeControlActor, pcmd)
				}
			}
		}
	case domain.PowerSampleMessage:
		ctx.Send(state.telemetryActor, msg)
	case domain.StateOfChargeMessage:
		ctx.Send(state.telemetryActor, msg)
		ctx.Send(state.modeControlActor, msg)
	case domain.PriceUpdateMessage:
		ctx.Send(state.tariffActor, msg)
	case domain.ExternalModeMessage:
		ctx.Send(state.modeControlActor, msg)
	case domain.GetLedgerRequest:
		// forward keeping the original sender so accrual responds directly
		ctx.RequestWithCustomSender(state.accrualActor, msg, ctx.Sender())
	case *actor.Terminated:
		// if a transport actor fails on boot, terminate
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_MQTT) {
			state.logger.Error("master@default mqtt terminated")
			panic(errors.New("mqtt terminated"))
		}
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_BATTERY) {
			state.logger.Error("master@default battery terminated")
			panic(errors.New("battery terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// if some actor does not respond to healthCheck, assume not healthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			state.currentHealthCheck.healthy[msg.Id] = true
		}
		if state.currentHealthCheck.allReceived() {
			state.currentHealthCheck.respond(ctx)
			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
}

func (state *MasterOfPuppetsActor) startBatteryActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	batteryProps := actor.PropsFromProducer(func() actor.Actor {
		return state.batteryActorProvider()
	}, actor.WithSupervisor(supervisor))
	return ctx.SpawnNamed(batteryProps, domain.ACTOR_ID_BATTERY)
}

func (state *MasterOfPuppetsActor) startTelemetryActor(ctx actor.Context) (*actor.PID, error) {

	telemetryProps := actor.PropsFromProducer(func() actor.Actor {
		return NewTelemetryActor(&state.config, state.accrualActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(restartSupervisor()))
	return ctx.SpawnNamed(telemetryProps, domain.ACTOR_ID_TELEMETRY)
}

func (state *MasterOfPuppetsActor) startTariffActor(ctx actor.Context) (*actor.PID, error) {

	tariffProps := actor.PropsFromProducer(func() actor.Actor {
		return NewTariffActor(&state.config, state.accrualActor, state.modeControlActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(restartSupervisor()))
	return ctx.SpawnNamed(tariffProps, domain.ACTOR_ID_TARIFF)
}

func (state *MasterOfPuppetsActor) startAccrualActor(ctx actor.Context) (*actor.PID, error) {

	accrualProps := actor.PropsFromProducer(func() actor.Actor {
		return NewAccrualActor(&state.config, state.ledgerStore, state.eventStream, state.logger)
	}, actor.WithSupervisor(restartSupervisor()))
	return ctx.SpawnNamed(accrualProps, domain.ACTOR_ID_ACCRUAL)
}

func (state *MasterOfPuppetsActor) startModeControlActor(ctx actor.Context) (*actor.PID, error) {

	modeControlProps := actor.PropsFromProducer(func() actor.Actor {
		return NewModeControlActor(&state.config, state.batteryActor, state.mqttActor, state.eventStream, state.logger)
	}, actor.WithSupervisor(restartSupervisor()))
	return ctx.SpawnNamed(modeControlProps, domain.ACTOR_ID_MODE_CONTROL)
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.batteryActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(restartSupervisor()))
	return ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
}

func restartSupervisor() actor.SupervisorStrategy {
	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	return actor.NewOneForOneStrategy(1, 10*time.Second, decider)
}

func (state *healthCheckResult) reset() {
	state.healthy = make(map[string]bool, len(healthCheckedActors))
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == len(healthCheckedActors)
}

func (state *healthCheckResult) allHealthy() bool {
	for _, id := range healthCheckedActors {
		if !state.healthy[id] {
			return false
		}
	}
	return true
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
