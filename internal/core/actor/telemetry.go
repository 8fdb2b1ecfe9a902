package actor

import (
	"fmt"
	"time"

	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/events"
	"sunledger2mqtt/internal/core/service"
	. "sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// TelemetryActor integrates the configured power channels into energy buckets
// and forwards closed half-hour buckets to the accrual actor.
type TelemetryActor struct {
	behavior actor.Behavior
	stash    *Stash

	config       *config.Config
	accrualActor *actor.PID
	eventStream  *eventstream.EventStream
	integrators  *service.IntegratorSet

	logger *zap.Logger
}

func NewTelemetryActor(config *config.Config, accrualActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *TelemetryActor {
	act := &TelemetryActor{
		config:       config,
		accrualActor: accrualActor,
		behavior:     actor.NewBehavior(),
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_TELEMETRY, logger),
		eventStream:  eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *TelemetryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TelemetryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("telemetry@starting started")

		channels := make([]string, 0, len(state.config.TelemetryConfig.PowerTopics))
		for channel := range state.config.TelemetryConfig.PowerTopics {
			channels = append(channels, channel)
		}
		maxGap := time.Duration(state.config.TelemetryConfig.MaxSampleGapSeconds) * time.Second
		state.integrators = service.NewIntegratorSet(channels, maxGap, state.logger)

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("telemetry@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TelemetryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("telemetry@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TELEMETRY,
			Healthy: true,
			State:   "idle",
		})
	case domain.PowerSampleMessage:
		closed := state.integrators.Integrate(msg.Sample)
		for _, bucket := range closed {
			state.logger.Debug("telemetry@default bucket closed",
				zap.String("channel", bucket.Channel),
				zap.String("span", bucket.Span.String()),
				zap.Time("start", bucket.Start),
				zap.Float64("kwh", bucket.EnergyKWh))
			for _, ev := range events.EnergyBucketToUpdateEvents(bucket) {
				state.eventStream.Publish(ev)
			}
			if bucket.Span == domain.SpanHalfHour && state.accrualActor != nil {
				ctx.Send(state.accrualActor, domain.BucketClosedMessage{Bucket: bucket})
			}
		}
	case domain.StateOfChargeMessage:
		if !service.ValidSoC(msg.Percent) {
			state.logger.Warn("telemetry@default rejected SoC", zap.Float64("percent", msg.Percent))
			return
		}
		for _, ev := range events.StateOfChargeToUpdateEvents(msg.Percent) {
			state.eventStream.Publish(ev)
		}
	default:
		state.logger.Debug("telemetry@default: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
