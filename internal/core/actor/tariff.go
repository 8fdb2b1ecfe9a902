package actor

import (
	"fmt"

	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/events"
	"sunledger2mqtt/internal/core/service"
	. "sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

// TariffActor resolves raw price payloads into rate signals and fans them out
// to the accrual and mode control actors.
type TariffActor struct {
	behavior actor.Behavior
	stash    *Stash

	config           *config.Config
	accrualActor     *actor.PID
	modeControlActor *actor.PID
	eventStream      *eventstream.EventStream
	importResolver   *service.RateResolver
	exportResolver   *service.RateResolver

	logger *zap.Logger
}

func NewTariffActor(config *config.Config, accrualActor *actor.PID, modeControlActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *TariffActor {
	act := &TariffActor{
		config:           config,
		accrualActor:     accrualActor,
		modeControlActor: modeControlActor,
		behavior:         actor.NewBehavior(),
		stash:            &Stash{},
		logger:           ActorLogger(domain.ACTOR_ID_TARIFF, logger),
		eventStream:      eventStream,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *TariffActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *TariffActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("tariff@starting started")
		state.importResolver = service.NewRateResolver(domain.TariffImport, state.logger)
		state.exportResolver = service.NewRateResolver(domain.TariffExport, state.logger)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("tariff@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *TariffActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("tariff@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_TARIFF,
			Healthy: true,
			State:   "idle",
		})
	case domain.PriceUpdateMessage:
		resolver := state.importResolver
		if msg.Direction == domain.TariffExport {
			resolver = state.exportResolver
		}
		signal := resolver.Resolve(msg.Price, msg.BandLabel)
		state.logger.Debug("tariff@default resolved",
			zap.String("direction", string(msg.Direction)),
			zap.Float64("rate", signal.Rate),
			zap.String("band", string(signal.Band)),
			zap.Bool("known", signal.Known))

		out := domain.RateSignalMessage{Signal: signal, At: msg.At}
		if state.accrualActor != nil {
			ctx.Send(state.accrualActor, out)
		}
		if state.modeControlActor != nil {
			ctx.Send(state.modeControlActor, out)
		}
		for _, ev := range events.RateSignalToUpdateEvents(signal) {
			state.eventStream.Publish(ev)
		}
	default:
		state.logger.Debug("tariff@default: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
