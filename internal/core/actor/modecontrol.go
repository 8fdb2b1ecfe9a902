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
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const modeCommandTimeout = 12 * time.Second

// ModeControlActor tracks the battery operating mode and reverts sell or buy
// mode back to regular when its exit condition holds. SoC conditions revert
// immediately, price conditions must hold for the configured debounce. Each
// revert sends exactly one battery command and one notification. The local
// mode is committed and published as soon as the transition is decided;
// command delivery is best effort and never rolls it back.
type ModeControlActor struct {
	ActorWithStates
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config       *config.Config
	rules        service.ModeControlConfig
	batteryActor *actor.PID
	mqttActor    *actor.PID
	eventStream  *eventstream.EventStream

	currentMode     domain.OperatingMode
	commandInFlight bool
	cancelDebounce  scheduler.CancelFunc

	logger *zap.Logger
}

type priceRevertElapsed struct {
	armedMode domain.OperatingMode
}

func NewModeControlActor(config *config.Config, batteryActor *actor.PID, mqttActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *ModeControlActor {
	act := &ModeControlActor{
		config: config,
		rules: service.ModeControlConfig{
			SellExitSoC:        config.ModeControlConfig.SellExitSoc,
			BuyExitSoC:         config.ModeControlConfig.BuyExitSoc,
			SellExitExportRate: config.ModeControlConfig.SellExitExportRate,
			BuyExitImportRate:  config.ModeControlConfig.BuyExitImportRate,
			Debounce:           time.Duration(config.ModeControlConfig.DebounceSeconds) * time.Second,
		},
		batteryActor: batteryActor,
		mqttActor:    mqttActor,
		stash:        &Stash{},
		logger:       ActorLogger(domain.ACTOR_ID_MODE_CONTROL, logger),
		eventStream:  eventStream,
		currentMode:  domain.ModeRegular,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(MCStartingState{
		actor: act,
	})
	return act
}

func (state *ModeControlActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

// Starting state

type MCStartingState struct {
	ActorState
	actor *ModeControlActor
}

func (state MCStartingState) Name() string {
	return "starting"
}

func (state MCStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("mode_control@starting started")
		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)
		state.actor.publishMode()
		state.actor.Become(MCDefaultState{
			actor: state.actor,
		})
		state.actor.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("mode_control@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Default state

type MCDefaultState struct {
	ActorState
	actor *ModeControlActor
}

func (state MCDefaultState) Name() string {
	return "default"
}

func (state MCDefaultState) Receive(ctx actor.Context) {
	act := state.actor
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		act.logger.Debug("mode_control@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MODE_CONTROL,
			Healthy: true,
			State:   string(act.currentMode),
		})
	case domain.ExternalModeMessage:
		if msg.Mode == act.currentMode {
			return
		}
		act.logger.Info("mode_control@default external mode change",
			zap.String("from", string(act.currentMode)), zap.String("to", string(msg.Mode)))
		act.currentMode = msg.Mode
		act.disarmDebounce()
		act.publishMode()
	case domain.StateOfChargeMessage:
		if !service.ValidSoC(msg.Percent) {
			act.logger.Warn("mode_control@default rejected SoC", zap.Float64("percent", msg.Percent))
			return
		}
		if act.rules.SoCTriggersRevert(act.currentMode, msg.Percent) {
			act.fireRevert(ctx, fmt.Sprintf("state of charge at %.0f%%", msg.Percent))
		}
	case domain.RateSignalMessage:
		if act.rules.PriceTriggersRevert(act.currentMode, msg.Signal) {
			if act.cancelDebounce == nil {
				act.logger.Debug("mode_control@default price condition met, arming debounce",
					zap.String("mode", string(act.currentMode)),
					zap.Float64("rate", msg.Signal.Rate))
				act.cancelDebounce = act.scheduler.RequestOnce(act.rules.Debounce, ctx.Self(),
					priceRevertElapsed{armedMode: act.currentMode})
			}
		} else if msg.Signal.Direction.Matches(act.currentMode) {
			act.disarmDebounce()
		}
	case priceRevertElapsed:
		act.cancelDebounce = nil
		if msg.armedMode != act.currentMode {
			return
		}
		act.fireRevert(ctx, "sustained price condition")
	case domain.SetOperatingModeRequest:
		// user initiated mode change
		act.logger.Info("mode_control@default SetOperatingModeRequest", zap.String("mode", string(msg.Mode)))
		if msg.Mode == act.currentMode {
			act.publishMode()
			return
		}
		act.applyMode(ctx, msg.Mode, nil)
	case domain.SetOperatingModeResponse:
		act.commandInFlight = false
		if msg.HasResponseError() {
			// the local mode already moved on; the physical system is the
			// source of truth and will be mirrored on its next mode report
			act.logger.Error("mode_control@default mode command delivery failed, keeping local mode",
				zap.String("mode", string(msg.Mode)), zap.Error(msg.GetResponseError()))
			return
		}
		act.logger.Debug("mode_control@default mode command confirmed", zap.String("mode", string(msg.Mode)))
	default:
		act.logger.Debug("mode_control@default: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// fireRevert commits the revert once. The mode guard makes the transition
// edge triggered: once the mode is regular, further trigger messages are
// no-ops until the mode is externally changed again.
func (state *ModeControlActor) fireRevert(ctx actor.Context, reason string) {
	if state.currentMode == domain.ModeRegular || state.commandInFlight {
		return
	}
	state.logger.Info("mode_control@default reverting to regular",
		zap.String("from", string(state.currentMode)), zap.String("reason", reason))
	state.applyMode(ctx, domain.ModeRegular, &domain.SendNotificationRequest{
		Title:   "Battery mode reverted",
		Message: fmt.Sprintf("%s mode reverted to regular: %s", state.currentMode, reason),
	})
}

// applyMode commits the transition locally, sends the notification, and
// delivers the battery command in the background. Delivery failure is
// logged by the response handler and does not roll the transition back.
func (state *ModeControlActor) applyMode(ctx actor.Context, mode domain.OperatingMode, notify *domain.SendNotificationRequest) {
	if state.commandInFlight {
		state.logger.Warn("mode_control@default command already in flight, dropping",
			zap.String("mode", string(mode)))
		return
	}
	state.currentMode = mode
	state.disarmDebounce()
	state.publishMode()
	if notify != nil && state.mqttActor != nil {
		ctx.Send(state.mqttActor, *notify)
	}
	state.commandInFlight = true
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.batteryActor,
		domain.SetOperatingModeRequest{Mode: mode}, modeCommandTimeout),
		func(err error) any {
			return domain.SetOperatingModeResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
				Mode: mode,
			}
		})
}

func (state *ModeControlActor) disarmDebounce() {
	if state.cancelDebounce != nil {
		state.cancelDebounce()
		state.cancelDebounce = nil
	}
}

func (state *ModeControlActor) publishMode() {
	for _, ev := range events.OperatingModeToUpdateEvents(state.currentMode) {
		state.eventStream.Publish(ev)
	}
}
