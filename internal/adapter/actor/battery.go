package actor

import (
	"context"
	"fmt"
	"time"

	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/util/actorutil"
	"sunledger2mqtt/pkg/sunhome"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const batteryCommandTimeout = 10 * time.Second

// BatteryActor serializes commands to the battery vendor cloud. One command
// runs at a time, later requests are stashed until the response arrives.
type BatteryActor struct {
	behavior  actor.Behavior
	stash     *actorutil.Stash
	commander sunhome.Commander
	logger    *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewBatteryActor(commander sunhome.Commander, logger *zap.Logger) *BatteryActor {
	act := &BatteryActor{
		commander: commander,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_BATTERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *BatteryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *BatteryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("battery@starting started")
		connectCtx, cancel := context.WithTimeout(context.Background(), batteryCommandTimeout)
		defer cancel()
		if err := state.commander.Connect(connectCtx); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.commander.Close()
	default:
		state.logger.Debug("battery@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *BatteryActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("battery@default ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_BATTERY,
			Healthy: true,
			State:   "idle",
		})
	case domain.SetOperatingModeRequest:
		state.logger.Debug("battery@default SetOperatingModeRequest", zap.String("mode", string(msg.Mode)))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)
		if !msg.Mode.Valid() {
			ctx.Send(sender, domain.SetOperatingModeResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: fmt.Errorf("invalid operating mode %q", msg.Mode),
				},
			})
			return
		}
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, func() (*domain.SetOperatingModeResponse, error) {
			return state.setOperatingMode(msg.Mode)
		}), mapTaskResult[domain.SetOperatingModeResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.SetOperatingModeResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
					Mode: msg.Mode,
				},
				replyTo: sender,
			}
		}).WithTimeout(batteryCommandTimeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingCommand)
	case *actor.Stopping:
		state.commander.Close()
	default:
		state.logger.Debug("battery@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *BatteryActor) WaitingCommand(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("battery@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.commander.Close()
	default:
		state.logger.Debug("battery@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (a *BatteryActor) setOperatingMode(mode domain.OperatingMode) (*domain.SetOperatingModeResponse, error) {
	cmdCtx, cancel := context.WithTimeout(context.Background(), batteryCommandTimeout)
	defer cancel()
	if err := a.commander.SetRunMode(cmdCtx, mode.VendorCode()); err != nil {
		a.logger.Error("battery: set run mode failed", zap.String("mode", string(mode)), zap.Error(err))
		return nil, err
	}
	return &domain.SetOperatingModeResponse{Mode: mode}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
