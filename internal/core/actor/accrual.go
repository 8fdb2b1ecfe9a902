package actor

import (
	"fmt"
	"time"

	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/events"
	"sunledger2mqtt/internal/core/port"
	"sunledger2mqtt/internal/core/service"
	. "sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"github.com/reugn/go-quartz/quartz"
	"go.uber.org/zap"
)

const (
	// settleGrace pads the settlement delay beyond the sample gap limit.
	settleGrace = 5 * time.Second

	maxLedgerEntries = 32
)

// settleDelay returns how long after a half-hour boundary the window is
// settled. The sample that closes a window's buckets can arrive up to the
// sample gap limit after the boundary, so settlement waits that long plus
// a short grace.
func settleDelay(maxGapSeconds uint32) time.Duration {
	return time.Duration(maxGapSeconds)*time.Second + settleGrace
}

// AccrualActor owns the cost ledger. Cron triggers fire at every half-hour
// and day boundary, energy arrives as closed buckets, rates as resolved
// signals. Every applied delta is persisted before it is published.
type AccrualActor struct {
	behavior  actor.Behavior
	stash     *Stash
	scheduler *scheduler.TimerScheduler

	config      *config.Config
	store       port.LedgerStore
	eventStream *eventstream.EventStream
	engine      *service.AccrualEngine

	halfHourCron *quartz.CronTrigger
	dailyCron    *quartz.CronTrigger

	// closed half-hour grid energy, window start -> channel -> kWh
	pendingEnergy map[time.Time]map[string]float64
	importSignal  domain.RateSignal
	exportSignal  domain.RateSignal
	lastEntries   []domain.LedgerEntry

	logger *zap.Logger
}

type halfHourTick struct {
}

type dailyTick struct {
}

type settleWindow struct {
	start time.Time
}

func NewAccrualActor(config *config.Config, store port.LedgerStore, eventStream *eventstream.EventStream, logger *zap.Logger) *AccrualActor {
	act := &AccrualActor{
		config:        config,
		store:         store,
		behavior:      actor.NewBehavior(),
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_ACCRUAL, logger),
		eventStream:   eventStream,
		pendingEnergy: make(map[time.Time]map[string]float64),
		importSignal:  domain.RateSignal{Direction: domain.TariffImport, Band: domain.BandUnknown},
		exportSignal:  domain.RateSignal{Direction: domain.TariffExport, Band: domain.BandUnknown},
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *AccrualActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *AccrualActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("accrual@starting started")

		snapshot, err := state.store.Load()
		if err != nil {
			panic(err)
		}
		if snapshot == nil {
			snapshot = &domain.LedgerSnapshot{}
		}
		state.engine = service.NewAccrualEngine(service.AccrualConfig{
			DailyStandingCharge: state.config.AccrualConfig.DailyStandingCharge,
			MonthlyFee:          state.config.AccrualConfig.MonthlyFee,
		}, *snapshot, state.logger)

		// settle anything missed while the process was down
		if entries := state.engine.CatchUp(time.Now()); len(entries) > 0 {
			state.applied(entries)
		}

		halfHourCron, err := quartz.NewCronTriggerWithLoc("0 0,30 * * * *", time.Local)
		if err != nil {
			panic(err)
		}
		dailyCron, err := quartz.NewCronTriggerWithLoc("0 0 0 * * *", time.Local)
		if err != nil {
			panic(err)
		}
		state.halfHourCron = halfHourCron
		state.dailyCron = dailyCron

		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.scheduleNext(ctx, state.halfHourCron, halfHourTick{})
		state.scheduleNext(ctx, state.dailyCron, dailyTick{})

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("accrual@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *AccrualActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("accrual@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_ACCRUAL,
			Healthy: true,
			State:   "idle",
		})
	case domain.BucketClosedMessage:
		state.recordBucket(msg.Bucket)
	case domain.RateSignalMessage:
		if msg.Signal.Direction == domain.TariffImport {
			state.importSignal = msg.Signal
		} else {
			state.exportSignal = msg.Signal
		}
	case halfHourTick:
		// settle the window that just closed once its closing buckets had
		// time to arrive
		window := domain.SpanHalfHour.Align(time.Now().Add(-time.Minute))
		state.logger.Debug("accrual@default halfHourTick", zap.Time("window", window))
		delay := settleDelay(state.config.TelemetryConfig.MaxSampleGapSeconds)
		state.scheduler.RequestOnce(delay, ctx.Self(), settleWindow{start: window})
		state.scheduleNext(ctx, state.halfHourCron, halfHourTick{})
	case settleWindow:
		state.settleHalfHour(msg.start)
	case dailyTick:
		state.logger.Debug("accrual@default dailyTick")
		if entries := state.engine.DailyFixed(time.Now()); len(entries) > 0 {
			state.applied(entries)
		}
		state.scheduleNext(ctx, state.dailyCron, dailyTick{})
	case domain.GetLedgerRequest:
		state.logger.Debug("accrual@default GetLedgerRequest")
		ForRequest(msg).Respond(ctx, domain.GetLedgerResponse{
			Snapshot:    state.engine.Snapshot(),
			LastEntries: state.lastEntries,
		})
	default:
		state.logger.Debug("accrual@default: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *AccrualActor) scheduleNext(ctx actor.Context, trigger *quartz.CronTrigger, msg any) {
	next, err := trigger.NextFireTime(time.Now().UnixNano())
	if err != nil {
		state.logger.Error("accrual: cron trigger has no next fire time", zap.Error(err))
		return
	}
	delay := time.Until(time.Unix(0, next))
	if delay < 0 {
		delay = 0
	}
	state.scheduler.RequestOnce(delay, ctx.Self(), msg)
}

func (state *AccrualActor) recordBucket(bucket domain.EnergyBucket) {
	if bucket.Span != domain.SpanHalfHour {
		return
	}
	if bucket.Channel != domain.CHANNEL_GRID_IMPORT_POWER && bucket.Channel != domain.CHANNEL_GRID_EXPORT_POWER {
		return
	}
	byChannel, ok := state.pendingEnergy[bucket.Start]
	if !ok {
		byChannel = make(map[string]float64, 2)
		state.pendingEnergy[bucket.Start] = byChannel
	}
	byChannel[bucket.Channel] = bucket.EnergyKWh
}

func (state *AccrualActor) settleHalfHour(window time.Time) {
	byChannel := state.pendingEnergy[window]
	consumed := byChannel[domain.CHANNEL_GRID_IMPORT_POWER]
	produced := byChannel[domain.CHANNEL_GRID_EXPORT_POWER]

	entry := state.engine.HalfHour(window, consumed, produced, state.importSignal, state.exportSignal)
	if entry != nil {
		state.applied([]domain.LedgerEntry{*entry})
	}

	// pending energy for settled windows is no longer needed
	for start := range state.pendingEnergy {
		if !start.After(window) {
			delete(state.pendingEnergy, start)
		}
	}
}

// applied persists the snapshot, remembers the entries and publishes the
// updated ledger totals.
func (state *AccrualActor) applied(entries []domain.LedgerEntry) {
	snapshot := state.engine.Snapshot()
	if err := state.store.Save(snapshot); err != nil {
		state.logger.Error("accrual: ledger save failed", zap.Error(err))
	}
	state.lastEntries = append(state.lastEntries, entries...)
	if len(state.lastEntries) > maxLedgerEntries {
		state.lastEntries = state.lastEntries[len(state.lastEntries)-maxLedgerEntries:]
	}
	for _, entry := range entries {
		state.logger.Info("accrual: applied",
			zap.String("reason", string(entry.Reason)),
			zap.Time("at", entry.At),
			zap.Float64("delta", entry.Delta))
	}
	for _, ev := range events.LedgerToUpdateEvents(snapshot) {
		state.eventStream.Publish(ev)
	}
}
