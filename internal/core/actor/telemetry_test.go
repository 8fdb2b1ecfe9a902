package actor

import (
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTelemetryActorClosesBucketsIntoAccrual(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	closed := make(chan domain.BucketClosedMessage, 16)
	sinkProps := actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.BucketClosedMessage); ok {
			closed <- msg
		}
	})
	sink := context.Spawn(sinkProps)

	es := eventstream.EventStream{}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewTelemetryActor(&cfg, sink, &es, logger)
	})
	pid := context.Spawn(props)

	// constant 1200 W across a half-hour boundary
	base := time.Date(2026, 6, 15, 10, 29, 0, 0, time.Local)
	for i := 0; i <= 12; i++ {
		context.Send(pid, domain.PowerSampleMessage{
			Sample: domain.PowerSample{
				Channel:   domain.CHANNEL_GRID_IMPORT_POWER,
				PowerWatt: 1200,
				At:        base.Add(time.Duration(i) * 10 * time.Second),
			},
		})
	}

	select {
	case msg := <-closed:
		assert.Equal(t, domain.CHANNEL_GRID_IMPORT_POWER, msg.Bucket.Channel)
		assert.Equal(t, domain.SpanHalfHour, msg.Bucket.Span)
		assert.True(t, msg.Bucket.Start.Equal(time.Date(2026, 6, 15, 10, 0, 0, 0, time.Local)))
		// one minute at 1200 W
		assert.InDelta(t, 0.02, msg.Bucket.EnergyKWh, 1e-9)
	case <-time.After(3 * time.Second):
		t.Fatal("no closed bucket forwarded")
	}

	context.Stop(pid)
	context.Stop(sink)
	as.Shutdown()
}

func TestTelemetryActorRejectsBadSoC(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	var published []any
	es := eventstream.EventStream{}
	sub := es.Subscribe(func(evt interface{}) {
		published = append(published, evt)
	})
	defer es.Unsubscribe(sub)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewTelemetryActor(&cfg, nil, &es, logger)
	})
	pid := context.Spawn(props)

	context.Send(pid, domain.StateOfChargeMessage{Percent: 140, At: time.Now()})
	time.Sleep(500 * time.Millisecond)

	assert.Empty(t, published)

	context.Stop(pid)
	as.Shutdown()
}
