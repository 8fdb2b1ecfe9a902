package actor

import (
	"errors"
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/util"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestModeControlRevertSurvivesCommandFailure(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())

	// battery that refuses every write
	batteryProps := actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.SetOperatingModeRequest); ok {
			ctx.Respond(domain.SetOperatingModeResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: errors.New("cloud write refused"),
				},
				Mode: msg.Mode,
			})
		}
	})
	battery := context.Spawn(batteryProps)

	notifications := make(chan domain.SendNotificationRequest, 4)
	mqttProps := actor.PropsFromFunc(func(ctx actor.Context) {
		if msg, ok := ctx.Message().(domain.SendNotificationRequest); ok {
			notifications <- msg
		}
	})
	mqtt := context.Spawn(mqttProps)

	es := eventstream.EventStream{}
	props := actor.PropsFromProducer(func() actor.Actor {
		return NewModeControlActor(&cfg, battery, mqtt, &es, logger)
	})
	pid := context.Spawn(props)

	context.Send(pid, domain.ExternalModeMessage{Mode: domain.ModeSell})
	context.Send(pid, domain.StateOfChargeMessage{Percent: 45, At: time.Now()})

	// the revert notification fires at decision time, not on delivery
	select {
	case msg := <-notifications:
		assert.Equal(t, "Battery mode reverted", msg.Title)
	case <-time.After(3 * time.Second):
		t.Fatal("no notification")
	}

	// the local mode moved to regular even though the command failed
	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 3*time.Second).Result()
	require.NoError(t, err)
	health, ok := res.(domain.ActorHealthResponse)
	require.True(t, ok)
	assert.Equal(t, string(domain.ModeRegular), health.State)

	// exactly one notification per firing
	select {
	case <-notifications:
		t.Fatal("revert fired twice")
	case <-time.After(500 * time.Millisecond):
	}

	context.Stop(pid)
	context.Stop(battery)
	context.Stop(mqtt)
	as.Shutdown()
}
