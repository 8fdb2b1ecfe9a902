package actor

import (
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/util/actorutil"
	"sunledger2mqtt/pkg/sunhome"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestBatteryActorSetOperatingMode(t *testing.T) {

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	commander := &sunhome.TestCommander{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewBatteryActor(commander, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	health, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_BATTERY, health.Id)
	assert.True(t, commander.Connected)

	result, err = context.RequestFuture(pid, domain.SetOperatingModeRequest{Mode: domain.ModeSell}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.SetOperatingModeResponse)
	assert.True(t, ok)
	assert.NoError(t, resp.GetResponseError())
	assert.Equal(t, domain.ModeSell, resp.Mode)
	assert.Equal(t, []uint16{sunhome.RUN_MODE_ELECTRICITY_SELL}, commander.Writes)

	// invalid mode rejected without touching the commander
	result, err = context.RequestFuture(pid, domain.SetOperatingModeRequest{Mode: domain.OperatingMode("bogus")}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok = result.(domain.SetOperatingModeResponse)
	assert.True(t, ok)
	assert.Error(t, resp.GetResponseError())
	assert.Len(t, commander.Writes, 1)

	context.Stop(pid)
	as.Shutdown()
}
