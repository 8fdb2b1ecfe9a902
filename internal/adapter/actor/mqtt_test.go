package actor

import (
	"testing"
	"time"

	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/util"
	"sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActorHealthAndPublish(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	result, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.Equal(t, domain.ACTOR_ID_MQTT, resp.Id)
	assert.True(t, resp.Healthy)

	result, err = context.RequestFuture(pid, domain.SendNotificationRequest{
		ActorRequestMixIn: domain.ActorRequestMixIn{ReplyToRef: (*domain.ActorRef)(pid)},
		Title:             "mode change",
		Message:           "sell mode reverted",
	}, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	_, ok = result.(domain.SendNotificationResponse)
	assert.True(t, ok)

	context.Stop(pid)

	as.Shutdown()
}

func TestChannelLookup(t *testing.T) {
	cfg := util.LoadTestConfig()
	lookup := channelLookup(&cfg)
	assert.Equal(t, domain.CHANNEL_SOLAR_POWER, lookup["tele/solar/power"])
	assert.Equal(t, domain.CHANNEL_GRID_EXPORT_POWER, lookup["tele/grid/export"])
}

func TestPriceUpdateParsing(t *testing.T) {
	now := time.Now()
	label := "very low"

	msg := priceUpdate(domain.TariffImport, "0.1234", &label, now)
	assert.Equal(t, domain.TariffImport, msg.Direction)
	if assert.NotNil(t, msg.Price) {
		assert.InDelta(t, 0.1234, *msg.Price, 1e-9)
	}
	assert.Equal(t, &label, msg.BandLabel)

	// null-ish payloads hold the price
	msg = priceUpdate(domain.TariffExport, "unavailable", nil, now)
	assert.Nil(t, msg.Price)
	assert.Nil(t, msg.BandLabel)

	// garbage parses to no price
	msg = priceUpdate(domain.TariffExport, "not-a-number", nil, now)
	assert.Nil(t, msg.Price)
}

func TestBandLabelNullStates(t *testing.T) {
	assert.Nil(t, bandLabel("unknown"))
	assert.Nil(t, bandLabel(""))
	if label := bandLabel("Very Low"); assert.NotNil(t, label) {
		assert.Equal(t, "Very Low", *label)
	}
}
