package actor

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	adactor "sunledger2mqtt/internal/adapter/actor"
	"sunledger2mqtt/internal/adapter/storage"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/util"
	"sunledger2mqtt/pkg/sunhome"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func spawnTestMaster(t *testing.T, commander *sunhome.TestCommander) (*actor.ActorSystem, *actor.PID) {
	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.AccrualConfig.LedgerPath = filepath.Join(t.TempDir(), "ledger.json")
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	store := storage.NewFileLedgerStore(cfg.AccrualConfig.LedgerPath)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, store, func() *adactor.BatteryActor {
			return adactor.NewBatteryActor(commander, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		t.Fatal(err)
	}
	return as, pid
}

func TestMasterActorHealth(t *testing.T) {

	commander := &sunhome.TestCommander{}
	as, pid := spawnTestMaster(t, commander)
	context := as.Root

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}

func TestMasterActorLedgerQuery(t *testing.T) {

	commander := &sunhome.TestCommander{}
	as, pid := spawnTestMaster(t, commander)
	context := as.Root

	time.Sleep(1 * time.Second)

	res, err := context.RequestFuture(pid, domain.GetLedgerRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	ledgerResp, ok := res.(domain.GetLedgerResponse)
	assert.True(t, ok)
	assert.NoError(t, ledgerResp.GetResponseError())
	assert.Zero(t, ledgerResp.Snapshot.Total)

	context.Stop(pid)
	as.Shutdown()
}

func TestMasterActorModeRevertOnSoC(t *testing.T) {

	commander := &sunhome.TestCommander{}
	as, pid := spawnTestMaster(t, commander)
	context := as.Root

	time.Sleep(1 * time.Second)

	// battery is in sell mode, SoC below the exit threshold must revert it
	context.Send(pid, domain.ExternalModeMessage{Mode: domain.ModeSell})
	context.Send(pid, domain.StateOfChargeMessage{Percent: 45, At: time.Now()})

	time.Sleep(2 * time.Second)

	assert.Equal(t, []uint16{sunhome.RUN_MODE_REGULAR}, commander.Writes)

	context.Stop(pid)
	as.Shutdown()
}

func TestMasterActorModeRevertOnSustainedPrice(t *testing.T) {

	commander := &sunhome.TestCommander{}
	as, pid := spawnTestMaster(t, commander)
	context := as.Root

	time.Sleep(1 * time.Second)

	price := 0.05
	context.Send(pid, domain.ExternalModeMessage{Mode: domain.ModeSell})
	context.Send(pid, domain.PriceUpdateMessage{Direction: domain.TariffExport, Price: &price, At: time.Now()})

	// debounce in the test config is one second
	time.Sleep(2500 * time.Millisecond)

	assert.Equal(t, []uint16{sunhome.RUN_MODE_REGULAR}, commander.Writes)

	context.Stop(pid)
	as.Shutdown()
}

func TestMasterActorPriceRecoveryCancelsRevert(t *testing.T) {

	commander := &sunhome.TestCommander{}
	as, pid := spawnTestMaster(t, commander)
	context := as.Root

	time.Sleep(1 * time.Second)

	low := 0.05
	high := 0.30
	context.Send(pid, domain.ExternalModeMessage{Mode: domain.ModeSell})
	context.Send(pid, domain.PriceUpdateMessage{Direction: domain.TariffExport, Price: &low, At: time.Now()})

	// price recovers before the debounce elapses
	time.Sleep(300 * time.Millisecond)
	context.Send(pid, domain.PriceUpdateMessage{Direction: domain.TariffExport, Price: &high, At: time.Now()})

	time.Sleep(2 * time.Second)

	assert.Empty(t, commander.Writes)

	context.Stop(pid)
	as.Shutdown()
}
