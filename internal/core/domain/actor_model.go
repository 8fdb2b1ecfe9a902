package domain

import "time"

const (
	ACTOR_ID_MASTER       = "master"
	ACTOR_ID_MQTT         = "mqtt"
	ACTOR_ID_BATTERY      = "battery"
	ACTOR_ID_TELEMETRY    = "telemetry"
	ACTOR_ID_TARIFF       = "tariff"
	ACTOR_ID_ACCRUAL      = "accrual"
	ACTOR_ID_MODE_CONTROL = "mode_control"
	ACTOR_ID_HA_DISCOVERY = "hadiscovery"
)

// Inbound telemetry

type PowerSampleMessage struct {
	Sample PowerSample
}

type PriceUpdateMessage struct {
	Direction TariffDirection
	// Price is nil when the feed published a null state.
	Price *float64
	// BandLabel is nil when the feed carries no label topic.
	BandLabel *string
	At        time.Time
}

type StateOfChargeMessage struct {
	Percent float64
	At      time.Time
}

// ExternalModeMessage mirrors the operating mode set outside this process.
type ExternalModeMessage struct {
	Mode OperatingMode
}

// Internal fan-out

type BucketClosedMessage struct {
	Bucket EnergyBucket
}

type RateSignalMessage struct {
	Signal RateSignal
	At     time.Time
}

// Battery commander

type SetOperatingModeRequest struct {
	BatteryCommandMixIn
	Mode OperatingMode
}

type SetOperatingModeResponse struct {
	ActorResponseMixIn
	Mode OperatingMode
}

// Notifications

type SendNotificationRequest struct {
	ActorRequestMixIn
	Title   string
	Message string
}

type SendNotificationResponse struct {
	ActorResponseMixIn
}

// Ledger queries

type GetLedgerRequest struct {
	ActorRequestMixIn
}

type GetLedgerResponse struct {
	ActorResponseMixIn
	Snapshot LedgerSnapshot
	// LastEntries are the deltas applied by the most recent firing.
	LastEntries []LedgerEntry
}

// MQTT adapter

type PublishMessageRequest struct {
	ActorRequestMixIn
	Topic   string
	Payload string
	Retain  bool
}

type PublishMessageResponse struct {
	ActorResponseMixIn
}

type PublishSensorUpdateRequest struct {
	ActorRequestMixIn
	Retain bool
	Event  SensorUpdateEvent
}

type PublishSensorUpdateResponse struct {
	ActorResponseMixIn
}

type PublishDiscoveryRequest struct {
	ActorRequestMixIn
	Sensors []GenericSensor
	Selects []GenericSelect
}

type PublishDiscoveryResponse struct {
	ActorResponseMixIn
}

// Health

type ActorHealthRequest struct {
	ActorRequestMixIn
}

type ActorHealthResponse struct {
	ActorResponseMixIn
	Id      string
	Healthy bool
	State   string
}
