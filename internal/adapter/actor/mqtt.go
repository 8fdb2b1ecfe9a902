package actor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"sunledger2mqtt/internal/config"
	"sunledger2mqtt/internal/core/domain"
	"sunledger2mqtt/internal/core/service"
	"sunledger2mqtt/internal/mqtt"
	"sunledger2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type MQTTActor struct {
	config      *config.Config
	behavior    actor.Behavior
	stash       *actorutil.Stash
	client      *mqtt.MQTTClient
	eventStream *eventstream.EventStream
	eventSub    *eventstream.Subscription
	logger      *zap.Logger

	// channel lookup for inbound power topics
	channelByTopic map[string]string
	// last seen band labels, paired with the next price payload
	importBandLabel *string
	exportBandLabel *string
}

type MQTTConnected struct {
}

type MQTTSubscribed struct {
}

type MQTTConnectionLost struct {
	Error error
}

type publishResult struct {
	ReplyTo *actor.PID
	Error   error
}

type ParsedCommand struct {
	Command *mqtt.ParsedMQTTCommand
}

// inboundPayload carries one message from a subscribed input topic onto the
// actor goroutine.
type inboundPayload struct {
	topic   string
	payload string
}

type rawMessage struct {
	topic   string
	message string
	retain  bool
}

type notificationPayload struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

func NewMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:         config,
		behavior:       actor.NewBehavior(),
		stash:          &actorutil.Stash{},
		logger:         actorutil.ActorLogger(domain.ACTOR_ID_MQTT, logger),
		eventStream:    eventStream,
		channelByTopic: channelLookup(config),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func channelLookup(config *config.Config) map[string]string {
	lookup := make(map[string]string, len(config.TelemetryConfig.PowerTopics))
	for channel, topic := range config.TelemetryConfig.PowerTopics {
		lookup[topic] = channel
	}
	return lookup
}

func (state *MQTTActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MQTTActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("mqtt@starting started")

		// forward sensor updates from the event bus to self
		if state.eventStream != nil {
			state.eventSub = state.eventStream.Subscribe(func(evt interface{}) {
				if ev, ok := evt.(domain.SensorUpdateEvent); ok {
					ctx.Send(ctx.Self(), domain.PublishSensorUpdateRequest{Event: ev})
				}
			})
		}

		// create MQTT client
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), func(_ pahomqtt.Client) {
		}, func(_ pahomqtt.Client, err error) {
			ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
		})

		// connect to MQTT server
		state.client.Connect(func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTConnected{})
			}
		}, 10*time.Second)

	case MQTTConnected:
		state.logger.Debug("mqtt@starting connected")

		state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_ONLINE, 0, true, func(error) {}, 500*time.Millisecond)

		// subscribe to MQTT command topic
		state.client.SubscribeToCommandTopic(func(c pahomqtt.Client, m pahomqtt.Message) {
			cmd, err := state.client.ParseMQTTCommand(m)
			if err == nil && cmd != nil {
				ctx.Send(ctx.Self(), ParsedCommand{Command: cmd})
			}
		}, func(err error) {
			if err != nil {
				ctx.Send(ctx.Self(), MQTTConnectionLost{Error: err})
			} else {
				ctx.Send(ctx.Self(), MQTTSubscribed{})
			}
		}, 1*time.Second)
	case MQTTSubscribed:
		// init completed, subscribe input feeds and transition to default state
		state.logger.Debug("mqtt@starting subscribed")
		state.subscribeInputTopics(ctx)
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@starting connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	case *actor.Restarting:
		state.stop()
	default:
		state.logger.Debug("mqtt@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// subscribeInputTopics attaches every configured read-only feed: power
// channels, prices, band labels, SoC and the externally set mode.
func (state *MQTTActor) subscribeInputTopics(ctx actor.Context) {
	var topics []string
	for _, topic := range state.config.TelemetryConfig.PowerTopics {
		topics = append(topics, topic)
	}
	for _, topic := range []string{
		state.config.TelemetryConfig.SocTopic,
		state.config.TelemetryConfig.ModeTopic,
		state.config.TariffConfig.ImportPriceTopic,
		state.config.TariffConfig.ExportPriceTopic,
		state.config.TariffConfig.ImportBandTopic,
		state.config.TariffConfig.ExportBandTopic,
	} {
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	handler := func(c pahomqtt.Client, m pahomqtt.Message) {
		ctx.Send(ctx.Self(), inboundPayload{topic: m.Topic(), payload: string(m.Payload())})
	}
	for _, topic := range topics {
		subTopic := topic
		state.client.Subscribe(subTopic, 0, handler, func(err error) {
			if err != nil {
				state.logger.Error("mqtt: input subscribe failed", zap.String("topic", subTopic), zap.Error(err))
			}
		}, 1*time.Second)
	}
}

func (state *MQTTActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Restarting:
		state.stop()
	case *actor.Stopping:
		state.stop()
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case ParsedCommand:
		// route command to parent
		state.logger.Debug("mqtt@default parsedCommand", zap.Any("command", msg.Command))
		ctx.Send(ctx.Parent(), msg)
	case inboundPayload:
		state.dispatchInbound(ctx, msg)
	case domain.PublishMessageRequest:
		state.logger.Debug("mqtt@default PublishMessageRequest", zap.Any("message", msg))
		state.publishMessage(ctx, msg.Topic, msg.Payload, msg.Retain, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishSensorUpdateRequest:
		// receive message from event bus and publish to MQTT if needed
		state.logger.Debug("mqtt@default PublishSensorUpdateRequest", zap.String("type", fmt.Sprintf("%T", msg.Event)))
		state.publishSensorValue(ctx, msg.Event, msg.Retain)
	case domain.SendNotificationRequest:
		state.logger.Debug("mqtt@default SendNotificationRequest", zap.String("title", msg.Title))
		state.publishNotification(ctx, msg, actorutil.ForRequest(msg).ReplyTo(ctx))
	case domain.PublishDiscoveryRequest:
		state.logger.Debug("mqtt@default PublishHADiscovery")
		err := state.PublishHomeAssistantDiscovery(ctx, msg.Sensors, msg.Selects)
		if err != nil {
			state.logger.Error("mqtt@default PublishHADiscovery error", zap.Error(err))
		}
	case MQTTConnectionLost:
		// if connection lost, stop actor and let supervisor decide
		state.logger.Error("mqtt@default connection lost", zap.Error(msg.Error))
		panic(msg.Error)
	default:
		state.logger.Debug("mqtt@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// dispatchInbound turns a raw topic payload into a domain message for the
// parent. Band labels are cached and attached to the next price payload of
// their direction.
func (state *MQTTActor) dispatchInbound(ctx actor.Context, in inboundPayload) {
	now := time.Now()

	if channel, ok := state.channelByTopic[in.topic]; ok {
		value, err := strconv.ParseFloat(in.payload, 64)
		if err != nil {
			state.logger.Debug("mqtt: unparsable power payload",
				zap.String("topic", in.topic), zap.String("payload", in.payload))
			return
		}
		ctx.Send(ctx.Parent(), domain.PowerSampleMessage{
			Sample: domain.PowerSample{Channel: channel, PowerWatt: value, At: now},
		})
		return
	}

	switch in.topic {
	case state.config.TelemetryConfig.SocTopic:
		value, err := strconv.ParseFloat(in.payload, 64)
		if err != nil {
			return
		}
		ctx.Send(ctx.Parent(), domain.StateOfChargeMessage{Percent: value, At: now})
	case state.config.TelemetryConfig.ModeTopic:
		if mode, ok := domain.ParseOperatingMode(in.payload); ok {
			ctx.Send(ctx.Parent(), domain.ExternalModeMessage{Mode: mode})
		}
	case state.config.TariffConfig.ImportBandTopic:
		state.importBandLabel = bandLabel(in.payload)
	case state.config.TariffConfig.ExportBandTopic:
		state.exportBandLabel = bandLabel(in.payload)
	case state.config.TariffConfig.ImportPriceTopic:
		ctx.Send(ctx.Parent(), priceUpdate(domain.TariffImport, in.payload, state.importBandLabel, now))
	case state.config.TariffConfig.ExportPriceTopic:
		ctx.Send(ctx.Parent(), priceUpdate(domain.TariffExport, in.payload, state.exportBandLabel, now))
	default:
		state.logger.Debug("mqtt: payload on unexpected topic", zap.String("topic", in.topic))
	}
}

// bandLabel treats null feed states as no label at all.
func bandLabel(payload string) *string {
	if service.IsNullPricePayload(payload) {
		return nil
	}
	return &payload
}

func priceUpdate(direction domain.TariffDirection, payload string, label *string, at time.Time) domain.PriceUpdateMessage {
	msg := domain.PriceUpdateMessage{Direction: direction, BandLabel: label, At: at}
	if service.IsNullPricePayload(payload) {
		return msg
	}
	if value, err := strconv.ParseFloat(payload, 64); err == nil {
		msg.Price = &value
	}
	return msg
}

func (state *MQTTActor) event2MQTTMessage(event any) *rawMessage {
	switch msg := event.(type) {
	case domain.FloatSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: fmt.Sprintf(fmt.Sprintf("%%.%df", msg.Decimals), msg.Value),
		}
	case domain.BinarySensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.BinarySensorStateTopic(msg.Id),
			message: bool2MQTTPayload(msg.Value),
		}
	case domain.SelectSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SelectStateTopic(msg.Id),
			message: msg.Value,
			retain:  true,
		}
	case domain.TextSensorUpdateEvent:
		return &rawMessage{
			topic:   state.client.SensorStateTopic(msg.Id),
			message: msg.Value,
		}
	case domain.BridgeStateUpdateEvent:
		var stringMessage string
		if msg.Value {
			stringMessage = mqtt.MQTT_PAYLOAD_ONLINE
		} else {
			stringMessage = mqtt.MQTT_PAYLOAD_OFFLINE
		}
		return &rawMessage{
			topic:   state.client.BridgeStateTopic(),
			message: stringMessage,
		}
	default:
		return nil
	}
}

func (state *MQTTActor) publishSensorValue(ctx actor.Context, event domain.SensorUpdateEvent, retain bool) {
	msg := state.event2MQTTMessage(event)
	if msg != nil {
		state.logger.Sugar().Debugf("mqtt@publish: sensor publish %s => %s", msg.topic, msg.message)
		state.client.Publish(msg.topic, msg.message, 1, msg.retain || retain, func(err error) {
			ctx.Send(ctx.Self(), publishResult{Error: err})
		}, 5*time.Second)
		state.behavior.BecomeStacked(state.EventPublishResultReceive)
	}
}

func (state *MQTTActor) publishMessage(ctx actor.Context, topic, payload string, retain bool, replyTo *actor.PID) {
	state.logger.Sugar().Debugf("mqtt@publish: message publish %s => %s", topic, payload)
	state.client.Publish(topic, payload, 1, retain, func(err error) {
		ctx.Send(ctx.Self(), publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.MessagePublishResultReceive)
}

func (state *MQTTActor) publishNotification(ctx actor.Context, msg domain.SendNotificationRequest, replyTo *actor.PID) {
	payload, err := json.Marshal(notificationPayload{Title: msg.Title, Message: msg.Message})
	if err != nil {
		if replyTo != nil {
			ctx.Send(replyTo, domain.SendNotificationResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: err},
			})
		}
		return
	}
	state.client.Publish(state.client.NotifyTopic(), payload, 1, false, func(err error) {
		ctx.Send(ctx.Self(), publishResult{ReplyTo: replyTo, Error: err})
	}, 5*time.Second)
	state.behavior.BecomeStacked(state.NotificationPublishResultReceive)
}

func (state *MQTTActor) MessagePublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		// log error and return to default state
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishMessageResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) EventPublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		// log error and return to default state
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a message", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.PublishSensorUpdateResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) NotificationPublishResultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case publishResult:
		if msg.Error != nil {
			state.logger.Error("mqtt@publishing could not publish a notification", zap.Error(msg.Error))
		}
		if msg.ReplyTo != nil {
			ctx.Send(msg.ReplyTo, domain.SendNotificationResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: msg.Error,
				},
			})
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashOldest(ctx)
	default:
		state.logger.Debug("mqtt@publishing stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MQTTActor) PublishHomeAssistantDiscovery(ctx actor.Context, sensors []domain.GenericSensor,
	selects []domain.GenericSelect) error {
	for i := range sensors {
		msg := mqtt.GenericSensorToHADiscoveryMessage(state.client, sensors[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := state.client.HADiscoverySensorTopic(sensors[i])
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	for i := range selects {
		msg := mqtt.GenericSelectToHADiscoveryMessage(state.client, selects[i])
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := state.client.HADiscoverySelectTopic(selects[i])
		state.client.Publish(topic, payload, 0, true, func(error) {}, 1*time.Second)
	}
	return nil
}

func (state *MQTTActor) stop() {
	state.logger.Debug("mqtt: disconnect")
	if state.eventStream != nil && state.eventSub != nil {
		state.eventStream.Unsubscribe(state.eventSub)
		state.eventSub = nil
	}
	state.client.Publish(state.client.BridgeStateTopic(), mqtt.MQTT_PAYLOAD_OFFLINE, 0, true, func(error) {}, 500*time.Millisecond)
	if state.client != nil {
		state.client.Disconnect(500 * time.Millisecond)
	}
}

func bool2MQTTPayload(value bool) string {
	if value {
		return mqtt.MQTT_PAYLOAD_ON
	} else {
		return mqtt.MQTT_PAYLOAD_OFF
	}
}

// Dummy actor
func NewTestMQTTActor(config *config.Config, eventStream *eventstream.EventStream, logger *zap.Logger) *MQTTActor {
	act := &MQTTActor{
		config:         config,
		behavior:       actor.NewBehavior(),
		stash:          &actorutil.Stash{},
		logger:         actorutil.ActorLogger("mqtt", logger),
		eventStream:    eventStream,
		channelByTopic: channelLookup(config),
	}
	act.behavior.Become(act.DummyReceive)
	return act
}

func (state *MQTTActor) DummyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.client = mqtt.CreateMQTTClient(state.config, mqtt.OptsFromConfig(state.config), nil, nil)
		if state.eventStream != nil {
			state.eventSub = state.eventStream.Subscribe(func(evt interface{}) {
				if ev, ok := evt.(domain.SensorUpdateEvent); ok {
					ctx.Send(ctx.Self(), domain.PublishSensorUpdateRequest{Event: ev})
				}
			})
		}
	case domain.ActorHealthRequest:
		state.logger.Debug("mqtt@default ActorHealthRequest")
		// respond health check request
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: true,
			State:   "idle",
		})
	case domain.PublishSensorUpdateRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishSensorUpdateResponse{})
		}
	case domain.SendNotificationRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.SendNotificationResponse{})
		}
	case domain.PublishMessageRequest:
		if msg.ReplyToRef != nil {
			ctx.Respond(domain.PublishMessageResponse{})
		}
	}
}
