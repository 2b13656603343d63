package eventbus

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/cadence/pkg/events"
	"github.com/dukex/cadence/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	tracer        trace.Tracer
	subscriptions map[events.EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		tracer:        otel.Tracer("cadence.eventbus"),
		subscriptions: make(map[events.EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(msg.Metadata))

	return eb.publisher.Publish(events.Topic, msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, events.Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eb.consume(ctx, msg)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, msg *message.Message) {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	msgCtx := otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(msg.Metadata))

	traceCtx, span := otelhelper.StartSpan(msgCtx, eb.tracer, "eventbus consume",
		attribute.String(otelhelper.EventTypeKey, string(eventType)),
		attribute.String(otelhelper.CampaignIDKey, msg.Metadata.Get(events.EventMetadataKey)),
	)
	defer span.End()

	handler, exists := eb.subscriptions[eventType]
	if !exists {
		msg.Ack()

		return
	}

	var event any

	switch eventType {
	case events.TimeoutDueEvent:
		event = &events.TimeoutDue{}
	case events.MessageEventReceivedEvent:
		event = &events.MessageEventReceived{}
	case events.CampaignAdvancedEvent:
		event = &events.CampaignAdvanced{}
	case events.CampaignCompletedEvent:
		event = &events.CampaignCompleted{}
	default:
		otelhelper.SetError(span, errors.New("unknown event type"))
		msg.Nack()

		return
	}

	err := json.Unmarshal(msg.Payload, event)
	if err != nil {
		otelhelper.SetError(span, err)
		msg.Nack()

		return
	}

	err = handler(traceCtx, event)
	if err != nil {
		otelhelper.SetError(span, err)
		msg.Nack()

		return
	}

	msg.Ack()
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
