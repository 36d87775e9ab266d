package pubsub

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// WatermillBridge implements Publisher and Subscriber on watermill's
// in-memory GoChannel.
type WatermillBridge struct {
	pub    message.Publisher
	sub    message.Subscriber
	tracer trace.Tracer
	prop   propagation.TextMapPropagator
}

const (
	// Metadata keys used to transfer our Message structure fields through watermill's message.
	metaKeyUserID = "user_id"
	metaKeyTopic  = "topic"
)

// NewWatermillBridge creates an in-process bus. Publish and process spans are
// recorded with tp; a nil tp disables tracing.
func NewWatermillBridge(tp trace.TracerProvider) *WatermillBridge {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)

	return &WatermillBridge{
		pub:    goChannel,
		sub:    goChannel,
		tracer: tp.Tracer("userownsdata/pubsub"),
		prop:   propagation.TraceContext{},
	}
}

func mapToWatermillMessage(msg Message) *message.Message {
	wmMsg := message.NewMessage(watermill.NewUUID(), msg.Payload)

	for k, v := range msg.Metadata {
		wmMsg.Metadata.Set(k, v)
	}
	wmMsg.Metadata.Set(metaKeyUserID, msg.UserID)
	wmMsg.Metadata.Set(metaKeyTopic, msg.Topic)

	return wmMsg
}

func mapToPubSubMessage(wmMsg *message.Message) Message {
	metadata := make(map[string]string, len(wmMsg.Metadata))
	for k, v := range wmMsg.Metadata {
		if k != metaKeyUserID && k != metaKeyTopic {
			metadata[k] = v
		}
	}

	return Message{
		Topic:    wmMsg.Metadata.Get(metaKeyTopic),
		UserID:   wmMsg.Metadata.Get(metaKeyUserID),
		Payload:  wmMsg.Payload,
		Metadata: metadata,
	}
}

func spanAttributes(operation, topic string, wmMsg *message.Message) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("messaging.system", "watermill"),
		attribute.String("messaging.operation", operation),
		attribute.String("messaging.destination", topic),
		attribute.String("messaging.message_id", wmMsg.UUID),
		attribute.Int("messaging.message_payload_size_bytes", len(wmMsg.Payload)),
	}
}

// Publish implements the Publisher interface. The caller's trace context is
// carried in the message metadata so the consumer span joins the same trace.
func (wb *WatermillBridge) Publish(ctx context.Context, msg Message) error {
	wmMsg := mapToWatermillMessage(msg)

	ctx, span := wb.tracer.Start(ctx, fmt.Sprintf("pubsub.publish.%s", msg.Topic),
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(spanAttributes("publish", msg.Topic, wmMsg)...),
	)
	defer span.End()

	wb.prop.Inject(ctx, propagation.MapCarrier(wmMsg.Metadata))

	if err := wb.pub.Publish(msg.Topic, wmMsg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Subscribe implements the Subscriber interface.
func (wb *WatermillBridge) Subscribe(ctx context.Context, topic string, handler Handler) error {
	messages, err := wb.sub.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for wmMsg := range messages {
			wb.process(ctx, topic, wmMsg, handler)
		}
		slog.Debug("Subscription message loop ended", "topic", topic)
	}()

	return nil
}

func (wb *WatermillBridge) process(ctx context.Context, topic string, wmMsg *message.Message, handler Handler) {
	ctx = wb.prop.Extract(ctx, propagation.MapCarrier(wmMsg.Metadata))
	ctx, span := wb.tracer.Start(ctx, fmt.Sprintf("pubsub.process.%s", topic),
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(spanAttributes("process", topic, wmMsg)...),
	)
	defer span.End()

	if err := handler(ctx, mapToPubSubMessage(wmMsg)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Failed to handle message", "topic", topic, "msg_id", wmMsg.UUID, "error", err)
		// GoChannel redelivers nacked messages; the in-process bus does not
		// retry, so the failure is logged and the message dropped.
		wmMsg.Ack()
		return
	}
	wmMsg.Ack()
}

// Close shuts down the bus and ends every subscription.
func (wb *WatermillBridge) Close() error {
	return wb.sub.Close()
}

// Shutdown closes the bus when the application stops.
func (wb *WatermillBridge) Shutdown(context.Context) error {
	return wb.Close()
}
