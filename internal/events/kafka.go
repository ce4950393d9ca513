package events

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	kafkaGo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// KafkaPublisher writes events asynchronously, one topic per event type.
type KafkaPublisher struct {
	writer *kafkaGo.Writer
	prefix string
}

// NewKafkaPublisher creates a publisher for brokers. Delivery errors are
// logged from the writer's completion callback.
func NewKafkaPublisher(brokers []string, prefix string) *KafkaPublisher {
	return &KafkaPublisher{
		prefix: prefix,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(brokers...),
			Balancer:               &kafkaGo.LeastBytes{},
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion:             logCompletion,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	msg, err := p.message(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) message(event OrderEvent) (kafkaGo.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return kafkaGo.Message{
		Topic: Topic(p.prefix, event.Type),
		Key:   []byte(event.Key()),
		Value: payload,
	}, nil
}

func logCompletion(messages []kafkaGo.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range messages {
		zap.L().Error("order event delivery failed",
			zap.String("namespace", "events"),
			zap.String("topic", m.Topic),
			zap.String("key", string(m.Key)),
			zap.Error(err),
		)
	}
}
