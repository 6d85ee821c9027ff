package outbox

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderMessageID   = "message_id"
	HeaderMessageType = "message_type"
)

// KafkaPublisher writes outbox messages to a Kafka topic. Messages are keyed
// by id and carry their type in a header.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, goerrors.New("kafka publisher requires at least one broker", goerrors.CategoryValidation)
	}
	if topic == "" {
		return nil, goerrors.New("kafka publisher requires a topic", goerrors.CategoryValidation)
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	if err := p.writer.WriteMessages(ctx, kafkaMessage(msg)); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to write kafka message").
			WithMetadata(map[string]any{"id": msg.ID.String(), "topic": p.writer.Topic})
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessage(msg Message) kafka.Message {
	id := msg.ID.String()
	return kafka.Message{
		Key:   []byte(id),
		Value: msg.Content,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderMessageID, Value: []byte(id)},
			{Key: HeaderMessageType, Value: []byte(msg.Type)},
		},
	}
}
