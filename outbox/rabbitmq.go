package outbox

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQPublisher publishes outbox messages to a durable topic exchange,
// using the message type as routing key.
type RabbitMQPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	url = strings.Trim(strings.TrimSpace(url), "\"'")
	if !strings.HasPrefix(url, "amqp://") && !strings.HasPrefix(url, "amqps://") {
		return nil, goerrors.New("AMQP scheme must be either 'amqp://' or 'amqps://'", goerrors.CategoryValidation)
	}
	if exchange == "" {
		return nil, goerrors.New("rabbitmq publisher requires an exchange", goerrors.CategoryValidation)
	}

	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to connect to rabbitmq")
	}

	p := &RabbitMQPublisher{conn: conn, exchange: exchange}
	if err := p.openChannel(); err != nil {
		conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *RabbitMQPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to open rabbitmq channel")
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to declare rabbitmq exchange").
			WithMetadata(map[string]any{"exchange": p.exchange})
	}
	p.channel = ch
	return nil
}

// Publish sends msg, reopening the channel once if it was closed.
func (p *RabbitMQPublisher) Publish(ctx context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel == nil || p.channel.IsClosed() {
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		msg.Type,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Type:         msg.Type,
			Timestamp:    msg.CreatedAt,
			Body:         msg.Content,
		},
	)
}

func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
