package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brandpick/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/ksuid"
)

// RabbitMQClient publishes events to a topic exchange, routed by channel
// name. Subscribers bind a queue named after the channel, so events with
// no bound queue are dropped by the broker instead of piling up.
type RabbitMQClient struct {
	conn            *amqp.Connection
	channel         *amqp.Channel
	exchange        string
	queueDurable    bool
	queueAutoDelete bool
	prefetchCount   int
}

// NewRabbitMQClient constructs a RabbitMQ client from config.
func NewRabbitMQClient(cfg config.RabbitMQConfig) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(cfg.Exchange) == "" {
		return nil, errors.New("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if cfg.PrefetchCount > 0 {
		if err := ch.Qos(cfg.PrefetchCount, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, err
		}
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	return &RabbitMQClient{
		conn:            conn,
		channel:         ch,
		exchange:        cfg.Exchange,
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		prefetchCount:   cfg.PrefetchCount,
	}, nil
}

// Publish routes a message through the exchange with the channel as
// routing key.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := newPublishing(data, attrs, r.deliveryMode())
	if err := r.channel.PublishWithContext(ctx, r.exchange, channel, false, false, msg); err != nil {
		return "", fmt.Errorf("publish %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe binds the channel's queue to the exchange and consumes it.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	if _, err := r.declareQueue(channel); err != nil {
		return err
	}
	if err := r.channel.QueueBind(channel, channel, r.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", channel, r.exchange, err)
	}

	consumerTag := fmt.Sprintf("consumer-%s", newMessageID())
	deliveries, err := r.channel.Consume(channel, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = r.channel.Cancel(consumerTag, false)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			message := Message{
				ID:         delivery.MessageId,
				Data:       delivery.Body,
				Attributes: headersToAttributes(delivery.Headers, delivery.ContentType),
			}
			if err := handler(ctx, message); err != nil {
				_ = delivery.Nack(false, redeliver(err))
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the underlying channel and connection.
func (r *RabbitMQClient) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func (r *RabbitMQClient) deliveryMode() uint8 {
	if r.queueDurable {
		return amqp.Persistent
	}
	return amqp.Transient
}

func (r *RabbitMQClient) declareQueue(name string) (amqp.Queue, error) {
	return r.channel.QueueDeclare(
		name,
		r.queueDurable,
		r.queueAutoDelete,
		false,
		false,
		nil,
	)
}

// newPublishing moves the content type attribute onto the AMQP property
// and carries the rest as headers.
func newPublishing(data []byte, attrs map[string]string, mode uint8) amqp.Publishing {
	headers := amqp.Table{}
	contentType := "application/octet-stream"
	for key, value := range attrs {
		if key == AttrContentType {
			contentType = value
			continue
		}
		headers[key] = value
	}
	return amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: mode,
		MessageId:    newMessageID(),
		Headers:      headers,
		Body:         data,
	}
}

func headersToAttributes(headers amqp.Table, contentType string) map[string]string {
	if len(headers) == 0 && contentType == "" {
		return nil
	}
	attrs := make(map[string]string, len(headers)+1)
	if contentType != "" {
		attrs[AttrContentType] = contentType
	}
	for key, value := range headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	return attrs
}

// newMessageID returns a time-ordered id so deliveries sort by publish time
// in broker tooling.
func newMessageID() string {
	return ksuid.New().String()
}
