package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Publisher interface {
	Publish(ctx context.Context, queueName string, message interface{}) error
	Close()
}

// Handler processes one message body. Returning an error drops the message.
type Handler func(ctx context.Context, body []byte) error

type Consumer interface {
	Consume(ctx context.Context, queueName string, handler Handler) error
	Close()
}

func dial(url string, queues []string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	for _, name := range queues {
		_, err = ch.QueueDeclare(
			name,  // name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}
	return conn, ch, nil
}

type rabbitPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitPublisher connects and declares the given durable queues.
func NewRabbitPublisher(url string, queues ...string) (Publisher, error) {
	conn, ch, err := dial(url, queues)
	if err != nil {
		return nil, err
	}
	return &rabbitPublisher{conn: conn, channel: ch}, nil
}

func (p *rabbitPublisher) Publish(ctx context.Context, queueName string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (p *rabbitPublisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

type rabbitConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitConsumer(url string, queues ...string) (Consumer, error) {
	conn, ch, err := dial(url, queues)
	if err != nil {
		return nil, err
	}
	return &rabbitConsumer{conn: conn, channel: ch}, nil
}

// Consume acks messages the handler accepts and drops the rest without
// requeueing, so a malformed message cannot loop forever.
func (c *rabbitConsumer) Consume(ctx context.Context, queueName string, handler Handler) error {
	msgs, err := c.channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				if err := handler(ctx, d.Body); err != nil {
					log.Printf("[QUEUE] error processing message from %s: %v", queueName, err)
					d.Nack(false, false)
					continue
				}
				d.Ack(false)
			}
		}
	}()
	return nil
}

func (c *rabbitConsumer) Close() {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		c.conn.Close()
	}
}

// NopPublisher drops every message. It stands in when the broker is down.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }

func (NopPublisher) Close() {}
