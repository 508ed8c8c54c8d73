package rabbitMQ

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type Queue interface {
	SendMessage(queue, key string, message interface{}) error
	Consume(ctx context.Context, queue string, handler func(ctx context.Context, message []byte) error) error
	HealthCheck() error
	Close() error
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	config  RabbitMQConfig

	// amqp channels are not safe for concurrent publishing
	mu       sync.Mutex
	declared map[string]bool
}

type RabbitMQConfig struct {
	URL      string
	Queues   []string
	Prefetch int
}

func NewRabbitMQ(config RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	r := &RabbitMQ{
		conn:     conn,
		channel:  channel,
		config:   config,
		declared: make(map[string]bool),
	}

	for _, name := range config.Queues {
		if err := r.declare(name); err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

// declare must be called with mu held or before the queue is shared.
func (r *RabbitMQ) declare(name string) error {
	if r.declared[name] {
		return nil
	}
	// Объявляем очередь
	_, err := r.channel.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}
	r.declared[name] = true
	return nil
}

func (r *RabbitMQ) SendMessage(queue, key string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declare(queue); err != nil {
		return err
	}

	err = r.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    key,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

// Consume starts delivering queue messages to handler in the background.
// Failed messages are requeued.
func (r *RabbitMQ) Consume(ctx context.Context, queue string, handler func(ctx context.Context, message []byte) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.declare(queue); err != nil {
		return err
	}

	// Настраиваем QoS
	prefetch := max(r.config.Prefetch, 1)
	if err := r.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.channel.Consume(
		queue, // queue
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume messages: %w", err)
	}

	go r.handleMessages(ctx, msgs, handler)
	return nil
}

func (r *RabbitMQ) handleMessages(ctx context.Context, msgs <-chan amqp.Delivery, handler func(ctx context.Context, message []byte) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			deliver(ctx, msg, handler)
		}
	}
}

// acknowledger is the part of amqp.Delivery used after handling.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func deliver(ctx context.Context, msg amqp.Delivery, handler func(ctx context.Context, message []byte) error) {
	settle(ctx, &msg, msg.Body, handler)
}

func settle(ctx context.Context, ack acknowledger, body []byte, handler func(ctx context.Context, message []byte) error) {
	if err := handler(ctx, body); err != nil {
		logrus.WithError(err).Warn("failed to process message, requeueing")
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

func (r *RabbitMQ) Close() error {
	var errs []error

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing RabbitMQ: %v", errs)
	}

	return nil
}

// HealthCheck reports a closed broker connection.
func (r *RabbitMQ) HealthCheck() error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("RabbitMQ connection is closed")
	}
	return nil
}
