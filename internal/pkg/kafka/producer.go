package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

type Producer interface {
	SendMessage(topic, key string, message interface{}) error
	Close() error
}

type kafkaProducer struct {
	writer *kafka.Writer
}

// NewProducer connects to the first reachable broker and makes sure topics
// exist. It fails when no broker answers, so the caller can pick another bus.
func NewProducer(brokers []string, topics ...string) (Producer, error) {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	logrus.WithField("brokers", brokers).Info("kafka producer configured")

	// Проверяем подключение и создаем топики
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := dialAny(ctx, brokers)
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("kafka brokers unreachable: %w", err)
	}
	defer conn.Close()

	topicConfigs := make([]kafka.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		topicConfigs = append(topicConfigs, kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}

	if len(topicConfigs) > 0 {
		if err := conn.CreateTopics(topicConfigs...); err != nil {
			logrus.WithError(err).Warn("could not create topics (might already exist)")
		} else {
			logrus.WithField("topics", topics).Info("kafka topics ready")
		}
	}

	return &kafkaProducer{writer: writer}, nil
}

func dialAny(ctx context.Context, brokers []string) (*kafka.Conn, error) {
	lastErr := errors.New("no brokers configured")
	for _, broker := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			return conn, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (p *kafkaProducer) SendMessage(topic, key string, message interface{}) error {
	messageBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: messageBytes,
		Time:  time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"topic": topic,
			"key":   key,
			"error": err,
		}).Error("failed to write message to kafka")
		return err
	}

	logrus.WithFields(logrus.Fields{"topic": topic, "key": key}).Debug("message sent")
	return nil
}

func (p *kafkaProducer) Close() error {
	return p.writer.Close()
}

// logProducer only logs messages; used without a broker.
type logProducer struct{}

func NewLogProducer() Producer {
	return &logProducer{}
}

func (m *logProducer) SendMessage(topic, key string, message interface{}) error {
	logrus.WithFields(logrus.Fields{
		"topic":   topic,
		"key":     key,
		"message": message,
	}).Info("event")
	return nil
}

func (m *logProducer) Close() error {
	return nil
}
