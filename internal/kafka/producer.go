package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-booking/internal/config"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes booking and catalog domain events.
type Producer struct {
	Writer messageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

// PublishBookingCommitted streams a committed admission, keyed by event id.
func (p *Producer) PublishBookingCommitted(ctx context.Context, b models.BookingCommitted) error {
	return p.publish(ctx, p.Topics.BookingCommitted, b.EventID, b)
}

// PublishEventChanged streams a catalog write, keyed by event id.
func (p *Producer) PublishEventChanged(ctx context.Context, c models.EventChanged) error {
	return p.publish(ctx, p.Topics.EventChanged, c.EventID, c)
}

func (p *Producer) publish(ctx context.Context, topic string, eventID int64, payload interface{}) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(eventID, 10)),
		Value: msgBytes,
	})
	if err != nil {
		p.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish to %s: %v", topic, err))
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.Logger.LogKafka("PUBLISH", topic, string(msgBytes))
	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
