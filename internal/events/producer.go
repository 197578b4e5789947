// Package events emits valuation snapshots to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ndewijer/Portfolio-Valuation-Backend/internal/model"
)

// EventPortfolioValued is the event type of every snapshot message.
const EventPortfolioValued = "PORTFOLIO_VALUED"

// ValuationEvent is the JSON value of a snapshot message. Messages are keyed
// by owner so one owner's snapshots stay ordered within a partition.
type ValuationEvent struct {
	EventType  string                     `json:"eventType"`
	OwnerID    string                     `json:"ownerId"`
	Valuations []model.PortfolioValuation `json:"valuations"`
	Timestamp  time.Time                  `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing valuation snapshots to Kafka
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// PublishSnapshot publishes a portfolio valued event for ownerID.
func (p *Producer) PublishSnapshot(ctx context.Context, ownerID string, valuations []model.PortfolioValuation) error {
	event := ValuationEvent{
		EventType:  EventPortfolioValued,
		OwnerID:    ownerID,
		Valuations: valuations,
		Timestamp:  p.now().UTC(),
	}
	return p.publish(ctx, ownerID, event)
}

func (p *Producer) publish(ctx context.Context, key string, event ValuationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
