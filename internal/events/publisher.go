package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"planty-of-food/internal/entity"
)

// OrderEvent is the payload written to the order topic.
type OrderEvent struct {
	Type       string        `json:"type"`
	Order      *entity.Order `json:"order"`
	OccurredAt time.Time     `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, now: time.Now}
}

// Publish writes one message keyed order-<action>-<id>, e.g.
// order-created-0b9f... for "order.created".
func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, order *entity.Order) error {
	value, err := json.Marshal(OrderEvent{Type: eventType, Order: order, OccurredAt: p.now().UTC()})
	if err != nil {
		return err
	}

	action := strings.TrimPrefix(eventType, "order.")
	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("order-%s-%s", action, order.ID)),
		Value: value,
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
