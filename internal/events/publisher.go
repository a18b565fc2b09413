package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nightspite/sol-pos/internal/domain"
)

const TypeOrderCompleted = "order.completed"

// Writer is the part of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderCompleted struct {
	OrderID     string             `json:"order_id"`
	StoreID     string             `json:"store_id"`
	PosID       string             `json:"pos_id"`
	Signature   string             `json:"signature"`
	TotalCents  int64              `json:"total_cents"`
	Amount      string             `json:"amount"`
	Lines       []domain.OrderLine `json:"lines"`
	CompletedAt time.Time          `json:"completed_at"`
}

type Publisher struct {
	writer Writer
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewPublisher(w Writer) *Publisher {
	return &Publisher{
		writer: w,
	}
}

// OrderCompleted emits the settlement of an order keyed by store, so events
// of one store stay ordered.
func (p *Publisher) OrderCompleted(ctx context.Context, order domain.Order) error {
	var signature string
	if order.Signature != nil {
		signature = *order.Signature
	}

	payload, err := json.Marshal(OrderCompleted{
		OrderID:     order.ID,
		StoreID:     order.StoreID,
		PosID:       order.PosID,
		Signature:   signature,
		TotalCents:  order.Total(),
		Amount:      order.TotalAmount().String(),
		Lines:       order.Lines,
		CompletedAt: order.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal -> %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.StoreID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TypeOrderCompleted)},
		},
	})
	if err != nil {
		return fmt.Errorf("p.writer.WriteMessages -> %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
