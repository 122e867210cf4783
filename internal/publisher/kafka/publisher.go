// Package kafka publishes enhanced-order events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"

	"mealmail/internal/config"
	"mealmail/internal/domain"
	"mealmail/internal/port"
)

// EventTypeOrderEnhanced is set in the event-type header of every message.
const EventTypeOrderEnhanced = "order.enhanced"

// OrderEvent is the message value written for each processed order.
type OrderEvent struct {
	Type        string                `json:"type"`
	PublishedAt time.Time             `json:"published_at"`
	Order       *domain.EnhancedOrder `json:"order"`
}

type publisher struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewPublisher connects a synchronous producer to the configured brokers.
func NewPublisher(cfg *config.KafkaConfig) (port.OrderPublisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Retry.Backoff = 100 * time.Millisecond
	sc.Producer.Return.Successes = true // required by SyncProducer
	sc.Net.DialTimeout = 30 * time.Second
	sc.Net.ReadTimeout = 30 * time.Second
	sc.Net.WriteTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	log.Printf("kafka.Publisher: connected to %v, topic %s", cfg.Brokers, cfg.Topic)
	return NewPublisherWithProducer(producer, cfg.Topic), nil
}

// NewPublisherWithProducer wraps an existing producer. Used in tests with
// sarama/mocks.
func NewPublisherWithProducer(producer sarama.SyncProducer, topic string) port.OrderPublisher {
	return &publisher{producer: producer, topic: topic, now: time.Now}
}

func (p *publisher) PublishOrder(ctx context.Context, order *domain.EnhancedOrder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(OrderEvent{
		Type:        EventTypeOrderEnhanced,
		PublishedAt: p.now().UTC(),
		Order:       order,
	})
	if err != nil {
		return fmt.Errorf("kafka.Publisher: encoding order %s: %w", order.ID, err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(order.ID.String()),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(EventTypeOrderEnhanced)},
			{Key: []byte("service"), Value: []byte(order.Service)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka.Publisher: sending order %s to %s: %w", order.ID, p.topic, err)
	}
	log.Printf("kafka.Publisher: order %s -> %s[%d]@%d", order.ID, p.topic, partition, offset)
	return nil
}

func (p *publisher) Close() error {
	return p.producer.Close()
}
