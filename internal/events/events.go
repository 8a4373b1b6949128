package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ForecastGenerated is emitted after a forecast record is persisted
type ForecastGenerated struct {
	ForecastID string    `json:"forecastId"`
	ItemKind   string    `json:"itemKind"`
	ItemID     int64     `json:"itemId"`
	Method     string    `json:"method"`
	StartDate  string    `json:"startDate"`
	EndDate    string    `json:"endDate"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Publisher announces forecast events to downstream consumers (stock planning, dashboards)
type Publisher interface {
	PublishForecast(ctx context.Context, ev ForecastGenerated) error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishForecast(context.Context, ForecastGenerated) error { return nil }

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by item, so one item's
// forecasts land on one partition in order.
type KafkaPublisher struct {
	writer kafkaMessageWriter
}

// NewKafkaPublisher creates a publisher.
// bootstrap can be a comma-separated list of host:port.
func NewKafkaPublisher(bootstrap string, topic string) *KafkaPublisher {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

// NewKafkaPublisherWith is only for tests to inject a fake writer.
func NewKafkaPublisherWith(w kafkaMessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (k *KafkaPublisher) PublishForecast(ctx context.Context, ev ForecastGenerated) error {
	b, err := json.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}
	key := fmt.Sprintf("%s:%d", ev.ItemKind, ev.ItemID)
	if err := k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b}); err != nil {
		return fmt.Errorf("events: publish forecast %s: %w", ev.ForecastID, err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error { return k.writer.Close() }
