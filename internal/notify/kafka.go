package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"solana-mev-agent/internal/domain"
	"solana-mev-agent/internal/observability"
)

const channelKafka = "kafka"

// Event types published to Kafka.
const (
	EventOpportunityDetected = "opportunity_detected"
	EventTradeExecuted       = "trade_executed"
)

// Event is the JSON payload of one Kafka message.
type Event struct {
	Type      string                `json:"type"`
	Decision  *domain.TradeDecision `json:"decision"`
	Signature string                `json:"signature,omitempty"`
	Timestamp int64                 `json:"timestamp"` // unix ms
}

// Kafka publishes decision events to a topic, keyed by decision ID.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewKafkaProducer dials brokers with a sync producer configuration.
func NewKafkaProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := NewKafkaConfig()
	p, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, nil
}

// NewKafkaConfig returns the producer configuration used by NewKafkaProducer.
func NewKafkaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = "solana-mev-agent"
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 3
	return cfg
}

// NewKafka wraps producer. A nil logger uses the logrus standard logger.
func NewKafka(producer sarama.SyncProducer, topic string, logger logrus.FieldLogger) *Kafka {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Kafka{
		producer: producer,
		topic:    topic,
		logger:   logger.WithField("component", "kafka_notifier"),
		now:      time.Now,
	}
}

func (k *Kafka) NotifyOpportunityDetected(ctx context.Context, d *domain.TradeDecision) error {
	return k.publish(ctx, Event{Type: EventOpportunityDetected, Decision: d})
}

func (k *Kafka) NotifyTradeExecuted(ctx context.Context, d *domain.TradeDecision, signature string) error {
	return k.publish(ctx, Event{Type: EventTradeExecuted, Decision: d, Signature: signature})
}

func (k *Kafka) publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev.Timestamp = k.now().UnixMilli()

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}
	if ev.Decision != nil && ev.Decision.ID != "" {
		msg.Key = sarama.StringEncoder(ev.Decision.ID)
	}

	partition, offset, err := k.producer.SendMessage(msg)
	observability.RecordNotification(channelKafka, err)
	if err != nil {
		return fmt.Errorf("kafka publish %s: %w", ev.Type, err)
	}

	k.logger.WithFields(logrus.Fields{
		"type":      ev.Type,
		"partition": partition,
		"offset":    offset,
	}).Debug("event published")
	return nil
}

// Close closes the underlying producer.
func (k *Kafka) Close() error {
	return k.producer.Close()
}

var _ Notifier = (*Kafka)(nil)
