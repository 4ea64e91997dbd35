// Package publish emits daily summary events to Kafka.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/railzwaylabs/salesanalytics/internal/sales/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventDailySummary = "sales.daily_summary.v1"

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SummaryEvent is the payload of a daily summary message.
type SummaryEvent struct {
	Type    string              `json:"type"`
	RunID   string              `json:"run_id"`
	Summary domain.DailySummary `json:"summary"`
}

type KafkaPublisher struct {
	writer MessageWriter
	log    *zap.Logger
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Zstd,
	}
}

func NewKafkaPublisher(writer MessageWriter, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log.Named("publish.kafka")}
}

// PublishSummary writes one message keyed by the summary date, so every event of a date
// lands on the same partition in order.
func (p *KafkaPublisher) PublishSummary(ctx context.Context, runID string, summary domain.DailySummary) error {
	payload, err := json.Marshal(SummaryEvent{Type: EventDailySummary, RunID: runID, Summary: summary})
	if err != nil {
		return fmt.Errorf("encode summary event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(summary.Date),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventDailySummary)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish summary %s: %w", summary.Date, err)
	}

	p.log.Debug("summary published", zap.String("date", summary.Date), zap.String("run_id", runID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
