package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"universe_backend/internal/feature/instruments/domain/entity"
	"universe_backend/internal/feature/instruments/usecase"
)

// MessageWriter abstracts kafka.Writer for testing.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer for the given brokers and topic.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
}

// Event types of ChangeEvent.
const (
	EventAdded      = "added"
	EventRemoved    = "removed"
	EventReinstated = "reinstated"
)

// ChangeEvent is the payload of one message on the universe change topic.
type ChangeEvent struct {
	RunID      string `json:"runId"`
	Type       string `json:"type"`
	ID         uint   `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Date       string `json:"date"`
}

type kafkaPublisher struct {
	writer MessageWriter
}

var _ usecase.DeltaPublisher = (*kafkaPublisher)(nil)

// NewKafkaPublisher はインポートの差分を1銘柄1メッセージで配信するDeltaPublisherを生成します。
func NewKafkaPublisher(writer MessageWriter) *kafkaPublisher {
	return &kafkaPublisher{writer: writer}
}

// Publish はメッセージキーに識別子を使うため、同じ銘柄のイベントは同じパーティションに入ります。
func (p *kafkaPublisher) Publish(ctx context.Context, report entity.ImportReport) error {
	date := report.ImportedAt.Format(entity.DateLayout)
	msgs := make([]kafka.Message, 0, len(report.Added)+len(report.Removed)+len(report.Reinstated))

	appendEvents := func(kind string, records []entity.Instrument) error {
		for _, r := range records {
			b, err := json.Marshal(ChangeEvent{
				RunID:      report.RunID,
				Type:       kind,
				ID:         r.ID,
				Identifier: r.Identifier,
				Name:       r.Name,
				Date:       date,
			})
			if err != nil {
				return fmt.Errorf("encode %s event: %w", kind, err)
			}
			msgs = append(msgs, kafka.Message{
				Key:   []byte(r.Identifier),
				Value: b,
				Time:  report.ImportedAt,
			})
		}
		return nil
	}
	if err := appendEvents(EventAdded, report.Added); err != nil {
		return err
	}
	if err := appendEvents(EventRemoved, report.Removed); err != nil {
		return err
	}
	if err := appendEvents(EventReinstated, report.Reinstated); err != nil {
		return err
	}

	if len(msgs) == 0 {
		return nil
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d change events: %w", len(msgs), err)
	}
	return nil
}

// Close closes the underlying writer.
func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
