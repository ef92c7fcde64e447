// Kafka producer for booking lifecycle events. Consumers downstream feed
// operator dashboards and billing; the dispatch core never depends on a
// publish succeeding.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TransitionEvent struct {
	BookingID  string    `json:"booking_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	At         time.Time `json:"at"`
}

type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer builds a producer for the given brokers. Returns nil when no
// brokers are configured; callers treat a nil producer as a no-op.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	if len(brokers) == 0 {
		return nil
	}
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			// Async writes report broker errors here, not from WriteMessages.
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Warn("deliver transition events",
						zap.Int("messages", len(messages)),
						zap.Error(err))
				}
			},
		},
		logger: logger,
	}
}

// EmitTransition publishes a status change keyed by booking ID so per-booking
// ordering is preserved. Queueing errors are logged here; delivery errors
// arrive via the writer's completion callback. Either way they are dropped.
func (p *Producer) EmitTransition(ctx context.Context, bookingID, from, to string) {
	if p == nil {
		return
	}
	e := TransitionEvent{BookingID: bookingID, FromStatus: from, ToStatus: to, At: time.Now().UTC()}
	payload, err := json.Marshal(e)
	if err != nil {
		p.logger.Warn("marshal transition event", zap.Error(err))
		return
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(bookingID),
		Value: payload,
	}); err != nil {
		p.logger.Warn("queue transition event",
			zap.String("booking_id", bookingID),
			zap.Error(err))
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
