package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func TestNewProducerNoBrokers(t *testing.T) {
	p := NewProducer(nil, "booking.transitions", zap.NewNop())
	if p != nil {
		t.Fatal("expected nil producer with no brokers configured")
	}
	// A nil producer is a no-op everywhere.
	p.EmitTransition(context.Background(), "b1", "pending_assignment", "pending_offer")
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestAsyncWriterSurfacesDeliveryErrors(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "booking.transitions", zap.NewNop())
	defer p.Close()

	if !p.writer.Async {
		t.Fatal("writer should publish asynchronously")
	}
	if p.writer.Completion == nil {
		t.Fatal("async writer needs a completion callback, WriteMessages never sees broker errors")
	}
	// The callback must tolerate a failed batch without panicking.
	p.writer.Completion([]kafka.Message{{Key: []byte("b1")}}, errors.New("broker unreachable"))
	p.writer.Completion([]kafka.Message{{Key: []byte("b2")}}, nil)
}
