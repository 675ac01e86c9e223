package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Record is one message to publish. Key controls partitioning so all events of
// an aggregate stay ordered.
type Record struct {
	Topic string
	Key   string
	Value []byte
}

// Producer publishes records to any topic through a single writer.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{w: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}
}

// Publish writes recs synchronously; either all are acknowledged or an error
// is returned.
func (p *Producer) Publish(ctx context.Context, recs ...Record) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(recs))
	for i, r := range recs {
		msgs[i] = kafka.Message{Topic: r.Topic, Key: []byte(r.Key), Value: r.Value}
	}
	return p.w.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error { return p.w.Close() }
