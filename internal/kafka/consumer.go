// Package kafka wraps segmentio/kafka-go for the outbox relay and the
// event consumers.
package kafka

import (
	"context"
	"time"

	"github.com/renubu/renubu/internal/config"
	"github.com/segmentio/kafka-go"
)

// ReaderConfig configures one consumer group subscription.
type ReaderConfig struct {
	Brokers        []string
	Topic          string
	GroupID        string
	MinBytes       int           // default 1KB
	MaxBytes       int           // default 10MB
	CommitInterval time.Duration // 0 commits synchronously
	MaxWait        time.Duration // default 250ms
}

// ReaderConfigFor builds a reader config for topic from the shared kafka block.
// The group is suffixed so each worker kind keeps its own offsets.
func ReaderConfigFor(c config.KafkaConfig, topic, suffix string) ReaderConfig {
	group := c.GroupID
	if group == "" {
		group = "renubu"
	}
	if suffix != "" {
		group += "-" + suffix
	}
	return ReaderConfig{
		Brokers:        c.Brokers,
		Topic:          topic,
		GroupID:        group,
		MinBytes:       c.MinBytes,
		MaxBytes:       c.MaxBytes,
		CommitInterval: time.Duration(c.CommitInterval) * time.Millisecond,
	}
}

type Message = kafka.Message

// Consumer fetches messages and commits them explicitly.
type Consumer struct {
	r     *kafka.Reader
	topic string
}

func NewConsumer(c ReaderConfig) *Consumer {
	minB := c.MinBytes
	if minB <= 0 {
		minB = 1 << 10
	}
	maxB := c.MaxBytes
	if maxB <= 0 {
		maxB = 10 << 20
	}
	wait := c.MaxWait
	if wait <= 0 {
		wait = 250 * time.Millisecond
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		MinBytes:       minB,
		MaxBytes:       maxB,
		CommitInterval: c.CommitInterval,
		MaxWait:        wait,
	})
	return &Consumer{r: r, topic: c.Topic}
}

func (c *Consumer) Topic() string { return c.topic }

func (c *Consumer) Fetch(ctx context.Context) (Message, error) {
	return c.r.FetchMessage(ctx)
}

func (c *Consumer) Commit(ctx context.Context, m Message) error {
	return c.r.CommitMessages(ctx, m)
}

func (c *Consumer) Close() error { return c.r.Close() }
