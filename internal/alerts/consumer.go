package alerts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"
)

// Consumer reads raw alert records.
type Consumer interface {
	Start(ctx context.Context) error
	Messages() <-chan []byte
	Close() error
}

// KafkaConsumer implements Consumer using segmentio/kafka-go.
type KafkaConsumer struct {
	brokers       []string
	topic         string
	consumerGroup string
	reader        messageReader
	messages      chan []byte
}

// messageReader is the part of *kafka.Reader the consumer drives.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaConsumer creates a consumer for topic. brokers is a comma
// separated list.
func NewKafkaConsumer(brokers, topic, consumerGroup string) *KafkaConsumer {
	var list []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			list = append(list, b)
		}
	}
	return &KafkaConsumer{
		brokers:       list,
		topic:         topic,
		consumerGroup: consumerGroup,
		messages:      make(chan []byte, 100),
	}
}

// Start begins reading in the background until ctx is cancelled.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	if len(c.brokers) == 0 {
		return fmt.Errorf("alerts: no kafka brokers configured")
	}
	if c.topic == "" {
		return fmt.Errorf("alerts: no kafka topic configured")
	}
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    c.topic,
		GroupID:  c.consumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	go c.run(ctx)
	return nil
}

// run forwards record values until ctx ends or the reader is closed.
func (c *KafkaConsumer) run(ctx context.Context) {
	defer close(c.messages)
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			slog.Warn("KafkaConsumer: read error", "topic", c.topic, "error", err)
			continue
		}
		select {
		case c.messages <- msg.Value:
		case <-ctx.Done():
			return
		}
	}
}

// Messages returns the channel of consumed record values.
func (c *KafkaConsumer) Messages() <-chan []byte {
	return c.messages
}

// Close stops the reader.
func (c *KafkaConsumer) Close() error {
	if c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// ChannelConsumer is an in-process Consumer backed by a Go channel.
type ChannelConsumer struct {
	ch   chan []byte
	once sync.Once
}

// NewChannelConsumer creates an in-process consumer.
func NewChannelConsumer() *ChannelConsumer {
	return &ChannelConsumer{ch: make(chan []byte, 100)}
}

// Start is a no-op for the channel consumer.
func (c *ChannelConsumer) Start(ctx context.Context) error { return nil }

// Messages returns the message channel.
func (c *ChannelConsumer) Messages() <-chan []byte { return c.ch }

// Close closes the channel.
func (c *ChannelConsumer) Close() error {
	c.once.Do(func() { close(c.ch) })
	return nil
}

// Send pushes a record into the consumer.
func (c *ChannelConsumer) Send(value []byte) {
	c.ch <- value
}
