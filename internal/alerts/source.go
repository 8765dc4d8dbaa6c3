package alerts

import (
	"context"
	"fmt"
	"log/slog"
)

// Source feeds alerts read from a Consumer into a Dispatcher.
type Source struct {
	consumer   Consumer
	dispatcher *Dispatcher
}

// NewSource creates a Source.
func NewSource(consumer Consumer, dispatcher *Dispatcher) *Source {
	return &Source{consumer: consumer, dispatcher: dispatcher}
}

// Run consumes until ctx is cancelled or the consumer closes. Alerts are
// processed one at a time in arrival order.
func (s *Source) Run(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("alert source: start consumer: %w", err)
	}
	defer s.consumer.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case value, ok := <-s.consumer.Messages():
			if !ok {
				return nil
			}
			a, err := Decode(value)
			if err != nil {
				slog.Warn("Dropping malformed alert record", "error", err, "bytes", len(value))
				continue
			}
			s.dispatcher.Process(ctx, "kafka", a)
		}
	}
}
