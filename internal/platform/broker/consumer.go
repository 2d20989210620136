package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"chatWs/internal/modules/realtime/application/port"
)

const readBackoff = time.Second

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type KafkaConsumer struct {
	reader  messageReader
	backoff time.Duration
}

var _ port.PubSubPort = (*KafkaConsumer)(nil)

func NewKafkaConsumer(brokers []string, groupID string, topic string) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}),
		backoff: readBackoff,
	}
}

// Consume reads until ctx is done. Read errors are logged and retried after a pause;
// handler errors are logged and the record is skipped.
func (c *KafkaConsumer) Consume(ctx context.Context, handler func(*port.BrokerMessage) error) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			slog.Warn("kafka reader close error", slog.Any("error", err))
		}
	}()

	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			slog.Warn("kafka read error", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		slog.Debug("kafka message consumed",
			slog.String("topic", m.Topic),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
		)
		if err := handler(&port.BrokerMessage{Topic: m.Topic, Key: m.Key, Value: m.Value}); err != nil {
			slog.Warn("kafka handler error",
				slog.String("topic", m.Topic),
				slog.Int64("offset", m.Offset),
				slog.Any("error", fmt.Errorf("handle record: %w", err)),
			)
		}
	}
}
