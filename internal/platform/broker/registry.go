package broker

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/infrastructure"
)

// StartKafkaConsumers launches one consumer per topic. The returned WaitGroup is done once
// every consumer has stopped after ctx is cancelled.
func StartKafkaConsumers(
	ctx context.Context,
	registry *infrastructure.HandlerRegistry,
	brokers []string,
	groupID string,
	topics []string,
) *sync.WaitGroup {
	var wg sync.WaitGroup
	if len(brokers) == 0 {
		// No brokers configured; skip starting consumers. We avoid calling kafka.NewReader
		// with an empty broker list.
		slog.Info("kafka disabled: no brokers configured")
		return &wg
	}
	for _, topic := range topics {
		consumer := NewKafkaConsumer(brokers, groupID, topic)
		wg.Add(1)
		go func(tp string) {
			defer wg.Done()
			slog.Info("kafka consumer started", slog.String("topic", tp), slog.String("groupId", groupID))
			err := consumer.Consume(ctx, func(msg *port.BrokerMessage) error {
				return registry.Dispatch(ctx, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("kafka consumer stopped", slog.String("topic", tp), slog.Any("error", err))
			}
		}(topic)
	}
	return &wg
}
