package port

import (
	"context"

	"chatWs/internal/modules/realtime/domain"
)

// BrokerMessage is a record consumed from the message broker.
type BrokerMessage struct {
	Topic string
	Key   []byte
	Value []byte
}

// PubSubPort consumes external events (Kafka).
type PubSubPort interface {
	Consume(ctx context.Context, handler func(*BrokerMessage) error) error
}

// Broadcaster fans a payload out to every connection matched by the selector.
type Broadcaster interface {
	Deliver(ctx context.Context, payload any, sel domain.Selector) domain.DeliveryReport
}

// TopicHandler handles every record of one broker topic.
type TopicHandler interface {
	Topic() string
	Handle(ctx context.Context, msg *BrokerMessage) error
}
