package infrastructure

import (
	"context"
	"errors"
	"slices"
	"testing"

	"chatWs/internal/modules/realtime/application/port"
)

type stubTopicHandler struct {
	topic string
	seen  []string
	err   error
}

func (s *stubTopicHandler) Topic() string { return s.topic }

func (s *stubTopicHandler) Handle(_ context.Context, msg *port.BrokerMessage) error {
	s.seen = append(s.seen, string(msg.Value))
	return s.err
}

func TestHandlerRegistry_DispatchByTopic(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	ann := &stubTopicHandler{topic: "chat.announcements"}
	other := &stubTopicHandler{topic: "chat.other", err: errBoom}

	reg := NewHandlerRegistry()
	reg.Register(ann)
	reg.Register(other)

	topics := reg.Topics()
	slices.Sort(topics)
	if !slices.Equal(topics, []string{"chat.announcements", "chat.other"}) {
		t.Fatalf("unexpected topics %v", topics)
	}

	if err := reg.Dispatch(context.Background(), &port.BrokerMessage{Topic: "chat.announcements", Value: []byte("hi")}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if err := reg.Dispatch(context.Background(), &port.BrokerMessage{Topic: "chat.other", Value: []byte("x")}); !errors.Is(err, errBoom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if err := reg.Dispatch(context.Background(), &port.BrokerMessage{Topic: "unknown"}); err != nil {
		t.Fatalf("unknown topics are ignored, got %v", err)
	}
	if len(ann.seen) != 1 || ann.seen[0] != "hi" {
		t.Fatalf("announcement handler saw %v", ann.seen)
	}
}

func TestHandlerRegistry_RegisterReplacesTopic(t *testing.T) {
	t.Parallel()

	first := &stubTopicHandler{topic: "t"}
	second := &stubTopicHandler{topic: "t"}
	reg := NewHandlerRegistry()
	reg.Register(first)
	reg.Register(second)

	_ = reg.Dispatch(context.Background(), &port.BrokerMessage{Topic: "t", Value: []byte("v")})
	if len(first.seen) != 0 || len(second.seen) != 1 {
		t.Fatalf("expected the later handler to win, got first=%v second=%v", first.seen, second.seen)
	}
}
