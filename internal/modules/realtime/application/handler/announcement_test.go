package handler

import (
	"context"
	"errors"
	"testing"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

type recordingBroadcaster struct {
	payloads  []any
	selectors []domain.Selector
}

func (b *recordingBroadcaster) Deliver(_ context.Context, payload any, sel domain.Selector) domain.DeliveryReport {
	b.payloads = append(b.payloads, payload)
	b.selectors = append(b.selectors, sel)
	return domain.DeliveryReport{Attempted: 1, Delivered: 1}
}

func TestAnnouncementHandler_Handle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		value   string
		want    domain.Selector
		wantErr bool
	}{
		{name: "room", value: `{"scope":"room","room_id":4,"content":"maintenance"}`, want: domain.Room(4)},
		{name: "user", value: `{"scope":"USER","user_id":9,"content":"hello"}`, want: domain.User(9)},
		{name: "default all", value: `{"content":"everyone"}`, want: domain.All()},
		{name: "room without id", value: `{"scope":"room","content":"x"}`, wantErr: true},
		{name: "unknown scope", value: `{"scope":"planet","content":"x"}`, wantErr: true},
		{name: "empty content", value: `{"scope":"all"}`, wantErr: true},
		{name: "not json", value: `<xml/>`, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b := &recordingBroadcaster{}
			h := NewAnnouncementHandler("", b)

			err := h.Handle(context.Background(), &port.BrokerMessage{Topic: h.Topic(), Value: []byte(tc.value)})
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidAnnouncement) {
					t.Fatalf("expected ErrInvalidAnnouncement, got %v", err)
				}
				if len(b.payloads) != 0 {
					t.Fatal("invalid announcement must not be delivered")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(b.selectors) != 1 || b.selectors[0] != tc.want {
				t.Fatalf("unexpected selectors %+v", b.selectors)
			}
			evt, ok := b.payloads[0].(domain.Event)
			if !ok || evt.Type != domain.EventNotification || evt.Timestamp.IsZero() {
				t.Fatalf("unexpected payload %#v", b.payloads[0])
			}
		})
	}
}

func TestAnnouncementHandler_TopicDefault(t *testing.T) {
	t.Parallel()

	if got := NewAnnouncementHandler("  ", nil).Topic(); got != domain.TopicAnnouncements {
		t.Fatalf("unexpected default topic %q", got)
	}
	if got := NewAnnouncementHandler("ops.notices", nil).Topic(); got != "ops.notices" {
		t.Fatalf("unexpected topic %q", got)
	}
}
