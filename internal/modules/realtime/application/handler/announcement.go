package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// ErrInvalidAnnouncement is returned for broker records that cannot be fanned out.
var ErrInvalidAnnouncement = errors.New("invalid announcement")

// AnnouncementHandler forwards announcements published on Kafka to websocket clients as
// notification events.
type AnnouncementHandler struct {
	topic       string
	broadcaster port.Broadcaster
	now         func() time.Time
}

func NewAnnouncementHandler(topic string, broadcaster port.Broadcaster) *AnnouncementHandler {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = domain.TopicAnnouncements
	}
	return &AnnouncementHandler{topic: topic, broadcaster: broadcaster, now: time.Now}
}

func (h *AnnouncementHandler) Topic() string { return h.topic }

func (h *AnnouncementHandler) Handle(ctx context.Context, msg *port.BrokerMessage) error {
	var a domain.Announcement
	if err := json.Unmarshal(msg.Value, &a); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAnnouncement, err)
	}
	report, err := h.Announce(ctx, a)
	if err != nil {
		return err
	}
	slog.Info("announcement delivered",
		slog.String("topic", msg.Topic),
		slog.String("scope", a.Scope),
		slog.Int("attempted", report.Attempted),
		slog.Int("delivered", report.Delivered),
	)
	return nil
}

// Announce validates a and fans it out as a notification event.
func (h *AnnouncementHandler) Announce(ctx context.Context, a domain.Announcement) (domain.DeliveryReport, error) {
	if strings.TrimSpace(a.Content) == "" {
		return domain.DeliveryReport{}, fmt.Errorf("%w: empty content", ErrInvalidAnnouncement)
	}
	sel, ok := a.Selector()
	if !ok {
		return domain.DeliveryReport{}, fmt.Errorf("%w: scope %q", ErrInvalidAnnouncement, a.Scope)
	}

	return h.broadcaster.Deliver(ctx, domain.Event{
		Type:      domain.EventNotification,
		Content:   a.Content,
		RoomID:    a.RoomID,
		Timestamp: h.now().UTC(),
	}, sel), nil
}

var _ port.TopicHandler = (*AnnouncementHandler)(nil)
