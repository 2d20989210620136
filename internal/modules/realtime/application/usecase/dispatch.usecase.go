package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// Dispatcher fans payloads out to the connections a selector resolves to.
type Dispatcher struct {
	registry  port.ConnectionRegistry
	lifecycle *Lifecycle
}

var _ port.Broadcaster = (*Dispatcher)(nil)

func NewDispatcher(registry port.ConnectionRegistry, lifecycle *Lifecycle) *Dispatcher {
	return &Dispatcher{registry: registry, lifecycle: lifecycle}
}

// Deliver serializes payload once and sends it to every resolved target. Targets are a
// snapshot taken under the registry lock; sends happen outside it. Every connection whose
// send fails is disconnected once after the sweep.
func (d *Dispatcher) Deliver(ctx context.Context, payload any, sel domain.Selector) domain.DeliveryReport {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.ErrorContext(ctx, "dispatch marshal failed", slog.String("selector", sel.String()), slog.Any("error", err))
		return domain.DeliveryReport{}
	}

	targets := d.registry.Resolve(sel)
	report := domain.DeliveryReport{Attempted: len(targets)}
	if len(targets) == 0 {
		return report
	}

	delivered := make([]domain.ConnectionID, 0, len(targets))
	var failed map[domain.ConnectionID]struct{}
	for _, target := range targets {
		err := port.ErrHandleClosed
		if target.Handle.Alive() {
			err = target.Handle.Send(data)
		}
		if err == nil {
			delivered = append(delivered, target.ID)
			continue
		}
		if failed == nil {
			failed = make(map[domain.ConnectionID]struct{})
		}
		if _, seen := failed[target.ID]; seen {
			continue
		}
		failed[target.ID] = struct{}{}
		report.Failed = append(report.Failed, target.ID)
		slog.DebugContext(ctx, "dispatch send failed", slog.String("connectionId", string(target.ID)), slog.Any("error", err))
	}

	report.Delivered = len(delivered)
	if len(delivered) > 0 {
		d.registry.TouchMany(delivered)
	}
	for _, id := range report.Failed {
		d.lifecycle.Disconnect(id)
	}
	return report
}

// Send is Deliver to a single connection.
func (d *Dispatcher) Send(ctx context.Context, id domain.ConnectionID, payload any) bool {
	return d.Deliver(ctx, payload, domain.One(id)).Delivered == 1
}
