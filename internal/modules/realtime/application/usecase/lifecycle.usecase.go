package usecase

import (
	"errors"
	"fmt"
	"log/slog"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// ErrAcceptFailed wraps a transport accept failure; nothing was registered.
var ErrAcceptFailed = errors.New("transport accept failed")

// Lifecycle drives CONNECTING -> CONNECTED -> (IN_ROOM <-> CONNECTED) -> DISCONNECTED.
// It only mutates the registry; notifications are the caller's job.
type Lifecycle struct {
	registry port.ConnectionRegistry
}

func NewLifecycle(registry port.ConnectionRegistry) *Lifecycle {
	return &Lifecycle{registry: registry}
}

// Connect runs accept first and registers the resulting handle. room may be domain.NoRoom.
func (l *Lifecycle) Connect(accept func() (port.ConnectionHandle, error), who domain.Identity, room domain.RoomID) (domain.ConnectionID, error) {
	handle, err := accept()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrAcceptFailed, err)
	}
	if handle == nil {
		return "", fmt.Errorf("%w: nil handle", ErrAcceptFailed)
	}
	return l.registry.Register(handle, who.UserID, room), nil
}

// Join moves the connection into room. False means the connection is already gone.
func (l *Lifecycle) Join(id domain.ConnectionID, room domain.RoomID) bool {
	if room == domain.NoRoom {
		return false
	}
	return l.registry.SetRoom(id, room) == nil
}

// Leave takes the connection out of room. Leaving a room the connection is not in returns false
// and changes nothing.
func (l *Lifecycle) Leave(id domain.ConnectionID, room domain.RoomID) bool {
	if room == domain.NoRoom {
		return false
	}
	return l.registry.MoveRoom(id, room, domain.NoRoom) == nil
}

// Disconnect removes the connection and closes its handle. A second call returns false.
func (l *Lifecycle) Disconnect(id domain.ConnectionID) (domain.ConnectionRecord, bool) {
	rec, handle, err := l.registry.Remove(id)
	if err != nil {
		return domain.ConnectionRecord{}, false
	}
	if handle != nil {
		handle.Close()
	}
	rec.Alive = false
	slog.Debug("connection disconnected", slog.String("connectionId", string(id)), slog.Int64("roomId", int64(rec.RoomID)))
	return rec, true
}

func (l *Lifecycle) State(id domain.ConnectionID) domain.State {
	rec, ok := l.registry.Record(id)
	if !ok {
		return domain.StateDisconnected
	}
	return rec.State()
}

func (l *Lifecycle) Record(id domain.ConnectionID) (domain.ConnectionRecord, bool) {
	return l.registry.Record(id)
}

// Touch marks inbound activity.
func (l *Lifecycle) Touch(id domain.ConnectionID) {
	l.registry.Touch(id)
}

func (l *Lifecycle) Snapshot() port.RegistryCounts {
	return l.registry.SnapshotCounts()
}
