package port

import (
	"errors"

	"chatWs/internal/modules/realtime/domain"
)

var (
	// ErrConnectionNotFound is the expected outcome of racing a disconnect; callers treat it as a no-op.
	ErrConnectionNotFound = errors.New("connection not found")
	// ErrRoomMismatch is returned by MoveRoom when the connection is not in the expected room.
	ErrRoomMismatch = errors.New("connection not in expected room")
)

// Target is one resolved recipient: a connection id and the handle captured with it.
type Target struct {
	ID     domain.ConnectionID
	Handle ConnectionHandle
}

// RegistryCounts is a point-in-time aggregate of the registry.
type RegistryCounts struct {
	TotalEver int
	Active    int
	PerRoom   map[domain.RoomID]int
}

// ConnectionRegistry is the single owner of connection state. Every method is atomic.
type ConnectionRegistry interface {
	Register(handle ConnectionHandle, user domain.UserID, room domain.RoomID) domain.ConnectionID
	Remove(id domain.ConnectionID) (domain.ConnectionRecord, ConnectionHandle, error)
	SetRoom(id domain.ConnectionID, room domain.RoomID) error
	MoveRoom(id domain.ConnectionID, from, to domain.RoomID) error
	Touch(id domain.ConnectionID)
	TouchMany(ids []domain.ConnectionID)
	Record(id domain.ConnectionID) (domain.ConnectionRecord, bool)
	Resolve(sel domain.Selector) []Target
	SnapshotCounts() RegistryCounts
}
