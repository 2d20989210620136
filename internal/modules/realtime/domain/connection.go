package domain

import "time"

// ConnectionID identifies one live transport session.
type ConnectionID string

// RoomID and UserID originate from the durable store and are opaque here.
// The zero value means "none".
type (
	RoomID int64
	UserID int64
)

const (
	NoRoom RoomID = 0
	NoUser UserID = 0
)

// State is the lifecycle position of a connection.
type State string

const (
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
	StateInRoom       State = "IN_ROOM"
	StateDisconnected State = "DISCONNECTED"
)

// ConnectionRecord is the metadata kept for a registered connection.
type ConnectionRecord struct {
	ID          ConnectionID
	UserID      UserID
	RoomID      RoomID
	ConnectedAt time.Time
	LastActive  time.Time
	Alive       bool
}

func (r ConnectionRecord) HasRoom() bool { return r.RoomID != NoRoom }

func (r ConnectionRecord) HasUser() bool { return r.UserID != NoUser }

// State derives the lifecycle state of a registered connection.
func (r ConnectionRecord) State() State {
	if r.HasRoom() {
		return StateInRoom
	}
	return StateConnected
}

// Identity is the verified caller behind a connection.
type Identity struct {
	UserID   UserID
	Username string
}

// Anonymous reports whether no verified user is attached.
func (i Identity) Anonymous() bool { return i.UserID == NoUser }
