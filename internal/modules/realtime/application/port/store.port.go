package port

import (
	"context"
	"errors"

	"chatWs/internal/modules/realtime/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrUserNotFound = errors.New("user not found")
)

// MessageStore persists chat messages and replays recent history.
type MessageStore interface {
	SaveMessage(ctx context.Context, user domain.UserID, room domain.RoomID, content string) (domain.StoredMessage, error)
	RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.StoredMessage, error)
}

// RoomDirectory answers room existence and records memberships.
type RoomDirectory interface {
	FindRoom(ctx context.Context, room domain.RoomID) (domain.ChatRoom, error)
	EnsureMembership(ctx context.Context, user domain.UserID, room domain.RoomID) error
}

// UserDirectory resolves a verified subject to a user.
type UserDirectory interface {
	FindUser(ctx context.Context, username string) (UserRecord, error)
}

// UserRecord is what the realtime layer needs to know about an account.
type UserRecord struct {
	ID       domain.UserID
	Username string
	Active   bool
}

// ConnectionLog keeps a durable trail of connections. Calls are best effort.
type ConnectionLog interface {
	Opened(ctx context.Context, rec domain.ConnectionRecord) error
	RoomChanged(ctx context.Context, id domain.ConnectionID, room domain.RoomID) error
	Closed(ctx context.Context, id domain.ConnectionID) error
}
