package domain

import "strings"

const (
	ChatEntity = "chat"

	TopicAnnouncements = ChatEntity + ".announcements"

	ScopeRoom = "room"
	ScopeUser = "user"
	ScopeAll  = "all"
)

// Announcement is an externally published notice fanned out to connected clients.
type Announcement struct {
	Scope   string `json:"scope"`
	RoomID  RoomID `json:"room_id,omitempty"`
	UserID  UserID `json:"user_id,omitempty"`
	Content string `json:"content"`
}

// Selector maps the announcement scope to a dispatch target. ok is false for an unusable scope.
func (a Announcement) Selector() (Selector, bool) {
	switch strings.ToLower(strings.TrimSpace(a.Scope)) {
	case ScopeRoom:
		return Room(a.RoomID), a.RoomID != NoRoom
	case ScopeUser:
		return User(a.UserID), a.UserID != NoUser
	case "", ScopeAll:
		return All(), true
	default:
		return Selector{}, false
	}
}
