package domain

import "time"

// Outbound event types.
const (
	EventConnectionEstablished = "connection_established"
	EventMessage               = "message"
	EventUserJoined            = "user_joined"
	EventUserLeft              = "user_left"
	EventUserTyping            = "user_typing"
	EventUserDisconnected      = "user_disconnected"
	EventRoomJoined            = "room_joined"
	EventRoomLeft              = "room_left"
	EventMessageHistory        = "message_history"
	EventError                 = "error"
	EventPong                  = "pong"
	EventEcho                  = "echo"
	EventNotification          = "notification"
)

// Event is the single outbound record shape. Fields a given type does not use stay zero
// and are omitted from the wire form.
type Event struct {
	Type      string         `json:"type"`
	ID        int64          `json:"id,omitempty"`
	Content   string         `json:"content,omitempty"`
	UserID    UserID         `json:"user_id,omitempty"`
	Username  string         `json:"username,omitempty"`
	RoomID    RoomID         `json:"room_id,omitempty"`
	RoomName  string         `json:"room_name,omitempty"`
	ClientID  ConnectionID   `json:"client_id,omitempty"`
	Messages  []HistoryEntry `json:"messages,omitzero"`
	Timestamp time.Time      `json:"timestamp,omitzero"`
}

// HistoryEntry is one stored message replayed to a joining client.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	UserID    UserID    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredMessage is what the durable store hands back after persisting a chat message.
type StoredMessage struct {
	ID        int64
	Content   string
	UserID    UserID
	RoomID    RoomID
	CreatedAt time.Time
}

// ChatRoom is the subset of room data the realtime layer needs.
type ChatRoom struct {
	ID   RoomID
	Name string
}

func ErrorEvent(content string) Event {
	return Event{Type: EventError, Content: content}
}

func PongEvent(at time.Time) Event {
	return Event{Type: EventPong, Timestamp: at.UTC()}
}

// NewMessageEvent builds the room broadcast for a persisted chat message.
func NewMessageEvent(msg StoredMessage, who Identity) Event {
	return Event{
		Type:      EventMessage,
		ID:        msg.ID,
		Content:   msg.Content,
		UserID:    who.UserID,
		Username:  who.Username,
		RoomID:    msg.RoomID,
		Timestamp: msg.CreatedAt.UTC(),
	}
}

// PresenceEvent builds user_joined, user_left, user_typing and user_disconnected notices.
func PresenceEvent(kind string, who Identity, room RoomID, at time.Time) Event {
	return Event{
		Type:      kind,
		UserID:    who.UserID,
		Username:  who.Username,
		RoomID:    room,
		Timestamp: at.UTC(),
	}
}

// HistoryEvent builds message_history; the list is always present on the wire, even when empty.
func HistoryEvent(room RoomID, messages []StoredMessage) Event {
	entries := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		entries = append(entries, HistoryEntry{
			ID:        m.ID,
			Content:   m.Content,
			UserID:    m.UserID,
			Timestamp: m.CreatedAt.UTC(),
		})
	}
	return Event{Type: EventMessageHistory, RoomID: room, Messages: entries}
}
