package domain

import (
	"encoding/json"
	"strings"
)

// Inbound event types.
const (
	InboundMessage   = "message"
	InboundJoinRoom  = "join_room"
	InboundLeaveRoom = "leave_room"
	InboundTyping    = "typing"
	InboundPing      = "ping"
)

// Inbound is a decoded client frame. The set of implementations is closed.
type Inbound interface {
	inbound()
}

type SendMessage struct {
	Content string
	RoomID  RoomID
}

type JoinRoom struct {
	RoomID RoomID
}

type LeaveRoom struct {
	RoomID RoomID
}

type Typing struct {
	RoomID RoomID
}

type Ping struct{}

// Unknown carries a well-formed frame whose type is not recognised.
type Unknown struct {
	Type string
}

// Malformed carries a frame that could not be decoded at all.
type Malformed struct {
	Reason string
}

func (SendMessage) inbound() {}
func (JoinRoom) inbound()    {}
func (LeaveRoom) inbound()   {}
func (Typing) inbound()      {}
func (Ping) inbound()        {}
func (Unknown) inbound()     {}
func (Malformed) inbound()   {}

const (
	ReasonInvalidJSON   = "Invalid JSON format"
	ReasonInvalidRoomID = "Invalid room_id"
	ReasonInvalidField  = "Invalid content"
)

type rawInbound struct {
	Type    *string          `json:"type"`
	Content *json.RawMessage `json:"content"`
	RoomID  *json.RawMessage `json:"room_id"`
}

// DecodeInbound turns a raw text frame into a typed event. A missing type defaults to message.
func DecodeInbound(data []byte) Inbound {
	var raw rawInbound
	if err := json.Unmarshal(data, &raw); err != nil {
		return Malformed{Reason: ReasonInvalidJSON}
	}

	kind := InboundMessage
	if raw.Type != nil {
		kind = strings.ToLower(strings.TrimSpace(*raw.Type))
	}

	room, ok := decodeRoomID(raw.RoomID)
	if !ok {
		return Malformed{Reason: ReasonInvalidRoomID}
	}

	switch kind {
	case InboundMessage:
		content, ok := decodeContent(raw.Content)
		if !ok {
			return Malformed{Reason: ReasonInvalidField}
		}
		return SendMessage{Content: content, RoomID: room}
	case InboundJoinRoom:
		return JoinRoom{RoomID: room}
	case InboundLeaveRoom:
		return LeaveRoom{RoomID: room}
	case InboundTyping:
		return Typing{RoomID: room}
	case InboundPing:
		return Ping{}
	default:
		return Unknown{Type: kind}
	}
}

func decodeRoomID(raw *json.RawMessage) (RoomID, bool) {
	if raw == nil || string(*raw) == "null" {
		return NoRoom, true
	}
	var id int64
	if err := json.Unmarshal(*raw, &id); err != nil {
		return NoRoom, false
	}
	if id < 0 {
		return NoRoom, false
	}
	return RoomID(id), true
}

func decodeContent(raw *json.RawMessage) (string, bool) {
	if raw == nil || string(*raw) == "null" {
		return "", true
	}
	var content string
	if err := json.Unmarshal(*raw, &content); err != nil {
		return "", false
	}
	return content, true
}
