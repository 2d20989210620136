package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// DefaultHistoryLimit is how many recent messages a room connection replays.
const DefaultHistoryLimit = 50

// Error contents sent back to the offending client.
const (
	replyMissingContentOrRoom = "Missing content or room_id"
	replyMissingContent       = "Missing content"
	replyMissingRoom          = "Missing room_id"
	replyJoinFailed           = "Failed to join room"
	replyLeaveFailed          = "Failed to leave room"
	replyStoreFailed          = "Failed to store message"
)

// SessionMode selects which inbound vocabulary a connection speaks.
type SessionMode int

const (
	// ModeAnonymous answers ping and echoes everything else.
	ModeAnonymous SessionMode = iota
	// ModeAuthenticated speaks the full vocabulary and may move between rooms.
	ModeAuthenticated
	// ModeRoom is pinned to the room it connected with.
	ModeRoom
)

func (m SessionMode) String() string {
	switch m {
	case ModeAnonymous:
		return "anonymous"
	case ModeAuthenticated:
		return "authenticated"
	case ModeRoom:
		return "room"
	default:
		return "unknown"
	}
}

// ChatDependencies groups the collaborators of ChatUseCase.
type ChatDependencies struct {
	Lifecycle    *Lifecycle
	Dispatcher   *Dispatcher
	Messages     port.MessageStore
	Rooms        port.RoomDirectory
	Connections  port.ConnectionLog
	HistoryLimit int
	Now          func() time.Time
}

// ChatUseCase owns the notification policy around lifecycle transitions.
type ChatUseCase struct {
	lifecycle    *Lifecycle
	dispatcher   *Dispatcher
	messages     port.MessageStore
	rooms        port.RoomDirectory
	connections  port.ConnectionLog
	historyLimit int
	now          func() time.Time
}

func NewChatUseCase(deps ChatDependencies) *ChatUseCase {
	uc := &ChatUseCase{
		lifecycle:    deps.Lifecycle,
		dispatcher:   deps.Dispatcher,
		messages:     deps.Messages,
		rooms:        deps.Rooms,
		connections:  deps.Connections,
		historyLimit: deps.HistoryLimit,
		now:          deps.Now,
	}
	if uc.historyLimit <= 0 {
		uc.historyLimit = DefaultHistoryLimit
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// OpenRequest describes a connection about to be accepted.
type OpenRequest struct {
	Mode     SessionMode
	Identity domain.Identity
	Room     domain.RoomID
}

// PrepareRoom checks the room exists and records membership. Call it before upgrading
// so an unknown room can be rejected at the HTTP layer.
func (uc *ChatUseCase) PrepareRoom(ctx context.Context, who domain.Identity, room domain.RoomID) (domain.ChatRoom, error) {
	info, err := uc.rooms.FindRoom(ctx, room)
	if err != nil {
		return domain.ChatRoom{}, err
	}
	if who.Anonymous() {
		return info, nil
	}
	if err := uc.rooms.EnsureMembership(ctx, who.UserID, room); err != nil {
		return domain.ChatRoom{}, fmt.Errorf("ensure membership in room %d: %w", room, err)
	}
	return info, nil
}

// Open accepts the transport, registers the connection and sends the greeting for its mode.
func (uc *ChatUseCase) Open(ctx context.Context, accept func() (port.ConnectionHandle, error), req OpenRequest) (*Session, error) {
	room := domain.NoRoom
	if req.Mode == ModeRoom {
		if req.Room == domain.NoRoom {
			return nil, fmt.Errorf("%w: room mode without room", port.ErrRoomNotFound)
		}
		room = req.Room
	}

	id, err := uc.lifecycle.Connect(accept, req.Identity, room)
	if err != nil {
		return nil, err
	}
	s := &Session{uc: uc, id: id, who: req.Identity, mode: req.Mode, room: room}

	if rec, ok := uc.lifecycle.Record(id); ok {
		if err := uc.connections.Opened(ctx, rec); err != nil {
			slog.Warn("connection log open failed", slog.String("connectionId", string(id)), slog.Any("error", err))
		}
	}
	slog.Info("websocket session opened",
		slog.String("connectionId", string(id)),
		slog.String("mode", req.Mode.String()),
		slog.Int64("userId", int64(req.Identity.UserID)),
		slog.Int64("roomId", int64(room)),
	)

	switch req.Mode {
	case ModeAuthenticated:
		s.reply(ctx, domain.Event{
			Type:     domain.EventConnectionEstablished,
			UserID:   req.Identity.UserID,
			Username: req.Identity.Username,
			ClientID: id,
		})
	case ModeRoom:
		s.reply(ctx, uc.historyEvent(ctx, room))
		uc.dispatcher.Deliver(ctx, domain.PresenceEvent(domain.EventUserJoined, req.Identity, room, uc.now()), domain.Room(room))
	}
	return s, nil
}

// History returns the recent messages of room in chronological order.
func (uc *ChatUseCase) History(ctx context.Context, room domain.RoomID) (domain.Event, error) {
	if _, err := uc.rooms.FindRoom(ctx, room); err != nil {
		return domain.Event{}, err
	}
	messages, err := uc.messages.RecentMessages(ctx, room, uc.historyLimit)
	if err != nil {
		return domain.Event{}, fmt.Errorf("load history of room %d: %w", room, err)
	}
	return domain.HistoryEvent(room, messages), nil
}

func (uc *ChatUseCase) historyEvent(ctx context.Context, room domain.RoomID) domain.Event {
	messages, err := uc.messages.RecentMessages(ctx, room, uc.historyLimit)
	if err != nil {
		slog.Warn("history load failed", slog.Int64("roomId", int64(room)), slog.Any("error", err))
	}
	return domain.HistoryEvent(room, messages)
}

// Session is the per-connection state machine driven by the read loop. Its methods are
// called from that single goroutine.
type Session struct {
	uc     *ChatUseCase
	id     domain.ConnectionID
	who    domain.Identity
	mode   SessionMode
	room   domain.RoomID
	closed bool
}

func (s *Session) ID() domain.ConnectionID   { return s.id }
func (s *Session) Identity() domain.Identity { return s.who }
func (s *Session) Mode() SessionMode         { return s.mode }

// Room is the room the session last knew it was in.
func (s *Session) Room() domain.RoomID { return s.room }

// Handle processes one inbound text frame. Protocol errors are answered to the sender and
// never end the session.
func (s *Session) Handle(ctx context.Context, frame []byte) {
	if s.closed {
		return
	}
	s.uc.lifecycle.Touch(s.id)

	evt := domain.DecodeInbound(frame)
	if s.mode == ModeAnonymous {
		s.handleAnonymous(ctx, evt, frame)
		return
	}

	switch in := evt.(type) {
	case domain.SendMessage:
		s.handleMessage(ctx, in)
	case domain.JoinRoom:
		if s.mode == ModeRoom {
			s.replyError(ctx, unknownType(domain.InboundJoinRoom))
			return
		}
		s.handleJoin(ctx, in.RoomID)
	case domain.LeaveRoom:
		if s.mode == ModeRoom {
			s.replyError(ctx, unknownType(domain.InboundLeaveRoom))
			return
		}
		s.handleLeave(ctx, in.RoomID)
	case domain.Typing:
		s.handleTyping(ctx, in.RoomID)
	case domain.Ping:
		s.reply(ctx, domain.PongEvent(s.uc.now()))
	case domain.Unknown:
		s.replyError(ctx, unknownType(in.Type))
	case domain.Malformed:
		s.replyError(ctx, in.Reason)
	}
}

func (s *Session) handleAnonymous(ctx context.Context, evt domain.Inbound, frame []byte) {
	switch in := evt.(type) {
	case domain.Ping:
		s.reply(ctx, domain.PongEvent(s.uc.now()))
	case domain.Malformed:
		if in.Reason == domain.ReasonInvalidJSON {
			s.replyError(ctx, in.Reason)
			return
		}
		s.reply(ctx, echoEvent(frame))
	default:
		s.reply(ctx, echoEvent(frame))
	}
}

func (s *Session) handleMessage(ctx context.Context, in domain.SendMessage) {
	room := in.RoomID
	if s.mode == ModeRoom || room == domain.NoRoom {
		room = s.currentRoom()
	}
	if in.Content == "" {
		if s.mode == ModeRoom {
			s.replyError(ctx, replyMissingContent)
		} else {
			s.replyError(ctx, replyMissingContentOrRoom)
		}
		return
	}
	if room == domain.NoRoom {
		s.replyError(ctx, replyMissingContentOrRoom)
		return
	}
	if s.mode != ModeRoom {
		if _, err := s.uc.rooms.FindRoom(ctx, room); err != nil {
			s.replyError(ctx, roomError(room, err, replyStoreFailed))
			return
		}
	}

	stored, err := s.uc.messages.SaveMessage(ctx, s.who.UserID, room, in.Content)
	if err != nil {
		slog.Error("message store failed", slog.String("connectionId", string(s.id)), slog.Int64("roomId", int64(room)), slog.Any("error", err))
		s.replyError(ctx, replyStoreFailed)
		return
	}
	s.uc.dispatcher.Deliver(ctx, domain.NewMessageEvent(stored, s.who), domain.Room(room))
}

func (s *Session) handleJoin(ctx context.Context, room domain.RoomID) {
	if room == domain.NoRoom {
		s.replyError(ctx, replyMissingRoom)
		return
	}
	info, err := s.uc.rooms.FindRoom(ctx, room)
	if err != nil {
		s.replyError(ctx, roomError(room, err, replyJoinFailed))
		return
	}
	if err := s.uc.rooms.EnsureMembership(ctx, s.who.UserID, room); err != nil {
		slog.Warn("room membership failed", slog.Int64("roomId", int64(room)), slog.Any("error", err))
		s.replyError(ctx, replyJoinFailed)
		return
	}
	if !s.uc.lifecycle.Join(s.id, room) {
		s.replyError(ctx, replyJoinFailed)
		return
	}
	s.room = room
	s.logRoomChange(ctx, room)

	s.reply(ctx, domain.Event{Type: domain.EventRoomJoined, RoomID: room, RoomName: info.Name})
	s.uc.dispatcher.Deliver(ctx, domain.PresenceEvent(domain.EventUserJoined, s.who, room, s.uc.now()), domain.Room(room))
}

func (s *Session) handleLeave(ctx context.Context, room domain.RoomID) {
	if room == domain.NoRoom {
		s.replyError(ctx, replyMissingRoom)
		return
	}
	if !s.uc.lifecycle.Leave(s.id, room) {
		s.replyError(ctx, replyLeaveFailed)
		return
	}
	s.room = domain.NoRoom
	s.logRoomChange(ctx, domain.NoRoom)

	s.reply(ctx, domain.Event{Type: domain.EventRoomLeft, RoomID: room})
	s.uc.dispatcher.Deliver(ctx, domain.PresenceEvent(domain.EventUserLeft, s.who, room, s.uc.now()), domain.Room(room))
}

func (s *Session) handleTyping(ctx context.Context, room domain.RoomID) {
	if s.mode == ModeRoom || room == domain.NoRoom {
		room = s.currentRoom()
	}
	if room == domain.NoRoom {
		s.replyError(ctx, replyMissingRoom)
		return
	}
	s.uc.dispatcher.Deliver(ctx, domain.PresenceEvent(domain.EventUserTyping, s.who, room, s.uc.now()), domain.Room(room))
}

// Close disconnects the session and tells the room it was in. It is safe to call after the
// dispatcher already retired the connection.
func (s *Session) Close(ctx context.Context) {
	if s.closed {
		return
	}
	s.closed = true

	room := s.room
	if rec, ok := s.uc.lifecycle.Disconnect(s.id); ok {
		room = rec.RoomID
	}
	if err := s.uc.connections.Closed(ctx, s.id); err != nil {
		slog.Warn("connection log close failed", slog.String("connectionId", string(s.id)), slog.Any("error", err))
	}
	slog.Info("websocket session closed", slog.String("connectionId", string(s.id)), slog.Int64("roomId", int64(room)))

	if s.mode == ModeAnonymous || room == domain.NoRoom {
		return
	}
	s.uc.dispatcher.Deliver(ctx, domain.PresenceEvent(domain.EventUserDisconnected, s.who, room, s.uc.now()), domain.Room(room))
}

func (s *Session) currentRoom() domain.RoomID {
	if s.mode == ModeRoom {
		return s.room
	}
	if rec, ok := s.uc.lifecycle.Record(s.id); ok {
		return rec.RoomID
	}
	return domain.NoRoom
}

func (s *Session) reply(ctx context.Context, evt domain.Event) {
	s.uc.dispatcher.Send(ctx, s.id, evt)
}

func (s *Session) replyError(ctx context.Context, content string) {
	s.reply(ctx, domain.ErrorEvent(content))
}

func (s *Session) logRoomChange(ctx context.Context, room domain.RoomID) {
	if err := s.uc.connections.RoomChanged(ctx, s.id, room); err != nil {
		slog.Warn("connection log room change failed", slog.String("connectionId", string(s.id)), slog.Any("error", err))
	}
}

func echoEvent(frame []byte) domain.Event {
	return domain.Event{Type: domain.EventEcho, Content: "Received: " + string(frame)}
}

func unknownType(kind string) string {
	return "Unknown message type: " + kind
}

func roomError(room domain.RoomID, err error, fallback string) string {
	if errors.Is(err, port.ErrRoomNotFound) {
		return fmt.Sprintf("Room %d does not exist", room)
	}
	slog.Warn("room lookup failed", slog.Int64("roomId", int64(room)), slog.Any("error", err))
	return fallback
}
