package fakes

import (
	"context"
	"sync"
	"time"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// Store is an in-memory durable store covering every store port.
type Store struct {
	mu          sync.Mutex
	rooms       map[domain.RoomID]domain.ChatRoom
	users       map[string]port.UserRecord
	memberships map[domain.UserID]map[domain.RoomID]struct{}
	messages    []domain.StoredMessage
	connections map[domain.ConnectionID]domain.RoomID
	closed      map[domain.ConnectionID]bool
	nextID      int64
	SaveErr     error
	Now         func() time.Time
}

var (
	_ port.MessageStore  = (*Store)(nil)
	_ port.RoomDirectory = (*Store)(nil)
	_ port.UserDirectory = (*Store)(nil)
	_ port.ConnectionLog = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		rooms:       make(map[domain.RoomID]domain.ChatRoom),
		users:       make(map[string]port.UserRecord),
		memberships: make(map[domain.UserID]map[domain.RoomID]struct{}),
		connections: make(map[domain.ConnectionID]domain.RoomID),
		closed:      make(map[domain.ConnectionID]bool),
		Now:         time.Now,
	}
}

func (s *Store) AddRoom(id domain.RoomID, name string) {
	s.mu.Lock()
	s.rooms[id] = domain.ChatRoom{ID: id, Name: name}
	s.mu.Unlock()
}

func (s *Store) AddUser(id domain.UserID, username string, active bool) {
	s.mu.Lock()
	s.users[username] = port.UserRecord{ID: id, Username: username, Active: active}
	s.mu.Unlock()
}

func (s *Store) SaveMessage(_ context.Context, user domain.UserID, room domain.RoomID, content string) (domain.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return domain.StoredMessage{}, s.SaveErr
	}
	s.nextID++
	msg := domain.StoredMessage{ID: s.nextID, Content: content, UserID: user, RoomID: room, CreatedAt: s.Now().UTC()}
	s.messages = append(s.messages, msg)
	return msg, nil
}

func (s *Store) RecentMessages(_ context.Context, room domain.RoomID, limit int) ([]domain.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.StoredMessage
	for _, m := range s.messages {
		if m.RoomID == room {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *Store) FindRoom(_ context.Context, room domain.RoomID) (domain.ChatRoom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[room]
	if !ok {
		return domain.ChatRoom{}, port.ErrRoomNotFound
	}
	return r, nil
}

func (s *Store) EnsureMembership(_ context.Context, user domain.UserID, room domain.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[user] == nil {
		s.memberships[user] = make(map[domain.RoomID]struct{})
	}
	s.memberships[user][room] = struct{}{}
	return nil
}

func (s *Store) IsMember(user domain.UserID, room domain.RoomID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.memberships[user][room]
	return ok
}

func (s *Store) FindUser(_ context.Context, username string) (port.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	if !ok {
		return port.UserRecord{}, port.ErrUserNotFound
	}
	return u, nil
}

func (s *Store) Opened(_ context.Context, rec domain.ConnectionRecord) error {
	s.mu.Lock()
	s.connections[rec.ID] = rec.RoomID
	s.mu.Unlock()
	return nil
}

func (s *Store) RoomChanged(_ context.Context, id domain.ConnectionID, room domain.RoomID) error {
	s.mu.Lock()
	s.connections[id] = room
	s.mu.Unlock()
	return nil
}

func (s *Store) Closed(_ context.Context, id domain.ConnectionID) error {
	s.mu.Lock()
	s.closed[id] = true
	s.mu.Unlock()
	return nil
}

// ConnectionClosed reports whether Closed was logged for id.
func (s *Store) ConnectionClosed(id domain.ConnectionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed[id]
}

func (s *Store) Messages() []domain.StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.StoredMessage(nil), s.messages...)
}
