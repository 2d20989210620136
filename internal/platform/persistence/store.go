package persistence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatWs/internal/modules/realtime/application/port"
	"chatWs/internal/modules/realtime/domain"
)

// Store is the gorm-backed durable store behind every realtime store port.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

var (
	_ port.MessageStore  = (*Store)(nil)
	_ port.RoomDirectory = (*Store)(nil)
	_ port.UserDirectory = (*Store)(nil)
	_ port.ConnectionLog = (*Store)(nil)
)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) SaveMessage(ctx context.Context, user domain.UserID, room domain.RoomID, content string) (domain.StoredMessage, error) {
	row := MessageModel{Content: content, UserID: int64(user), RoomID: int64(room), CreatedAt: s.now().UTC()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.StoredMessage{}, fmt.Errorf("save message: %w", err)
	}
	return toStoredMessage(row), nil
}

// RecentMessages returns up to limit messages of room, oldest first.
func (s *Store) RecentMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.StoredMessage, error) {
	var rows []MessageModel
	q := s.db.WithContext(ctx).Where("room_id = ?", int64(room)).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	slices.Reverse(rows)

	out := make([]domain.StoredMessage, 0, len(rows))
	for _, row := range rows {
		out = append(out, toStoredMessage(row))
	}
	return out, nil
}

func (s *Store) FindRoom(ctx context.Context, room domain.RoomID) (domain.ChatRoom, error) {
	var row ChatRoomModel
	err := s.db.WithContext(ctx).First(&row, int64(room)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ChatRoom{}, fmt.Errorf("%w: %d", port.ErrRoomNotFound, room)
	}
	if err != nil {
		return domain.ChatRoom{}, fmt.Errorf("find room: %w", err)
	}
	return domain.ChatRoom{ID: domain.RoomID(row.ID), Name: row.Name}, nil
}

// EnsureMembership records that user belongs to room; an existing membership is kept as is.
func (s *Store) EnsureMembership(ctx context.Context, user domain.UserID, room domain.RoomID) error {
	row := UserRoomModel{UserID: int64(user), RoomID: int64(room), JoinedAt: s.now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("ensure membership: %w", err)
	}
	return nil
}

func (s *Store) FindUser(ctx context.Context, username string) (port.UserRecord, error) {
	var row UserModel
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return port.UserRecord{}, fmt.Errorf("%w: %s", port.ErrUserNotFound, username)
	}
	if err != nil {
		return port.UserRecord{}, fmt.Errorf("find user: %w", err)
	}
	return port.UserRecord{ID: domain.UserID(row.ID), Username: row.Username, Active: row.IsActive}, nil
}

func (s *Store) Opened(ctx context.Context, rec domain.ConnectionRecord) error {
	row := ConnectionModel{
		ID:          string(rec.ID),
		UserID:      optionalID(int64(rec.UserID)),
		RoomID:      optionalID(int64(rec.RoomID)),
		ClientID:    string(rec.ID),
		ConnectedAt: rec.ConnectedAt.UTC(),
		LastActive:  rec.LastActive.UTC(),
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("log connection open: %w", err)
	}
	return nil
}

func (s *Store) RoomChanged(ctx context.Context, id domain.ConnectionID, room domain.RoomID) error {
	err := s.db.WithContext(ctx).Model(&ConnectionModel{}).Where("id = ?", string(id)).
		Updates(map[string]any{"room_id": optionalID(int64(room)), "last_active": s.now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("log room change: %w", err)
	}
	return nil
}

func (s *Store) Closed(ctx context.Context, id domain.ConnectionID) error {
	err := s.db.WithContext(ctx).Model(&ConnectionModel{}).Where("id = ?", string(id)).
		Updates(map[string]any{"is_active": false, "last_active": s.now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("log connection close: %w", err)
	}
	return nil
}

// CreateUser inserts an account. Used for seeding.
func (s *Store) CreateUser(ctx context.Context, username, email string, active bool) (domain.UserID, error) {
	row := UserModel{Username: username, Email: email, IsActive: true}
	db := s.db.WithContext(ctx)
	if err := db.Create(&row).Error; err != nil {
		return domain.NoUser, fmt.Errorf("create user: %w", err)
	}
	// gorm skips zero values that have a default, so deactivation is a separate update.
	if !active {
		if err := db.Model(&row).Update("is_active", false).Error; err != nil {
			return domain.NoUser, fmt.Errorf("deactivate user: %w", err)
		}
	}
	return domain.UserID(row.ID), nil
}

// CreateRoom inserts a chat room. Used for seeding.
func (s *Store) CreateRoom(ctx context.Context, name string) (domain.ChatRoom, error) {
	row := ChatRoomModel{Name: name}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.ChatRoom{}, fmt.Errorf("create room: %w", err)
	}
	return domain.ChatRoom{ID: domain.RoomID(row.ID), Name: row.Name}, nil
}

func toStoredMessage(row MessageModel) domain.StoredMessage {
	return domain.StoredMessage{
		ID:        row.ID,
		Content:   row.Content,
		UserID:    domain.UserID(row.UserID),
		RoomID:    domain.RoomID(row.RoomID),
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func optionalID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
