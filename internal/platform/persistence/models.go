package persistence

import "time"

type UserModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Username       string `gorm:"size:64;uniqueIndex"`
	Email          string `gorm:"size:255;uniqueIndex"`
	HashedPassword string `gorm:"size:255"`
	IsActive       bool   `gorm:"default:true"`
}

type ChatRoomModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"size:128;uniqueIndex"`
	Description *string   `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

type UserRoomModel struct {
	UserID   int64     `gorm:"primaryKey;autoIncrement:false"`
	RoomID   int64     `gorm:"primaryKey;autoIncrement:false"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

type MessageModel struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_messages_room_created,priority:2"`
	UserID    int64     `gorm:"index"`
	RoomID    int64     `gorm:"index:idx_messages_room_created,priority:1"`
}

type ConnectionModel struct {
	ID          string    `gorm:"primaryKey;size:64"`
	UserID      *int64    `gorm:"index"`
	RoomID      *int64    `gorm:"index"`
	ClientID    string    `gorm:"size:64;index"`
	ConnectedAt time.Time
	LastActive  time.Time
	IsActive    bool `gorm:"default:true"`
}

func (UserModel) TableName() string       { return "users" }
func (ChatRoomModel) TableName() string   { return "chat_rooms" }
func (UserRoomModel) TableName() string   { return "user_rooms" }
func (MessageModel) TableName() string    { return "messages" }
func (ConnectionModel) TableName() string { return "websocket_connections" }

func allModels() []any {
	return []any{&UserModel{}, &ChatRoomModel{}, &UserRoomModel{}, &MessageModel{}, &ConnectionModel{}}
}
