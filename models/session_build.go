package models

import (
	"time"

	"gorm.io/datatypes"
)

// SessionBuild is the persisted build of one chat session.
type SessionBuild struct {
	SessionID string         `gorm:"primaryKey;size:64"`
	Data      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *SessionBuild) TableName() string {
	return "session_builds"
}

// Message is one line of a chat transcript.
type Message struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"index;size:64;not null"`
	Role      Role      `gorm:"size:16;not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index"`
}

func (m *Message) TableName() string {
	return "messages"
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)
