package models

import (
	"context"

	"gorm.io/gorm"
)

type MessagesRepository struct {
	db *gorm.DB
}

func NewMessagesRepository(db *gorm.DB) *MessagesRepository {
	return &MessagesRepository{db: db}
}

// Append stores one question/answer exchange.
func (r *MessagesRepository) Append(ctx context.Context, sessionID, question, answer string) error {
	messages := []Message{
		{SessionID: sessionID, Role: RoleUser, Content: question},
		{SessionID: sessionID, Role: RoleAssistant, Content: answer},
	}
	return r.db.WithContext(ctx).Create(&messages).Error
}

// Recent returns the last limit messages of the session, oldest first.
// A non-positive limit returns the whole transcript.
func (r *MessagesRepository) Recent(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var messages []Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
