package repository

import (
	"context"

	"phrasedesk/internal/model"

	"gorm.io/gorm"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	ListAfter(ctx context.Context, afterID uint, limit int) ([]model.ChatMessage, error)
	ListLatest(ctx context.Context, limit int) ([]model.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	return GetDB(ctx, r.db).Create(msg).Error
}

// ListAfter returns messages above the high-water mark, oldest first
func (r *chatRepository) ListAfter(ctx context.Context, afterID uint, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	if err := GetDB(ctx, r.db).Where("id > ?", afterID).Order("id ASC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListLatest returns the last limit messages, oldest first
func (r *chatRepository) ListLatest(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	if err := GetDB(ctx, r.db).Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
