package repository

import (
	"context"
	"time"

	"phrasedesk/internal/model"

	"gorm.io/gorm"
)

// PhraseRepository is the data access for the phrase library
type PhraseRepository interface {
	Create(ctx context.Context, phrase *model.Phrase) error
	CreateBatch(ctx context.Context, phrases []model.Phrase) error
	GetByID(ctx context.Context, id uint) (*model.Phrase, error)
	ListAll(ctx context.Context) ([]model.Phrase, error)
	Update(ctx context.Context, phrase *model.Phrase) error
	Delete(ctx context.Context, id uint) error
	RecordUsage(ctx context.Context, id uint, at time.Time) error
	Count(ctx context.Context) (int64, error)
}

type phraseRepository struct {
	db *gorm.DB
}

func NewPhraseRepository(db *gorm.DB) PhraseRepository {
	return &phraseRepository{db: db}
}

func (r *phraseRepository) Create(ctx context.Context, phrase *model.Phrase) error {
	return GetDB(ctx, r.db).Create(phrase).Error
}

// CreateBatch inserts phrases in a single statement. Callers chunk large sets.
func (r *phraseRepository) CreateBatch(ctx context.Context, phrases []model.Phrase) error {
	if len(phrases) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Create(&phrases).Error
}

func (r *phraseRepository) GetByID(ctx context.Context, id uint) (*model.Phrase, error) {
	var phrase model.Phrase
	if err := GetDB(ctx, r.db).First(&phrase, id).Error; err != nil {
		return nil, err
	}
	return &phrase, nil
}

// ListAll returns the full library, most used first
func (r *phraseRepository) ListAll(ctx context.Context) ([]model.Phrase, error) {
	var phrases []model.Phrase
	if err := GetDB(ctx, r.db).Order("usage_count DESC").Order("id ASC").Find(&phrases).Error; err != nil {
		return nil, err
	}
	return phrases, nil
}

func (r *phraseRepository) Update(ctx context.Context, phrase *model.Phrase) error {
	return GetDB(ctx, r.db).Model(phrase).Select("Company", "Reason", "DocumentType", "Content", "ReviewedBy").Updates(phrase).Error
}

func (r *phraseRepository) Delete(ctx context.Context, id uint) error {
	res := GetDB(ctx, r.db).Delete(&model.Phrase{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// RecordUsage adds exactly one use to the counter in a single expression.
func (r *phraseRepository) RecordUsage(ctx context.Context, id uint, at time.Time) error {
	res := GetDB(ctx, r.db).Model(&model.Phrase{}).Where("id = ?", id).Updates(map[string]interface{}{
		"usage_count":  gorm.Expr("usage_count + ?", 1),
		"last_used_at": at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *phraseRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Phrase{}).Count(&n).Error
	return n, err
}
