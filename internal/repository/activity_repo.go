package repository

import (
	"context"
	"time"

	"phrasedesk/internal/model"

	"gorm.io/gorm"
)

const viewColumns = "activity_logs.*, COALESCE(users.display_name, '') AS display_name, COALESCE(users.role, '') AS role"

// ActivityRepository stores the append-only audit trail
type ActivityRepository interface {
	Log(ctx context.Context, entry *model.LogEntry) error
	GetView(ctx context.Context, id uint) (*model.LogEntryView, error)
	ListRecent(ctx context.Context, limit int) ([]model.LogEntryView, error)
	ListSince(ctx context.Context, since time.Time, actions ...model.Action) ([]model.LogEntry, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Log(ctx context.Context, entry *model.LogEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *activityRepository) view(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).Table("activity_logs").
		Select(viewColumns).
		Joins("LEFT JOIN users ON users.username = activity_logs.username")
}

func (r *activityRepository) GetView(ctx context.Context, id uint) (*model.LogEntryView, error) {
	var rows []model.LogEntryView
	if err := r.view(ctx).Where("activity_logs.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// ListRecent returns the newest entries joined with the acting user's name
func (r *activityRepository) ListRecent(ctx context.Context, limit int) ([]model.LogEntryView, error) {
	var rows []model.LogEntryView
	if err := r.view(ctx).
		Order("activity_logs.created_at DESC").
		Order("activity_logs.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListSince returns entries created at or after since, optionally restricted to actions
func (r *activityRepository) ListSince(ctx context.Context, since time.Time, actions ...model.Action) ([]model.LogEntry, error) {
	var entries []model.LogEntry
	q := GetDB(ctx, r.db).Where("created_at >= ?", since)
	if len(actions) > 0 {
		q = q.Where("action IN ?", actions)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
