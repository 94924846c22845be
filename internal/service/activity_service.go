package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"phrasedesk/internal/activity"
	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"
)

type ActivityService interface {
	// List returns the live feed grouped by date or user and filtered by term
	List(ctx context.Context, by activity.By, term string) ([]activity.Bucket, error)
	// Handle merges activity inserts published on the bus
	Handle(ev realtime.Event)
}

type activityService struct {
	logs  repository.ActivityRepository
	dir   *session.Directory
	feed  *activity.Feed
	limit int
	loc   *time.Location
	warm  sync.Mutex
}

func NewActivityService(logs repository.ActivityRepository, dir *session.Directory, limit int, loc *time.Location) ActivityService {
	if loc == nil {
		loc = time.UTC
	}
	if limit <= 0 {
		limit = 100
	}
	return &activityService{logs: logs, dir: dir, feed: activity.NewFeed(limit), limit: limit, loc: loc}
}

func (s *activityService) List(ctx context.Context, by activity.By, term string) ([]activity.Bucket, error) {
	if err := s.ensureWarm(ctx); err != nil {
		return nil, err
	}
	return activity.Filter(s.feed.Groups(by, s.loc), term, by), nil
}

func (s *activityService) ensureWarm(ctx context.Context) error {
	if s.feed.Warmed() {
		return nil
	}
	s.warm.Lock()
	defer s.warm.Unlock()
	if s.feed.Warmed() {
		return nil
	}
	entries, err := s.logs.ListRecent(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("load activity: %w", err)
	}
	s.feed.Warm(entries)
	return nil
}

// Handle runs on the publisher goroutine, so name resolution happens off it.
func (s *activityService) Handle(ev realtime.Event) {
	if ev.Table != realtime.TableActivity || ev.Type != realtime.Insert {
		return
	}
	var entry model.LogEntry
	switch rec := ev.Record.(type) {
	case *model.LogEntry:
		entry = *rec
	case model.LogEntry:
		entry = rec
	default:
		return
	}
	go s.ingest(context.Background(), entry)
}

// ingest merges one entry once the feed is warm; a cold feed picks it up on warm.
// The joined view is preferred, the directory covers rows not yet visible.
func (s *activityService) ingest(ctx context.Context, entry model.LogEntry) {
	if !s.feed.Warmed() {
		return
	}
	if v, err := s.logs.GetView(ctx, entry.ID); err == nil {
		s.feed.Merge(*v)
		return
	}
	view := model.LogEntryView{LogEntry: entry, DisplayName: entry.Username}
	if e, ok := s.dir.Lookup(ctx, entry.Username); ok {
		view.DisplayName = e.DisplayName
		view.Role = e.Role
	}
	s.feed.Merge(view)
}
