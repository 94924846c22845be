package activity

import (
	"sync"
	"time"

	"phrasedesk/internal/model"
)

// Feed is the bounded live activity list. Merges are idempotent by entry id.
type Feed struct {
	mu      sync.RWMutex
	limit   int
	warmed  bool
	entries []model.LogEntryView
	ids     map[uint]struct{}
}

func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = 100
	}
	return &Feed{limit: limit, ids: make(map[uint]struct{})}
}

// Warm replaces the feed content with a fresh read and marks it warmed
func (f *Feed) Warm(entries []model.LogEntryView) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.ids = make(map[uint]struct{}, len(entries))
	f.merge(entries)
	f.warmed = true
}

func (f *Feed) Warmed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.warmed
}

// Merge adds unseen entries and returns how many were new
func (f *Feed) Merge(entries ...model.LogEntryView) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merge(entries)
}

func (f *Feed) merge(entries []model.LogEntryView) int {
	added := 0
	for _, e := range entries {
		if _, ok := f.ids[e.ID]; ok {
			continue
		}
		f.ids[e.ID] = struct{}{}
		f.entries = append(f.entries, e)
		added++
	}
	if added == 0 {
		return 0
	}
	sortNewestFirst(f.entries)
	if len(f.entries) > f.limit {
		for _, e := range f.entries[f.limit:] {
			delete(f.ids, e.ID)
		}
		f.entries = f.entries[:f.limit:f.limit]
	}
	return added
}

// Entries returns a copy of the feed, newest first
func (f *Feed) Entries() []model.LogEntryView {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]model.LogEntryView, len(f.entries))
	copy(out, f.entries)
	return out
}

// Groups re-derives the buckets from the current content
func (f *Feed) Groups(by By, loc *time.Location) []Bucket {
	return Group(f.Entries(), by, loc)
}

func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}
