// Package activity groups and filters the audit trail for the activity log view
// and keeps the live, newest-first feed that realtime inserts merge into.
package activity

import (
	"sort"
	"strings"
	"time"

	"phrasedesk/internal/library"
	"phrasedesk/internal/model"
)

// By selects the grouping key
type By string

const (
	ByDate By = "date"
	ByUser By = "user"
)

// ParseBy defaults to ByDate
func ParseBy(s string) By {
	if By(strings.ToLower(strings.TrimSpace(s))) == ByUser {
		return ByUser
	}
	return ByDate
}

// Bucket is one group of entries. Entries are newest first.
type Bucket struct {
	Key     string               `json:"key"`
	Title   string               `json:"title"`
	Latest  time.Time            `json:"latest"`
	Entries []model.LogEntryView `json:"entries"`
}

// Group buckets newest-first entries by local date or by username. Date
// buckets keep first-occurrence order; user buckets are ordered by their most
// recent entry.
func Group(entries []model.LogEntryView, by By, loc *time.Location) []Bucket {
	if loc == nil {
		loc = time.UTC
	}
	idx := make(map[string]int)
	out := make([]Bucket, 0)
	for _, e := range entries {
		key, title := bucketKey(e, by, loc)
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, Bucket{Key: key, Title: title, Latest: e.CreatedAt})
		}
		b := &out[i]
		b.Entries = append(b.Entries, e)
		if e.CreatedAt.After(b.Latest) {
			b.Latest = e.CreatedAt
		}
	}
	for i := range out {
		sortNewestFirst(out[i].Entries)
	}
	if by == ByUser {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Latest.After(out[j].Latest) })
	}
	return out
}

func bucketKey(e model.LogEntryView, by By, loc *time.Location) (string, string) {
	if by == ByUser {
		title := e.DisplayName
		if title == "" {
			title = e.Username
		}
		return e.Username, title
	}
	local := e.CreatedAt.In(loc)
	return local.Format("2006-01-02"), local.Format("02/01/2006")
}

// Filter keeps the buckets matching term. User buckets are kept whole when any
// entry matches; date buckets keep only matching entries and drop empty ones.
func Filter(buckets []Bucket, term string, by By) []Bucket {
	term = library.Normalize(strings.TrimSpace(term))
	if term == "" {
		return buckets
	}
	out := make([]Bucket, 0, len(buckets))
	for _, b := range buckets {
		if by == ByUser {
			for _, e := range b.Entries {
				if Matches(e, term) {
					out = append(out, b)
					break
				}
			}
			continue
		}
		kept := make([]model.LogEntryView, 0, len(b.Entries))
		for _, e := range b.Entries {
			if Matches(e, term) {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			b.Entries = kept
			out = append(out, b)
		}
	}
	return out
}

// Matches reports whether a normalised term occurs in the entry's searchable text
func Matches(e model.LogEntryView, normalizedTerm string) bool {
	hay := library.Normalize(strings.Join([]string{
		e.Username, e.DisplayName, string(e.Action), e.Action.Label(), e.Detail,
	}, " "))
	return strings.Contains(hay, normalizedTerm)
}

func sortNewestFirst(entries []model.LogEntryView) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}
