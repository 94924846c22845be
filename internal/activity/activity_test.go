package activity

import (
	"testing"
	"time"

	"phrasedesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)

func entry(id uint, user, name string, action model.Action, at time.Time) model.LogEntryView {
	return model.LogEntryView{
		LogEntry:    model.LogEntry{ID: id, Username: user, Action: action, Detail: "7", CreatedAt: at},
		DisplayName: name,
	}
}

func sample() []model.LogEntryView {
	return []model.LogEntryView{
		entry(5, "bia", "Bia", model.ActionLogin, base),
		entry(4, "ana", "Ana", model.ActionCopy, base.Add(-time.Hour)),
		entry(3, "bia", "Bia", model.ActionCopy, base.Add(-24*time.Hour)),
		entry(2, "caio", "", model.ActionEdit, base.Add(-25*time.Hour)),
		entry(1, "ana", "Ana", model.ActionLogin, base.Add(-48*time.Hour)),
	}
}

func TestGroup_ByDate(t *testing.T) {
	buckets := Group(sample(), ByDate, time.UTC)
	require.Len(t, buckets, 3)
	assert.Equal(t, "2026-05-20", buckets[0].Key)
	assert.Equal(t, "20/05/2026", buckets[0].Title)
	assert.Len(t, buckets[0].Entries, 2)
	assert.Equal(t, "2026-05-18", buckets[2].Key)
}

func TestGroup_ByUserOrdersByMostRecent(t *testing.T) {
	entries := sample()
	// ana acts after a push; her bucket must move first
	entries = append([]model.LogEntryView{entry(6, "ana", "Ana", model.ActionCopy, base.Add(time.Minute))}, entries...)

	buckets := Group(entries, ByUser, time.UTC)
	require.Len(t, buckets, 3)
	assert.Equal(t, "ana", buckets[0].Key)
	assert.Equal(t, "bia", buckets[1].Key)
	assert.Equal(t, "caio", buckets[2].Title, "falls back to username")
	assert.Equal(t, uint(6), buckets[0].Entries[0].ID)
}

func TestFilter(t *testing.T) {
	byUser := Filter(Group(sample(), ByUser, time.UTC), "login", ByUser)
	require.Len(t, byUser, 2)
	for _, b := range byUser {
		assert.Len(t, b.Entries, 2, "user buckets are kept whole")
	}

	byDate := Filter(Group(sample(), ByDate, time.UTC), "editou", ByDate)
	require.Len(t, byDate, 1)
	require.Len(t, byDate[0].Entries, 1)
	assert.Equal(t, uint(2), byDate[0].Entries[0].ID)

	assert.Len(t, Filter(Group(sample(), ByDate, time.UTC), "  ", ByDate), 3)
}

func TestFeed_MergeIsIdempotentAndCapped(t *testing.T) {
	f := NewFeed(3)
	f.Warm(sample())
	assert.True(t, f.Warmed())
	assert.Equal(t, 3, f.Len())

	assert.Equal(t, 0, f.Merge(sample()[0]))

	newer := entry(9, "caio", "", model.ActionCopy, base.Add(time.Hour))
	assert.Equal(t, 1, f.Merge(newer, newer))

	got := f.Entries()
	require.Len(t, got, 3)
	assert.Equal(t, uint(9), got[0].ID)
	assert.Equal(t, uint(4), got[2].ID)

	groups := f.Groups(ByUser, time.UTC)
	assert.Equal(t, "caio", groups[0].Key)
}

func TestParseBy(t *testing.T) {
	assert.Equal(t, ByUser, ParseBy("USER"))
	assert.Equal(t, ByDate, ParseBy(""))
}
