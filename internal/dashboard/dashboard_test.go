package dashboard

import (
	"testing"
	"time"

	"phrasedesk/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func TestStaleBoundary(t *testing.T) {
	window := 90 * 24 * time.Hour
	old := model.Phrase{ID: 1, CreatedAt: now.Add(-window - time.Second)}
	recent := model.Phrase{ID: 2, CreatedAt: now.Add(-89 * 24 * time.Hour)}
	usedLately := model.Phrase{ID: 3, CreatedAt: now.AddDate(-1, 0, 0), LastUsedAt: ptr(now.Add(-time.Hour))}

	assert.True(t, IsStale(old, now, window))
	assert.False(t, IsStale(recent, now, window))
	assert.False(t, IsStale(usedLately, now, window))

	stale := Stale([]model.Phrase{recent, old, usedLately}, now, window)
	require.Len(t, stale, 1)
	assert.Equal(t, uint(1), stale[0].ID)
}

func TestLowUsage_FloorAndOrder(t *testing.T) {
	phrases := []model.Phrase{
		{ID: 1, UsageCount: 0},
		{ID: 2, UsageCount: 5},
		{ID: 3, UsageCount: 1},
		{ID: 4, UsageCount: 2},
	}
	low := LowUsage(phrases, 1, 2)
	require.Len(t, low, 2)
	assert.Equal(t, uint(3), low[0].ID)
	assert.Equal(t, uint(4), low[1].ID)
}

func TestBuild(t *testing.T) {
	phrases := []model.Phrase{
		{ID: 1, Reason: "Cadastro", UsageCount: 4, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, Reason: "Pagamento", UsageCount: 2, CreatedAt: now.Add(-time.Hour)},
		{ID: 3, Reason: "", UsageCount: 0, CreatedAt: now.AddDate(0, -6, 0)},
	}
	users := []model.User{
		{Username: "ana", DisplayName: "Ana", Active: true},
		{Username: "bia", DisplayName: "Bia", Active: true},
		{Username: "caio", Active: false},
	}
	copyAt := func(user, detail string, at time.Time) model.LogEntry {
		return model.LogEntry{Username: user, Action: model.ActionCopy, Detail: detail, CreatedAt: at}
	}
	logs := []model.LogEntry{
		copyAt("ana", "1", now.Add(-time.Hour)),
		copyAt("ana", "1", now.Add(-2*time.Hour)),
		copyAt("ana", "#2", now.AddDate(0, 0, -1)),
		copyAt("caio", "1", now.AddDate(0, 0, -40)),
		{Username: "bia", Action: model.ActionLogin, CreatedAt: now},
	}

	snap := Build(Input{Phrases: phrases, Logs: logs, Users: users}, DefaultConfig(), now, time.UTC)

	require.Len(t, snap.TopPhrases, 3)
	assert.Equal(t, uint(1), snap.TopPhrases[0].ID)
	assert.Equal(t, "100", snap.TopPhrases[0].Share.String())
	assert.Equal(t, "50", snap.TopPhrases[1].Share.String())

	require.Len(t, snap.Stale, 1)
	assert.Equal(t, uint(3), snap.Stale[0].ID)

	require.Len(t, snap.TopUsers, 3)
	assert.Equal(t, UserRank{Username: "ana", DisplayName: "Ana", Count: 3}, snap.TopUsers[0])
	assert.Equal(t, "caio", snap.TopUsers[1].Username)
	assert.Equal(t, "bia", snap.LeastActiveUsers[0].Username)
	assert.Equal(t, 0, snap.LeastActiveUsers[0].Count)

	assert.Equal(t, 3, snap.KPIs.TotalUses)
	assert.Equal(t, 1, snap.KPIs.ActiveUsers)
	assert.Equal(t, "0.1", snap.KPIs.DailyAverage.String())
	assert.Equal(t, 3, snap.KPIs.TotalPhrases)

	require.Len(t, snap.Timeline, 30)
	assert.Equal(t, "2026-03-10", snap.Timeline[29].Date)
	assert.Equal(t, 2, snap.Timeline[29].Count)
	assert.Equal(t, 1, snap.Timeline[28].Count)

	require.Len(t, snap.Reasons, 2)
	assert.Equal(t, ReasonSlice{Reason: "Cadastro", Count: 2}, snap.Reasons[0])
}

func TestFoldReasons(t *testing.T) {
	order := []string{"a", "b", "c", "d", "e", "f", "g"}
	counts := map[string]int{"a": 1, "b": 7, "c": 3, "d": 3, "e": 2, "f": 2, "g": 9}

	out := foldReasons(order, counts, 5)
	require.Len(t, out, 6)
	assert.Equal(t, "g", out[0].Reason)
	assert.Equal(t, ReasonSlice{Reason: otherReason, Count: 3}, out[5])
}

func TestPhraseID(t *testing.T) {
	id, ok := PhraseID(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)

	_, ok = PhraseID("login")
	assert.False(t, ok)
}
