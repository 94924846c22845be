// Package dashboard turns phrases, usage logs and the roster into the ranked
// views shown on the usage dashboard.
package dashboard

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"phrasedesk/internal/model"

	"github.com/shopspring/decimal"
)

const otherReason = "Outros"

type Config struct {
	TopK          int
	LowUsageFloor int
	StaleWindow   time.Duration
	KPIDays       int // length of the KPI window and timeline
	ReasonSlices  int // reasons shown before folding the rest into "Outros"
}

func DefaultConfig() Config {
	return Config{
		TopK:          10,
		LowUsageFloor: 1,
		StaleWindow:   90 * 24 * time.Hour,
		KPIDays:       30,
		ReasonSlices:  5,
	}
}

// Input is everything Build reads. Logs should cover at least the stale window.
type Input struct {
	Phrases []model.Phrase
	Logs    []model.LogEntry
	Users   []model.User
}

type PhraseRank struct {
	model.Phrase
	Share decimal.Decimal `json:"share"` // percent of the leader's count
}

type UserRank struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
}

type DayPoint struct {
	Date  string `json:"date"` // YYYY-MM-DD in the service time zone
	Count int    `json:"count"`
}

type ReasonSlice struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

type KPIs struct {
	TotalUses    int             `json:"total_uses"`
	ActiveUsers  int             `json:"active_users"`
	DailyAverage decimal.Decimal `json:"daily_average"`
	TotalPhrases int             `json:"total_phrases"`
	StalePhrases int             `json:"stale_phrases"`
}

// Snapshot is one computed dashboard
type Snapshot struct {
	TopPhrases       []PhraseRank   `json:"top_phrases"`
	LowUsage         []model.Phrase `json:"low_usage"`
	Stale            []model.Phrase `json:"stale"`
	TopUsers         []UserRank     `json:"top_users"`
	LeastActiveUsers []UserRank     `json:"least_active_users"`
	KPIs             KPIs           `json:"kpis"`
	Timeline         []DayPoint     `json:"timeline"`
	Reasons          []ReasonSlice  `json:"reasons"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Build computes every dashboard view at instant now.
func Build(in Input, cfg Config, now time.Time, loc *time.Location) Snapshot {
	if loc == nil {
		loc = time.UTC
	}
	snap := Snapshot{GeneratedAt: now}

	snap.TopPhrases = topPhrases(in.Phrases, cfg.TopK)
	snap.LowUsage = LowUsage(in.Phrases, cfg.LowUsageFloor, cfg.TopK)
	snap.Stale = Stale(in.Phrases, now, cfg.StaleWindow)

	users := userCounts(in, now.Add(-cfg.StaleWindow))
	snap.TopUsers = rankUsers(users, cfg.TopK, true)
	snap.LeastActiveUsers = rankUsers(users, cfg.TopK, false)

	snap.KPIs, snap.Timeline, snap.Reasons = lastDays(in, cfg, now, loc)
	snap.KPIs.TotalPhrases = len(in.Phrases)
	snap.KPIs.StalePhrases = len(snap.Stale)
	return snap
}

func topPhrases(phrases []model.Phrase, k int) []PhraseRank {
	sorted := make([]model.Phrase, len(phrases))
	copy(sorted, phrases)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UsageCount > sorted[j].UsageCount })
	sorted = head(sorted, k)

	out := make([]PhraseRank, 0, len(sorted))
	for _, p := range sorted {
		share := decimal.Zero
		if leader := sorted[0].UsageCount; leader > 0 {
			share = decimal.NewFromInt(int64(p.UsageCount)).Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(int64(leader))).Round(1)
		}
		out = append(out, PhraseRank{Phrase: p, Share: share})
	}
	return out
}

// LowUsage returns phrases used at least floor times, least used first.
func LowUsage(phrases []model.Phrase, floor, k int) []model.Phrase {
	out := make([]model.Phrase, 0)
	for _, p := range phrases {
		if p.UsageCount >= floor {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount < out[j].UsageCount })
	return head(out, k)
}

// Stale returns phrases whose reference time is strictly before now-window,
// oldest first.
func Stale(phrases []model.Phrase, now time.Time, window time.Duration) []model.Phrase {
	out := make([]model.Phrase, 0)
	for _, p := range phrases {
		if IsStale(p, now, window) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ReferenceTime().Before(out[j].ReferenceTime()) })
	return out
}

// IsStale reports whether p has not been used within window of now
func IsStale(p model.Phrase, now time.Time, window time.Duration) bool {
	return p.ReferenceTime().Before(now.Add(-window))
}

// userCounts tallies usage logs since the cutoff. Every active roster user is
// present, in roster order; users only seen in logs follow in first-seen order.
func userCounts(in Input, since time.Time) []UserRank {
	names := make(map[string]string, len(in.Users))
	idx := make(map[string]int)
	out := make([]UserRank, 0, len(in.Users))
	for i := range in.Users {
		u := &in.Users[i]
		names[u.Username] = u.Name()
		if u.Active {
			idx[u.Username] = len(out)
			out = append(out, UserRank{Username: u.Username, DisplayName: u.Name()})
		}
	}

	for _, l := range in.Logs {
		if !l.Action.IsUsage() || l.CreatedAt.Before(since) {
			continue
		}
		i, ok := idx[l.Username]
		if !ok {
			name := names[l.Username]
			if name == "" {
				name = l.Username
			}
			i = len(out)
			idx[l.Username] = i
			out = append(out, UserRank{Username: l.Username, DisplayName: name})
		}
		out[i].Count++
	}
	return out
}

func rankUsers(users []UserRank, k int, desc bool) []UserRank {
	out := make([]UserRank, len(users))
	copy(out, users)
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].Count > out[j].Count
		}
		return out[i].Count < out[j].Count
	})
	return head(out, k)
}

func lastDays(in Input, cfg Config, now time.Time, loc *time.Location) (KPIs, []DayPoint, []ReasonSlice) {
	days := cfg.KPIDays
	if days <= 0 {
		days = 30
	}
	since := now.AddDate(0, 0, -days)

	today := now.In(loc)
	timeline := make([]DayPoint, days)
	pos := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-days+1).Format("2006-01-02")
		timeline[i] = DayPoint{Date: d}
		pos[d] = i
	}

	reasonOf := make(map[uint]string, len(in.Phrases))
	for _, p := range in.Phrases {
		reasonOf[p.ID] = p.Reason
	}

	var kpi KPIs
	active := make(map[string]struct{})
	reasons := make(map[string]int)
	var order []string
	for _, l := range in.Logs {
		if !l.Action.IsUsage() || l.CreatedAt.Before(since) {
			continue
		}
		kpi.TotalUses++
		active[l.Username] = struct{}{}
		if i, ok := pos[l.CreatedAt.In(loc).Format("2006-01-02")]; ok {
			timeline[i].Count++
		}
		id, ok := PhraseID(l.Detail)
		if !ok {
			continue
		}
		reason, ok := reasonOf[id]
		if !ok {
			continue
		}
		if reason == "" {
			reason = otherReason
		}
		if _, seen := reasons[reason]; !seen {
			order = append(order, reason)
		}
		reasons[reason]++
	}
	kpi.ActiveUsers = len(active)
	kpi.DailyAverage = decimal.NewFromInt(int64(kpi.TotalUses)).Div(decimal.NewFromInt(int64(days))).Round(1)

	return kpi, timeline, foldReasons(order, reasons, cfg.ReasonSlices)
}

func foldReasons(order []string, counts map[string]int, n int) []ReasonSlice {
	slices := make([]ReasonSlice, 0, len(order))
	for _, r := range order {
		slices = append(slices, ReasonSlice{Reason: r, Count: counts[r]})
	}
	sort.SliceStable(slices, func(i, j int) bool { return slices[i].Count > slices[j].Count })
	if n <= 0 || len(slices) <= n {
		return slices
	}
	rest := 0
	for _, s := range slices[n:] {
		rest += s.Count
	}
	out := append(slices[:n:n], ReasonSlice{Reason: otherReason, Count: rest})
	return out
}

// PhraseID extracts the phrase id from a usage log detail, ignoring any
// non-digit decoration older clients wrote.
func PhraseID(detail string) (uint, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, detail)
	if digits == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(digits, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func head[T any](s []T, k int) []T {
	if k > 0 && len(s) > k {
		return s[:k]
	}
	return s
}
