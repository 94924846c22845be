// Package chat keeps the client-side view of the team chat: one ordered set of
// messages fed by both realtime push and polling.
package chat

import (
	"sort"
	"sync"

	"phrasedesk/internal/model"
)

// Timeline is an id-keyed, ordered message set. A message seen through either
// channel is never reported twice.
type Timeline struct {
	mu   sync.Mutex
	seen map[uint]struct{}
	msgs []model.ChatMessage
	high uint
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uint]struct{})}
}

// Merge records msgs and returns the ones not seen before, ordered by id.
func (t *Timeline) Merge(msgs ...model.ChatMessage) []model.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.ID == 0 {
			continue
		}
		if _, ok := t.seen[m.ID]; ok {
			continue
		}
		t.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
		if m.ID > t.high {
			t.high = m.ID
		}
	}
	if len(fresh) == 0 {
		return fresh
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].ID < fresh[j].ID })

	t.msgs = append(t.msgs, fresh...)
	sort.SliceStable(t.msgs, func(i, j int) bool { return t.msgs[i].ID < t.msgs[j].ID })
	return fresh
}

// HighWater is the largest id seen; polls ask for messages after it
func (t *Timeline) HighWater() uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.high
}

// Messages returns every message in id order
func (t *Timeline) Messages() []model.ChatMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.msgs)
}
