package usage

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (c *capturePublisher) Publish(ev realtime.Event) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func setup(t *testing.T, opts Options) (*Recorder, repository.PhraseRepository, repository.ActivityRepository, *capturePublisher) {
	db := testdb.New(t)
	phrases := repository.NewPhraseRepository(db)
	logs := repository.NewActivityRepository(db)
	pub := &capturePublisher{}
	rec := NewRecorder(repository.NewTransactionManager(db), phrases, logs, pub, opts)
	return rec, phrases, logs, pub
}

func TestRecorder_CopiesIncrementByExactlyN(t *testing.T) {
	rec, phrases, logs, pub := setup(t, Options{Workers: 1, QueueSize: 16})
	ctx := context.Background()

	p := &model.Phrase{Content: "Olá"}
	require.NoError(t, phrases.Create(ctx, p))

	rec.Start(ctx)
	for i := 0; i < 5; i++ {
		assert.True(t, rec.Record(Event{PhraseID: p.ID, Username: "ana"}))
	}
	require.NoError(t, rec.Close(ctx))

	got, err := phrases.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.UsageCount)
	require.NotNil(t, got.LastUsedAt)

	copies, err := logs.ListSince(ctx, time.Time{}, model.ActionCopy)
	require.NoError(t, err)
	require.Len(t, copies, 5)
	for _, c := range copies {
		assert.Equal(t, strconv.FormatUint(uint64(p.ID), 10), c.Detail)
	}
	assert.Len(t, pub.events, 10)
}

func TestRecorder_MissingPhraseRollsBack(t *testing.T) {
	rec, _, logs, pub := setup(t, Options{})
	ctx := context.Background()

	err := rec.Apply(ctx, Event{PhraseID: 77, Username: "ana", At: time.Now()})
	require.Error(t, err)

	copies, err := logs.ListSince(ctx, time.Time{}, model.ActionCopy)
	require.NoError(t, err)
	assert.Empty(t, copies)
	assert.Empty(t, pub.events)
}

func TestRecorder_DropsWhenClosedOrFull(t *testing.T) {
	rec, _, _, _ := setup(t, Options{Workers: 1, QueueSize: 1})
	ctx := context.Background()

	// not started: the single slot fills and the next event is dropped
	assert.True(t, rec.Record(Event{PhraseID: 1, Username: "ana"}))
	assert.False(t, rec.Record(Event{PhraseID: 1, Username: "ana"}))

	rec.Start(ctx)
	require.NoError(t, rec.Close(ctx))
	assert.False(t, rec.Record(Event{PhraseID: 1, Username: "ana"}))
}
