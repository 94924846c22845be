package infra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"phrasedesk/internal/realtime"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_MarkOnce(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	end := time.Now().Add(time.Hour)

	first, err := m.MarkOnce(ctx, "login:ana:2026-01-01", end)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := m.MarkOnce(ctx, "login:ana:2026-01-01", end)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, m.Unmark(ctx, "login:ana:2026-01-01"))
	released, err := m.MarkOnce(ctx, "login:ana:2026-01-01", end)
	require.NoError(t, err)
	assert.True(t, released)

	m.now = func() time.Time { return end.Add(time.Second) }
	after, err := m.MarkOnce(ctx, "login:ana:2026-01-01", end.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, after)
}

func TestMemoryStore_Cache(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, ok, _ := m.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCircuitBreaker_TripsAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute})
	now := time.Now()
	cb.now = func() time.Time { return now }
	boom := errors.New("boom")

	assert.ErrorIs(t, cb.Execute(func() error { return boom }, nil), boom)
	assert.ErrorIs(t, cb.Execute(func() error { return boom }, nil), boom)
	assert.Equal(t, CBOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(func() error { return nil }, nil), ErrCircuitOpen)

	now = now.Add(time.Minute)
	assert.Equal(t, CBHalfOpen, cb.State())
	require.NoError(t, cb.Execute(func() error { return nil }, nil))
	assert.Equal(t, CBClosed, cb.State())
}

func TestCircuitBreaker_IgnoresUncountedErrors(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})
	notFound := func(err error) bool { return !errors.Is(err, ErrPostalNotFound) }

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return ErrPostalNotFound }, notFound), ErrPostalNotFound)
	}
	assert.Equal(t, CBClosed, cb.State())
}

func TestPostalClient_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/01001000/json/":
			_, _ = w.Write([]byte(`{"cep":"01001-000","logradouro":"Praça da Sé","bairro":"Sé","localidade":"São Paulo","uf":"SP"}`))
		case "/99999999/json/":
			_, _ = w.Write([]byte(`{"erro": "true"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	client := NewPostalClient(srv.URL+"/", nil)
	ctx := context.Background()

	addr, err := client.Lookup(ctx, "01001-000")
	require.NoError(t, err)
	assert.Equal(t, "São Paulo", addr.City)
	assert.Equal(t, "SP", addr.State)

	_, err = client.Lookup(ctx, "99999-999")
	assert.ErrorIs(t, err, ErrPostalNotFound)

	_, err = client.Lookup(ctx, "123")
	assert.ErrorIs(t, err, ErrInvalidPostalCode)

	_, err = client.Lookup(ctx, "11111111")
	assert.Error(t, err)
}

type stubWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *stubWriter) Close() error { return nil }

func (w *stubWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

func TestAuditSink_ForwardsInserts(t *testing.T) {
	w := &stubWriter{}
	sink := NewAuditSink(w, 8)
	ctx, cancel := context.WithCancel(context.Background())
	go sink.Run(ctx)

	sink.Handle(realtime.Event{Table: realtime.TableActivity, Type: realtime.Insert, At: time.Now()})
	sink.Handle(realtime.Event{Table: realtime.TableActivity, Type: realtime.Update})

	assert.Eventually(t, func() bool { return w.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, sink.Close(context.Background()))
	assert.Equal(t, "activity_logs", string(w.msgs[0].Key))
}
