// Package usage applies phrase copy events in the background: one COPY log row
// and one counter increment per event, at most once, never retried.
package usage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"

	"github.com/rs/zerolog/log"
)

// Event is one successful clipboard copy reported by a client
type Event struct {
	PhraseID uint
	Username string
	At       time.Time
}

type Options struct {
	Workers   int
	QueueSize int
}

type Recorder struct {
	tx      repository.TransactionManager
	phrases repository.PhraseRepository
	logs    repository.ActivityRepository
	pub     realtime.Publisher

	opts   Options
	queue  chan Event
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewRecorder(tx repository.TransactionManager, phrases repository.PhraseRepository, logs repository.ActivityRepository, pub realtime.Publisher, opts Options) *Recorder {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if pub == nil {
		pub = realtime.Discard{}
	}
	return &Recorder{
		tx:      tx,
		phrases: phrases,
		logs:    logs,
		pub:     pub,
		opts:    opts,
		queue:   make(chan Event, opts.QueueSize),
	}
}

// Start launches the workers. Events already queued are drained by Close
// even after ctx is cancelled.
func (r *Recorder) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < r.opts.Workers; i++ {
		r.wg.Add(1)
		go r.run(base)
	}
	log.Info().Msgf("usage recorder started with %d workers", r.opts.Workers)
}

// Record queues ev and reports whether it was accepted. A full queue or a
// closed recorder drops the event.
func (r *Recorder) Record(ev Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		log.Warn().Uint("phrase_id", ev.PhraseID).Msg("usage recorder closed, event dropped")
		return false
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case r.queue <- ev:
		return true
	default:
		log.Warn().Uint("phrase_id", ev.PhraseID).Msg("usage queue full, event dropped")
		return false
	}
}

// Close stops intake and waits for queued events or ctx
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run(ctx context.Context) {
	defer r.wg.Done()
	for ev := range r.queue {
		if err := r.Apply(ctx, ev); err != nil {
			log.Warn().Err(err).
				Uint("phrase_id", ev.PhraseID).
				Str("username", ev.Username).
				Msg("usage write failed")
		}
	}
}

// Apply writes one event synchronously. Workers call it; tests may too.
func (r *Recorder) Apply(ctx context.Context, ev Event) error {
	entry := &model.LogEntry{
		Username:  ev.Username,
		Action:    model.ActionCopy,
		Detail:    strconv.FormatUint(uint64(ev.PhraseID), 10),
		CreatedAt: ev.At,
	}
	err := r.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := r.logs.Log(txCtx, entry); err != nil {
			return err
		}
		return r.phrases.RecordUsage(txCtx, ev.PhraseID, ev.At)
	})
	if err != nil {
		return err
	}

	r.pub.Publish(realtime.Event{Table: realtime.TableActivity, Type: realtime.Insert, Record: entry, At: ev.At})
	if p, err := r.phrases.GetByID(ctx, ev.PhraseID); err == nil {
		r.pub.Publish(realtime.Event{Table: realtime.TablePhrases, Type: realtime.Update, Record: p, At: ev.At})
	}
	return nil
}
