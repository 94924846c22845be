package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"phrasedesk/internal/dashboard"
	"phrasedesk/internal/debounce"
	"phrasedesk/internal/infra"
	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	snapshotKey = "snapshot"
	snapshotTTL = 10 * time.Minute
)

type DashboardService interface {
	// Get serves the cached snapshot, computing one on a miss
	Get(ctx context.Context) (*dashboard.Snapshot, error)
	// Refresh recomputes and caches the snapshot
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
	DeleteStale(ctx context.Context, actor *session.Session, id uint) error
}

type dashboardService struct {
	phrases repository.PhraseRepository
	logs    repository.ActivityRepository
	users   repository.UserRepository
	tx      repository.TransactionManager
	cache   infra.SnapshotCache
	journal journal
	cfg     dashboard.Config
	loc     *time.Location
}

func NewDashboardService(
	phrases repository.PhraseRepository,
	logs repository.ActivityRepository,
	users repository.UserRepository,
	tx repository.TransactionManager,
	cache infra.SnapshotCache,
	pub realtime.Publisher,
	cfg dashboard.Config,
	loc *time.Location,
) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardService{
		phrases: phrases,
		logs:    logs,
		users:   users,
		tx:      tx,
		cache:   cache,
		journal: newJournal(logs, pub),
		cfg:     cfg,
		loc:     loc,
	}
}

func (s *dashboardService) Get(ctx context.Context) (*dashboard.Snapshot, error) {
	raw, ok, err := s.cache.Get(ctx, snapshotKey)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard cache read failed")
	}
	if ok {
		var snap dashboard.Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &snap, nil
		}
	}
	return s.Refresh(ctx)
}

func (s *dashboardService) Refresh(ctx context.Context) (*dashboard.Snapshot, error) {
	now := s.journal.now()

	phrases, err := s.phrases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	window := s.cfg.StaleWindow
	if kpi := time.Duration(s.cfg.KPIDays) * 24 * time.Hour; kpi > window {
		window = kpi
	}
	logs, err := s.logs.ListSince(ctx, now.Add(-window), model.ActionCopy)
	if err != nil {
		return nil, fmt.Errorf("list usage logs: %w", err)
	}
	users, err := s.users.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	snap := dashboard.Build(dashboard.Input{Phrases: phrases, Logs: logs, Users: users}, s.cfg, now, s.loc)
	if raw, err := json.Marshal(snap); err == nil {
		if err := s.cache.Set(ctx, snapshotKey, raw, snapshotTTL); err != nil {
			log.Warn().Err(err).Msg("dashboard cache write failed")
		}
	}
	return &snap, nil
}

// DeleteStale removes a phrase only if it is stale, logging LIMPEZA
func (s *dashboardService) DeleteStale(ctx context.Context, actor *session.Session, id uint) error {
	phrase, err := s.phrases.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPhraseNotFound
	}
	if err != nil {
		return fmt.Errorf("load phrase: %w", err)
	}
	if !dashboard.IsStale(*phrase, s.journal.now(), s.cfg.StaleWindow) {
		return ErrPhraseNotStale
	}

	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.phrases.Delete(txCtx, id); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), model.ActionCleanup, phraseDetail(id))
	})
	if err != nil {
		return fmt.Errorf("delete stale phrase: %w", err)
	}
	if err := s.cache.Delete(ctx, snapshotKey); err != nil {
		log.Warn().Err(err).Msg("dashboard cache invalidate failed")
	}
	b.add(realtime.TablePhrases, realtime.Delete, map[string]uint{"id": id})
	b.publish()
	return nil
}

// DashboardRefresher recomputes the snapshot after a quiet period following
// phrase or activity changes and pushes it as a dashboard event.
type DashboardRefresher struct {
	svc       DashboardService
	pub       realtime.Publisher
	debouncer *debounce.Debouncer
	timeout   time.Duration
}

func NewDashboardRefresher(svc DashboardService, pub realtime.Publisher, delay time.Duration) *DashboardRefresher {
	r := &DashboardRefresher{svc: svc, pub: pub, timeout: 30 * time.Second}
	r.debouncer = debounce.New(delay, r.refresh)
	return r
}

// Handle is a realtime.Listener
func (r *DashboardRefresher) Handle(ev realtime.Event) {
	switch ev.Table {
	case realtime.TablePhrases, realtime.TableActivity:
		r.debouncer.Trigger()
	}
}

func (r *DashboardRefresher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	snap, err := r.svc.Refresh(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("dashboard refresh failed")
		return
	}
	r.pub.Publish(realtime.Event{Table: realtime.TableDashboard, Type: realtime.Update, Record: snap, At: snap.GeneratedAt})
}

// Stop cancels a pending refresh
func (r *DashboardRefresher) Stop() {
	r.debouncer.Stop()
}
