package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "phrasedesk/api/swagger" // swagger docs
	"phrasedesk/internal/config"
	"phrasedesk/internal/dashboard"
	"phrasedesk/internal/database"
	"phrasedesk/internal/infra"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/router"
	"phrasedesk/internal/service"
	"phrasedesk/internal/session"
	"phrasedesk/internal/storage"
	"phrasedesk/internal/usage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// @title           phrasedesk API
// @version         1.0
// @description     Shared reply-phrase library, team roster, usage dashboard and team chat for a support desk.
// @host            localhost:8080
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)
	loc := cfg.Location()

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	log.Info().Msg("connected to postgres")

	// Redis is optional: the daily login marker and the dashboard cache fall
	// back to process memory.
	var (
		rdb     *redis.Client
		markers infra.MarkerStore
		cache   infra.SnapshotCache
	)
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		markers = infra.NewRedisMarker(rdb)
		cache = infra.NewRedisCache(rdb, "phrasedesk:dashboard:")
	} else {
		mem := infra.NewMemoryStore()
		markers, cache = mem, mem
		log.Warn().Msg("REDIS_URL not set, using in-memory markers and cache")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	// Set up dependencies (Repository -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	phraseRepo := repository.NewPhraseRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	chatRepo := repository.NewChatRepository(db)
	txManager := repository.NewTransactionManager(db)

	tokens := session.NewTokenIssuer([]byte(cfg.JWTSecret), time.Duration(cfg.JWTExpirationHours)*time.Hour)
	directory := session.NewDirectory(userRepo, session.DefaultDirectoryTTL)

	recorder := usage.NewRecorder(txManager, phraseRepo, activityRepo, hub, usage.Options{
		Workers:   cfg.UsageWorkers,
		QueueSize: cfg.UsageQueueSize,
	})
	recorder.Start(ctx)

	store, err := storage.NewLocalStore(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare object storage")
	}

	dashCfg := dashboard.DefaultConfig()
	dashCfg.TopK = cfg.DashboardTopK
	dashCfg.LowUsageFloor = cfg.LowUsageFloor
	dashCfg.StaleWindow = cfg.StaleWindow()

	sessionService := service.NewSessionService(userRepo, activityRepo, txManager, tokens, markers, hub, loc)
	rosterService := service.NewRosterService(userRepo, activityRepo, txManager, directory, hub)
	phraseService := service.NewPhraseService(phraseRepo, activityRepo, txManager, recorder, hub, cfg.LibraryTopK)
	backupService := service.NewBackupService(phraseRepo, activityRepo, txManager, hub)
	dashboardService := service.NewDashboardService(phraseRepo, activityRepo, userRepo, txManager, cache, hub, dashCfg, loc)
	activityService := service.NewActivityService(activityRepo, directory, cfg.ActivityFeedLimit, loc)
	chatService := service.NewChatService(chatRepo, store, hub, cfg.MaxUploadBytes())

	refresher := service.NewDashboardRefresher(dashboardService, hub, cfg.DashboardDebounce)
	hub.Subscribe(realtime.TablePhrases, refresher.Handle)
	hub.Subscribe(realtime.TableActivity, refresher.Handle)
	hub.Subscribe(realtime.TableActivity, activityService.Handle)

	var sink *infra.AuditSink
	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		sink = infra.NewAuditSink(infra.NewKafkaWriter(brokers, cfg.KafkaTopic), cfg.UsageQueueSize)
		hub.Subscribe(realtime.TableActivity, sink.Handle)
		go sink.Run(ctx)
		log.Info().Strs("brokers", brokers).Str("topic", cfg.KafkaTopic).Msg("streaming audit trail to kafka")
	}

	created, err := rosterService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to bootstrap admin")
	}
	if created {
		log.Info().Str("username", cfg.AdminUsername).Msg("bootstrap admin created")
	}

	postal := infra.NewPostalClient(cfg.PostalBaseURL, infra.NewCircuitBreaker(infra.DefaultCBConfig()))

	r := router.New(cfg, router.Deps{
		DB:         db,
		Redis:      rdb,
		Hub:        hub,
		Tokens:     tokens,
		Postal:     postal,
		Sessions:   sessionService,
		Roster:     rosterService,
		Phrases:    phraseService,
		Backups:    backupService,
		Dashboard:  dashboardService,
		Activity:   activityService,
		Chat:       chatService,
		UploadsDir: store.Root(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("phrasedesk listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	// Pending copy events are still applied after the listener closes.
	if err := recorder.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("usage recorder did not drain")
	}
	refresher.Stop()
	cancel()
	if sink != nil {
		if err := sink.Close(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("kafka sink close failed")
		}
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info().Msg("server exited")
}

// setupLogger uses a console writer in development and JSON in production
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
