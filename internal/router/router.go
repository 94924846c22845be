// Package router assembles the HTTP surface: global middleware, the public and
// authenticated API groups, the websocket endpoint and static uploads.
package router

import (
	"time"

	"phrasedesk/internal/config"
	"phrasedesk/internal/handler"
	"phrasedesk/internal/middleware"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/service"
	"phrasedesk/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps are the built services and infrastructure the routes need
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client // nil when Redis is not configured
	Hub    *realtime.Hub
	Tokens *session.TokenIssuer
	Postal handler.AddressLookup

	Sessions  service.SessionService
	Roster    service.RosterService
	Phrases   service.PhraseService
	Backups   service.BackupService
	Dashboard service.DashboardService
	Activity  service.ActivityService
	Chat      service.ChatService

	UploadsDir string // served at cfg.StoragePublicURL when set
}

func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Origins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsConfig))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", handler.Health(d.DB, d.Redis))
	r.GET("/ws", func(c *gin.Context) {
		realtime.ServeWs(d.Hub, d.Tokens, c)
	})
	if d.UploadsDir != "" {
		r.Static(cfg.StoragePublicURL, d.UploadsDir)
	}

	api := r.Group("/api")
	secured := api.Group("", middleware.RequireAuth(d.Tokens))

	cookie := middleware.CookieConfig{Secure: cfg.IsProduction()}
	handler.NewSessionHandler(d.Sessions, cookie).RegisterRoutes(api, secured)
	handler.NewPhraseHandler(d.Phrases).RegisterRoutes(secured)
	handler.NewBackupHandler(d.Backups, cfg.MaxUploadBytes()).RegisterRoutes(secured)
	handler.NewRosterHandler(d.Roster).RegisterRoutes(secured)
	handler.NewDashboardHandler(d.Dashboard).RegisterRoutes(secured)
	handler.NewActivityHandler(d.Activity).RegisterRoutes(secured)
	handler.NewChatHandler(d.Chat, cfg.MaxUploadBytes()).RegisterRoutes(secured)
	handler.NewSearchHandler(d.Phrases, d.Roster, d.Activity).RegisterRoutes(secured)
	if d.Postal != nil {
		handler.NewPostalHandler(d.Postal).RegisterRoutes(secured)
	}

	return r
}
