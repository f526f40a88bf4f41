package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/plannerdash/go-planner-backend/config"
	"github.com/plannerdash/go-planner-backend/internal/analytics"
	httpapi "github.com/plannerdash/go-planner-backend/internal/api/http"
	"github.com/plannerdash/go-planner-backend/internal/api/http/middleware"
	"github.com/plannerdash/go-planner-backend/internal/export"
	mirrorhttp "github.com/plannerdash/go-planner-backend/internal/mirror/http"
	"github.com/plannerdash/go-planner-backend/internal/mirror/repository"
	"github.com/plannerdash/go-planner-backend/internal/notifications"
	"github.com/plannerdash/go-planner-backend/internal/sync"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	Config      *config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	SyncRunner  sync.Runner
	SyncStatus  sync.StatusSource
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	if len(dep.Config.App.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = dep.Config.App.CORSOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "X-API-Key", "X-Request-Id")
	corsCfg.MaxAge = 12 * time.Hour
	r.Use(cors.New(corsCfg))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api")
	api.Use(middleware.APIKey(dep.Config.App.APIKey))

	store := repository.NewStore(dep.DB)
	mirrorhttp.New(store).Register(api)

	sync.NewHandler(dep.SyncRunner, dep.SyncStatus, dep.Config.Sync.StaleAfter).Register(api)

	notifRepo := notifications.NewRepo(dep.DB)
	notifications.NewHandler(notifRepo).Register(api)

	analytics.NewHandler(analytics.NewService(dep.DB)).Register(api)

	exportSvc := export.NewService(store)
	export.NewHandler(exportSvc).Register(api)

	return r
}
