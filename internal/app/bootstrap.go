package app

import (
	"backend/internal/app/archive"
	"backend/internal/app/health"
	"backend/internal/app/stats"
	"backend/internal/config"
	"backend/internal/db"
	"backend/internal/db/seeder"
	"backend/internal/gateways/websocket"
	"backend/internal/providers/redis"
	"backend/internal/router"
	"backend/internal/timekey"
	"backend/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Application struct {
	Router *router.Router
	DB     *gorm.DB
}

func Bootstrap(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		return nil, err
	}

	if cfg.Env == "dev" {
		seed := seeder.NewSeeder(dbConn, logger)
		if err := seed.Seed(); err != nil {
			logger.Warn("Failed to run seeders", zap.Error(err))
		}
	}

	redisProvider := redis.NewRedisProvider(cfg.RedisURL, logger)
	eventBus := utils.NewEventBus()
	keys := timekey.NewDeriver(cfg.Location())

	statsRepo := stats.NewRepository(dbConn)
	archiveRepo := archive.NewRepository(dbConn)

	notifier := stats.NewNotifier(eventBus, redisProvider, logger, cfg.NotifyMinInterval, cfg.EventDedupTTL)
	statsService := stats.NewService(statsRepo, keys, notifier, logger, cfg)
	archiveService := archive.NewService(archiveRepo, statsService, logger)

	hub := websocket.NewHub(logger, eventBus)
	go hub.Run()

	healthHandler := health.NewHandler(&utils.HealthChecker{
		DB:    dbConn,
		Redis: redisProvider.Client,
	})
	statsHandler := stats.NewHandler(statsService)
	archiveHandler := archive.NewHandler(archiveService)

	r := router.NewRouter(logger)

	r.RegisterHealthRoutes(healthHandler)
	r.RegisterWebSocketRoutes(hub)
	r.RegisterStatsRoutes(statsHandler)
	r.RegisterArchiveRoutes(archiveHandler)

	return &Application{
		Router: r,
		DB:     dbConn,
	}, nil
}
