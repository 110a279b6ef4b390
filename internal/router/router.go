package router

import (
	"backend/internal/app/archive"
	"backend/internal/app/health"
	"backend/internal/app/stats"
	"backend/internal/gateways/websocket"
	"backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(logger *zap.Logger) *Router {
	engine := gin.New()
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.LoggerMiddleware(logger))
	engine.Use(gin.Recovery())
	return &Router{Engine: engine}
}

func (r *Router) RegisterHealthRoutes(handler health.Handler) {
	health.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) RegisterWebSocketRoutes(hub *websocket.Hub) {
	websocket.RegisterRoutes(r.Engine.Group("/api"), hub)
}

func (r *Router) RegisterStatsRoutes(handler stats.Handler) {
	stats.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) RegisterArchiveRoutes(handler archive.Handler) {
	archive.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) Serve(addr string) error {
	return r.Engine.Run(addr)
}
