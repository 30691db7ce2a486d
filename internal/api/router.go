package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/discid/internal/api/handlers"
	"github.com/your-org/discid/internal/api/ws"
	"github.com/your-org/discid/internal/auth"
	"github.com/your-org/discid/internal/matcher"
	"github.com/your-org/discid/internal/queue"
	"github.com/your-org/discid/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	Blobs    storage.BlobStore
	Producer *queue.Producer
	Matcher  *matcher.Matcher
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Blobs, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// Live event feed
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Discs
	discH := handlers.NewDiscHandler(cfg.Matcher)
	v1.POST("/discs", discH.Register)
	v1.GET("/discs", discH.List)
	v1.GET("/discs/:id", discH.Get)
	v1.DELETE("/discs/:id", discH.Delete)
	v1.POST("/discs/:id/confirm", discH.Confirm)
	v1.POST("/discs/:id/cancel", discH.Cancel)
	v1.PATCH("/discs/:id/status", discH.UpdateStatus)
	v1.POST("/discs/:id/images", discH.AddImage)
	v1.PUT("/discs/images/:imageId/border", discH.UpdateBorder)
	v1.GET("/discs/images/:imageId/original", discH.Original)
	v1.GET("/discs/images/:imageId/cropped", discH.Cropped)

	// Search
	v1.POST("/search", discH.Search)

	return r
}
