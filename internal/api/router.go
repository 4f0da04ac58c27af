package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"souviens_toi/internal/auth"
)

type RouterConfig struct {
	Handler        *Handler
	Verifier       *auth.Verifier
	AllowedOrigins []string
	// MaxUploadMemory bounds the multipart form kept in memory.
	MaxUploadMemory int64
	Logger          *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(cfg.Logger))
	if cfg.MaxUploadMemory > 0 {
		router.MaxMultipartMemory = cfg.MaxUploadMemory
	}

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	h := cfg.Handler
	v1 := router.Group("/api/v1")
	v1.Use(Notifications(), RequireAuth(cfg.Verifier, cfg.Logger))
	{
		v1.GET("/events", h.ListEvents)
		v1.POST("/events", h.CreateEvent)
		v1.GET("/events/:id", h.GetEvent)

		v1.GET("/events/:id/stories", h.ListLinkedStories)
		v1.GET("/events/:id/stories/linkable", h.ListLinkableStories)
		v1.POST("/events/:id/stories/:itemId", h.LinkStory)
		v1.DELETE("/events/:id/stories/:itemId", h.UnlinkStory)

		v1.GET("/events/:id/media", h.ListLinkedMedia)
		v1.GET("/events/:id/media/linkable", h.ListLinkableMedia)
		v1.POST("/events/:id/media/:itemId", h.LinkMedia)
		v1.DELETE("/events/:id/media/:itemId", h.UnlinkMedia)

		v1.GET("/stories", h.ListStories)
		v1.POST("/stories", h.CreateStory)

		v1.GET("/media", h.ListMedia)
		v1.POST("/media", h.UploadMedia)
		v1.DELETE("/media/:id", h.DeleteMedia)
		v1.GET("/media/:id/signed-url", h.SignedURL)
		v1.GET("/media/:id/download", h.DownloadMedia)

		v1.GET("/stats", h.Stats)
	}

	return router
}
