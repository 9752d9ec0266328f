package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func NewServer(handler *Handler, jwtSecret string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, jwtSecret)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, jwtSecret string) {
	r.GET("/health", handler.GetHealth)

	protected := r.Group("/")
	if jwtSecret != "" {
		protected.Use(authMiddleware(jwtSecret))
		slog.Info("Bearer authentication enabled")
	} else {
		slog.Warn("Bearer authentication disabled, userId is trusted as sent")
	}

	protected.POST("/process-content", handler.ProcessContent)
	protected.GET("/saved-items", handler.GetSavedItems)
	protected.GET("/saved-items/search", handler.SearchSavedItems)
	protected.PATCH("/toggle-completion", handler.ToggleCompletion)
	protected.PATCH("/update-title", handler.UpdateTitle)
	protected.PATCH("/update-notification-settings", handler.UpdateNotificationSettings)
	protected.GET("/events", handler.StreamEvents)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":     "keepit",
			"version":     handler.version,
			"description": "Save links, images and notes; enriched with a summary, category and tags",
			"endpoints": map[string]string{
				"process":  "POST /process-content",
				"list":     "GET /saved-items?userId=<id>",
				"search":   "GET /saved-items/search?userId=<id>&q=<query>",
				"complete": "PATCH /toggle-completion",
				"title":    "PATCH /update-title",
				"notify":   "PATCH /update-notification-settings",
				"events":   "GET /events?userId=<id>",
				"health":   "GET /health",
			},
			"auth_required": jwtSecret != "",
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}
