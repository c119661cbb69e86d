package router

import (
	"net/http"
	"time"

	"billsplit/internal/auth"
	"billsplit/internal/bot"
	"billsplit/internal/history"
	"billsplit/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// Admin groups the operator endpoints. A nil Admin keeps them unmounted.
type Admin struct {
	Issuer  *auth.TokenIssuer
	Auth    *auth.Handler
	Webhook *bot.AdminHandler
	History *history.Handler
}

type Deps struct {
	ServiceName   string
	Webhook       *bot.Handler
	WebhookSecret string
	Admin         *Admin
	CORSOrigins   []string
	Log           *zap.Logger
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(deps.ServiceName))
	r.Use(middleware.RequestLogger(deps.Log))

	// ───────────────────────── PUBLIC ─────────────────────────
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Bill splitting bot is running.")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ───────────────────────── TELEGRAM ─────────────────────────
	r.POST("/webhook", middleware.WebhookSecret(deps.WebhookSecret), deps.Webhook.Webhook)

	if deps.Admin == nil {
		return r
	}

	// ───────────────────────── AUTH + ADMIN ─────────────────────────
	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	withCORS := cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})

	authGroup := r.Group("/auth", withCORS)
	{
		authGroup.POST("/login", deps.Admin.Auth.Login)
	}

	admin := r.Group("/admin", withCORS)
	admin.Use(
		middleware.AuthMiddleware(deps.Admin.Issuer),
		middleware.RequireRole(auth.RoleAdmin),
	)
	{
		admin.POST("/webhook", deps.Admin.Webhook.RegisterWebhook)
		admin.GET("/receipts", deps.Admin.History.List)
	}

	return r
}
