package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/funlynk/funlynk/internal/cache"
	"github.com/funlynk/funlynk/internal/conversion"
	"github.com/funlynk/funlynk/internal/db"
	"github.com/funlynk/funlynk/internal/events"
	"github.com/funlynk/funlynk/internal/queue"
	"github.com/funlynk/funlynk/internal/reactions"
	"github.com/funlynk/funlynk/pkg/config"
	"github.com/funlynk/funlynk/pkg/logging"
)

// Router sets up API routes
type Router struct {
	db            *db.DB
	cache         *cache.Cache
	posts         *db.PostRepository
	notifications *db.NotificationRepository
	evaluator     *conversion.Evaluator
	executor      *conversion.Executor
	ledger        *reactions.Ledger
	inviter       *reactions.Inviter
	logger        *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(cfg *config.Config, database *db.DB, redisCache *cache.Cache, bus *events.Bus) *Router {
	repo := db.NewRepository(database.DB)
	posts := db.NewPostRepository(repo)
	eligibilityQueue := queue.NewEligibilityQueue(redisCache)

	return &Router{
		db:            database,
		cache:         redisCache,
		posts:         posts,
		notifications: db.NewNotificationRepository(repo),
		evaluator:     conversion.NewEvaluator(&cfg.Conversion, posts, bus),
		executor:      conversion.NewExecutor(&cfg.Conversion, database, redisCache, bus),
		ledger:        reactions.NewLedger(database, eligibilityQueue, bus),
		inviter:       reactions.NewInviter(database, bus),
		logger:        logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := engine.Group("/v1", r.requireActor)
	{
		v1.POST("/posts/:id/react", r.reactHandler)
		v1.POST("/posts/:id/invite", r.inviteHandler)

		v1.GET("/posts/:id/conversion/preview", r.previewHandler)
		v1.POST("/posts/:id/conversion/check", r.checkHandler)
		v1.POST("/posts/:id/conversion/dismiss", r.dismissHandler)
		v1.POST("/posts/:id/convert", r.convertHandler)

		v1.GET("/notifications", r.notificationsHandler)
	}
}

// healthHandler handles health check requests
func (r *Router) healthHandler(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "OK",
		"service": "funlynk-api",
	})
}
