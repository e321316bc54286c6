// Package api exposes the relationship service over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"daydei-social/backend/internal/constants"
	"daydei-social/backend/internal/relation"
	"daydei-social/backend/pkg/logger"
)

// Options configures the router.
type Options struct {
	IdentityHeader     string
	MutationRatePerSec float64
	MutationBurst      int
	// Gatherer backs /metrics. Nil leaves the route out.
	Gatherer prometheus.Gatherer
}

// Handler holds the dependencies of the route handlers.
type Handler struct {
	svc    *relation.Service
	logger *zap.Logger
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(svc *relation.Service, opts Options) *gin.Engine {
	if opts.IdentityHeader == "" {
		opts.IdentityHeader = constants.DefaultIdentityHeader
	}
	h := &Handler{svc: svc, logger: logger.Named("api")}

	router := gin.New()
	router.Use(ginLogger(h.logger))
	router.Use(gin.Recovery())
	router.Use(cors(opts.IdentityHeader))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	throttle := rateLimit(newLimiter(opts.MutationRatePerSec, opts.MutationBurst))

	api := router.Group("/api", identity(opts.IdentityHeader))
	{
		friends := api.Group("/friends")
		friends.GET("", h.listFriends)
		friends.GET("/relations", h.relations)
		friends.GET("/recommendations", h.recommend)
		friends.GET("/random", h.random)
		friends.POST("/:userId", throttle, h.requestFriend)
		friends.PUT("/:userId", throttle, h.acceptFriend)
		friends.DELETE("/:userId", throttle, h.removeFriend)

		subs := api.Group("/subscriptions")
		subs.POST("/:userId", throttle, h.subscribe)
		subs.DELETE("/:userId", throttle, h.unsubscribe)

		users := api.Group("/users")
		users.PUT("/me/categories", throttle, h.setCategories)
		users.GET("/:userId/subscribers", h.subscribers)
		users.GET("/:userId/subscriptions", h.subscriptions)
	}

	return router
}
