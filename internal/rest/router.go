package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tirelane/tirelane/internal/api/cron"
	v1 "github.com/tirelane/tirelane/internal/api/v1"
	"github.com/tirelane/tirelane/internal/config"
	"github.com/tirelane/tirelane/internal/logger"
	"github.com/tirelane/tirelane/internal/postgres"
	"github.com/tirelane/tirelane/internal/rest/middleware"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Subscription *v1.SubscriptionHandler
	BillingCron  *cron.BillingCronHandler
}

// NewRouter builds the gin engine with the standard middleware chain.
func NewRouter(
	cfg *config.Configuration,
	log *logger.Logger,
	db postgres.IClient,
	handlers Handlers,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware)
	router.Use(middleware.SentryMiddleware(cfg))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))

	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiV1 := router.Group("/v1", middleware.OwnerContextMiddleware)
	{
		apiV1.POST("/subscriptions", handlers.Subscription.CreateSubscription)
		apiV1.DELETE("/subscriptions", handlers.Subscription.CancelSubscription)
		apiV1.GET("/subscriptions/current", handlers.Subscription.GetCurrentSubscription)
		apiV1.GET("/billing-keys", handlers.Subscription.ListBillingKeys)
	}

	// Cron endpoints are invoked by the platform scheduler, not end users.
	cronGroup := router.Group("/cron")
	{
		cronGroup.POST("/billing/run", handlers.BillingCron.RunDailyBilling)
	}

	return router
}
