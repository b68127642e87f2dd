// Package http assembles the gin router and the server lifecycle.
package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kudipay/walletd/internal/adapters/http/handlers"
	"github.com/kudipay/walletd/internal/adapters/http/middleware"
)

// RouterDeps holds the handlers the router mounts.
type RouterDeps struct {
	Logger      *slog.Logger
	Environment string

	Health      *handlers.HealthHandler
	Transfer    *handlers.TransferHandler
	Wallet      *handlers.WalletHandler
	Transaction *handlers.TransactionHandler
	Interest    *handlers.InterestHandler
}

// NewRouter builds the gin engine with the middleware chain and all routes.
func NewRouter(deps *RouterDeps) *gin.Engine {
	if deps.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	handlers.SetupValidator()

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(deps.Logger),
		middleware.Logging(deps.Logger, "/health", "/ready", "/metrics"),
		middleware.Metrics(),
	)

	router.GET("/health", deps.Health.Health)
	router.GET("/ready", deps.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		wallet := v1.Group("/wallet")
		{
			wallet.POST("/transfer", deps.Transfer.Transfer)
			wallet.GET("/:id", deps.Wallet.Get)
			wallet.GET("/:id/ledger", deps.Wallet.Ledger)
			wallet.POST("/:id/interest", deps.Interest.Calculate)
			wallet.GET("/:id/interest", deps.Interest.History)
		}

		v1.GET("/transaction/:key", deps.Transaction.GetByKey)
	}

	return router
}
