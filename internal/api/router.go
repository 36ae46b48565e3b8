package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/banking-transfer-engine/internal/api/handler"
	"github.com/banking-transfer-engine/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	userHandler *handler.UserHandler,
	accountHandler *handler.AccountHandler,
	transferHandler *handler.TransferHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// User operations
		users := v1.Group("/users")
		{
			users.POST("", userHandler.Create)
			users.GET("/:id", userHandler.GetByID)
			users.POST("/:id/accounts", accountHandler.Create)
			users.GET("/:id/scheduled-transfers", transferHandler.ListScheduledByUser)
			users.GET("/:id/transactions", transferHandler.ListTransactionsByUser)
		}

		// Account operations
		accounts := v1.Group("/accounts")
		{
			accounts.GET("/:id", accountHandler.GetByID)
			accounts.POST("/:id/deposits", accountHandler.Deposit)
			accounts.POST("/:id/transfer", transferHandler.Transfer)
			accounts.POST("/:id/schedule", transferHandler.Schedule)
		}

		// Scheduled transfer operations
		v1.DELETE("/scheduled-transfers/:id", transferHandler.CancelScheduled)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
