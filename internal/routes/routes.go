package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/juanesgit/validadorPagos/internal/handlers"
	"github.com/juanesgit/validadorPagos/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	webhookHandler *handlers.WebhookHandler,
	reviewHandler *handlers.ReviewHandler,
	reviewJWTSecret string,
) *gin.Engine {

	// ---- public
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/telegram/webhook", webhookHandler.Webhook)

	// ---- revisor (JWT)
	review := r.Group("/review", middleware.ReviewAuth(reviewJWTSecret))
	{
		review.GET("/payments", reviewHandler.ListPayments)
		review.POST("/payments/:id/approve", reviewHandler.Approve)
		review.POST("/payments/:id/reject", reviewHandler.Reject)
		review.GET("/evidence/:id/file", reviewHandler.EvidenceFile)
	}

	return r
}
