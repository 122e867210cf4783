package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"mealmail/internal/handler"
	"mealmail/internal/middleware"
)

// Options configures cross-cutting middleware.
type Options struct {
	CORSOrigins       []string
	WebhookSigningKey string
	WebhookMaxAge     time.Duration
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	opts Options,
	webhookH *handler.WebhookHandler,
	orderH *handler.OrderHandler,
	traceH *handler.TraceHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(opts.CORSOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	// Inbound mail
	r.POST("/webhook/email",
		middleware.VerifySignature(opts.WebhookSigningKey, opts.WebhookMaxAge),
		webhookH.Receive)

	v1 := r.Group("/api/v1")

	orders := v1.Group("/orders")
	orders.GET("", orderH.List)
	orders.GET("/export/csv", orderH.ExportCSV)
	orders.GET("/export/xlsx", orderH.ExportXLSX)
	orders.GET("/:id", orderH.GetByID)

	v1.GET("/trace", traceH.List)
	v1.DELETE("/trace", traceH.Reset)

	return r
}
