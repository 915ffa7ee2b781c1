package routes

import (
	"github.com/Govind-619/Tutorix/cache"
	"github.com/Govind-619/Tutorix/controllers"
	"github.com/Govind-619/Tutorix/middleware"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Handlers bundles the controllers the router serves
type Handlers struct {
	Fees       *controllers.FeeController
	Payments   *controllers.PaymentController
	Refunds    *controllers.RefundController
	Settlement *controllers.SettlementController
	Receipts   *controllers.ReceiptController
	Webhooks   *controllers.WebhookController
	// Simulate is routed only when set
	Simulate *controllers.SimulateController
}

// Options configures SetupRouter
type Options struct {
	DB        *gorm.DB
	JWTSecret string
	// RateCounter holds the per caller quotas of the payment endpoints; its
	// TTL is the rate limit window
	RateCounter *cache.TTLCache[int]
	RateLimit   int
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(h Handlers, opts Options) *gin.Engine {
	utils.RegisterValidators()

	router := gin.New()
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.CORSMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())
	router.Use(middleware.Metrics())

	router.GET("/health", func(c *gin.Context) {
		utils.Success(c, "OK", nil)
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	payment := router.Group("/payment")
	{
		payment.POST("/webhook/razorpay", h.Webhooks.Razorpay)
		if h.Simulate != nil {
			payment.GET("/simulate", h.Simulate.SimulatePayment)
		}
	}

	fee := router.Group("/coaching/:coachingId/fee")
	fee.Use(middleware.AuthMiddleware(opts.DB, opts.JWTSecret))
	initFeeRoutes(fee, h, middleware.RateLimit(opts.RateCounter, opts.RateLimit))

	return router
}
