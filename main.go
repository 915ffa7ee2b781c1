package main

import (
	"log"

	"github.com/Govind-619/Tutorix/cache"
	"github.com/Govind-619/Tutorix/config"
	"github.com/Govind-619/Tutorix/controllers"
	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/routes"
	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Error loading config:", err)
	}

	// Initialize logger
	if err := utils.InitLogger(utils.LoggerOptions{Level: cfg.LogLevel, Format: cfg.LogFormat, Dir: cfg.LogDir}); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer utils.SyncLogger()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		utils.LogError("Failed to initialize database: %v", err)
		log.Fatal("Failed to initialize database:", err)
	}

	rzp := gateway.NewRazorpay(cfg.RazorpayKey, cfg.RazorpaySecret, cfg.RazorpayPayoutAccount).WithTimeout(cfg.GatewayTimeout)
	secrets := utils.NewSecretBox(cfg.SecretsPassphrase)

	var notifier services.PaymentNotifier
	if cfg.SMTPHost != "" {
		mailer := utils.NewSMTPMailer(utils.EmailConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		notifier = services.NewNotifier(db, mailer)
	} else {
		utils.LogWarn("SMTP_HOST not set, payment receipts will not be emailed")
	}

	payments := services.NewPaymentService(db, rzp, services.PaymentOptions{
		KeyID:     cfg.RazorpayKey,
		KeySecret: cfg.RazorpaySecret,
		Secrets:   secrets,
		Notifier:  notifier,
	})

	handlers := routes.Handlers{
		Fees:       controllers.NewFeeController(services.NewFeeService(db)),
		Payments:   controllers.NewPaymentController(payments),
		Refunds:    controllers.NewRefundController(services.NewRefundService(db, rzp, payments)),
		Settlement: controllers.NewSettlementController(services.NewSettlementService(db, rzp, secrets)),
		Receipts:   controllers.NewReceiptController(services.NewReceiptService(db)),
		Webhooks:   controllers.NewWebhookController(services.NewWebhookService(db, payments, cfg.RazorpayWebhookSecret)),
	}
	if !cfg.IsProduction() {
		handlers.Simulate = controllers.NewSimulateController(payments)
	}
	if cfg.RazorpayWebhookSecret == "" {
		utils.LogWarn("RAZORPAY_WEBHOOK_SECRET not set, every webhook will be rejected")
	}

	rateCounter := cache.NewTTLCache[int](cfg.RateLimitWindow)
	stopJanitor := rateCounter.StartJanitor(cfg.RateLimitWindow)
	defer stopJanitor()

	// Set up router
	router := routes.SetupRouter(handlers, routes.Options{
		DB:          db,
		JWTSecret:   cfg.JWTSecret,
		RateCounter: rateCounter,
		RateLimit:   cfg.RateLimitRequests,
	})

	utils.LogInfo("Server starting on port %s", cfg.Port)
	// Start server
	if err := router.Run(":" + cfg.Port); err != nil {
		utils.LogError("Error starting server: %v", err)
		log.Fatal("Error starting server:", err)
	}
}
