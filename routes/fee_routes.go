package routes

import (
	"github.com/gin-gonic/gin"
)

// initFeeRoutes registers the fee endpoints of one coaching. limited guards
// the endpoints that reach the payment gateway.
func initFeeRoutes(fee *gin.RouterGroup, h Handlers, limited gin.HandlerFunc) {
	// Catalogue
	fee.POST("/structures", h.Fees.CreateStructure)
	fee.GET("/structures", h.Fees.ListStructures)
	fee.PATCH("/structures/:id", h.Fees.UpdateStructure)
	fee.DELETE("/structures/:id", h.Fees.DeleteStructure)
	fee.POST("/assignments", h.Fees.AssignFee)
	fee.POST("/assignments/:id/records", h.Fees.GenerateRecord)

	records := fee.Group("/records")
	{
		records.GET("", h.Fees.ListRecords)
		records.GET("/:recordId", h.Fees.GetRecord)
		records.POST("/:recordId/create-order", limited, h.Payments.CreateOrder)
		records.POST("/:recordId/verify-payment", limited, h.Payments.VerifyPayment)
		records.POST("/:recordId/online-refund", limited, h.Refunds.InitiateOnlineRefund)
		records.GET("/:recordId/online-payments", h.Payments.ListOnlinePayments)
		records.GET("/:recordId/failed-orders", h.Payments.ListFailedOrders)
		records.GET("/:recordId/payments/:paymentId/receipt", h.Receipts.Receipt)
	}

	fee.POST("/orders/:internalOrderId/fail", h.Payments.MarkOrderFailed)

	multi := fee.Group("/multi-pay", limited)
	{
		multi.POST("/create-order", h.Payments.CreateMultiOrder)
		multi.POST("/verify", h.Payments.VerifyMultiPayment)
	}

	settings := fee.Group("/payment-settings")
	{
		settings.GET("", h.Settlement.GetSettings)
		settings.PATCH("", h.Settlement.UpdateSettings)
		settings.POST("/linked-account", limited, h.Settlement.CreateLinkedAccount)
		settings.DELETE("/linked-account", limited, h.Settlement.DeleteLinkedAccount)
		settings.POST("/linked-account/refresh", limited, h.Settlement.RefreshLinkedAccount)
		settings.POST("/verify-bank", limited, h.Settlement.VerifyBankAccount)
	}

	fee.GET("/payment/config", h.Payments.PublicConfig)
	fee.GET("/reports/collections", h.Receipts.CollectionReport)
}
