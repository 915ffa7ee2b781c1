package controllers

import (
	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// SimulateController completes test mode checkouts without the gateway's
// payment form. It is only routed outside production.
type SimulateController struct {
	payments *services.PaymentService
}

// NewSimulateController creates a new SimulateController
func NewSimulateController(payments *services.PaymentService) *SimulateController {
	return &SimulateController{payments: payments}
}

// GET /payment/simulate?order_id=order_xxx
func (sc *SimulateController) SimulatePayment(c *gin.Context) {
	orderID := c.Query("order_id")
	if orderID == "" {
		utils.BadRequest(c, "Order ID is required", nil)
		return
	}

	payment, err := sc.payments.SimulatePayment(c.Request.Context(), orderID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.LogInfo("Simulated payment %s for order %s", payment.PaymentID, orderID)
	utils.Success(c, "Payment simulation completed successfully", payment)
}
