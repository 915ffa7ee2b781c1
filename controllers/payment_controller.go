package controllers

import (
	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PaymentController serves online fee payment: orders, verification and the
// order history of a record
type PaymentController struct {
	payments *services.PaymentService
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreateOrderRequest optionally pays less than the balance
type CreateOrderRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"omitempty,money"`
}

// MultiPayRequest lists the records a bundle order covers
type MultiPayRequest struct {
	RecordIDs []uint `json:"record_ids" binding:"required,min=1,max=24,dive,gt=0"`
}

// FailOrderRequest says why checkout did not complete
type FailOrderRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// POST /coaching/:coachingId/fee/records/:recordId/create-order
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req CreateOrderRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	order, err := pc.payments.CreateOrder(c.Request.Context(), coachingID, recordID, userID, req.Amount)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Payment order created", order)
}

// POST /coaching/:coachingId/fee/records/:recordId/verify-payment
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req services.VerifyInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := pc.payments.VerifyPayment(c.Request.Context(), coachingID, recordID, req, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, verifyMessage(result), result)
}

// POST /coaching/:coachingId/fee/multi-pay/create-order
func (pc *PaymentController) CreateMultiOrder(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req MultiPayRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := pc.payments.CreateMultiOrder(c.Request.Context(), coachingID, userID, req.RecordIDs)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Payment order created", order)
}

// POST /coaching/:coachingId/fee/multi-pay/verify
func (pc *PaymentController) VerifyMultiPayment(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req services.VerifyInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := pc.payments.VerifyMultiPayment(c.Request.Context(), coachingID, req, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, verifyMessage(result), result)
}

func verifyMessage(result *services.VerifyResult) string {
	if result.AlreadyProcessed {
		return "Payment already processed"
	}
	return "Payment verified successfully"
}

// POST /coaching/:coachingId/fee/orders/:internalOrderId/fail
//
// Always answers 200: recording a failed checkout is best effort.
func (pc *PaymentController) MarkOrderFailed(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req FailOrderRequest
	// a malformed body still marks the order, without a reason
	_ = c.ShouldBindJSON(&req)

	marked := pc.payments.MarkOrderFailed(c.Request.Context(), coachingID, c.Param("internalOrderId"), req.Reason, userID)
	utils.Success(c, "Order failure recorded", gin.H{"marked": marked})
}

// GET /coaching/:coachingId/fee/records/:recordId/online-payments
func (pc *PaymentController) ListOnlinePayments(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	payments, err := pc.payments.ListOnlinePayments(c.Request.Context(), coachingID, recordID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Online payments retrieved", payments)
}

// GET /coaching/:coachingId/fee/records/:recordId/failed-orders
func (pc *PaymentController) ListFailedOrders(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	orders, err := pc.payments.ListFailedOrders(c.Request.Context(), coachingID, recordID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Failed orders retrieved", orders)
}

// GET /coaching/:coachingId/fee/payment/config
func (pc *PaymentController) PublicConfig(c *gin.Context) {
	coachingID, _, ok := scope(c)
	if !ok {
		return
	}
	cfg, err := pc.payments.PublicConfig(c.Request.Context(), coachingID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Payment configuration retrieved", cfg)
}
