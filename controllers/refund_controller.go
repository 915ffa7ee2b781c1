package controllers

import (
	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// RefundController serves gateway refunds of online fee payments
type RefundController struct {
	refunds *services.RefundService
}

// NewRefundController creates a new RefundController
func NewRefundController(refunds *services.RefundService) *RefundController {
	return &RefundController{refunds: refunds}
}

// POST /coaching/:coachingId/fee/records/:recordId/online-refund
func (rc *RefundController) InitiateOnlineRefund(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordId")
	if !ok {
		return
	}
	var req services.RefundInput
	if !bindJSON(c, &req) {
		return
	}

	utils.LogInfo("Refund requested on record %d payment %d by user %d", recordID, req.PaymentID, userID)
	result, err := rc.refunds.InitiateOnlineRefund(c.Request.Context(), coachingID, recordID, req, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Refund initiated", result)
}
