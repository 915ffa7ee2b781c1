package controllers

import (
	"context"

	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// SettlementController serves a coaching's payment settings and the linked
// account its collections settle to
type SettlementController struct {
	settlement *services.SettlementService
}

// NewSettlementController creates a new SettlementController
func NewSettlementController(settlement *services.SettlementService) *SettlementController {
	return &SettlementController{settlement: settlement}
}

// GET /coaching/:coachingId/fee/payment-settings
func (sc *SettlementController) GetSettings(c *gin.Context) {
	sc.respond(c, "Payment settings retrieved", sc.settlement.GetSettings)
}

// PATCH /coaching/:coachingId/fee/payment-settings
func (sc *SettlementController) UpdateSettings(c *gin.Context) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	var req services.SettingsInput
	if !bindJSON(c, &req) {
		return
	}
	view, err := sc.settlement.UpdateSettings(c.Request.Context(), coachingID, userID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Payment settings updated", view)
}

// POST /coaching/:coachingId/fee/payment-settings/linked-account
func (sc *SettlementController) CreateLinkedAccount(c *gin.Context) {
	sc.respond(c, "Linked account created", sc.settlement.CreateLinkedAccount)
}

// POST /coaching/:coachingId/fee/payment-settings/linked-account/refresh
func (sc *SettlementController) RefreshLinkedAccount(c *gin.Context) {
	sc.respond(c, "Linked account status refreshed", sc.settlement.RefreshLinkedAccountStatus)
}

// DELETE /coaching/:coachingId/fee/payment-settings/linked-account
func (sc *SettlementController) DeleteLinkedAccount(c *gin.Context) {
	sc.respond(c, "Linked account removed", sc.settlement.DeleteLinkedAccount)
}

// POST /coaching/:coachingId/fee/payment-settings/verify-bank
func (sc *SettlementController) VerifyBankAccount(c *gin.Context) {
	sc.respond(c, "Bank account verification started", sc.settlement.VerifyBankAccount)
}

type settingsAction func(ctx context.Context, coachingID, userID uint) (*services.SettingsView, error)

func (sc *SettlementController) respond(c *gin.Context, message string, action settingsAction) {
	coachingID, userID, ok := scope(c)
	if !ok {
		return
	}
	view, err := action(c.Request.Context(), coachingID, userID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, message, view)
}
