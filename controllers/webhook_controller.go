package controllers

import (
	"github.com/Govind-619/Tutorix/services"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/gin-gonic/gin"
)

// WebhookController receives gateway callbacks. It sits outside the auth
// group: the signature header authenticates the caller.
type WebhookController struct {
	webhooks *services.WebhookService
}

// NewWebhookController creates a new WebhookController
func NewWebhookController(webhooks *services.WebhookService) *WebhookController {
	return &WebhookController{webhooks: webhooks}
}

// POST /payment/webhook/razorpay
func (wc *WebhookController) Razorpay(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		utils.BadRequest(c, "Could not read request body", nil)
		return
	}

	result, err := wc.webhooks.HandleRazorpay(
		c.Request.Context(),
		body,
		c.GetHeader("X-Razorpay-Signature"),
		c.GetHeader("X-Razorpay-Event-Id"),
	)
	if err != nil {
		// anything but a 2xx makes the gateway deliver again
		utils.RespondError(c, err)
		return
	}
	utils.Success(c, "Webhook processed", result)
}
