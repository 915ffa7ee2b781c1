package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/metrics"
	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Razorpay webhook events handled here
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
	EventRefundProcessed = "refund.processed"
	EventRefundFailed    = "refund.failed"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity webhookPayment `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity webhookRefund `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

type webhookPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	ErrorDescription string `json:"error_description"`
}

type webhookRefund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// WebhookResult tells the caller what happened to a delivery
type WebhookResult struct {
	EventID   string                    `json:"event_id"`
	Event     string                    `json:"event"`
	Status    models.GatewayEventStatus `json:"status"`
	Duplicate bool                      `json:"duplicate"`
}

// WebhookService confirms payments the gateway reports asynchronously, such
// as external wallet payments that never came back through checkout
type WebhookService struct {
	db       *gorm.DB
	payments *PaymentService
	secret   string
	now      func() time.Time
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(db *gorm.DB, payments *PaymentService, webhookSecret string) *WebhookService {
	return &WebhookService{db: db, payments: payments, secret: webhookSecret, now: payments.now}
}

// HandleRazorpay verifies, logs and applies one webhook delivery. Deliveries
// are deduplicated on eventID; a delivery whose earlier processing failed is
// applied again.
func (s *WebhookService) HandleRazorpay(ctx context.Context, body []byte, signature, eventID string) (*WebhookResult, error) {
	if !gateway.VerifyWebhookSignature(body, signature, s.secret) {
		metrics.SignatureFailuresTotal.WithLabelValues("webhook").Inc()
		utils.LogSecurity("webhook_signature_invalid", "event_id", eventID, "bytes", len(body))
		return nil, utils.SignatureInvalidError("Invalid webhook signature")
	}

	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Event == "" {
		return nil, utils.BadRequestError("Malformed webhook payload", err)
	}
	if eventID == "" {
		sum := sha256.Sum256(body)
		eventID = "body_" + hex.EncodeToString(sum[:16])
	}

	event := models.PaymentGatewayEvent{
		EventID:    eventID,
		Event:      env.Event,
		Status:     models.GatewayEventReceived,
		Payload:    datatypes.JSON(body),
		ReceivedAt: s.now(),
	}
	if p := env.Payload.Payment; p != nil {
		event.RazorpayOrderID = p.Entity.OrderID
		event.RazorpayPaymentID = p.Entity.ID
	} else if r := env.Payload.Refund; r != nil {
		event.RazorpayPaymentID = r.Entity.PaymentID
	}

	if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
		if !isDuplicateKey(err) {
			return nil, err
		}
		var existing models.PaymentGatewayEvent
		if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).First(&existing).Error; err != nil {
			return nil, err
		}
		if existing.Status != models.GatewayEventFailed {
			utils.LogInfo("Webhook %s (%s) already handled", eventID, existing.Event)
			return &WebhookResult{EventID: eventID, Event: existing.Event, Status: existing.Status, Duplicate: true}, nil
		}
		event = existing
	}

	status, procErr := s.apply(ctx, &env)
	now := s.now()
	updates := map[string]interface{}{"status": status, "processed_at": &now, "error": ""}
	if procErr != nil {
		updates["error"] = procErr.Error()
	}
	if err := s.db.WithContext(ctx).Model(&models.PaymentGatewayEvent{}).
		Where("id = ?", event.ID).
		Updates(updates).Error; err != nil {
		utils.LogError("Failed to update webhook event %s: %v", eventID, err)
	}
	metrics.WebhookEventsTotal.WithLabelValues(env.Event, string(status)).Inc()

	if procErr != nil {
		utils.LogError("Webhook %s (%s) failed: %v", eventID, env.Event, procErr)
		return nil, procErr
	}
	return &WebhookResult{EventID: eventID, Event: env.Event, Status: status}, nil
}

func (s *WebhookService) apply(ctx context.Context, env *webhookEnvelope) (models.GatewayEventStatus, error) {
	switch env.Event {
	case EventPaymentCaptured, EventOrderPaid:
		if env.Payload.Payment == nil {
			return models.GatewayEventIgnored, nil
		}
		return s.captured(ctx, env.Payload.Payment.Entity)
	case EventPaymentFailed:
		if env.Payload.Payment == nil {
			return models.GatewayEventIgnored, nil
		}
		p := env.Payload.Payment.Entity
		reason := p.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		if s.payments.failOrder(ctx, s.db.Where("razorpay_order_id = ?", p.OrderID), reason) {
			return models.GatewayEventProcessed, nil
		}
		return models.GatewayEventIgnored, nil
	case EventRefundProcessed, EventRefundFailed:
		if env.Payload.Refund == nil {
			return models.GatewayEventIgnored, nil
		}
		return s.refundUpdate(ctx, env.Event, env.Payload.Refund.Entity)
	}
	return models.GatewayEventIgnored, nil
}

func (s *WebhookService) captured(ctx context.Context, p webhookPayment) (models.GatewayEventStatus, error) {
	if p.OrderID == "" {
		return models.GatewayEventIgnored, nil
	}
	var order models.PaymentOrder
	err := s.db.WithContext(ctx).Preload("Records").Where("razorpay_order_id = ?", p.OrderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// orders created outside the fee flow
		return models.GatewayEventIgnored, nil
	}
	if err != nil {
		return models.GatewayEventFailed, err
	}
	if p.Amount != 0 && p.Amount != order.AmountPaise {
		utils.LogWarn("Captured amount %d paise differs from order %s amount %d paise", p.Amount, p.OrderID, order.AmountPaise)
	}

	result, err := s.payments.credit(ctx, &order, p.ID, order.UserID)
	if err != nil {
		return models.GatewayEventFailed, err
	}
	if result.AlreadyProcessed {
		return models.GatewayEventIgnored, nil
	}
	utils.LogInfo("Payment %s for order %s confirmed by webhook", p.ID, p.OrderID)
	return models.GatewayEventProcessed, nil
}

func (s *WebhookService) refundUpdate(ctx context.Context, event string, r webhookRefund) (models.GatewayEventStatus, error) {
	var refund models.FeeRefund
	err := s.db.WithContext(ctx).Where("razorpay_refund_id = ?", r.ID).First(&refund).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.GatewayEventIgnored, nil
	}
	if err != nil {
		return models.GatewayEventFailed, err
	}

	if event == EventRefundProcessed {
		res := s.db.WithContext(ctx).Model(&models.FeeRefund{}).
			Where("id = ? AND status = ?", refund.ID, models.RefundStatusPending).
			Update("status", models.RefundStatusProcessed)
		if res.Error != nil {
			return models.GatewayEventFailed, res.Error
		}
		if res.RowsAffected == 0 {
			return models.GatewayEventIgnored, nil
		}
		utils.LogInfo("Refund %s processed by gateway", r.ID)
		return models.GatewayEventProcessed, nil
	}

	// the money never left, so the local debit is reversed
	reversed := false
	var record models.FeeRecord
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FeeRefund{}).
			Where("id = ? AND status <> ?", refund.ID, models.RefundStatusFailed).
			Update("status", models.RefundStatusFailed)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		if err := tx.First(&record, refund.RecordID).Error; err != nil {
			return err
		}
		record.Credit(refund.Amount, s.now())
		reversed = true
		return saveBalance(tx, &record)
	})
	if err != nil {
		utils.LogError("Failed to reverse refund %s (local %d) on record %d: %v", r.ID, refund.ID, refund.RecordID, err)
		return models.GatewayEventFailed, err
	}
	if !reversed {
		return models.GatewayEventIgnored, nil
	}
	metrics.RefundsTotal.WithLabelValues("reversed").Inc()
	utils.LogWarn("Refund %s failed at gateway; %s restored to record %d, now %s", r.ID, refund.Amount.StringFixed(2), record.ID, record.Status)
	return models.GatewayEventProcessed, nil
}
