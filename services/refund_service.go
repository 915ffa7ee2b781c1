package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/metrics"
	"github.com/Govind-619/Tutorix/models"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RefundInput selects the payment to refund. Amount defaults to everything
// still refundable on the payment.
type RefundInput struct {
	PaymentID uint             `json:"payment_id" binding:"required"`
	Amount    *decimal.Decimal `json:"amount" binding:"omitempty,money"`
	Reason    string           `json:"reason" binding:"max=255"`
}

// RefundResult is the refund together with the record it changed
type RefundResult struct {
	Refund     models.FeeRefund       `json:"refund"`
	RecordID   uint                   `json:"record_id"`
	PaidAmount decimal.Decimal        `json:"paid_amount"`
	Balance    decimal.Decimal        `json:"balance"`
	Status     models.FeeRecordStatus `json:"status"`
	Refundable decimal.Decimal        `json:"refundable"`
}

// RefundService refunds gateway payments and debits the fee record
type RefundService struct {
	db       *gorm.DB
	gw       gateway.Gateway
	payments *PaymentService
	now      func() time.Time
}

// NewRefundService creates a new RefundService. Refunds go out on the account
// the payment was collected on, resolved through the payment service.
func NewRefundService(db *gorm.DB, gw gateway.Gateway, payments *PaymentService) *RefundService {
	return &RefundService{db: db, gw: gw, payments: payments, now: payments.now}
}

// InitiateOnlineRefund refunds part or all of an online payment. The gateway
// is called first; local state only changes once the gateway has accepted the
// refund.
func (s *RefundService) InitiateOnlineRefund(ctx context.Context, coachingID, recordID uint, in RefundInput, userID uint) (*RefundResult, error) {
	if _, err := requireFeeAdmin(ctx, s.db, coachingID, userID); err != nil {
		return nil, err
	}
	record, err := loadRecord(ctx, s.db, coachingID, recordID)
	if err != nil {
		return nil, err
	}

	var payment models.FeePayment
	err = s.db.WithContext(ctx).
		Preload("Refunds").
		Where("id = ? AND record_id = ?", in.PaymentID, record.ID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFoundError("Payment not found for this fee record")
	}
	if err != nil {
		return nil, err
	}
	if payment.Mode != models.ModeRazorpay || payment.RazorpayPaymentID == nil {
		return nil, utils.InvalidStateError("Only online payments can be refunded through the gateway")
	}

	refundable := payment.Refundable()
	amount := refundable
	if in.Amount != nil {
		amount = in.Amount.Round(2)
	}
	if !amount.IsPositive() || amount.GreaterThan(refundable) {
		metrics.RefundsTotal.WithLabelValues("rejected").Inc()
		return nil, utils.RefundExceedsPaymentError(fmt.Sprintf(
			"Refund amount must be greater than zero and at most %s", refundable.StringFixed(2)))
	}

	settings, err := loadSettings(ctx, s.db, coachingID)
	if err != nil {
		return nil, err
	}
	creds, err := s.payments.pinnedCredentials(settings, payment.GatewayKeyID)
	if err != nil {
		return nil, err
	}

	utils.LogInfo("Refunding %s of payment %s on record %d by user %d", amount.StringFixed(2), *payment.RazorpayPaymentID, record.ID, userID)
	remote, err := s.gw.Refund(ctx, gateway.RefundRequest{
		Credentials: creds,
		PaymentID:   *payment.RazorpayPaymentID,
		AmountPaise: gateway.ToPaise(amount),
		Notes: map[string]string{
			"record_id": fmt.Sprint(record.ID),
			"reason":    in.Reason,
		},
	})
	if err != nil {
		metrics.GatewayErrorsTotal.WithLabelValues("refund").Inc()
		metrics.RefundsTotal.WithLabelValues("gateway_error").Inc()
		utils.LogError("Gateway refund failed for payment %s: %v", *payment.RazorpayPaymentID, err)
		return nil, utils.GatewayError(utils.ErrGatewayUnavailable, err)
	}

	status := models.RefundStatusFromGateway(remote.Status)
	if status == models.RefundStatusFailed {
		metrics.RefundsTotal.WithLabelValues("gateway_error").Inc()
		utils.LogError("Gateway rejected refund %s for payment %s", remote.ID, *payment.RazorpayPaymentID)
		return nil, utils.GatewayError(utils.ErrGatewayUnavailable, fmt.Errorf("refund %s failed", remote.ID))
	}

	refund := models.FeeRefund{
		PaymentID:        payment.ID,
		RecordID:         record.ID,
		Amount:           amount,
		Reason:           in.Reason,
		Mode:             models.ModeRazorpay,
		RazorpayRefundID: &remote.ID,
		Status:           status,
		RefundedByUserID: userID,
		RefundedAt:       s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&refund).Error; err != nil {
			return err
		}
		// re-read inside the transaction so a payment credited meanwhile is kept
		var current models.FeeRecord
		if err := tx.First(&current, record.ID).Error; err != nil {
			return err
		}
		current.Debit(amount)
		record = &current
		return saveBalance(tx, record)
	})
	if err != nil {
		// the gateway already moved the money; this needs manual reconciliation
		utils.LogError("Refund %s accepted by gateway but not recorded for payment %d: %v", remote.ID, payment.ID, err)
		return nil, err
	}

	metrics.RefundsTotal.WithLabelValues("succeeded").Inc()
	utils.LogInfo("Refund %s recorded, record %d now %s with %s paid", remote.ID, record.ID, record.Status, record.PaidAmount.StringFixed(2))
	return &RefundResult{
		Refund:     refund,
		RecordID:   record.ID,
		PaidAmount: record.PaidAmount,
		Balance:    record.Balance(),
		Status:     record.Status,
		Refundable: refundable.Sub(amount),
	}, nil
}
