package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus tracks a gateway order locally
type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREATED"
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusFailed  OrderStatus = "FAILED"
)

// PaymentOrder mirrors a Razorpay order so abandoned checkouts can be reconciled
type PaymentOrder struct {
	ID                string               `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CoachingID        uint                 `gorm:"not null;index" json:"coaching_id"`
	RecordID          *uint                `gorm:"index" json:"record_id,omitempty"`
	UserID            uint                 `gorm:"not null;index" json:"user_id"`
	RazorpayOrderID   string               `gorm:"type:varchar(64);uniqueIndex;not null" json:"razorpay_order_id"`
	RazorpayPaymentID *string              `gorm:"type:varchar(64)" json:"razorpay_payment_id,omitempty"`
	Amount            decimal.Decimal      `gorm:"type:numeric(12,2);not null" json:"amount"`
	AmountPaise       int64                `gorm:"not null" json:"amount_paise"`
	Receipt           string               `gorm:"type:varchar(40)" json:"receipt"`
	IsMulti           bool                 `gorm:"not null;default:false" json:"is_multi"`
	GatewayKeyID      string               `gorm:"type:varchar(64)" json:"-"`
	Status            OrderStatus          `gorm:"type:varchar(20);not null;index" json:"status"`
	FailureReason     string               `json:"failure_reason,omitempty"`
	Records           []PaymentOrderRecord `gorm:"foreignKey:OrderID" json:"records,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// RecordIDs lists the records the order pays for
func (o *PaymentOrder) RecordIDs() []uint {
	if !o.IsMulti && o.RecordID != nil {
		return []uint{*o.RecordID}
	}
	ids := make([]uint, 0, len(o.Records))
	for _, r := range o.Records {
		ids = append(ids, r.RecordID)
	}
	return ids
}

// PaymentOrderRecord maps a multi-pay order to one of its records
type PaymentOrderRecord struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	OrderID  string `gorm:"type:varchar(36);not null;uniqueIndex:idx_order_record" json:"order_id"`
	RecordID uint   `gorm:"not null;uniqueIndex:idx_order_record" json:"record_id"`
}
