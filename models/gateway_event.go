package models

import (
	"time"

	"gorm.io/datatypes"
)

// GatewayEventStatus is the processing state of a webhook delivery
type GatewayEventStatus string

const (
	GatewayEventReceived  GatewayEventStatus = "RECEIVED"
	GatewayEventProcessed GatewayEventStatus = "PROCESSED"
	GatewayEventIgnored   GatewayEventStatus = "IGNORED"
	GatewayEventFailed    GatewayEventStatus = "FAILED"
)

// PaymentGatewayEvent logs every webhook delivered by the gateway
type PaymentGatewayEvent struct {
	ID                uint               `gorm:"primaryKey" json:"id"`
	EventID           string             `gorm:"type:varchar(64);uniqueIndex;not null" json:"event_id"`
	Event             string             `gorm:"type:varchar(64);not null;index" json:"event"`
	RazorpayOrderID   string             `gorm:"type:varchar(64);index" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string             `gorm:"type:varchar(64);index" json:"razorpay_payment_id,omitempty"`
	Status            GatewayEventStatus `gorm:"type:varchar(20);not null" json:"status"`
	Error             string             `json:"error,omitempty"`
	Payload           datatypes.JSON     `json:"payload"`
	ReceivedAt        time.Time          `json:"received_at"`
	ProcessedAt       *time.Time         `json:"processed_at,omitempty"`
}
