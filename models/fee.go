package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FeeCycle is the billing cycle of a fee structure
type FeeCycle string

const (
	CycleOneTime    FeeCycle = "ONE_TIME"
	CycleMonthly    FeeCycle = "MONTHLY"
	CycleQuarterly  FeeCycle = "QUARTERLY"
	CycleHalfYearly FeeCycle = "HALF_YEARLY"
	CycleYearly     FeeCycle = "YEARLY"
)

// Valid reports whether c is a known cycle
func (c FeeCycle) Valid() bool {
	switch c {
	case CycleOneTime, CycleMonthly, CycleQuarterly, CycleHalfYearly, CycleYearly:
		return true
	}
	return false
}

// TaxType tells whether GST is already part of the amount
type TaxType string

const (
	TaxNone      TaxType = "NONE"
	TaxInclusive TaxType = "INCLUSIVE"
	TaxExclusive TaxType = "EXCLUSIVE"
)

// Valid reports whether t is a known tax treatment
func (t TaxType) Valid() bool {
	return t == TaxNone || t == TaxInclusive || t == TaxExclusive
}

// FeeRecordStatus is the payment state of a fee record
type FeeRecordStatus string

const (
	FeeStatusPending       FeeRecordStatus = "PENDING"
	FeeStatusPartiallyPaid FeeRecordStatus = "PARTIALLY_PAID"
	FeeStatusPaid          FeeRecordStatus = "PAID"
	FeeStatusOverdue       FeeRecordStatus = "OVERDUE"
	FeeStatusWaived        FeeRecordStatus = "WAIVED"
)

// Valid reports whether s is a known record status
func (s FeeRecordStatus) Valid() bool {
	switch s {
	case FeeStatusPending, FeeStatusPartiallyPaid, FeeStatusPaid, FeeStatusOverdue, FeeStatusWaived:
		return true
	}
	return false
}

// PaymentMode is how a fee payment or refund moved money
type PaymentMode string

const (
	ModeRazorpay PaymentMode = "RAZORPAY"
	ModeCash     PaymentMode = "CASH"
	ModeUPI      PaymentMode = "UPI"
	ModeBank     PaymentMode = "BANK_TRANSFER"
)

// FeeLineItem is one labelled component of a fee structure
type FeeLineItem struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// FeeStructure is a reusable fee template owned by a coaching
type FeeStructure struct {
	ID         uint                             `gorm:"primaryKey" json:"id"`
	CoachingID uint                             `gorm:"not null;index" json:"coaching_id"`
	Name       string                           `gorm:"not null" json:"name"`
	Amount     decimal.Decimal                  `gorm:"type:numeric(12,2);not null" json:"amount"`
	Cycle      FeeCycle                         `gorm:"type:varchar(20);not null" json:"cycle"`
	TaxType    TaxType                          `gorm:"type:varchar(20);not null;default:'NONE'" json:"tax_type"`
	GSTRate    decimal.Decimal                  `gorm:"type:numeric(5,2);not null;default:0" json:"gst_rate"`
	LineItems  datatypes.JSONSlice[FeeLineItem] `json:"line_items"`
	CreatedAt  time.Time                        `json:"created_at"`
	UpdatedAt  time.Time                        `json:"updated_at"`
}

// PayableAmount is the amount a member owes per cycle before discounts,
// with GST added on top for tax-exclusive structures
func (s *FeeStructure) PayableAmount(custom *decimal.Decimal) decimal.Decimal {
	amount := s.Amount
	if custom != nil {
		amount = *custom
	}
	if s.TaxType == TaxExclusive && s.GSTRate.IsPositive() {
		tax := amount.Mul(s.GSTRate).Div(decimal.NewFromInt(100))
		amount = amount.Add(tax)
	}
	return amount.Round(2)
}

// FeeAssignment binds a structure to one member
type FeeAssignment struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	CoachingID     uint             `gorm:"not null;index" json:"coaching_id"`
	MemberID       uint             `gorm:"not null;index" json:"member_id"`
	FeeStructureID uint             `gorm:"not null;index" json:"fee_structure_id"`
	FeeStructure   FeeStructure     `gorm:"foreignKey:FeeStructureID" json:"fee_structure,omitempty"`
	CustomAmount   *decimal.Decimal `gorm:"type:numeric(12,2)" json:"custom_amount,omitempty"`
	DiscountAmount decimal.Decimal  `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	StartDate      time.Time        `json:"start_date"`
	EndDate        *time.Time       `json:"end_date,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// FeeRecord is one payable instance of an assignment
type FeeRecord struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CoachingID     uint            `gorm:"not null;index" json:"coaching_id"`
	AssignmentID   uint            `gorm:"not null;index" json:"assignment_id"`
	MemberID       uint            `gorm:"not null;index" json:"member_id"`
	Member         CoachingMember  `gorm:"foreignKey:MemberID" json:"-"`
	Title          string          `json:"title"`
	BaseAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"base_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount_amount"`
	FineAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"fine_amount"`
	FinalAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"final_amount"`
	PaidAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"paid_amount"`
	Status         FeeRecordStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	DueDate        time.Time       `gorm:"not null;index" json:"due_date"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	Payments       []FeePayment    `gorm:"foreignKey:RecordID" json:"payments,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Balance is the amount still owed, never negative
func (r *FeeRecord) Balance() decimal.Decimal {
	balance := r.FinalAmount.Sub(r.PaidAmount)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// IsSettled reports whether the record can no longer take payments
func (r *FeeRecord) IsSettled() bool {
	return r.Status == FeeStatusPaid || r.Status == FeeStatusWaived
}

// Credit adds a payment to the record and recomputes its status
func (r *FeeRecord) Credit(amount decimal.Decimal, at time.Time) {
	r.PaidAmount = r.PaidAmount.Add(amount)
	r.recomputeStatus()
	if r.Status == FeeStatusPaid {
		r.PaidAt = &at
	}
}

// Debit removes a refunded amount from the record and recomputes its status
func (r *FeeRecord) Debit(amount decimal.Decimal) {
	r.PaidAmount = r.PaidAmount.Sub(amount)
	if r.PaidAmount.IsNegative() {
		r.PaidAmount = decimal.Zero
	}
	r.recomputeStatus()
	if r.Status != FeeStatusPaid {
		r.PaidAt = nil
	}
}

func (r *FeeRecord) recomputeStatus() {
	if r.Status == FeeStatusWaived {
		return
	}
	switch {
	case r.PaidAmount.GreaterThanOrEqual(r.FinalAmount):
		r.Status = FeeStatusPaid
	case r.PaidAmount.IsPositive():
		r.Status = FeeStatusPartiallyPaid
	default:
		r.Status = FeeStatusPending
	}
}

// FeePayment is an append-only payment entry against one record. One gateway
// payment may fan out over several records, but never twice onto the same one.
type FeePayment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	CoachingID        uint            `gorm:"not null;index" json:"coaching_id"`
	RecordID          uint            `gorm:"not null;index;uniqueIndex:idx_payment_gateway_record" json:"record_id"`
	Amount            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Mode              PaymentMode     `gorm:"type:varchar(20);not null" json:"mode"`
	RazorpayPaymentID *string         `gorm:"type:varchar(64);uniqueIndex:idx_payment_gateway_record" json:"razorpay_payment_id,omitempty"`
	RazorpayOrderID   *string         `gorm:"type:varchar(64);index" json:"razorpay_order_id,omitempty"`
	PaymentOrderID    *string         `gorm:"type:varchar(36);index" json:"payment_order_id,omitempty"`
	GatewayKeyID      string          `gorm:"type:varchar(64)" json:"-"`
	PaidByUserID      uint            `json:"paid_by_user_id"`
	PaidAt            time.Time       `json:"paid_at"`
	Refunds           []FeeRefund     `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// RefundedAmount sums the refunds loaded on the payment. Refunds the gateway
// reported as failed are not counted.
func (p *FeePayment) RefundedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, r := range p.Refunds {
		if r.Status == RefundStatusFailed {
			continue
		}
		total = total.Add(r.Amount)
	}
	return total
}

// Refundable is the amount that can still be refunded
func (p *FeePayment) Refundable() decimal.Decimal {
	left := p.Amount.Sub(p.RefundedAmount())
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

// RefundStatus follows a gateway refund after it was accepted
type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "PENDING"
	RefundStatusProcessed RefundStatus = "PROCESSED"
	RefundStatusFailed    RefundStatus = "FAILED"
)

// RefundStatusFromGateway maps a Razorpay refund status
func RefundStatusFromGateway(status string) RefundStatus {
	switch status {
	case "processed":
		return RefundStatusProcessed
	case "failed":
		return RefundStatusFailed
	}
	return RefundStatusPending
}

// FeeRefund offsets part of a payment
type FeeRefund struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PaymentID        uint            `gorm:"not null;index" json:"payment_id"`
	RecordID         uint            `gorm:"not null;index" json:"record_id"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Reason           string          `json:"reason"`
	Mode             PaymentMode     `gorm:"type:varchar(20);not null" json:"mode"`
	RazorpayRefundID *string         `gorm:"type:varchar(64);uniqueIndex" json:"razorpay_refund_id,omitempty"`
	Status           RefundStatus    `gorm:"type:varchar(20);not null;default:PROCESSED" json:"status"`
	RefundedByUserID uint            `json:"refunded_by_user_id"`
	RefundedAt       time.Time       `json:"refunded_at"`
	CreatedAt        time.Time       `json:"created_at"`
}
