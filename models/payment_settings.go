package models

import "time"

// Linked account and bank verification states as reported by the gateway
const (
	LinkedAccountCreated   = "created"
	LinkedAccountActivated = "activated"
	LinkedAccountSuspended = "suspended"

	BankVerificationPending   = "pending"
	BankVerificationCompleted = "completed"
	BankVerificationFailed    = "failed"
)

// PaymentSettings holds a coaching's gateway and payout configuration
type PaymentSettings struct {
	ID                      uint       `gorm:"primaryKey" json:"id"`
	CoachingID              uint       `gorm:"uniqueIndex;not null" json:"coaching_id"`
	OnlinePaymentsEnabled   bool       `gorm:"not null;default:false" json:"online_payments_enabled"`
	UseOwnGateway           bool       `gorm:"not null;default:false" json:"use_own_gateway"`
	RazorpayKeyID           string     `gorm:"type:varchar(64)" json:"razorpay_key_id,omitempty"`
	RazorpayKeySecretSealed string     `gorm:"type:text" json:"-"`
	AccountHolderName       string     `json:"account_holder_name,omitempty"`
	BankAccountNumber       string     `gorm:"type:varchar(32)" json:"-"`
	BankIFSC                string     `gorm:"type:varchar(16)" json:"bank_ifsc,omitempty"`
	BusinessEmail           string     `json:"business_email,omitempty"`
	BusinessPhone           string     `gorm:"type:varchar(20)" json:"business_phone,omitempty"`
	BusinessType            string     `gorm:"type:varchar(32)" json:"business_type,omitempty"`
	LinkedAccountID         string     `gorm:"type:varchar(64);index" json:"linked_account_id,omitempty"`
	LinkedAccountStatus     string     `gorm:"type:varchar(20)" json:"linked_account_status,omitempty"`
	BankVerificationID      string     `gorm:"type:varchar(64)" json:"bank_verification_id,omitempty"`
	BankVerificationStatus  string     `gorm:"type:varchar(20)" json:"bank_verification_status,omitempty"`
	LinkedAccountUpdatedAt  *time.Time `json:"linked_account_updated_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// HasOwnCredentials reports whether the coaching collects on its own Razorpay account
func (s *PaymentSettings) HasOwnCredentials() bool {
	return s.UseOwnGateway && s.RazorpayKeyID != "" && s.RazorpayKeySecretSealed != ""
}

// RoutesToLinkedAccount reports whether collected payments are transferred to the
// coaching's linked account
func (s *PaymentSettings) RoutesToLinkedAccount() bool {
	return !s.UseOwnGateway && s.LinkedAccountID != "" && s.LinkedAccountStatus == LinkedAccountActivated
}

// MaskedAccountNumber hides all but the last four digits
func (s *PaymentSettings) MaskedAccountNumber() string {
	n := len(s.BankAccountNumber)
	if n <= 4 {
		return s.BankAccountNumber
	}
	masked := make([]byte, n)
	for i := 0; i < n-4; i++ {
		masked[i] = 'X'
	}
	copy(masked[n-4:], s.BankAccountNumber[n-4:])
	return string(masked)
}
