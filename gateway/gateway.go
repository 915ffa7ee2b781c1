package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// Credentials selects the merchant account a call is made on. The zero value
// means the platform account.
type Credentials struct {
	KeyID     string
	KeySecret string
}

// IsZero reports whether the platform account should be used
func (c Credentials) IsZero() bool {
	return c.KeyID == "" || c.KeySecret == ""
}

// Transfer moves part of an order to a linked account once it is paid
type Transfer struct {
	Account     string
	AmountPaise int64
	Notes       map[string]string
}

// OrderRequest describes a gateway order
type OrderRequest struct {
	Credentials Credentials
	AmountPaise int64
	Currency    string
	Receipt     string
	Notes       map[string]string
	Transfers   []Transfer
}

// Order is the gateway's view of a created order
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
	Status      string
}

// RefundRequest refunds part or all of a captured payment
type RefundRequest struct {
	Credentials Credentials
	PaymentID   string
	AmountPaise int64
	Notes       map[string]string
}

// Refund is the gateway's view of a refund
type Refund struct {
	ID          string
	PaymentID   string
	AmountPaise int64
	Status      string
}

// LinkedAccountRequest registers a coaching as a Route linked account
type LinkedAccountRequest struct {
	Email         string
	Phone         string
	LegalName     string
	BusinessType  string
	ReferenceID   string
	ContactName   string
	AccountNumber string
	IFSC          string
}

// LinkedAccount is a Route account as reported by the gateway
type LinkedAccount struct {
	ID     string
	Status string
}

// BankValidationRequest asks the gateway to penny-test a bank account
type BankValidationRequest struct {
	AccountHolderName string
	AccountNumber     string
	IFSC              string
	ReferenceID       string
}

// BankValidation is the result of a bank account validation
type BankValidation struct {
	ID             string
	Status         string
	AccountStatus  string
	RegisteredName string
}

// Gateway is everything the fee services need from the payment provider
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	Refund(ctx context.Context, req RefundRequest) (*Refund, error)
	CreateLinkedAccount(ctx context.Context, req LinkedAccountRequest) (*LinkedAccount, error)
	FetchLinkedAccount(ctx context.Context, accountID string) (*LinkedAccount, error)
	DeleteLinkedAccount(ctx context.Context, accountID string) error
	ValidateBankAccount(ctx context.Context, req BankValidationRequest) (*BankValidation, error)
}

var hundred = decimal.NewFromInt(100)

// ToPaise converts a rupee amount to integer paise, rounding half away from zero
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromPaise converts integer paise to rupees
func FromPaise(paise int64) decimal.Decimal {
	return decimal.New(paise, -2)
}
