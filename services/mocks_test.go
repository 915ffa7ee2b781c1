package services

import (
	"context"
	"sync"
	"testing"

	"github.com/Govind-619/Tutorix/gateway"
	"github.com/Govind-619/Tutorix/testutil"
	"github.com/Govind-619/Tutorix/utils"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

const (
	platformKey    = "rzp_test_platform"
	platformSecret = "platform_secret"
	webhookSecret  = "webhook_secret"
)

// MockGateway is a testify mock of gateway.Gateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

func (m *MockGateway) CreateLinkedAccount(ctx context.Context, req gateway.LinkedAccountRequest) (*gateway.LinkedAccount, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.LinkedAccount), args.Error(1)
}

func (m *MockGateway) FetchLinkedAccount(ctx context.Context, accountID string) (*gateway.LinkedAccount, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.LinkedAccount), args.Error(1)
}

func (m *MockGateway) DeleteLinkedAccount(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockGateway) ValidateBankAccount(ctx context.Context, req gateway.BankValidationRequest) (*gateway.BankValidation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.BankValidation), args.Error(1)
}

// MockMailer captures sent emails
type MockMailer struct {
	mock.Mock
	mu   sync.Mutex
	sent []string
}

func (m *MockMailer) Send(to, subject, htmlBody string, attachments ...utils.Attachment) error {
	args := m.Called(to, subject, htmlBody, attachments)
	m.mu.Lock()
	m.sent = append(m.sent, to)
	m.mu.Unlock()
	return args.Error(0)
}

// testEnv wires the services over an in-memory database and a mock gateway
type testEnv struct {
	db       *gorm.DB
	gw       *MockGateway
	fx       testutil.Fixture
	secrets  *utils.SecretBox
	payments *PaymentService
	refunds  *RefundService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewTestDB(t)
	gw := new(MockGateway)
	secrets := utils.NewSecretBox("test-passphrase")
	payments := NewPaymentService(db, gw, PaymentOptions{
		KeyID:     platformKey,
		KeySecret: platformSecret,
		Secrets:   secrets,
	})
	return &testEnv{
		db:       db,
		gw:       gw,
		fx:       testutil.SeedCoaching(t, db),
		secrets:  secrets,
		payments: payments,
		refunds:  NewRefundService(db, gw, payments),
	}
}

// expectOrder makes the gateway accept the next order of amountPaise
func (e *testEnv) expectOrder(orderID string, amountPaise int64) *mock.Call {
	return e.gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req gateway.OrderRequest) bool {
		return req.AmountPaise == amountPaise
	})).Return(&gateway.Order{ID: orderID, AmountPaise: amountPaise, Currency: "INR", Status: "created"}, nil).Once()
}

func signed(orderID, paymentID string) VerifyInput {
	return VerifyInput{
		OrderID:   orderID,
		PaymentID: paymentID,
		Signature: gateway.SignPayment(orderID, paymentID, platformSecret),
	}
}
