package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Govind-619/Tutorix/utils"
	razorpay "github.com/razorpay/razorpay-go"
)

// the SDK has no resource for fund account validations
const validationsURL = "/v1/fund_accounts/validations"

// Razorpay talks to the Razorpay REST API through razorpay-go
type Razorpay struct {
	platform Credentials
	// RazorpayX account debited by penny-drop validations
	payoutAccount string
	timeout       time.Duration
	baseURL       string

	mu      sync.Mutex
	clients map[string]*razorpay.Client
}

// NewRazorpay builds a gateway on the platform's key pair
func NewRazorpay(keyID, keySecret, payoutAccount string) *Razorpay {
	return &Razorpay{
		platform:      Credentials{KeyID: keyID, KeySecret: keySecret},
		payoutAccount: payoutAccount,
		clients:       make(map[string]*razorpay.Client),
	}
}

func (r *Razorpay) client(creds Credentials) *razorpay.Client {
	if creds.IsZero() {
		creds = r.platform
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[creds.KeyID]
	if !ok {
		c = razorpay.NewClient(creds.KeyID, creds.KeySecret)
		if r.baseURL != "" {
			// every resource of a client shares one request
			c.Order.Request.BaseURL = r.baseURL
		}
		r.clients[creds.KeyID] = c
	}
	return c
}

// WithTimeout bounds every gateway request by d on top of the caller's context
func (r *Razorpay) WithTimeout(d time.Duration) *Razorpay {
	r.timeout = d
	return r
}

// WithBaseURL points the SDK at another API host, such as a local stub
func (r *Razorpay) WithBaseURL(url string) *Razorpay {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.baseURL = url
	r.clients = make(map[string]*razorpay.Client)
	return r
}

// call runs a blocking SDK request but returns early when ctx ends
func (r *Razorpay) call(ctx context.Context, op string, fn func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := fn()
		done <- result{body, err}
	}()
	select {
	case <-ctx.Done():
		utils.LogWarn("Razorpay %s abandoned: %v", op, ctx.Err())
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%s: %w", op, res.err)
		}
		return res.body, nil
	}
}

// CreateOrder creates an order, optionally with Route transfers
func (r *Razorpay) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.AmountPaise <= 0 {
		return nil, errors.New("order amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = utils.Currency
	}
	orderData := map[string]interface{}{
		"amount":          req.AmountPaise,
		"currency":        currency,
		"receipt":         req.Receipt,
		"payment_capture": 1,
	}
	if len(req.Notes) > 0 {
		orderData["notes"] = req.Notes
	}
	if len(req.Transfers) > 0 {
		transfers := make([]map[string]interface{}, 0, len(req.Transfers))
		for _, t := range req.Transfers {
			transfer := map[string]interface{}{
				"account":  t.Account,
				"amount":   t.AmountPaise,
				"currency": currency,
			}
			if len(t.Notes) > 0 {
				transfer["notes"] = t.Notes
			}
			transfers = append(transfers, transfer)
		}
		orderData["transfers"] = transfers
	}

	client := r.client(req.Credentials)
	body, err := r.call(ctx, "create order", func() (map[string]interface{}, error) {
		return client.Order.Create(orderData, nil)
	})
	if err != nil {
		return nil, err
	}
	order := &Order{
		ID:          str(body, "id"),
		AmountPaise: num(body, "amount"),
		Currency:    str(body, "currency"),
		Receipt:     str(body, "receipt"),
		Status:      str(body, "status"),
	}
	if order.ID == "" {
		return nil, errors.New("create order: gateway returned no order id")
	}
	return order, nil
}

// Refund refunds a captured payment
func (r *Razorpay) Refund(ctx context.Context, req RefundRequest) (*Refund, error) {
	if req.AmountPaise <= 0 {
		return nil, errors.New("refund amount must be positive")
	}
	data := map[string]interface{}{}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}
	client := r.client(req.Credentials)
	body, err := r.call(ctx, "refund", func() (map[string]interface{}, error) {
		return client.Payment.Refund(req.PaymentID, int(req.AmountPaise), data, nil)
	})
	if err != nil {
		return nil, err
	}
	refund := &Refund{
		ID:          str(body, "id"),
		PaymentID:   str(body, "payment_id"),
		AmountPaise: num(body, "amount"),
		Status:      str(body, "status"),
	}
	if refund.ID == "" {
		return nil, errors.New("refund: gateway returned no refund id")
	}
	return refund, nil
}

// CreateLinkedAccount registers a Route linked account on the platform account
func (r *Razorpay) CreateLinkedAccount(ctx context.Context, req LinkedAccountRequest) (*LinkedAccount, error) {
	payload := map[string]interface{}{
		"email":               req.Email,
		"phone":               req.Phone,
		"type":                "route",
		"reference_id":        req.ReferenceID,
		"legal_business_name": req.LegalName,
		"business_type":       req.BusinessType,
		"contact_name":        req.ContactName,
		"profile": map[string]interface{}{
			"category":    "education",
			"subcategory": "coaching",
		},
	}
	client := r.client(Credentials{})
	body, err := r.call(ctx, "create linked account", func() (map[string]interface{}, error) {
		return client.Account.Create(payload, nil)
	})
	if err != nil {
		return nil, err
	}
	return &LinkedAccount{ID: str(body, "id"), Status: str(body, "status")}, nil
}

// FetchLinkedAccount reads the current status of a linked account
func (r *Razorpay) FetchLinkedAccount(ctx context.Context, accountID string) (*LinkedAccount, error) {
	client := r.client(Credentials{})
	body, err := r.call(ctx, "fetch linked account", func() (map[string]interface{}, error) {
		return client.Account.Fetch(accountID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &LinkedAccount{ID: str(body, "id"), Status: str(body, "status")}, nil
}

// DeleteLinkedAccount removes a linked account
func (r *Razorpay) DeleteLinkedAccount(ctx context.Context, accountID string) error {
	client := r.client(Credentials{})
	_, err := r.call(ctx, "delete linked account", func() (map[string]interface{}, error) {
		return client.Account.Delete(accountID, nil, nil)
	})
	return err
}

// ValidateBankAccount starts a penny-drop validation of a bank account
func (r *Razorpay) ValidateBankAccount(ctx context.Context, req BankValidationRequest) (*BankValidation, error) {
	payload := map[string]interface{}{
		"account_number": r.payoutAccount,
		"fund_account": map[string]interface{}{
			"account_type": "bank_account",
			"bank_account": map[string]interface{}{
				"name":           req.AccountHolderName,
				"ifsc":           req.IFSC,
				"account_number": req.AccountNumber,
			},
		},
		"amount":       100,
		"currency":     utils.Currency,
		"reference_id": req.ReferenceID,
	}
	client := r.client(Credentials{})
	body, err := r.call(ctx, "validate bank account", func() (map[string]interface{}, error) {
		return client.FundAccount.Request.Post(validationsURL, payload, nil)
	})
	if err != nil {
		return nil, err
	}
	v := &BankValidation{ID: str(body, "id"), Status: str(body, "status")}
	if results, ok := body["results"].(map[string]interface{}); ok {
		v.AccountStatus = str(results, "account_status")
		v.RegisteredName = str(results, "registered_name")
	}
	return v, nil
}

func str(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

// JSON numbers come back from the SDK as float64
func num(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	}
	return 0
}
