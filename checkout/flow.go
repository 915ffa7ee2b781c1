package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the create-order reply of the API
type Order struct {
	InternalOrderID string          `json:"internal_order_id"`
	OrderID         string          `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	AmountPaise     int64           `json:"amount_paise"`
	Currency        string          `json:"currency"`
	Key             string          `json:"key"`
	RecordIDs       []uint          `json:"record_ids"`
	Prefill         Prefill         `json:"prefill"`
}

// Credit is what a verification did to one record
type Credit struct {
	RecordID   uint            `json:"record_id"`
	Credited   decimal.Decimal `json:"credited"`
	PaidAmount decimal.Decimal `json:"paid_amount"`
	Balance    decimal.Decimal `json:"balance"`
	Status     string          `json:"status"`
}

// Verification is the verify reply of the API
type Verification struct {
	AlreadyProcessed bool     `json:"already_processed"`
	OrderID          string   `json:"order_id"`
	PaymentID        string   `json:"payment_id"`
	Records          []Credit `json:"records"`
}

// Report summarises one payment attempt
type Report struct {
	Order        Order
	Outcome      Outcome
	Verification *Verification
}

// FlowConfig configures a Flow. Name is the label shown on the checkout form.
type FlowConfig struct {
	BaseURL    string
	Token      string
	CoachingID uint
	Name       string
	HTTPClient *http.Client
}

// Flow pays fee records end to end: create the order, run checkout, then
// verify the payment or record the failure
type Flow struct {
	api        *apiClient
	adapter    *Adapter
	coachingID uint
	name       string
}

// NewFlow creates a Flow that runs checkout through adapter
func NewFlow(cfg FlowConfig, adapter *Adapter) *Flow {
	return &Flow{
		api:        newAPIClient(cfg.BaseURL, cfg.Token, cfg.HTTPClient),
		adapter:    adapter,
		coachingID: cfg.CoachingID,
		name:       cfg.Name,
	}
}

func (f *Flow) feePath(format string, args ...interface{}) string {
	return fmt.Sprintf("/coaching/%d/fee", f.coachingID) + fmt.Sprintf(format, args...)
}

// PayRecord pays one record. A nil amount pays the full balance.
func (f *Flow) PayRecord(ctx context.Context, recordID uint, amount *decimal.Decimal) (*Report, error) {
	body := map[string]interface{}{}
	if amount != nil {
		body["amount"] = amount
	}
	var order Order
	if err := f.api.do(ctx, http.MethodPost, f.feePath("/records/%d/create-order", recordID), body, &order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	return f.run(ctx, order, f.feePath("/records/%d/verify-payment", recordID), fmt.Sprintf("Fee record %d", recordID))
}

// PayRecords pays the full balance of several records with one order
func (f *Flow) PayRecords(ctx context.Context, recordIDs []uint) (*Report, error) {
	var order Order
	body := map[string]interface{}{"record_ids": recordIDs}
	if err := f.api.do(ctx, http.MethodPost, f.feePath("/multi-pay/create-order"), body, &order); err != nil {
		return nil, fmt.Errorf("create multi-pay order: %w", err)
	}
	return f.run(ctx, order, f.feePath("/multi-pay/verify"), fmt.Sprintf("%d fee records", len(order.RecordIDs)))
}

func (f *Flow) run(ctx context.Context, order Order, verifyPath, description string) (*Report, error) {
	report := &Report{Order: order}
	result, err := f.adapter.Checkout(ctx, Options{
		Key:         order.Key,
		OrderID:     order.OrderID,
		AmountPaise: order.AmountPaise,
		Currency:    order.Currency,
		Name:        f.name,
		Description: description,
		Prefill:     order.Prefill,
	})
	if err != nil {
		f.markFailed(order.InternalOrderID, failureReason(err))
		return report, err
	}

	report.Outcome = result.Outcome
	if result.Outcome == OutcomePending {
		return report, nil
	}

	var v Verification
	err = f.api.do(ctx, http.MethodPost, verifyPath, map[string]string{
		"razorpay_order_id":   result.OrderID,
		"razorpay_payment_id": result.PaymentID,
		"razorpay_signature":  result.Signature,
	}, &v)
	if err != nil {
		return report, fmt.Errorf("verify payment: %w", err)
	}
	report.Verification = &v
	return report, nil
}

// markFailed is best effort and runs detached from the caller's context, which
// may already be cancelled
func (f *Flow) markFailed(internalOrderID, reason string) {
	if internalOrderID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	path := f.feePath("/orders/%s/fail", url.PathEscape(internalOrderID))
	_ = f.api.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, nil)
}

func failureReason(err error) string {
	var sdkErr *SDKError
	switch {
	case errors.As(err, &sdkErr):
		return sdkErr.Description
	case errors.Is(err, ErrTimeout):
		return "checkout timed out"
	case errors.Is(err, ErrSuperseded):
		return "checkout superseded"
	case errors.Is(err, context.Canceled):
		return "checkout cancelled"
	}
	return err.Error()
}
