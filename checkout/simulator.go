package checkout

import (
	"context"
	"net/http"
	"net/url"
)

// SimulatorSDK completes checkout against the API's test-mode simulate
// endpoint instead of a real payment form. Outcome selects what it reports:
// OutcomeSuccess (the default) or OutcomePending. Fail makes it report an
// SDK error instead.
type SimulatorSDK struct {
	api     *apiClient
	Outcome Outcome
	Fail    bool
}

// NewSimulatorSDK creates a SimulatorSDK for the API at baseURL
func NewSimulatorSDK(baseURL, token string, hc *http.Client) *SimulatorSDK {
	return &SimulatorSDK{api: newAPIClient(baseURL, token, hc)}
}

type simulated struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// Open implements SDK
func (s *SimulatorSDK) Open(ctx context.Context, opts Options, cb Callbacks) error {
	go func() {
		if s.Fail {
			cb.OnError(2, "Payment cancelled by user")
			return
		}
		if s.Outcome == OutcomePending {
			cb.OnExternalWallet("paytm")
			return
		}
		var out simulated
		path := "/payment/simulate?order_id=" + url.QueryEscape(opts.OrderID)
		if err := s.api.do(ctx, http.MethodGet, path, nil, &out); err != nil {
			if ctx.Err() != nil {
				return
			}
			cb.OnError(0, err.Error())
			return
		}
		cb.OnSuccess(out.PaymentID, out.OrderID, out.Signature)
	}()
	return nil
}
