// Package checkout is the client side of online fee payment. Adapter turns a
// callback based checkout SDK into one blocking call per attempt, and Flow
// drives a full payment against the Tutorix HTTP API.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultTimeout bounds an attempt when Options.Timeout is zero
const DefaultTimeout = 10 * time.Minute

var (
	// ErrSuperseded is returned to an attempt cancelled by a newer Checkout call
	ErrSuperseded = errors.New("checkout superseded by a newer attempt")
	// ErrTimeout is returned when the SDK reports nothing before the deadline
	ErrTimeout = errors.New("checkout timed out")
)

// Outcome of a finished attempt
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	// OutcomePending means the user left for an external wallet; the payment
	// is confirmed later by the gateway webhook
	OutcomePending Outcome = "pending"
)

// Prefill is the contact data the checkout form opens with
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Options configures one checkout attempt
type Options struct {
	Key         string
	OrderID     string
	AmountPaise int64
	Currency    string
	Name        string
	Description string
	Prefill     Prefill
	Timeout     time.Duration
}

// Result is what a successful or pending attempt produced
type Result struct {
	Outcome   Outcome
	OrderID   string
	PaymentID string
	Signature string
	Wallet    string
}

// SDKError is a failure reported by the SDK, including user cancellation
type SDKError struct {
	Code        int
	Description string
}

func (e *SDKError) Error() string {
	return fmt.Sprintf("checkout failed (%d): %s", e.Code, e.Description)
}

// Callbacks are handed to the SDK. Only the first call has any effect.
type Callbacks struct {
	OnSuccess        func(paymentID, orderID, signature string)
	OnError          func(code int, description string)
	OnExternalWallet func(wallet string)
}

// SDK opens the native checkout. Open must return promptly; the outcome is
// reported through cb. ctx is cancelled when the attempt is abandoned.
type SDK interface {
	Open(ctx context.Context, opts Options, cb Callbacks) error
}

// Adapter runs at most one checkout at a time
type Adapter struct {
	sdk     SDK
	timeout time.Duration

	mu      sync.Mutex
	attempt uint64
	cancel  context.CancelCauseFunc
}

// NewAdapter creates an Adapter over sdk. timeout applies to attempts whose
// Options do not set one.
func NewAdapter(sdk SDK, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{sdk: sdk, timeout: timeout}
}

type settled struct {
	result *Result
	err    error
}

// Checkout opens the SDK and blocks until it reports an outcome, the attempt
// times out, ctx is done or a newer Checkout call supersedes it.
func (a *Adapter) Checkout(ctx context.Context, opts Options) (*Result, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = a.timeout
	}
	ctx, cancel := context.WithCancelCause(ctx)
	ctx, stop := context.WithTimeoutCause(ctx, timeout, ErrTimeout)
	defer stop()

	a.mu.Lock()
	if a.cancel != nil {
		a.cancel(ErrSuperseded)
	}
	a.attempt++
	id := a.attempt
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if a.attempt == id {
			a.cancel = nil
		}
		a.mu.Unlock()
		cancel(nil)
	}()

	done := make(chan settled, 1)
	var once sync.Once
	resolve := func(s settled) {
		once.Do(func() { done <- s })
	}

	cb := Callbacks{
		OnSuccess: func(paymentID, orderID, signature string) {
			if orderID == "" {
				orderID = opts.OrderID
			}
			resolve(settled{result: &Result{
				Outcome:   OutcomeSuccess,
				OrderID:   orderID,
				PaymentID: paymentID,
				Signature: signature,
			}})
		},
		OnError: func(code int, description string) {
			resolve(settled{err: &SDKError{Code: code, Description: description}})
		},
		OnExternalWallet: func(wallet string) {
			resolve(settled{result: &Result{Outcome: OutcomePending, OrderID: opts.OrderID, Wallet: wallet}})
		},
	}

	if err := a.sdk.Open(ctx, opts, cb); err != nil {
		return nil, fmt.Errorf("open checkout: %w", err)
	}

	select {
	case s := <-done:
		return s.result, s.err
	case <-ctx.Done():
		cause := context.Cause(ctx)
		if errors.Is(cause, ErrSuperseded) || errors.Is(cause, ErrTimeout) {
			return nil, cause
		}
		return nil, ctx.Err()
	}
}

// Cancel abandons the in-flight attempt, if any
func (a *Adapter) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel(context.Canceled)
		a.cancel = nil
	}
}
