package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Govind-619/Tutorix/gateway"
)

// ErrGatewayDown is what FakeGateway returns while Down is set
var ErrGatewayDown = errors.New("gateway unavailable")

// FakeGateway is an in-memory gateway that accepts every request. Order and
// refund ids are numbered in call order: order_1, order_2, rfnd_1 ...
type FakeGateway struct {
	mu      sync.Mutex
	Down    bool
	Orders  []gateway.OrderRequest
	Refunds []gateway.RefundRequest
	seq     int
}

func (g *FakeGateway) next(prefix string) (string, error) {
	if g.Down {
		return "", ErrGatewayDown
	}
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq), nil
}

// CreateOrder implements gateway.Gateway
func (g *FakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.next("order")
	if err != nil {
		return nil, err
	}
	g.Orders = append(g.Orders, req)
	return &gateway.Order{ID: id, AmountPaise: req.AmountPaise, Currency: req.Currency, Receipt: req.Receipt, Status: "created"}, nil
}

// Refund implements gateway.Gateway
func (g *FakeGateway) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.next("rfnd")
	if err != nil {
		return nil, err
	}
	g.Refunds = append(g.Refunds, req)
	return &gateway.Refund{ID: id, PaymentID: req.PaymentID, AmountPaise: req.AmountPaise, Status: "processed"}, nil
}

// CreateLinkedAccount implements gateway.Gateway
func (g *FakeGateway) CreateLinkedAccount(_ context.Context, _ gateway.LinkedAccountRequest) (*gateway.LinkedAccount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.next("acc")
	if err != nil {
		return nil, err
	}
	return &gateway.LinkedAccount{ID: id, Status: "created"}, nil
}

// FetchLinkedAccount implements gateway.Gateway
func (g *FakeGateway) FetchLinkedAccount(_ context.Context, accountID string) (*gateway.LinkedAccount, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Down {
		return nil, ErrGatewayDown
	}
	return &gateway.LinkedAccount{ID: accountID, Status: "activated"}, nil
}

// DeleteLinkedAccount implements gateway.Gateway
func (g *FakeGateway) DeleteLinkedAccount(_ context.Context, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Down {
		return ErrGatewayDown
	}
	return nil
}

// ValidateBankAccount implements gateway.Gateway
func (g *FakeGateway) ValidateBankAccount(_ context.Context, req gateway.BankValidationRequest) (*gateway.BankValidation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := g.next("fav")
	if err != nil {
		return nil, err
	}
	return &gateway.BankValidation{ID: id, Status: "completed", AccountStatus: "active", RegisteredName: req.AccountHolderName}, nil
}

// SetDown makes every following call fail, or succeed again
func (g *FakeGateway) SetDown(down bool) {
	g.mu.Lock()
	g.Down = down
	g.mu.Unlock()
}
