package payment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

// Midtrans opens Snap checkouts and verifies them with the Core API
// transaction status check.
type Midtrans struct {
	snap snap.Client
	core coreapi.Client
}

// NewMidtrans creates a Midtrans gateway for the sandbox or production
// environment.
func NewMidtrans(serverKey string, production bool) (*Midtrans, error) {
	if serverKey == "" {
		return nil, fmt.Errorf("midtrans server key is required")
	}
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	m := &Midtrans{}
	m.snap.New(serverKey, env)
	m.core.New(serverKey, env)
	return m, nil
}

// Name identifies the gateway on stored payments.
func (m *Midtrans) Name() string { return "midtrans" }

// Open creates a Snap transaction whose order id is the payment id.
func (m *Midtrans) Open(_ context.Context, p Payment, email string) (Checkout, error) {
	gross := int64(math.Round(p.Amount))
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  p.ID,
			GrossAmt: gross,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    p.PropertyID,
			Price: gross,
			Qty:   1,
			Name:  "Rent payment",
		}},
	}
	if email != "" {
		req.CustomerDetail = &midtrans.CustomerDetails{Email: email}
	}

	resp, merr := m.snap.CreateTransaction(req)
	if merr != nil {
		return Checkout{}, fmt.Errorf("creating snap transaction: %w", merr)
	}
	return Checkout{Reference: p.ID, URL: resp.RedirectURL}, nil
}

// Verify checks the transaction status of the order.
func (m *Midtrans) Verify(_ context.Context, reference string) (Verification, error) {
	resp, merr := m.core.CheckTransaction(reference)
	if merr != nil {
		return Verification{}, fmt.Errorf("checking transaction: %w", merr)
	}
	return Verification{Status: settled(resp.TransactionStatus, resp.FraudStatus)}, nil
}

// settled maps a Midtrans transaction status to success. Captures only
// count once fraud screening accepted them.
func settled(txStatus, fraudStatus string) bool {
	switch strings.ToLower(txStatus) {
	case "settlement":
		return true
	case "capture":
		return strings.ToLower(fraudStatus) == "accept"
	}
	return false
}
