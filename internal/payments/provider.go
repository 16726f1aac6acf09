package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is the external payment gateway. CreateOrder registers a payment
// intent and returns the provider's order reference, which later comes back
// on the capture path (synchronous return trip or webhook, or both).
type Provider interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, description string) (ref string, approvalURL string, err error)
}

// SandboxProvider issues local order references without talking to a real
// gateway. Used in development and tests; the live PayPal client plugs in
// behind the same interface.
type SandboxProvider struct{}

func (SandboxProvider) CreateOrder(_ context.Context, amount decimal.Decimal, description string) (string, string, error) {
	ref := "SBX-" + uuid.NewString()
	return ref, fmt.Sprintf("https://sandbox.payments.local/approve/%s?amount=%s&desc=%s", ref, amount, description), nil
}
