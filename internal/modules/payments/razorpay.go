package payments

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/surojitgharami/alumni-portal/internal/config"
)

type RazorpayProvider struct {
	client *razorpay.Client
	keyID  string
}

// NewRazorpayProvider returns nil when credentials are not set; the service
// maps a nil provider to ErrNotConfigured (503).
func NewRazorpayProvider(cfg config.RazorpayConfig) *RazorpayProvider {
	if !cfg.Enabled() {
		return nil
	}
	return &RazorpayProvider{
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		keyID:  cfg.KeyID,
	}
}

func (p *RazorpayProvider) Name() string { return "razorpay" }

func (p *RazorpayProvider) KeyID() string { return p.keyID }

func (p *RazorpayProvider) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error) {
	// The SDK has no context support; keep the parameter for the interface.
	_ = ctx

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	}
	order, err := p.client.Order.Create(data, nil)
	if err != nil {
		return CreateOrderResponse{}, fmt.Errorf("razorpay order create: %w", err)
	}

	id, _ := order["id"].(string)
	if id == "" {
		return CreateOrderResponse{}, fmt.Errorf("razorpay order create: missing order id in response")
	}
	currency, _ := order["currency"].(string)
	if currency == "" {
		currency = req.Currency
	}

	amount := req.Amount
	if f, ok := order["amount"].(float64); ok {
		amount = int(f)
	}

	return CreateOrderResponse{OrderID: id, Amount: amount, Currency: currency}, nil
}
