package payments

import "context"

type CreateOrderRequest struct {
	Amount   int // minor currency units
	Currency string
	Receipt  string
	Notes    map[string]any
}

type CreateOrderResponse struct {
	OrderID  string
	Amount   int
	Currency string
}

// Provider is the outbound side of the payment processor: order creation.
// Inbound trust (signatures) is handled by the verifiers in signature.go.
type Provider interface {
	Name() string
	KeyID() string
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResponse, error)
}
