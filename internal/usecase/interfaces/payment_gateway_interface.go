package interfaces

import "context"

// CheckoutSession is the gateway-side order reference handed back to the
// client so it can run the vendor checkout flow.
type CheckoutSession struct {
	GatewayOrderID string
	CheckoutURL    string
}

// GatewayPayment is the gateway's authoritative view of one payment.
type GatewayPayment struct {
	ID       string
	OrderRef string
	Status   string
	Method   string
	Amount   float64
	Currency string
}

// IPaymentGateway abstracts the external payment provider (e.g. Mercado
// Pago). Signature verification of callbacks/webhooks is not part of this
// interface: it is computed over our own canonical strings with shared
// secrets, independent of the vendor SDK.
type IPaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, amount float64, currency, reference string) (CheckoutSession, error)
	FetchPayment(ctx context.Context, gatewayPaymentID string) (GatewayPayment, error)
}
