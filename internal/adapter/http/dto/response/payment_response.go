package response

import (
	"time"

	"vendomat/internal/domain/entities"
)

// PaymentSessionResponse carries the gateway references the client needs to
// run the vendor checkout flow.
type PaymentSessionResponse struct {
	PaymentID      string  `json:"payment_id"`
	OrderID        string  `json:"order_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

func SessionFromPayment(p entities.Payment) PaymentSessionResponse {
	return PaymentSessionResponse{
		PaymentID:      p.ID,
		OrderID:        p.OrderID,
		GatewayOrderID: p.GatewayOrderID,
		Amount:         p.Amount,
		Currency:       p.Currency,
	}
}

type PaymentResponse struct {
	PaymentID        string     `json:"payment_id"`
	OrderID          string     `json:"order_id"`
	GatewayOrderID   string     `json:"gateway_order_id"`
	GatewayPaymentID string     `json:"gateway_payment_id,omitempty"`
	Amount           float64    `json:"amount"`
	Currency         string     `json:"currency"`
	Status           string     `json:"status"`
	Verified         bool       `json:"verified"`
	Method           string     `json:"method,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	VerifiedAt       *time.Time `json:"verified_at,omitempty"`
}

func FromPayment(p entities.Payment) PaymentResponse {
	return PaymentResponse{
		PaymentID:        p.ID,
		OrderID:          p.OrderID,
		GatewayOrderID:   p.GatewayOrderID,
		GatewayPaymentID: p.GatewayPaymentID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           string(p.Status),
		Verified:         p.Verified,
		Method:           p.Method,
		CreatedAt:        p.CreatedAt,
		VerifiedAt:       p.VerifiedAt,
	}
}

type VerifyResponse struct {
	Verified bool `json:"verified"`
}
