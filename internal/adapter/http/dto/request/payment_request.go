package request

// PaymentSessionRequest opens a gateway checkout session for an order.
type PaymentSessionRequest struct {
	OrderID string `json:"order_id" binding:"required"`
}

// PaymentVerifyRequest is the client-confirmed verification payload. The
// signature is an HMAC over "gateway_order_id|gateway_payment_id" computed
// with the shared key secret.
type PaymentVerifyRequest struct {
	GatewayOrderID   string `json:"gateway_order_id" binding:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" binding:"required"`
	Signature        string `json:"signature" binding:"required"`
}
