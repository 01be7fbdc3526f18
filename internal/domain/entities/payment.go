package entities

import "time"

// PaymentStatus represents the gateway-side outcome of one payment attempt.

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSuccess   PaymentStatus = "SUCCESS"
	PaymentStatusFailure   PaymentStatus = "FAILURE"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentSource is the channel that produced a payment record. It is kept for
// audit; trust decisions rest solely on signature verification, never on the
// channel.
type PaymentSource string

const (
	PaymentSourceClient  PaymentSource = "client"
	PaymentSourceWebhook PaymentSource = "webhook"
)

// PaymentStatusChange is one entry of the append-only payment history.
type PaymentStatusChange struct {
	Status    PaymentStatus `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
	ChangedBy string        `json:"changed_by"`
	Reason    string        `json:"reason,omitempty"`
}

// Payment is one payment attempt tied to an order. An order may accumulate
// several attempts (retries), but at most one may ever reach Verified.
//
// Storage model (DynamoDB):
//   - PK: id
//   - GSI1 (order_id-index): order_id, sort key created_at
//   - GSI2 (gateway_order_id-index): gateway_order_id
//   - GSI3 (gateway_payment_id-index): gateway_payment_id
//
// GatewayPaymentID is the natural deduplication key for webhook idempotency.
type Payment struct {
	ID      string `json:"id"`
	OrderID string `json:"order_id"`

	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id,omitempty"`

	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`

	Status   PaymentStatus `json:"status"`
	Verified bool          `json:"verified"`
	Source   PaymentSource `json:"source"`
	Method   string        `json:"method,omitempty"`

	StatusHistory []PaymentStatusChange `json:"status_history"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	FailedAt   *time.Time `json:"failed_at,omitempty"`
}

// NewPayment builds a PENDING payment record for a freshly created checkout
// session, with its history seeded.
func NewPayment(id, orderID, gatewayOrderID string, amount float64, currency string, source PaymentSource) Payment {
	now := time.Now().UTC()
	return Payment{
		ID:             id,
		OrderID:        orderID,
		GatewayOrderID: gatewayOrderID,
		Amount:         amount,
		Currency:       currency,
		Status:         PaymentStatusPending,
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
		StatusHistory: []PaymentStatusChange{{
			Status:    PaymentStatusPending,
			ChangedAt: now,
			ChangedBy: string(source),
			Reason:    "payment initiated",
		}},
	}
}

// MarkSuccess flips the attempt to SUCCESS/verified and records which channel
// confirmed it. The repository write is conditioned on verified still being
// false, which is what makes duplicate deliveries idempotent.
func (p *Payment) MarkSuccess(gatewayPaymentID, method string, source PaymentSource, reason string) {
	now := time.Now().UTC()
	p.GatewayPaymentID = gatewayPaymentID
	p.Method = method
	p.Status = PaymentStatusSuccess
	p.Verified = true
	p.Source = source
	p.VerifiedAt = &now
	p.UpdatedAt = now
	p.StatusHistory = append(p.StatusHistory, PaymentStatusChange{
		Status:    PaymentStatusSuccess,
		ChangedAt: now,
		ChangedBy: string(source),
		Reason:    reason,
	})
}

// MarkDuplicate records a gateway success for an order that already has a
// verified payment. The gateway did take the money, so the outcome is kept,
// but Verified stays false: the surplus charge is a refund candidate, never a
// second verified payment for the order.
func (p *Payment) MarkDuplicate(gatewayPaymentID string, source PaymentSource, reason string) {
	now := time.Now().UTC()
	p.GatewayPaymentID = gatewayPaymentID
	p.Status = PaymentStatusSuccess
	p.Source = source
	p.UpdatedAt = now
	p.StatusHistory = append(p.StatusHistory, PaymentStatusChange{
		Status:    PaymentStatusSuccess,
		ChangedAt: now,
		ChangedBy: string(source),
		Reason:    reason,
	})
}

// MarkFailure records a failed attempt. The order is left untouched.
func (p *Payment) MarkFailure(source PaymentSource, reason string) {
	now := time.Now().UTC()
	p.Status = PaymentStatusFailure
	p.FailedAt = &now
	p.UpdatedAt = now
	p.StatusHistory = append(p.StatusHistory, PaymentStatusChange{
		Status:    PaymentStatusFailure,
		ChangedAt: now,
		ChangedBy: string(source),
		Reason:    reason,
	})
}
