package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase/interfaces"

	"github.com/google/uuid"
)

var (
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrOrderNotPending    = errors.New("order is not awaiting payment")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidWebhook     = errors.New("invalid webhook payload")
)

// gatewaySuccessStatuses are the authoritative gateway states that advance an
// order. Anything else records a failure or leaves the attempt pending.
var gatewaySuccessStatuses = map[string]bool{
	"approved":   true,
	"authorized": true,
	"captured":   true,
}

// webhookEvent is the minimal envelope the core reacts to. Vendor wire
// formats beyond this are out of scope; an adapter in front of the webhook
// route normalizes them.
type webhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		GatewayOrderID   string  `json:"gateway_order_id"`
		GatewayPaymentID string  `json:"gateway_payment_id"`
		Status           string  `json:"status"`
		Method           string  `json:"method"`
		Amount           float64 `json:"amount"`
		Currency         string  `json:"currency"`
		Reference        string  `json:"reference"` // our order ID
	} `json:"data"`
}

// IPaymentUseCase reconciles gateway confirmations with local state. Both
// entry channels authenticate independently before touching anything; the
// reconcile step runs at most once per gateway payment reference.

type IPaymentUseCase interface {
	CreateSession(ctx context.Context, userID, orderID string) (entities.Payment, error)
	VerifyClient(ctx context.Context, userID, gatewayOrderID, gatewayPaymentID, signature string) (bool, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) error
	GetLatestByOrderID(ctx context.Context, userID, orderID string) (entities.Payment, error)
}

type PaymentUseCase struct {
	payments interfaces.IPaymentRepository
	orders   IOrderUseCase
	gateway  interfaces.IPaymentGateway

	currency      string
	keySecret     string
	webhookSecret string
}

var _ IPaymentUseCase = (*PaymentUseCase)(nil)

func NewPaymentUseCase(payments interfaces.IPaymentRepository, orders IOrderUseCase, gateway interfaces.IPaymentGateway, currency, keySecret, webhookSecret string) *PaymentUseCase {
	return &PaymentUseCase{
		payments:      payments,
		orders:        orders,
		gateway:       gateway,
		currency:      currency,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

// CreateSession opens a gateway checkout for a PENDING order owned by the
// caller and records the attempt.
func (u *PaymentUseCase) CreateSession(ctx context.Context, userID, orderID string) (entities.Payment, error) {
	log.Printf("[payment][usecase] session start uid=%s order_id=%s", userID, orderID)

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return entities.Payment{}, err
	}
	if order.UserID != strings.TrimSpace(userID) {
		log.Printf("[payment][usecase] session for foreign order uid=%s order_id=%s", userID, orderID)
		return entities.Payment{}, ErrNotOrderOwner
	}
	if order.Status != entities.OrderStatusPending {
		log.Printf("[payment][usecase] session for non-pending order order_id=%s status=%s", orderID, order.Status)
		return entities.Payment{}, ErrOrderNotPending
	}

	session, err := u.gateway.CreateCheckoutSession(ctx, order.Amount.Total, u.currency, order.ID)
	if err != nil {
		log.Printf("[payment][usecase] gateway session failed order_id=%s err=%v", orderID, err)
		return entities.Payment{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	p := entities.NewPayment(uuid.NewString(), order.ID, session.GatewayOrderID, order.Amount.Total, u.currency, entities.PaymentSourceClient)
	created, err := u.payments.Create(ctx, p)
	if err != nil {
		return entities.Payment{}, err
	}
	log.Printf("[payment][usecase] session success order_id=%s payment_id=%s gateway_order_id=%s", orderID, created.ID, session.GatewayOrderID)
	return created, nil
}

// VerifyClient handles the client-confirmed channel: recompute the expected
// signature over "gatewayOrderID|gatewayPaymentID" with the shared key
// secret, compare in constant time, then take the gateway's authoritative
// payment status before advancing anything.
func (u *PaymentUseCase) VerifyClient(ctx context.Context, userID, gatewayOrderID, gatewayPaymentID, signature string) (bool, error) {
	log.Printf("[payment][usecase] verify start uid=%s gateway_order_id=%s gateway_payment_id=%s", userID, gatewayOrderID, gatewayPaymentID)

	payload := gatewayOrderID + "|" + gatewayPaymentID
	if !u.checkSignature(u.keySecret, []byte(payload), signature) {
		log.Printf("[payment][usecase] signature mismatch gateway_order_id=%s", gatewayOrderID)
		return false, ErrInvalidSignature
	}

	gp, err := u.gateway.FetchPayment(ctx, gatewayPaymentID)
	if err != nil {
		log.Printf("[payment][usecase] gateway fetch failed gateway_payment_id=%s err=%v", gatewayPaymentID, err)
		return false, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	if !gatewaySuccessStatuses[strings.ToLower(gp.Status)] {
		log.Printf("[payment][usecase] gateway reports non-success gateway_payment_id=%s status=%s", gatewayPaymentID, gp.Status)
		u.recordFailure(ctx, gatewayOrderID, entities.PaymentSourceClient, "gateway status "+gp.Status)
		return false, nil
	}

	err = u.reconcile(ctx, reconcileInput{
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		OrderRef:         gp.OrderRef,
		Method:           gp.Method,
		Amount:           gp.Amount,
		Currency:         gp.Currency,
		Source:           entities.PaymentSourceClient,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// HandleWebhook handles the asynchronous channel. The HMAC over the exact
// raw bytes is checked before any parsing; an unverifiable delivery mutates
// nothing. Captured/authorized events are trusted without a gateway
// round-trip; everything else is acknowledged and ignored.
func (u *PaymentUseCase) HandleWebhook(ctx context.Context, rawBody []byte, signature string) error {
	if !u.checkSignature(u.webhookSecret, rawBody, signature) {
		log.Printf("[payment][usecase] webhook signature mismatch body_len=%d", len(rawBody))
		return ErrInvalidSignature
	}

	var evt webhookEvent
	if err := json.Unmarshal(rawBody, &evt); err != nil {
		log.Printf("[payment][usecase] webhook parse failed err=%v", err)
		return fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}

	if evt.Event != "payment.captured" && evt.Event != "payment.authorized" {
		log.Printf("[payment][usecase] webhook event ignored event=%s", evt.Event)
		return nil
	}
	if evt.Data.GatewayPaymentID == "" {
		return ErrInvalidWebhook
	}

	log.Printf("[payment][usecase] webhook event accepted event=%s gateway_payment_id=%s", evt.Event, evt.Data.GatewayPaymentID)
	return u.reconcile(ctx, reconcileInput{
		GatewayOrderID:   evt.Data.GatewayOrderID,
		GatewayPaymentID: evt.Data.GatewayPaymentID,
		OrderRef:         evt.Data.Reference,
		Method:           evt.Data.Method,
		Amount:           evt.Data.Amount,
		Currency:         evt.Data.Currency,
		Source:           entities.PaymentSourceWebhook,
	})
}

type reconcileInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	OrderRef         string
	Method           string
	Amount           float64
	Currency         string
	Source           entities.PaymentSource
}

// reconcile applies one authenticity-confirmed success event. The verified
// flip is the idempotency gate: its write is conditioned on verified still
// being false, so duplicated deliveries collapse to a single mutation. The
// order transition that follows may lose a race with a concurrent duplicate;
// that is expected and swallowed, with the payment still committed for audit.
func (u *PaymentUseCase) reconcile(ctx context.Context, in reconcileInput) error {
	existing, err := u.payments.GetByGatewayPaymentID(ctx, in.GatewayPaymentID)
	if err != nil {
		return err
	}
	if existing.ID != "" && existing.Verified {
		log.Printf("[payment][usecase] duplicate delivery gateway_payment_id=%s payment_id=%s", in.GatewayPaymentID, existing.ID)
		// Self-heal: if an earlier delivery verified the payment but failed
		// before the order advanced, retry the transition. The conditional
		// write keeps this idempotent.
		return u.advanceOrder(ctx, existing.OrderID, in)
	}

	p, err := u.payments.GetByGatewayOrderID(ctx, in.GatewayOrderID)
	if err != nil {
		return err
	}
	if p.ID == "" {
		// Webhook for a session this instance never recorded. The gateway
		// payment reference doubles as the record ID so two concurrent
		// deliveries cannot both create it.
		if in.OrderRef == "" {
			log.Printf("[payment][usecase] webhook for unknown session, no order reference gateway_order_id=%s", in.GatewayOrderID)
			return ErrPaymentNotFound
		}
		p = entities.NewPayment(in.GatewayPaymentID, in.OrderRef, in.GatewayOrderID, in.Amount, in.Currency, in.Source)
	}

	// At most one payment record per order ever reaches verified. A success
	// event for a second checkout session on an already-paid order is kept
	// for audit, flagged as a refund candidate instead of verified.
	siblings, err := u.payments.ListByOrderID(ctx, p.OrderID)
	if err != nil {
		return err
	}
	for _, s := range siblings {
		if s.Verified && s.GatewayPaymentID != in.GatewayPaymentID {
			log.Printf("[payment][usecase] second success for paid order order_id=%s gateway_payment_id=%s verified_by=%s", p.OrderID, in.GatewayPaymentID, s.GatewayPaymentID)
			p.MarkDuplicate(in.GatewayPaymentID, in.Source, "order already paid by "+s.GatewayPaymentID+", refund candidate")
			if p.ID == in.GatewayPaymentID {
				_, err = u.payments.Create(ctx, p)
				if errors.Is(err, interfaces.ErrPaymentExists) {
					err = nil
				}
			} else {
				_, err = u.payments.Save(ctx, p)
			}
			if err != nil {
				return err
			}
			return u.advanceOrder(ctx, p.OrderID, in)
		}
	}

	p.MarkSuccess(in.GatewayPaymentID, in.Method, in.Source, "payment verified")

	if p.ID == in.GatewayPaymentID {
		_, err = u.payments.Create(ctx, p)
		if errors.Is(err, interfaces.ErrPaymentExists) {
			log.Printf("[payment][usecase] lost create race, duplicate delivery gateway_payment_id=%s", in.GatewayPaymentID)
			return u.advanceOrder(ctx, p.OrderID, in)
		}
	} else {
		_, err = u.payments.SaveVerified(ctx, p)
		if errors.Is(err, interfaces.ErrPaymentAlreadyVerified) {
			log.Printf("[payment][usecase] lost verify race, duplicate delivery gateway_payment_id=%s", in.GatewayPaymentID)
			return u.advanceOrder(ctx, p.OrderID, in)
		}
	}
	if err != nil {
		return err
	}

	log.Printf("[payment][usecase] payment verified payment_id=%s order_id=%s source=%s", p.ID, p.OrderID, in.Source)
	return u.advanceOrder(ctx, p.OrderID, in)
}

// advanceOrder moves the order to READY_FOR_PICKUP. A stale or invalid
// transition here signals a harmless race with another successful delivery,
// not a caller-visible problem.
func (u *PaymentUseCase) advanceOrder(ctx context.Context, orderID string, in reconcileInput) error {
	_, err := u.orders.Transition(ctx, orderID, entities.OrderStatusReadyForPickup, string(in.Source), "payment verified", map[string]string{
		"gateway_payment_id": in.GatewayPaymentID,
	})
	if err != nil {
		if errors.Is(err, ErrStaleTransition) || errors.Is(err, entities.ErrInvalidTransition) {
			log.Printf("[payment][usecase] order already advanced order_id=%s gateway_payment_id=%s", orderID, in.GatewayPaymentID)
			return nil
		}
		return err
	}
	return nil
}

// recordFailure marks the session's payment record FAILURE, best effort.
func (u *PaymentUseCase) recordFailure(ctx context.Context, gatewayOrderID string, source entities.PaymentSource, reason string) {
	p, err := u.payments.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil || p.ID == "" || p.Verified {
		return
	}
	p.MarkFailure(source, reason)
	if _, err := u.payments.Save(ctx, p); err != nil {
		log.Printf("[payment][usecase] failure mark failed gateway_order_id=%s err=%v", gatewayOrderID, err)
	}
}

// GetLatestByOrderID returns the most recent payment attempt for the owner's
// order (receipt view).
func (u *PaymentUseCase) GetLatestByOrderID(ctx context.Context, userID, orderID string) (entities.Payment, error) {
	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return entities.Payment{}, err
	}
	if order.UserID != strings.TrimSpace(userID) {
		return entities.Payment{}, ErrNotOrderOwner
	}

	payments, err := u.payments.ListByOrderID(ctx, orderID)
	if err != nil {
		return entities.Payment{}, err
	}
	if len(payments) == 0 {
		return entities.Payment{}, ErrPaymentNotFound
	}

	latest := payments[0]
	for _, p := range payments[1:] {
		if p.CreatedAt.After(latest.CreatedAt) {
			latest = p
		}
	}
	return latest, nil
}

// checkSignature compares the caller-presented hex HMAC against one computed
// locally over the exact payload bytes, in constant time.
func (u *PaymentUseCase) checkSignature(secret string, payload []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
