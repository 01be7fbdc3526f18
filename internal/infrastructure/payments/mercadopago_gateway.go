package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"vendomat/internal/usecase/interfaces"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
var ErrMercadoPagoGatewayNotConfigured = errors.New("mercado pago gateway not configured")

type MercadoPagoGateway struct {
	payments    payment.Client
	preferences preference.Client
	mockMode    bool
}

var _ interfaces.IPaymentGateway = (*MercadoPagoGateway)(nil)

func NewMercadoPagoGateway(accessToken string) (*MercadoPagoGateway, error) {
	if isPaymentGatewayMockEnabled() {
		log.Printf("[payment][gateway] mock mode enabled")
		return &MercadoPagoGateway{mockMode: true}, nil
	}

	if accessToken == "" {
		log.Printf("[payment][gateway] missing MERCADOPAGO_ACCESS_TOKEN")
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		log.Printf("[payment][gateway] failed creating sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[payment][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{
		payments:    payment.NewClient(cfg),
		preferences: preference.NewClient(cfg),
	}, nil
}

// CreateCheckoutSession opens a checkout preference; reference is our order
// ID and comes back on the payment as the external reference.
func (g *MercadoPagoGateway) CreateCheckoutSession(ctx context.Context, amount float64, currency, reference string) (interfaces.CheckoutSession, error) {
	if g != nil && g.mockMode {
		id := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
		log.Printf("[payment][gateway] mock session success gateway_order_id=%s", id)
		return interfaces.CheckoutSession{
			GatewayOrderID: id,
			CheckoutURL:    "https://checkout.local/session/" + id,
		}, nil
	}

	if g == nil || g.preferences == nil {
		log.Printf("[payment][gateway] gateway not configured")
		return interfaces.CheckoutSession{}, ErrMercadoPagoGatewayNotConfigured
	}
	log.Printf("[payment][gateway] session start reference=%s amount=%.2f", reference, amount)

	resp, err := g.preferences.Create(ctx, preference.Request{
		Items: []preference.ItemRequest{
			{
				Title:      "vending order " + reference,
				Quantity:   1,
				UnitPrice:  amount,
				CurrencyID: currency,
			},
		},
		ExternalReference: reference,
	})
	if err != nil {
		log.Printf("[payment][gateway] sdk preference create failed err=%v", err)
		return interfaces.CheckoutSession{}, err
	}
	log.Printf("[payment][gateway] session success gateway_order_id=%s", resp.ID)

	return interfaces.CheckoutSession{
		GatewayOrderID: resp.ID,
		CheckoutURL:    resp.InitPoint,
	}, nil
}

// FetchPayment pulls the authoritative payment state from the gateway.
func (g *MercadoPagoGateway) FetchPayment(ctx context.Context, gatewayPaymentID string) (interfaces.GatewayPayment, error) {
	if g != nil && g.mockMode {
		log.Printf("[payment][gateway] mock fetch success gateway_payment_id=%s", gatewayPaymentID)
		return interfaces.GatewayPayment{
			ID:     gatewayPaymentID,
			Status: "approved",
			Method: "mock",
		}, nil
	}

	if g == nil || g.payments == nil {
		log.Printf("[payment][gateway] gateway not configured")
		return interfaces.GatewayPayment{}, ErrMercadoPagoGatewayNotConfigured
	}

	id, err := strconv.Atoi(gatewayPaymentID)
	if err != nil {
		return interfaces.GatewayPayment{}, fmt.Errorf("invalid gateway payment id %q: %w", gatewayPaymentID, err)
	}

	resp, err := g.payments.Get(ctx, id)
	if err != nil {
		log.Printf("[payment][gateway] sdk payment get failed gateway_payment_id=%s err=%v", gatewayPaymentID, err)
		return interfaces.GatewayPayment{}, err
	}
	log.Printf("[payment][gateway] fetch success gateway_payment_id=%d status=%s", resp.ID, resp.Status)

	return interfaces.GatewayPayment{
		ID:       strconv.Itoa(resp.ID),
		OrderRef: resp.ExternalReference,
		Status:   resp.Status,
		Method:   resp.PaymentMethodID,
		Amount:   resp.TransactionAmount,
		Currency: resp.CurrencyID,
	}, nil
}

func isPaymentGatewayMockEnabled() bool {
	for _, key := range []string{"PAYMENT_GATEWAY_MOCK", "MERCADOPAGO_MOCK"} {
		v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		switch v {
		case "1", "true", "yes", "on", "mock":
			return true
		}
	}
	return false
}
