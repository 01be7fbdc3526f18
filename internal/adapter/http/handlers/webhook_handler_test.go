package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vendomat/internal/adapter/http/handlers/mocks"
	"vendomat/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func webhookRouter(t *testing.T) (*mocks.MockIPaymentUseCase, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIPaymentUseCase(ctrl)
	h := NewWebhookHandler(uc)

	r := gin.New()
	r.POST("/webhooks/payment", h.HandlePaymentWebhook)
	return uc, r
}

func postWebhook(r *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(WebhookSignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler_HandlePaymentWebhook(t *testing.T) {
	body := `{"event":"payment.captured","data":{"gateway_payment_id":"gp-1"}}`

	t.Run("processed delivery acks", func(t *testing.T) {
		uc, r := webhookRouter(t)
		uc.EXPECT().HandleWebhook(gomock.Any(), []byte(body), "sig").Return(nil)

		w := postWebhook(r, body, "sig")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"success":true`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		uc, r := webhookRouter(t)
		uc.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), "bad").Return(usecase.ErrInvalidSignature)

		w := postWebhook(r, body, "bad")
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"success":false`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("unresolvable delivery still acks", func(t *testing.T) {
		for _, cause := range []error{usecase.ErrInvalidWebhook, usecase.ErrPaymentNotFound} {
			uc, r := webhookRouter(t)
			uc.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), "sig").Return(cause)

			w := postWebhook(r, body, "sig")
			if w.Code != http.StatusOK {
				t.Fatalf("%v: expected 200 so the gateway stops retrying, got %d", cause, w.Code)
			}
		}
	})

	t.Run("transient failure asks for a retry", func(t *testing.T) {
		uc, r := webhookRouter(t)
		uc.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), "sig").Return(errors.New("dynamodb unavailable"))

		w := postWebhook(r, body, "sig")
		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", w.Code)
		}
	})
}
