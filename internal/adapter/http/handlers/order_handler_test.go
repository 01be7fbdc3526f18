package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vendomat/internal/adapter/http/handlers/mocks"
	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func orderRouter(t *testing.T) (*mocks.MockIOrderUseCase, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIOrderUseCase(ctrl)
	h := NewOrderHandler(uc)

	r := gin.New()
	g := r.Group("/orders", RequireUser())
	g.POST("", h.Create)
	g.GET("/latest", h.Latest)
	g.GET("/pickup-code", h.PickupCode)
	g.GET("/preparing", h.Preparing)
	g.GET("/completed", h.Completed)
	return uc, r
}

func doJSON(r *gin.Engine, method, path, uid, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if uid != "" {
		req.Header.Set(UserIDHeader, uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("places an order", func(t *testing.T) {
		uc, r := orderRouter(t)
		order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{Price: 60, GST: 3, Total: 63}, nil)
		uc.EXPECT().Create(gomock.Any(), "u-1", "VM-1", []usecase.OrderLineInput{{ItemID: "i-1", Quantity: 2}}).Return(order, nil)

		w := doJSON(r, http.MethodPost, "/orders", "u-1", `{"machine_id":"VM-1","items":[{"id":"i-1","quantity":2}]}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d body=%s", w.Code, w.Body.String())
		}

		var resp map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response json: %v", err)
		}
		if resp["order_id"] != "o-1" || resp["status"] != "PENDING" || resp["total_amount"] != float64(63) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
		if _, ok := resp["pickup_code"]; ok {
			t.Fatalf("order view must never carry the pickup code")
		}
	})

	t.Run("rejects bad payload", func(t *testing.T) {
		_, r := orderRouter(t)
		w := doJSON(r, http.MethodPost, "/orders", "u-1", `{"machine_id":"VM-1","items":[]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "INVALID_REQUEST") {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("requires a user identity", func(t *testing.T) {
		_, r := orderRouter(t)
		w := doJSON(r, http.MethodPost, "/orders", "", `{"machine_id":"VM-1","items":[{"id":"i-1","quantity":1}]}`)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "UNAUTHENTICATED") {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("reports the blocking order", func(t *testing.T) {
		uc, r := orderRouter(t)
		uc.EXPECT().Create(gomock.Any(), "u-1", "VM-1", gomock.Any()).
			Return(entities.Order{}, fmt.Errorf("%w: your order is ready for pickup, collect it before ordering again", usecase.ErrActiveOrderExists))

		w := doJSON(r, http.MethodPost, "/orders", "u-1", `{"machine_id":"VM-1","items":[{"id":"i-1","quantity":1}]}`)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "ACTIVE_ORDER_EXISTS") || !strings.Contains(body, "ready for pickup") {
			t.Fatalf("unexpected body: %s", body)
		}
	})

	t.Run("maps unavailable items", func(t *testing.T) {
		uc, r := orderRouter(t)
		uc.EXPECT().Create(gomock.Any(), "u-1", "VM-1", gomock.Any()).
			Return(entities.Order{}, fmt.Errorf("%w: Samosa", usecase.ErrItemUnavailable))

		w := doJSON(r, http.MethodPost, "/orders", "u-1", `{"machine_id":"VM-1","items":[{"id":"i-1","quantity":1}]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "ITEM_UNAVAILABLE") {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestOrderHandler_PickupCode(t *testing.T) {
	t.Run("ready order", func(t *testing.T) {
		uc, r := orderRouter(t)
		order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{}, nil)
		_ = order.ApplyStatus(entities.OrderStatusReadyForPickup, "webhook", "", nil)
		order.PickupCode = "4321"
		uc.EXPECT().GetPickupCode(gomock.Any(), "u-1").Return(order, nil)

		w := doJSON(r, http.MethodGet, "/orders/pickup-code", "u-1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"pickup_code":"4321"`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("order not ready", func(t *testing.T) {
		uc, r := orderRouter(t)
		uc.EXPECT().GetPickupCode(gomock.Any(), "u-1").Return(entities.Order{}, usecase.ErrOrderNotReady)

		w := doJSON(r, http.MethodGet, "/orders/pickup-code", "u-1", "")
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "ORDER_NOT_READY") {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestOrderHandler_Flags(t *testing.T) {
	t.Run("no orders yet polls false", func(t *testing.T) {
		uc, r := orderRouter(t)
		uc.EXPECT().GetLatestByUserID(gomock.Any(), "u-1").Return(entities.Order{}, usecase.ErrOrderNotFound).Times(2)

		for _, path := range []string{"/orders/preparing", "/orders/completed"} {
			w := doJSON(r, http.MethodGet, path, "u-1", "")
			if w.Code != http.StatusOK {
				t.Fatalf("%s: expected 200, got %d", path, w.Code)
			}
			if !strings.Contains(w.Body.String(), `"value":false`) {
				t.Fatalf("%s: unexpected body: %s", path, w.Body.String())
			}
		}
	})

	t.Run("preparing order polls true", func(t *testing.T) {
		uc, r := orderRouter(t)
		order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{}, nil)
		_ = order.ApplyStatus(entities.OrderStatusReadyForPickup, "webhook", "", nil)
		_ = order.ApplyStatus(entities.OrderStatusPreparing, "machine", "", nil)
		uc.EXPECT().GetLatestByUserID(gomock.Any(), "u-1").Return(order, nil)

		w := doJSON(r, http.MethodGet, "/orders/preparing", "u-1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"value":true`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("completed order polls true", func(t *testing.T) {
		uc, r := orderRouter(t)
		order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{}, nil)
		_ = order.ApplyStatus(entities.OrderStatusReadyForPickup, "webhook", "", nil)
		_ = order.ApplyStatus(entities.OrderStatusPreparing, "machine", "", nil)
		_ = order.ApplyStatus(entities.OrderStatusCompleted, "machine", "", nil)
		uc.EXPECT().GetLatestByUserID(gomock.Any(), "u-1").Return(order, nil)

		w := doJSON(r, http.MethodGet, "/orders/completed", "u-1", "")
		if !strings.Contains(w.Body.String(), `"value":true`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestOrderHandler_Latest(t *testing.T) {
	uc, r := orderRouter(t)
	order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{Total: 63}, nil)
	uc.EXPECT().GetLatestByUserID(gomock.Any(), "u-1").Return(order, nil)

	w := doJSON(r, http.MethodGet, "/orders/latest", "u-1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"order_id":"o-1"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}
