package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"vendomat/internal/adapter/http/handlers/mocks"
	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase"
	mock_interfaces "vendomat/internal/usecase/interfaces/mocks"

	"github.com/gin-gonic/gin"
	"go.uber.org/mock/gomock"
)

func machineRouter(t *testing.T, limiter *mock_interfaces.MockIRateLimiter) (*mocks.MockIMachineUseCase, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	uc := mocks.NewMockIMachineUseCase(ctrl)

	var h *MachineHandler
	if limiter != nil {
		h = NewMachineHandler(uc, limiter)
	} else {
		h = NewMachineHandler(uc, nil)
	}

	r := gin.New()
	r.POST("/machine/start", h.Start)
	r.POST("/machine/dispense-complete/:order_id", h.DispenseComplete)
	r.GET("/machines/:mid", h.GetByCode)
	return uc, r
}

func preparingMachine() entities.Machine {
	return entities.Machine{ID: "m-1", Code: "VM-1", Name: "Lobby", IsActive: true, Status: entities.MachineStatusPreparing, CurrentOrderID: "o-1"}
}

func TestMachineHandler_Start(t *testing.T) {
	startBody := `{"machine_id":"VM-1","pickup_code":"4321"}`

	t.Run("starts preparation", func(t *testing.T) {
		uc, r := machineRouter(t, nil)
		order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{}, nil)
		_ = order.ApplyStatus(entities.OrderStatusReadyForPickup, "webhook", "", nil)
		_ = order.ApplyStatus(entities.OrderStatusPreparing, "machine", "", nil)
		uc.EXPECT().Start(gomock.Any(), "VM-1", "4321").Return(order, preparingMachine(), nil)

		w := doJSON(r, http.MethodPost, "/machine/start", "", startBody)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
		}
		body := w.Body.String()
		if !strings.Contains(body, `"status":"PREPARING"`) || !strings.Contains(body, `"machine_status":"PREPARING"`) {
			t.Fatalf("unexpected body: %s", body)
		}
	})

	t.Run("invalid code stays generic", func(t *testing.T) {
		uc, r := machineRouter(t, nil)
		uc.EXPECT().Start(gomock.Any(), "VM-1", "4321").Return(entities.Order{}, entities.Machine{}, usecase.ErrInvalidPickupCode)

		w := doJSON(r, http.MethodPost, "/machine/start", "", startBody)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
		body := w.Body.String()
		if !strings.Contains(body, "INVALID_CODE") || !strings.Contains(body, "invalid code") {
			t.Fatalf("unexpected body: %s", body)
		}
		// The body must not leak whether the code exists elsewhere.
		if strings.Contains(body, "order") || strings.Contains(body, "machine") {
			t.Fatalf("rejection leaks details: %s", body)
		}
	})

	t.Run("malformed code rejected at binding", func(t *testing.T) {
		_, r := machineRouter(t, nil)
		w := doJSON(r, http.MethodPost, "/machine/start", "", `{"machine_id":"VM-1","pickup_code":"12ab"}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		limiter := mock_interfaces.NewMockIRateLimiter(ctrl)
		limiter.EXPECT().Allow(gomock.Any(), "machine:start:VM-1").Return(false, nil)
		_, r := machineRouter(t, limiter)

		w := doJSON(r, http.MethodPost, "/machine/start", "", startBody)
		if w.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "RATE_LIMITED") {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		limiter := mock_interfaces.NewMockIRateLimiter(ctrl)
		limiter.EXPECT().Allow(gomock.Any(), gomock.Any()).Return(true, errors.New("redis down"))
		uc, r := machineRouter(t, limiter)
		uc.EXPECT().Start(gomock.Any(), "VM-1", "4321").Return(entities.Order{ID: "o-1", Status: entities.OrderStatusPreparing}, preparingMachine(), nil)

		w := doJSON(r, http.MethodPost, "/machine/start", "", startBody)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 when the limiter is unavailable, got %d", w.Code)
		}
	})
}

func TestMachineHandler_DispenseComplete(t *testing.T) {
	t.Run("completes the order", func(t *testing.T) {
		uc, r := machineRouter(t, nil)
		order := entities.NewOrder("o-1", "u-1", "VM-1", entities.Amount{}, nil)
		_ = order.ApplyStatus(entities.OrderStatusReadyForPickup, "machine", "", nil)
		_ = order.ApplyStatus(entities.OrderStatusPreparing, "machine", "", nil)
		_ = order.ApplyStatus(entities.OrderStatusCompleted, "machine", "", nil)
		uc.EXPECT().DispenseComplete(gomock.Any(), "o-1").Return(order, nil)

		w := doJSON(r, http.MethodPost, "/machine/dispense-complete/o-1", "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"completed":true`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("double report conflicts", func(t *testing.T) {
		uc, r := machineRouter(t, nil)
		uc.EXPECT().DispenseComplete(gomock.Any(), "o-1").Return(entities.Order{}, entities.ErrInvalidTransition)

		w := doJSON(r, http.MethodPost, "/machine/dispense-complete/o-1", "", "")
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "INVALID_TRANSITION") {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})
}

func TestMachineHandler_GetByCode(t *testing.T) {
	t.Run("public machine view", func(t *testing.T) {
		uc, r := machineRouter(t, nil)
		uc.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(entities.Machine{Code: "VM-1", Name: "Lobby", IsActive: true, Status: entities.MachineStatusIdle}, nil)

		w := doJSON(r, http.MethodGet, "/machines/VM-1", "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"machine_id":"VM-1"`) {
			t.Fatalf("unexpected body: %s", w.Body.String())
		}
	})

	t.Run("unknown machine", func(t *testing.T) {
		uc, r := machineRouter(t, nil)
		uc.EXPECT().GetByCode(gomock.Any(), "VM-404").Return(entities.Machine{}, usecase.ErrMachineNotFound)

		w := doJSON(r, http.MethodGet, "/machines/VM-404", "", "")
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", w.Code)
		}
	})
}
