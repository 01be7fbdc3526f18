package usecase

import (
	"context"
	"errors"
	"testing"

	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase/interfaces"
	mock_interfaces "vendomat/internal/usecase/interfaces/mocks"

	"go.uber.org/mock/gomock"
)

type machineMocks struct {
	machines *mock_interfaces.MockIMachineRepository
	orders   *mock_interfaces.MockIOrderRepository
	uc       *MachineUseCase
}

func newMachineMocks(t *testing.T) machineMocks {
	ctrl := gomock.NewController(t)
	machines := mock_interfaces.NewMockIMachineRepository(ctrl)
	orders := mock_interfaces.NewMockIOrderRepository(ctrl)
	items := mock_interfaces.NewMockIItemRepository(ctrl)

	orderUC := NewOrderUseCase(orders, items, machines)
	return machineMocks{machines: machines, orders: orders, uc: NewMachineUseCase(machines, orderUC, orders)}
}

func readyOrderOn(machineID, code string) entities.Order {
	o := entities.NewOrder("o-1", "u-1", machineID, entities.Amount{Total: 63}, nil)
	_ = o.ApplyStatus(entities.OrderStatusReadyForPickup, "webhook", "", nil)
	o.PickupCode = code
	o.Version = 1
	return o
}

func TestMachineUseCase_Start(t *testing.T) {
	t.Run("accepted code starts preparing and consumes the code", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(activeMachine("VM-1"), nil)
		m.orders.EXPECT().ResolvePickupCode(gomock.Any(), "VM-1", "4321").Return("o-1", nil)
		m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(readyOrderOn("VM-1", "4321"), nil).Times(2)
		m.orders.EXPECT().SaveTransitionReleasingCode(gomock.Any(), gomock.Any(), int64(1), "4321").DoAndReturn(
			func(_ context.Context, o entities.Order, expected int64, _ string) (entities.Order, error) {
				if o.Status != entities.OrderStatusPreparing || o.PickupCode != "" {
					t.Fatalf("expected PREPARING with a cleared code: %+v", o)
				}
				o.Version = expected + 1
				return o, nil
			},
		)
		m.machines.EXPECT().SetStatus(gomock.Any(), "VM-1", entities.MachineStatusPreparing, "o-1").Return(nil)

		order, machine, err := m.uc.Start(context.Background(), "VM-1", "4321")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.Status != entities.OrderStatusPreparing {
			t.Fatalf("expected PREPARING, got %s", order.Status)
		}
		if machine.Status != entities.MachineStatusPreparing || machine.CurrentOrderID != "o-1" {
			t.Fatalf("machine view should reflect the started order: %+v", machine)
		}
	})

	t.Run("empty code", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(activeMachine("VM-1"), nil)

		_, _, err := m.uc.Start(context.Background(), "VM-1", "  ")
		if !errors.Is(err, ErrInvalidPickupCode) {
			t.Fatalf("expected ErrInvalidPickupCode, got %v", err)
		}
	})

	t.Run("unknown code", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(activeMachine("VM-1"), nil)
		m.orders.EXPECT().ResolvePickupCode(gomock.Any(), "VM-1", "9999").Return("", nil)

		_, _, err := m.uc.Start(context.Background(), "VM-1", "9999")
		if !errors.Is(err, ErrInvalidPickupCode) {
			t.Fatalf("expected ErrInvalidPickupCode, got %v", err)
		}
	})

	t.Run("code pointing at another machine's order", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(activeMachine("VM-1"), nil)
		m.orders.EXPECT().ResolvePickupCode(gomock.Any(), "VM-1", "4321").Return("o-1", nil)
		m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(readyOrderOn("VM-2", "4321"), nil)

		_, _, err := m.uc.Start(context.Background(), "VM-1", "4321")
		if !errors.Is(err, ErrInvalidPickupCode) {
			t.Fatalf("expected ErrInvalidPickupCode, got %v", err)
		}
	})

	t.Run("double scan loses the race as invalid code", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(activeMachine("VM-1"), nil)
		m.orders.EXPECT().ResolvePickupCode(gomock.Any(), "VM-1", "4321").Return("o-1", nil)

		ready := readyOrderOn("VM-1", "4321")
		preparing := readyOrderOn("VM-1", "4321")
		_ = preparing.ApplyStatus(entities.OrderStatusPreparing, "machine", "", nil)
		preparing.Version = 2

		gomock.InOrder(
			m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(ready, nil),
			m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(ready, nil),
			m.orders.EXPECT().SaveTransitionReleasingCode(gomock.Any(), gomock.Any(), int64(1), "4321").
				Return(entities.Order{}, interfaces.ErrVersionConflict),
			m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(preparing, nil),
		)

		_, _, err := m.uc.Start(context.Background(), "VM-1", "4321")
		if !errors.Is(err, ErrInvalidPickupCode) {
			t.Fatalf("expected ErrInvalidPickupCode, got %v", err)
		}
	})

	t.Run("inactive machine", func(t *testing.T) {
		m := newMachineMocks(t)
		inactive := activeMachine("VM-1")
		inactive.IsActive = false
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(inactive, nil)

		_, _, err := m.uc.Start(context.Background(), "VM-1", "4321")
		if !errors.Is(err, ErrMachineInactive) {
			t.Fatalf("expected ErrMachineInactive, got %v", err)
		}
	})
}

func TestMachineUseCase_DispenseComplete(t *testing.T) {
	t.Run("completes and frees the machine", func(t *testing.T) {
		m := newMachineMocks(t)
		preparing := readyOrderOn("VM-1", "4321")
		_ = preparing.ApplyStatus(entities.OrderStatusPreparing, "machine", "", nil)
		preparing.Version = 2

		m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(preparing, nil).Times(2)
		m.orders.EXPECT().SaveTransition(gomock.Any(), gomock.Any(), int64(2)).DoAndReturn(
			func(_ context.Context, o entities.Order, expected int64) (entities.Order, error) {
				if o.Status != entities.OrderStatusCompleted || !o.Completed {
					t.Fatalf("expected a completed order: %+v", o)
				}
				o.Version = expected + 1
				return o, nil
			},
		)
		m.machines.EXPECT().SetStatus(gomock.Any(), "VM-1", entities.MachineStatusIdle, "").Return(nil)

		completed, err := m.uc.DispenseComplete(context.Background(), "o-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !completed.Completed || completed.CompletedAt == nil {
			t.Fatalf("completion flags not set: %+v", completed)
		}
	})

	t.Run("order not preparing", func(t *testing.T) {
		m := newMachineMocks(t)
		m.orders.EXPECT().GetByID(gomock.Any(), "o-1").Return(readyOrderOn("VM-1", "4321"), nil)

		_, err := m.uc.DispenseComplete(context.Background(), "o-1")
		if !errors.Is(err, entities.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})
}

func TestMachineUseCase_GetByCode(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-1").Return(activeMachine("VM-1"), nil)

		machine, err := m.uc.GetByCode(context.Background(), "VM-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if machine.Code != "VM-1" {
			t.Fatalf("expected VM-1, got %q", machine.Code)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		m := newMachineMocks(t)
		m.machines.EXPECT().GetByCode(gomock.Any(), "VM-404").Return(entities.Machine{}, nil)

		_, err := m.uc.GetByCode(context.Background(), "VM-404")
		if !errors.Is(err, ErrMachineNotFound) {
			t.Fatalf("expected ErrMachineNotFound, got %v", err)
		}
	})
}
