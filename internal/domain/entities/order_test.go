package entities

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusReadyForPickup, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPreparing, false},
		{OrderStatusPending, OrderStatusCompleted, false},
		{OrderStatusReadyForPickup, OrderStatusPreparing, true},
		{OrderStatusReadyForPickup, OrderStatusCancelled, true},
		{OrderStatusReadyForPickup, OrderStatusCompleted, false},
		{OrderStatusReadyForPickup, OrderStatusPending, false},
		{OrderStatusPreparing, OrderStatusCompleted, true},
		{OrderStatusPreparing, OrderStatusCancelled, true},
		{OrderStatusPreparing, OrderStatusReadyForPickup, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCompleted, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusReadyForPickup, false},
		{OrderStatusCancelled, OrderStatusCancelled, false},
	}

	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsStaleTransition(t *testing.T) {
	if !IsStaleTransition(OrderStatusReadyForPickup, OrderStatusReadyForPickup) {
		t.Fatalf("same status should be stale")
	}
	if !IsStaleTransition(OrderStatusCompleted, OrderStatusPreparing) {
		t.Fatalf("target behind current should be stale")
	}
	if IsStaleTransition(OrderStatusPending, OrderStatusReadyForPickup) {
		t.Fatalf("forward transition should not be stale")
	}
	if IsStaleTransition(OrderStatusCancelled, OrderStatusReadyForPickup) {
		t.Fatalf("cancelled is off the success path")
	}
	if IsStaleTransition(OrderStatusReadyForPickup, OrderStatusCancelled) {
		t.Fatalf("cancel is never stale")
	}
}

func TestOrderStatus_Flags(t *testing.T) {
	blocking := []OrderStatus{OrderStatusPending, OrderStatusReadyForPickup, OrderStatusPreparing}
	for _, s := range blocking {
		if !s.IsBlocking() {
			t.Fatalf("%s should block new orders", s)
		}
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	for _, s := range []OrderStatus{OrderStatusCompleted, OrderStatusCancelled} {
		if s.IsBlocking() {
			t.Fatalf("%s should not block new orders", s)
		}
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
}

func TestNewOrder(t *testing.T) {
	amount := Amount{Price: 60, GST: 3, Total: 63}
	o := NewOrder("o-1", "u-1", "VM-1", amount, []OrderLine{{ItemID: "i-1", Quantity: 2}})

	if o.Status != OrderStatusPending {
		t.Fatalf("expected PENDING, got %s", o.Status)
	}
	if o.Version != 0 {
		t.Fatalf("expected version 0, got %d", o.Version)
	}
	if len(o.StatusHistory) != 1 || o.StatusHistory[0].Status != OrderStatusPending {
		t.Fatalf("history should be seeded with PENDING: %+v", o.StatusHistory)
	}
	if o.StatusHistory[0].ChangedBy != "user" {
		t.Fatalf("creation actor should be user, got %s", o.StatusHistory[0].ChangedBy)
	}
	if o.Amount.Total != 63 {
		t.Fatalf("unexpected amount: %+v", o.Amount)
	}
}

func TestOrder_ApplyStatus(t *testing.T) {
	t.Run("rejects invalid transition", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		err := o.ApplyStatus(OrderStatusCompleted, "machine", "", nil)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
		if o.Status != OrderStatusPending || len(o.StatusHistory) != 1 {
			t.Fatalf("rejected transition must not mutate the order: %+v", o)
		}
	})

	t.Run("ready for pickup sets paid timestamp", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		if err := o.ApplyStatus(OrderStatusReadyForPickup, "webhook", "payment verified", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.PaidAt == nil {
			t.Fatalf("PaidAt should be set")
		}
		if len(o.StatusHistory) != 2 {
			t.Fatalf("exactly one history entry per transition, got %d", len(o.StatusHistory))
		}
		last := o.CurrentStatusInfo()
		if last.Status != OrderStatusReadyForPickup || last.ChangedBy != "webhook" {
			t.Fatalf("unexpected history entry: %+v", last)
		}
	})

	t.Run("preparing consumes the pickup code", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		_ = o.ApplyStatus(OrderStatusReadyForPickup, "webhook", "", nil)
		o.PickupCode = "4321"

		if err := o.ApplyStatus(OrderStatusPreparing, "machine", "", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.PickupCode != "" {
			t.Fatalf("pickup code must be cleared on PREPARING")
		}
		if o.PreparingAt == nil {
			t.Fatalf("PreparingAt should be set")
		}
	})

	t.Run("completed flips the completed flag", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		_ = o.ApplyStatus(OrderStatusReadyForPickup, "webhook", "", nil)
		_ = o.ApplyStatus(OrderStatusPreparing, "machine", "", nil)

		if err := o.ApplyStatus(OrderStatusCompleted, "machine", "dispense complete", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !o.Completed || o.CompletedAt == nil {
			t.Fatalf("completion side effects missing: %+v", o)
		}
		if len(o.StatusHistory) != 4 {
			t.Fatalf("expected 4 history entries, got %d", len(o.StatusHistory))
		}
	})

	t.Run("cancelling a ready order clears its code", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		_ = o.ApplyStatus(OrderStatusReadyForPickup, "webhook", "", nil)
		o.PickupCode = "4321"

		if err := o.ApplyStatus(OrderStatusCancelled, "admin", "customer request", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if o.PickupCode != "" {
			t.Fatalf("a code may only exist on a READY_FOR_PICKUP order, got %q", o.PickupCode)
		}
	})

	t.Run("no transition out of terminal states", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		_ = o.ApplyStatus(OrderStatusCancelled, "system", "payment window expired", nil)

		if err := o.ApplyStatus(OrderStatusReadyForPickup, "webhook", "", nil); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition, got %v", err)
		}
	})

	t.Run("history carries metadata", func(t *testing.T) {
		o := NewOrder("o-1", "u-1", "VM-1", Amount{}, nil)
		meta := map[string]string{"gateway_payment_id": "gp-1"}
		_ = o.ApplyStatus(OrderStatusReadyForPickup, "webhook", "payment verified", meta)

		last := o.CurrentStatusInfo()
		if last.Metadata["gateway_payment_id"] != "gp-1" {
			t.Fatalf("metadata not recorded: %+v", last)
		}
	})
}
