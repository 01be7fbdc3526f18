package usecase

import (
	"context"
	"errors"
	"log"
	"strings"

	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase/interfaces"
)

// ErrInvalidPickupCode deliberately covers every mismatch case: wrong code,
// right code on the wrong machine, and already-consumed code. A machine (or
// an attacker driving one) must not be able to tell which happened.
var ErrInvalidPickupCode = errors.New("invalid pickup code")

// IMachineUseCase coordinates physical dispensing against ready orders.

type IMachineUseCase interface {
	Start(ctx context.Context, machineID, pickupCode string) (entities.Order, entities.Machine, error)
	DispenseComplete(ctx context.Context, orderID string) (entities.Order, error)
	GetByCode(ctx context.Context, machineID string) (entities.Machine, error)
}

type MachineUseCase struct {
	machines interfaces.IMachineRepository
	orders   IOrderUseCase
	codes    interfaces.IOrderRepository
}

var _ IMachineUseCase = (*MachineUseCase)(nil)

func NewMachineUseCase(machines interfaces.IMachineRepository, orders IOrderUseCase, codes interfaces.IOrderRepository) *MachineUseCase {
	return &MachineUseCase{machines: machines, orders: orders, codes: codes}
}

// Start validates a presented pickup code against a ready order on this
// machine and moves the order to PREPARING; the code is consumed at that
// transition, atomically, so a double scan of the same code yields exactly
// one start.
func (u *MachineUseCase) Start(ctx context.Context, machineID, pickupCode string) (entities.Order, entities.Machine, error) {
	machineID = strings.TrimSpace(machineID)
	pickupCode = strings.TrimSpace(pickupCode)
	log.Printf("[machine][usecase] start request machine_id=%s has_code=%t", machineID, pickupCode != "")

	machine, err := u.machines.GetByCode(ctx, machineID)
	if err != nil {
		return entities.Order{}, entities.Machine{}, err
	}
	if machine.Code == "" {
		return entities.Order{}, entities.Machine{}, ErrMachineNotFound
	}
	if !machine.IsActive {
		log.Printf("[machine][usecase] start attempt on inactive machine machine_id=%s", machineID)
		return entities.Order{}, entities.Machine{}, ErrMachineInactive
	}
	if pickupCode == "" {
		return entities.Order{}, entities.Machine{}, ErrInvalidPickupCode
	}

	orderID, err := u.codes.ResolvePickupCode(ctx, machineID, pickupCode)
	if err != nil {
		return entities.Order{}, entities.Machine{}, err
	}
	if orderID == "" {
		log.Printf("[machine][usecase] pickup code rejected machine_id=%s", machineID)
		return entities.Order{}, entities.Machine{}, ErrInvalidPickupCode
	}

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return entities.Order{}, entities.Machine{}, ErrInvalidPickupCode
		}
		return entities.Order{}, entities.Machine{}, err
	}
	if order.MachineID != machineID || order.Status != entities.OrderStatusReadyForPickup || order.PickupCode != pickupCode {
		log.Printf("[machine][usecase] pickup code state mismatch machine_id=%s order_id=%s status=%s", machineID, order.ID, order.Status)
		return entities.Order{}, entities.Machine{}, ErrInvalidPickupCode
	}

	started, err := u.orders.Transition(ctx, order.ID, entities.OrderStatusPreparing, "machine", "pickup code accepted", map[string]string{
		"machine_id": machineID,
	})
	if err != nil {
		// A concurrent scan of the same code consumed it first.
		if errors.Is(err, ErrStaleTransition) || errors.Is(err, entities.ErrInvalidTransition) {
			log.Printf("[machine][usecase] lost start race machine_id=%s order_id=%s", machineID, order.ID)
			return entities.Order{}, entities.Machine{}, ErrInvalidPickupCode
		}
		return entities.Order{}, entities.Machine{}, err
	}

	if err := u.machines.SetStatus(ctx, machineID, entities.MachineStatusPreparing, started.ID); err != nil {
		log.Printf("[machine][usecase] machine status update failed machine_id=%s err=%v", machineID, err)
	}
	machine.Status = entities.MachineStatusPreparing
	machine.CurrentOrderID = started.ID

	log.Printf("[machine][usecase] start success machine_id=%s order_id=%s", machineID, started.ID)
	return started, machine, nil
}

// DispenseComplete marks a PREPARING order COMPLETED once the machine reports
// the dispense done. A second report for the same order hits the now-stale
// state and is rejected, not double-applied.
func (u *MachineUseCase) DispenseComplete(ctx context.Context, orderID string) (entities.Order, error) {
	log.Printf("[machine][usecase] dispense-complete request order_id=%s", orderID)

	order, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if order.Status != entities.OrderStatusPreparing {
		log.Printf("[machine][usecase] dispense-complete for non-preparing order order_id=%s status=%s", orderID, order.Status)
		return entities.Order{}, entities.ErrInvalidTransition
	}

	completed, err := u.orders.Transition(ctx, orderID, entities.OrderStatusCompleted, "machine", "dispense complete", nil)
	if err != nil {
		if errors.Is(err, ErrStaleTransition) {
			return entities.Order{}, entities.ErrInvalidTransition
		}
		return entities.Order{}, err
	}

	if err := u.machines.SetStatus(ctx, completed.MachineID, entities.MachineStatusIdle, ""); err != nil {
		log.Printf("[machine][usecase] machine status reset failed machine_id=%s err=%v", completed.MachineID, err)
	}

	log.Printf("[machine][usecase] dispense-complete success order_id=%s machine_id=%s", completed.ID, completed.MachineID)
	return completed, nil
}

// GetByCode returns public machine info for the storefront QR page.
func (u *MachineUseCase) GetByCode(ctx context.Context, machineID string) (entities.Machine, error) {
	machine, err := u.machines.GetByCode(ctx, strings.TrimSpace(machineID))
	if err != nil {
		return entities.Machine{}, err
	}
	if machine.Code == "" {
		return entities.Machine{}, ErrMachineNotFound
	}
	return machine, nil
}
