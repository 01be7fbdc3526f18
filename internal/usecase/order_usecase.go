package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"vendomat/internal/domain/entities"
	"vendomat/internal/usecase/interfaces"

	"github.com/google/uuid"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrMachineNotFound   = errors.New("machine not found")
	ErrMachineInactive   = errors.New("machine is currently not available")
	ErrInvalidOrderItems = errors.New("invalid order items")
	ErrItemNotFound      = errors.New("item not found")
	ErrItemUnavailable   = errors.New("item is currently unavailable")
	ErrActiveOrderExists = errors.New("active order exists")
	ErrNotOrderOwner     = errors.New("order does not belong to user")
	ErrOrderNotReady     = errors.New("order is not ready for pickup")

	// ErrStaleTransition signals a duplicated delivery of an event that has
	// already been applied. Webhook paths treat it as success.
	ErrStaleTransition = errors.New("stale order status transition")
)

// blockingMessages gives the owner an actionable reason per blocking state.
var blockingMessages = map[entities.OrderStatus]string{
	entities.OrderStatusPending:        "you have a pending payment, complete or cancel it first",
	entities.OrderStatusReadyForPickup: "your order is ready for pickup, collect it before ordering again",
	entities.OrderStatusPreparing:      "your order is being prepared, wait for completion before ordering again",
}

const pickupCodeMintAttempts = 5

// OrderLineInput is one requested catalog item with quantity.
type OrderLineInput struct {
	ItemID   string
	Quantity int
}

// IOrderUseCase is the order lifecycle engine. Transition is the single
// mutation path for order status: every status change in the system, whatever
// actor drives it, goes through it.

type IOrderUseCase interface {
	Create(ctx context.Context, userID, machineID string, lines []OrderLineInput) (entities.Order, error)
	GetByID(ctx context.Context, id string) (entities.Order, error)
	Transition(ctx context.Context, orderID string, target entities.OrderStatus, actor, reason string, metadata map[string]string) (entities.Order, error)
	Cancel(ctx context.Context, orderID, actor, reason string) (entities.Order, error)

	GetLatestByUserID(ctx context.Context, userID string) (entities.Order, error)
	GetPickupCode(ctx context.Context, userID string) (entities.Order, error)

	CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error)
}

type OrderUseCase struct {
	orders   interfaces.IOrderRepository
	items    interfaces.IItemRepository
	machines interfaces.IMachineRepository
}

var _ IOrderUseCase = (*OrderUseCase)(nil)

func NewOrderUseCase(orders interfaces.IOrderRepository, items interfaces.IItemRepository, machines interfaces.IMachineRepository) *OrderUseCase {
	return &OrderUseCase{orders: orders, items: items, machines: machines}
}

// Create places a PENDING order: validates the machine, enforces the one
// blocking order per user rule, and freezes the amount from current catalog
// prices. The frozen amount never changes, even if the catalog is edited
// afterwards.
func (u *OrderUseCase) Create(ctx context.Context, userID, machineID string, lines []OrderLineInput) (entities.Order, error) {
	userID = strings.TrimSpace(userID)
	machineID = strings.TrimSpace(machineID)
	log.Printf("[order][usecase] create start uid=%s machine_id=%s lines=%d", userID, machineID, len(lines))

	if userID == "" {
		return entities.Order{}, ErrNotOrderOwner
	}
	if machineID == "" {
		return entities.Order{}, ErrMachineNotFound
	}
	if len(lines) == 0 {
		return entities.Order{}, ErrInvalidOrderItems
	}
	for _, l := range lines {
		if strings.TrimSpace(l.ItemID) == "" || l.Quantity <= 0 {
			return entities.Order{}, ErrInvalidOrderItems
		}
	}

	machine, err := u.machines.GetByCode(ctx, machineID)
	if err != nil {
		return entities.Order{}, err
	}
	if machine.Code == "" {
		log.Printf("[order][usecase] machine not found machine_id=%s", machineID)
		return entities.Order{}, ErrMachineNotFound
	}
	if !machine.IsActive {
		log.Printf("[order][usecase] order attempt on inactive machine machine_id=%s uid=%s", machineID, userID)
		return entities.Order{}, ErrMachineInactive
	}

	blocking, err := u.orders.GetBlockingByUserID(ctx, userID)
	if err != nil {
		return entities.Order{}, err
	}
	if blocking.ID != "" {
		log.Printf("[order][usecase] blocking order exists uid=%s order_id=%s status=%s", userID, blocking.ID, blocking.Status)
		msg := blockingMessages[blocking.Status]
		if msg == "" {
			msg = "you have an active order, complete it first"
		}
		return entities.Order{}, fmt.Errorf("%w: %s", ErrActiveOrderExists, msg)
	}

	var price, gst float64
	orderLines := make([]entities.OrderLine, 0, len(lines))
	for _, l := range lines {
		item, err := u.items.GetByID(ctx, l.ItemID)
		if err != nil {
			return entities.Order{}, err
		}
		if item.ID == "" {
			log.Printf("[order][usecase] item not found item_id=%s uid=%s", l.ItemID, userID)
			return entities.Order{}, fmt.Errorf("%w: %s", ErrItemNotFound, l.ItemID)
		}
		if !item.IsAvailable {
			log.Printf("[order][usecase] unavailable item item_id=%s name=%s uid=%s", item.ID, item.Name, userID)
			return entities.Order{}, fmt.Errorf("%w: %s", ErrItemUnavailable, item.Name)
		}

		price += item.Price * float64(l.Quantity)
		gst += item.GST * float64(l.Quantity)
		orderLines = append(orderLines, entities.OrderLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Quantity:  l.Quantity,
			UnitPrice: item.Price,
			UnitGST:   item.GST,
		})
	}

	amount := entities.Amount{Price: price, GST: gst, Total: price + gst}
	order := entities.NewOrder(uuid.NewString(), userID, machine.Code, amount, orderLines)

	created, err := u.orders.Create(ctx, order)
	if err != nil {
		log.Printf("[order][usecase] create failed uid=%s err=%v", userID, err)
		return entities.Order{}, err
	}
	log.Printf("[order][usecase] create success order_id=%s uid=%s total=%.2f", created.ID, userID, amount.Total)
	return created, nil
}

func (u *OrderUseCase) GetByID(ctx context.Context, id string) (entities.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return entities.Order{}, ErrOrderNotFound
	}
	order, err := u.orders.GetByID(ctx, id)
	if err != nil {
		return entities.Order{}, err
	}
	if order.ID == "" {
		return entities.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// Transition drives the order state machine: load, validate against the
// transition table, apply side effects (pickup-code mint/consume, timestamps,
// history) and persist them as one conditional write. Exactly one of two
// concurrent attempts can succeed; the loser sees the post-transition state
// and is reported as stale or invalid.
func (u *OrderUseCase) Transition(ctx context.Context, orderID string, target entities.OrderStatus, actor, reason string, metadata map[string]string) (entities.Order, error) {
	order, err := u.GetByID(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	consumedCode := order.PickupCode

	if err := order.ApplyStatus(target, actor, reason, metadata); err != nil {
		if entities.IsStaleTransition(order.Status, target) {
			log.Printf("[order][usecase] stale transition order_id=%s current=%s target=%s actor=%s", orderID, order.Status, target, actor)
			return order, ErrStaleTransition
		}
		log.Printf("[order][usecase] invalid transition order_id=%s current=%s target=%s actor=%s", orderID, order.Status, target, actor)
		return entities.Order{}, err
	}
	expected := order.Version

	var saved entities.Order
	switch target {
	case entities.OrderStatusReadyForPickup:
		saved, err = u.saveReadyForPickup(ctx, order, expected)
	case entities.OrderStatusPreparing, entities.OrderStatusCancelled:
		// ApplyStatus cleared the code on the entity; the repository still
		// needs it to release the per-machine uniqueness claim. PREPARING
		// consumes the code, a cancel of a ready order discards it; either
		// way the claim row must not outlive the order's ready state.
		saved, err = u.orders.SaveTransitionReleasingCode(ctx, order, expected, consumedCode)
	default:
		saved, err = u.orders.SaveTransition(ctx, order, expected)
	}

	if err != nil {
		if errors.Is(err, interfaces.ErrVersionConflict) {
			return u.resolveConflict(ctx, orderID, target, actor)
		}
		log.Printf("[order][usecase] transition save failed order_id=%s target=%s err=%v", orderID, target, err)
		return entities.Order{}, err
	}

	log.Printf("[order][usecase] transition applied order_id=%s status=%s actor=%s version=%d", saved.ID, saved.Status, actor, saved.Version)
	return saved, nil
}

// saveReadyForPickup mints a pickup code unique among active codes on the
// order's machine and persists code claim and status change atomically.
func (u *OrderUseCase) saveReadyForPickup(ctx context.Context, order entities.Order, expected int64) (entities.Order, error) {
	for attempt := 0; attempt < pickupCodeMintAttempts; attempt++ {
		code, err := mintPickupCode()
		if err != nil {
			return entities.Order{}, err
		}
		order.PickupCode = code

		saved, err := u.orders.SaveTransitionClaimingCode(ctx, order, expected)
		if errors.Is(err, interfaces.ErrPickupCodeTaken) {
			log.Printf("[order][usecase] pickup code collision order_id=%s machine_id=%s attempt=%d", order.ID, order.MachineID, attempt+1)
			continue
		}
		if err != nil {
			return entities.Order{}, err
		}
		return saved, nil
	}
	return entities.Order{}, fmt.Errorf("could not mint a unique pickup code for machine %s", order.MachineID)
}

// resolveConflict re-reads after a lost conditional write and classifies the
// outcome: the concurrent winner already applied this event (stale) or the
// order moved somewhere the event no longer fits (invalid).
func (u *OrderUseCase) resolveConflict(ctx context.Context, orderID string, target entities.OrderStatus, actor string) (entities.Order, error) {
	current, err := u.orders.GetByID(ctx, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if entities.IsStaleTransition(current.Status, target) {
		log.Printf("[order][usecase] lost transition race, already applied order_id=%s status=%s target=%s actor=%s", orderID, current.Status, target, actor)
		return current, ErrStaleTransition
	}
	log.Printf("[order][usecase] lost transition race, now invalid order_id=%s status=%s target=%s actor=%s", orderID, current.Status, target, actor)
	return entities.Order{}, entities.ErrInvalidTransition
}

// Cancel is the administrative override: any non-terminal order can be
// cancelled.
func (u *OrderUseCase) Cancel(ctx context.Context, orderID, actor, reason string) (entities.Order, error) {
	return u.Transition(ctx, orderID, entities.OrderStatusCancelled, actor, reason, nil)
}

func (u *OrderUseCase) GetLatestByUserID(ctx context.Context, userID string) (entities.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.Order{}, ErrNotOrderOwner
	}
	order, err := u.orders.GetLatestByUserID(ctx, userID)
	if err != nil {
		return entities.Order{}, err
	}
	if order.ID == "" {
		return entities.Order{}, ErrOrderNotFound
	}
	return order, nil
}

// GetPickupCode returns the owner's latest order when, and only when, it is
// awaiting pickup. The code is returned to the authenticated owner and never
// written to logs.
func (u *OrderUseCase) GetPickupCode(ctx context.Context, userID string) (entities.Order, error) {
	order, err := u.GetLatestByUserID(ctx, userID)
	if err != nil {
		return entities.Order{}, err
	}
	if order.Status != entities.OrderStatusReadyForPickup || order.PickupCode == "" {
		log.Printf("[order][usecase] pickup code requested for non-ready order order_id=%s status=%s", order.ID, order.Status)
		return entities.Order{}, ErrOrderNotReady
	}
	return order, nil
}

// CancelStalePending is called by the background sweeper: PENDING orders that
// never saw a successful payment inside the window are cancelled through the
// normal transition path. Per-order races are tolerated; an order paid during
// the sweep simply rejects the cancel.
func (u *OrderUseCase) CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := u.orders.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	cancelled := 0
	for _, o := range stale {
		// Reload and cancel only while still PENDING. An administrative
		// Cancel may take a paid order down; the sweeper must not.
		order, err := u.orders.GetByID(ctx, o.ID)
		if err != nil {
			log.Printf("[order][usecase] sweep reload failed order_id=%s err=%v", o.ID, err)
			continue
		}
		if order.Status != entities.OrderStatusPending {
			continue
		}
		expected := order.Version
		if err := order.ApplyStatus(entities.OrderStatusCancelled, "system", "payment window expired", nil); err != nil {
			continue
		}
		if _, err := u.orders.SaveTransition(ctx, order, expected); err != nil {
			// A payment that lands between the reload and the write wins
			// the conditional check; skip the order.
			if !errors.Is(err, interfaces.ErrVersionConflict) {
				log.Printf("[order][usecase] sweep cancel failed order_id=%s err=%v", o.ID, err)
			}
			continue
		}
		cancelled++
	}
	log.Printf("[order][usecase] sweep done scanned=%d cancelled=%d cutoff=%s", len(stale), cancelled, cutoff.Format(time.RFC3339))
	return cancelled, nil
}

// mintPickupCode draws a 4-digit code from crypto/rand. Uniqueness is not
// guaranteed here; the conditional claim on the pickup-codes table is, scoped
// per machine.
func mintPickupCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}
