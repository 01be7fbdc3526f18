package entities

import (
	"errors"
	"time"
)

// OrderStatus represents the externally observable lifecycle state of an order.
//
// Domain notes:
//   - "paid" and "ready" are deliberately collapsed into a single
//     READY_FOR_PICKUP state: a successfully paid order is immediately ready
//     for pickup and carries an active pickup code.
//   - The transition table below is the single source of truth; handlers and
//     repositories never compare or assign status strings directly.

type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

var ErrInvalidTransition = errors.New("invalid order status transition")

var validNext = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending:        {OrderStatusReadyForPickup: true, OrderStatusCancelled: true},
	OrderStatusReadyForPickup: {OrderStatusPreparing: true, OrderStatusCancelled: true},
	OrderStatusPreparing:      {OrderStatusCompleted: true, OrderStatusCancelled: true},
	OrderStatusCompleted:      {},
	OrderStatusCancelled:      {},
}

// statusRank orders the success path so duplicated deliveries of an already
// applied event can be told apart from genuinely illegal transitions.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:        0,
	OrderStatusReadyForPickup: 1,
	OrderStatusPreparing:      2,
	OrderStatusCompleted:      3,
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

// IsStaleTransition reports whether target is at or behind current on the
// success path, i.e. the requested event has already been applied.
func IsStaleTransition(current, target OrderStatus) bool {
	cr, ok := statusRank[current]
	if !ok {
		return false
	}
	tr, ok := statusRank[target]
	if !ok {
		return false
	}
	return tr <= cr
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsBlocking reports whether an order in this state prevents its owner from
// placing another order.
func (s OrderStatus) IsBlocking() bool {
	return s == OrderStatusPending || s == OrderStatusReadyForPickup || s == OrderStatusPreparing
}

// Amount is the frozen price breakdown computed from the catalog at order
// creation time. Total is always Price + GST and never changes afterwards,
// even if catalog prices do.
type Amount struct {
	Price float64 `json:"price"`
	GST   float64 `json:"gst"`
	Total float64 `json:"total"`
}

// OrderLine snapshots a catalog item at order time.
type OrderLine struct {
	ItemID    string  `json:"item_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	UnitGST   float64 `json:"unit_gst"`
}

// StatusChange is one entry of the append-only order status history.
type StatusChange struct {
	Status    OrderStatus       `json:"status"`
	ChangedAt time.Time         `json:"changed_at"`
	ChangedBy string            `json:"changed_by"` // user/system/machine/webhook/admin
	Reason    string            `json:"reason,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Order is the order aggregate persisted in DynamoDB.
//
// Storage model:
//   - PK: id
//   - GSI1 (uid-index): uid, sort key created_at
//
// Version is an optimistic-concurrency counter, incremented on every
// transition; writes are conditioned on the expected prior value so two
// concurrent transitions can never both apply.
type Order struct {
	ID        string      `json:"id"`
	UserID    string      `json:"uid"`
	MachineID string      `json:"machine_id"`
	Amount    Amount      `json:"amount"`
	Lines     []OrderLine `json:"lines"`
	Status    OrderStatus `json:"status"`

	// PickupCode is non-empty only while the order is READY_FOR_PICKUP.
	PickupCode string `json:"pickup_code,omitempty"`
	Completed  bool   `json:"completed"`

	StatusHistory []StatusChange `json:"status_history"`
	Version       int64          `json:"version"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	PreparingAt *time.Time `json:"preparing_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewOrder builds a PENDING order with its history seeded.
func NewOrder(id, userID, machineID string, amount Amount, lines []OrderLine) Order {
	now := time.Now().UTC()
	return Order{
		ID:        id,
		UserID:    userID,
		MachineID: machineID,
		Amount:    amount,
		Lines:     lines,
		Status:    OrderStatusPending,
		Version:   0,
		CreatedAt: now,
		UpdatedAt: now,
		StatusHistory: []StatusChange{{
			Status:    OrderStatusPending,
			ChangedAt: now,
			ChangedBy: "user",
			Reason:    "order created",
		}},
	}
}

// ApplyStatus validates the transition against the table, applies its side
// effects and appends exactly one history entry. The order is not persisted;
// the caller is responsible for the conditional write.
func (o *Order) ApplyStatus(target OrderStatus, actor, reason string, metadata map[string]string) error {
	if !CanTransition(o.Status, target) {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	switch target {
	case OrderStatusReadyForPickup:
		o.PaidAt = &now
	case OrderStatusPreparing:
		// The pickup code is consumed exactly here.
		o.PickupCode = ""
		o.PreparingAt = &now
	case OrderStatusCompleted:
		o.Completed = true
		o.CompletedAt = &now
	case OrderStatusCancelled:
		// An unconsumed code dies with the order.
		o.PickupCode = ""
	}

	o.Status = target
	o.UpdatedAt = now
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    target,
		ChangedAt: now,
		ChangedBy: actor,
		Reason:    reason,
		Metadata:  metadata,
	})
	return nil
}

// CurrentStatusInfo returns the most recent history entry.
func (o Order) CurrentStatusInfo() StatusChange {
	if len(o.StatusHistory) == 0 {
		return StatusChange{Status: o.Status}
	}
	return o.StatusHistory[len(o.StatusHistory)-1]
}
