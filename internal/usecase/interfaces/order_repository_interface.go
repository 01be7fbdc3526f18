package interfaces

import (
	"context"
	"errors"
	"time"

	"vendomat/internal/domain/entities"
)

// ErrVersionConflict is returned when a transition write loses the race: the
// order changed between read and write and the conditional check failed.
var ErrVersionConflict = errors.New("order version conflict")

// ErrPickupCodeTaken is returned when the minted pickup code is already
// active for another order on the same machine.
var ErrPickupCodeTaken = errors.New("pickup code already active on machine")

// IOrderRepository abstracts DynamoDB persistence for Order.
//
// Every SaveTransition* write is conditioned on the expected prior version so
// that exactly one of two concurrent transition attempts succeeds. The
// ClaimingCode/ReleasingCode variants additionally write the pickup-codes
// table in the same transaction, which enforces per-machine code uniqueness
// and single consumption.
type IOrderRepository interface {
	Create(ctx context.Context, o entities.Order) (entities.Order, error)
	GetByID(ctx context.Context, id string) (entities.Order, error)
	GetLatestByUserID(ctx context.Context, userID string) (entities.Order, error)
	GetBlockingByUserID(ctx context.Context, userID string) (entities.Order, error)

	SaveTransition(ctx context.Context, o entities.Order, expectedVersion int64) (entities.Order, error)
	SaveTransitionClaimingCode(ctx context.Context, o entities.Order, expectedVersion int64) (entities.Order, error)
	SaveTransitionReleasingCode(ctx context.Context, o entities.Order, expectedVersion int64, code string) (entities.Order, error)

	ResolvePickupCode(ctx context.Context, machineID, code string) (orderID string, err error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]entities.Order, error)
}
