package interfaces

import (
	"context"
	"errors"

	"vendomat/internal/domain/entities"
)

// ErrPaymentAlreadyVerified is returned when a verified write finds the
// record already verified: a duplicate delivery, not a failure.
var ErrPaymentAlreadyVerified = errors.New("payment already verified")

// ErrPaymentExists is returned when creating a payment record whose ID is
// already taken (two concurrent webhook deliveries for an unknown session).
var ErrPaymentExists = errors.New("payment record already exists")

// IPaymentRepository abstracts DynamoDB persistence for Payment.
type IPaymentRepository interface {
	Create(ctx context.Context, p entities.Payment) (entities.Payment, error)
	GetByID(ctx context.Context, id string) (entities.Payment, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (entities.Payment, error)
	GetByGatewayPaymentID(ctx context.Context, gatewayPaymentID string) (entities.Payment, error)
	ListByOrderID(ctx context.Context, orderID string) ([]entities.Payment, error)

	// SaveVerified persists a SUCCESS/verified payment; the write is
	// conditioned on verified still being false.
	SaveVerified(ctx context.Context, p entities.Payment) (entities.Payment, error)
	// Save persists non-verifying updates (failure marks).
	Save(ctx context.Context, p entities.Payment) (entities.Payment, error)
}
