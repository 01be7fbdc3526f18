package interfaces

import (
	"context"

	"vendomat/internal/domain/entities"
)

// IMachineRepository abstracts DynamoDB persistence for Machine. Machine
// registration and credentials are out of scope; the core reads identity and
// the active flag, and maintains the display status tag.
type IMachineRepository interface {
	GetByCode(ctx context.Context, code string) (entities.Machine, error)
	SetStatus(ctx context.Context, code string, status entities.MachineStatus, currentOrderID string) error
}
