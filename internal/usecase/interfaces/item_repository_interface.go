package interfaces

import (
	"context"

	"vendomat/internal/domain/entities"
)

// IItemRepository abstracts catalog reads. The catalog itself is maintained
// elsewhere; order creation only resolves prices and availability.
type IItemRepository interface {
	GetByID(ctx context.Context, id string) (entities.Item, error)
}
