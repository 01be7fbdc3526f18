package request

import (
	"vendomat/internal/usecase"
)

// OrderItemRequest is one requested catalog item.
type OrderItemRequest struct {
	ID       string `json:"id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// OrderCreateRequest is the payload for POST /orders.
type OrderCreateRequest struct {
	MachineID string             `json:"machine_id" binding:"required"`
	Items     []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r OrderCreateRequest) Lines() []usecase.OrderLineInput {
	lines := make([]usecase.OrderLineInput, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, usecase.OrderLineInput{ItemID: it.ID, Quantity: it.Quantity})
	}
	return lines
}
