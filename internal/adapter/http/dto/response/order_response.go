package response

import (
	"time"

	"vendomat/internal/domain/entities"
)

type OrderLineResponse struct {
	ItemID    string  `json:"item_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	UnitGST   float64 `json:"unit_gst"`
}

type AmountResponse struct {
	Price float64 `json:"price"`
	GST   float64 `json:"gst"`
	Total float64 `json:"total"`
}

// OrderResponse is the public order view. The pickup code is never included
// here; it is only handed out by the dedicated pickup-code endpoint.
type OrderResponse struct {
	OrderID     string              `json:"order_id"`
	MachineID   string              `json:"machine_id"`
	Status      string              `json:"status"`
	Amount      AmountResponse      `json:"amount"`
	TotalAmount float64             `json:"total_amount"`
	Lines       []OrderLineResponse `json:"lines,omitempty"`
	Completed   bool                `json:"completed"`
	CreatedAt   time.Time           `json:"created_at"`
	PaidAt      *time.Time          `json:"paid_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

func FromOrder(o entities.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ItemID:    l.ItemID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			UnitGST:   l.UnitGST,
		})
	}
	return OrderResponse{
		OrderID:     o.ID,
		MachineID:   o.MachineID,
		Status:      string(o.Status),
		Amount:      AmountResponse{Price: o.Amount.Price, GST: o.Amount.GST, Total: o.Amount.Total},
		TotalAmount: o.Amount.Total,
		Lines:       lines,
		Completed:   o.Completed,
		CreatedAt:   o.CreatedAt,
		PaidAt:      o.PaidAt,
		CompletedAt: o.CompletedAt,
	}
}

// PickupCodeResponse is returned to the authenticated owner only.
type PickupCodeResponse struct {
	OrderID    string `json:"order_id"`
	PickupCode string `json:"pickup_code"`
	Status     string `json:"status"`
}

func FromOrderWithPickupCode(o entities.Order) PickupCodeResponse {
	return PickupCodeResponse{
		OrderID:    o.ID,
		PickupCode: o.PickupCode,
		Status:     string(o.Status),
	}
}

// OrderFlagResponse answers the storefront polling endpoints.
type OrderFlagResponse struct {
	OrderID string `json:"order_id,omitempty"`
	Value   bool   `json:"value"`
}
