package entities

import "time"

// Item is a catalog entry. Catalog CRUD is out of scope; order creation only
// reads price, gst and availability, and freezes them into the order.
//
// Storage model (DynamoDB):
//   - PK: id
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	GST         float64 `json:"gst"`
	IsAvailable bool    `json:"is_available"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
