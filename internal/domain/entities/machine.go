package entities

import "time"

// MachineStatus is a coarse display tag for the machine's current activity.
type MachineStatus string

const (
	MachineStatusIdle      MachineStatus = "IDLE"
	MachineStatusPreparing MachineStatus = "PREPARING"
)

// Machine is the vending machine collaborator entity. Registration, admin
// CRUD and credential handling live outside this service; the core only
// needs identity and the active flag.
//
// Storage model (DynamoDB):
//   - PK: code (the machine's external identifier, e.g. "VM-0042")
type Machine struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`

	IsActive bool          `json:"is_active"`
	Status   MachineStatus `json:"status"`

	// CurrentOrderID is set while the machine is dispensing.
	CurrentOrderID string     `json:"current_order_id,omitempty"`
	LastOrderAt    *time.Time `json:"last_order_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
