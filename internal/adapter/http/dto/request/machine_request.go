package request

// MachineStartRequest is presented by a machine after scanning a pickup code.
type MachineStartRequest struct {
	MachineID  string `json:"machine_id" binding:"required"`
	PickupCode string `json:"pickup_code" binding:"required,numeric,min=4,max=6"`
}
