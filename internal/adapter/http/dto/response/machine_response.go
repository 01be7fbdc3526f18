package response

import "vendomat/internal/domain/entities"

// MachineResponse is the public machine view for the storefront QR page.
type MachineResponse struct {
	MachineID string `json:"machine_id"`
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	Status    string `json:"status"`
	IsActive  bool   `json:"is_active"`
}

func FromMachine(m entities.Machine) MachineResponse {
	return MachineResponse{
		MachineID: m.Code,
		Name:      m.Name,
		Location:  m.Location,
		Status:    string(m.Status),
		IsActive:  m.IsActive,
	}
}

// MachineStartResponse is the minimal view a machine needs for its display.
type MachineStartResponse struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	MachineID     string `json:"machine_id"`
	MachineStatus string `json:"machine_status"`
}

func StartResponse(o entities.Order, m entities.Machine) MachineStartResponse {
	return MachineStartResponse{
		OrderID:       o.ID,
		Status:        string(o.Status),
		MachineID:     m.Code,
		MachineStatus: string(m.Status),
	}
}
