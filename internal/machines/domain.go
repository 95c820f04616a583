package machines

import (
	"errors"
	"time"
)

// Status enumerates machine lifecycle states.
type Status string

const (
	StatusActive      Status = "active"
	StatusMaintenance Status = "maintenance"
	StatusRetired     Status = "retired"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusMaintenance, StatusRetired:
		return true
	}
	return false
}

// Machine is one deployed vending machine.
type Machine struct {
	ID                   int64      `json:"id"`
	Code                 string     `json:"code"`
	Model                string     `json:"model"`
	LocationID           *int64     `json:"location_id,omitempty"`
	AcquisitionCostCents int64      `json:"acquisition_cost_cents"`
	Status               Status     `json:"status"`
	InstalledAt          *time.Time `json:"installed_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type CreateMachineRequest struct {
	Code                 string `json:"code" validate:"required,max=50"`
	Model                string `json:"model" validate:"required,max=100"`
	LocationID           *int64 `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	AcquisitionCostCents int64  `json:"acquisition_cost_cents" validate:"gte=0"`
}

type UpdateMachineRequest struct {
	Model                *string `json:"model,omitempty" validate:"omitempty,max=100"`
	LocationID           *int64  `json:"location_id,omitempty" validate:"omitempty,gt=0"`
	AcquisitionCostCents *int64  `json:"acquisition_cost_cents,omitempty" validate:"omitempty,gte=0"`
	Status               *string `json:"status,omitempty"`
}

type ListMachinesRequest struct {
	LocationID *int64
	Status     *Status
	Limit      int
	Offset     int
}

var (
	ErrNotFound      = errors.New("machine not found")
	ErrDuplicateCode = errors.New("machine code already exists")
	ErrInvalidStatus = errors.New("invalid machine status")
)
