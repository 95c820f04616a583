package locations

import (
	"errors"
	"time"
)

// Location is a venue hosting one or more machines.
type Location struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Address     *string   `json:"address,omitempty"`
	City        *string   `json:"city,omitempty"`
	FootTraffic int       `json:"foot_traffic"`
	IsActive    bool      `json:"is_active"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CreateLocationRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=300"`
	City        *string `json:"city,omitempty" validate:"omitempty,max=100"`
	FootTraffic int     `json:"foot_traffic" validate:"gte=0,lte=10"`
	Notes       *string `json:"notes,omitempty"`
}

type UpdateLocationRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=300"`
	City        *string `json:"city,omitempty" validate:"omitempty,max=100"`
	FootTraffic *int    `json:"foot_traffic,omitempty" validate:"omitempty,gte=0,lte=10"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type ListLocationsRequest struct {
	IsActive *bool
	Search   *string
	Limit    int
	Offset   int
}

var ErrNotFound = errors.New("location not found")
